package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmap_OpenReadClose(t *testing.T) {
	content := []byte{0, 0, 0, 3, 0, 0, 0, 1, 0}
	path := filepath.Join(t.TempDir(), "db.fpdb")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	m, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, len(content), m.Size())
	assert.Equal(t, content, m.Bytes())
	require.NoError(t, m.Advise(AccessSequential))

	buf := make([]byte, 4)
	n, err := m.ReadAt(buf, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{0, 0, 0, 1}, buf)

	n, err = m.ReadAt(buf, 7)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)

	_, err = m.ReadAt(buf, -1)
	assert.ErrorIs(t, err, ErrInvalidOffset)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())
	_, err = m.ReadAt(buf, 0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
}

func TestMmap_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, 0, m.Size())
	assert.NoError(t, m.Advise(AccessSequential))
}

func TestMmap_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
