package manifest

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/fpdb/blobstore"
	"github.com/hupe1980/fpdb/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleManifest() *Manifest {
	return &Manifest{
		Container:   "db.fpdb",
		Format:      3,
		DBKey:       "chembl",
		Algorithm:   "Morgan",
		BitCount:    1024,
		RecordCount: 3,
		LinesRead:   4,
		Skipped:     1,
		Size:        123,
		Digest:      "abcd",
		Streams: []StreamInfo{
			{Kind: "fingerprint", Chunks: 1, OriginalBytes: 384, CompressedBytes: 40},
			{Kind: "text", Chunks: 1, OriginalBytes: 20, CompressedBytes: 30},
			{Kind: "identifier", Chunks: 1, OriginalBytes: 24, CompressedBytes: 28},
		},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWriteRead(t *testing.T) {
	for _, c := range []codec.Codec{codec.JSON{}, codec.CBOR{}} {
		t.Run(c.Name(), func(t *testing.T) {
			ctx := context.Background()
			store := blobstore.NewMemoryStore()

			in := sampleManifest()
			name, err := Write(ctx, store, "db.fpdb", in, c)
			require.NoError(t, err)
			assert.Equal(t, "db.fpdb.manifest."+c.Name(), name)
			assert.Equal(t, CurrentVersion, in.Version)

			out, err := Read(ctx, store, name)
			require.NoError(t, err)
			assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
			out.CreatedAt = in.CreatedAt
			assert.Equal(t, in, out)
		})
	}
}

func TestWriteDefaultCodec(t *testing.T) {
	store := blobstore.NewMemoryStore()
	name, err := Write(context.Background(), store, "db.fpdb", sampleManifest(), nil)
	require.NoError(t, err)
	assert.Equal(t, "db.fpdb.manifest.json", name)
}

func TestReadErrors(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	_, err := Read(ctx, store, "db.fpdb.manifest.xml")
	assert.ErrorIs(t, err, ErrUnknownCodec)

	_, err = Read(ctx, store, "db.fpdb")
	assert.ErrorIs(t, err, ErrUnknownCodec)

	_, err = Read(ctx, store, "missing.fpdb.manifest.json")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, blobstore.Put(ctx, store, "bad.manifest.json", []byte("{")))
	_, err = Read(ctx, store, "bad.manifest.json")
	assert.Error(t, err)

	require.NoError(t, blobstore.Put(ctx, store, "future.manifest.json", []byte(`{"version":9}`)))
	_, err = Read(ctx, store, "future.manifest.json")
	assert.ErrorContains(t, err, "unsupported version")
}
