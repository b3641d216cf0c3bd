package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1024, cfg.BitCount)
	assert.Equal(t, 10_000_000, cfg.BatchBytes)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
db_key: chembl-33
trust_input: true
workers: 4
bit_count: 2048
manifest: cbor
log:
  level: debug
  format: json
`))
	require.NoError(t, err)
	assert.Equal(t, "chembl-33", cfg.DBKey)
	assert.True(t, cfg.TrustInput)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 2048, cfg.BitCount)
	assert.Equal(t, 10_000_000, cfg.BatchBytes, "unset keys keep defaults")
	assert.Equal(t, "cbor", cfg.Manifest)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":       "dbkey: x\n",
		"bit count":         "bit_count: 100\n",
		"negative workers":  "workers: -1\n",
		"compression level": "compression_level: 12\n",
		"manifest codec":    "manifest: xml\n",
		"log format":        "log:\n  format: logfmt\n",
		"log level":         "log:\n  level: loud\n",
		"syntax":            "db_key: [\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvVar, "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "fpdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_key: from-env\n"), 0o600))
	t.Setenv(EnvVar, path)
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.DBKey)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
