// Package config loads build settings for the fpdb commands.
//
// Configuration comes from a single YAML file named by the --config flag
// or the FPDB_CONFIG environment variable. Command-line flags override
// values from the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "FPDB_CONFIG"

// Config holds build settings.
type Config struct {
	// DBKey is stored in the container header.
	DBKey string `yaml:"db_key"`

	// TrustInput skips structure sanitization.
	TrustInput bool `yaml:"trust_input"`

	// SingleThreaded forces sequential dispatch and compression.
	SingleThreaded bool `yaml:"single_threaded"`

	// Workers is the dispatch pool size. 0 uses GOMAXPROCS.
	Workers int `yaml:"workers"`

	// BitCount is the fingerprint length in bits.
	// Default: 1024
	BitCount int `yaml:"bit_count"`

	// BatchBytes bounds the input read per batch.
	// Default: 10000000
	BatchBytes int `yaml:"batch_bytes"`

	// CompressionLevel is the zlib level, 0 for the default level.
	CompressionLevel int `yaml:"compression_level"`

	// MemoryLimit bounds the bytes of in-flight batches. 0 is unlimited.
	MemoryLimit int64 `yaml:"memory_limit"`

	// IORate limits output writes in bytes per second. 0 is unlimited.
	IORate int `yaml:"io_rate"`

	// Manifest selects the sidecar manifest codec: "", "json" or "cbor".
	Manifest string `yaml:"manifest"`

	// CatalogTable is the DynamoDB table to publish to. Empty disables
	// publishing.
	CatalogTable string `yaml:"catalog_table"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`

	// Format is text or json.
	// Default: text
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		BitCount:   1024,
		BatchBytes: 10_000_000,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads the file named by FPDB_CONFIG, or returns Default when the
// variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path on top of Default. Unknown keys
// are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data on top of Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.BitCount <= 0 || c.BitCount%32 != 0 {
		errs = append(errs, fmt.Errorf("bit_count must be a positive multiple of 32, got %d", c.BitCount))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.BatchBytes < 0 {
		errs = append(errs, fmt.Errorf("batch_bytes must not be negative, got %d", c.BatchBytes))
	}
	if c.CompressionLevel < -2 || c.CompressionLevel > 9 {
		errs = append(errs, fmt.Errorf("compression_level must be in [-2, 9], got %d", c.CompressionLevel))
	}
	if c.MemoryLimit < 0 || c.IORate < 0 {
		errs = append(errs, errors.New("memory_limit and io_rate must not be negative"))
	}
	switch c.Manifest {
	case "", "json", "cbor":
	default:
		errs = append(errs, fmt.Errorf("manifest must be json or cbor, got %q", c.Manifest))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
