// Package manifest writes and reads the sidecar file describing a built
// container.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/fpdb/blobstore"
	"github.com/hupe1980/fpdb/codec"
)

// CurrentVersion is the manifest schema version.
const CurrentVersion = 1

const infix = ".manifest."

// ErrUnknownCodec is returned when a manifest name carries no known codec.
var ErrUnknownCodec = errors.New("manifest: unknown codec")

// Manifest describes one build.
type Manifest struct {
	Version     int          `json:"version"`
	Container   string       `json:"container"`
	Format      int32        `json:"format"`
	DBKey       string       `json:"db_key"`
	Algorithm   string       `json:"algorithm"`
	TrustInput  bool         `json:"trust_input"`
	BitCount    int32        `json:"bit_count"`
	RecordCount int32        `json:"record_count"`
	LinesRead   int64        `json:"lines_read"`
	Skipped     uint64       `json:"skipped"`
	Size        int64        `json:"size"`
	Digest      string       `json:"digest"`
	Streams     []StreamInfo `json:"streams"`
	CreatedAt   time.Time    `json:"created_at"`
}

// StreamInfo describes one stream of the container.
type StreamInfo struct {
	Kind            string `json:"kind"`
	Chunks          int    `json:"chunks"`
	OriginalBytes   int64  `json:"original_bytes"`
	CompressedBytes int64  `json:"compressed_bytes"`
}

// Name returns the manifest name for container written with c.
func Name(container string, c codec.Codec) string {
	return container + infix + c.Name()
}

func codecOf(name string) (codec.Codec, error) {
	i := strings.LastIndex(name, infix)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	c, ok := codec.ByName(name[i+len(infix):])
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return c, nil
}

// Write stores m next to container and returns the manifest name.
// A nil codec uses codec.Default.
func Write(ctx context.Context, store blobstore.Store, container string, m *Manifest, c codec.Codec) (string, error) {
	if c == nil {
		c = codec.Default
	}
	if m.Version == 0 {
		m.Version = CurrentVersion
	}
	data, err := c.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("manifest: encoding: %w", err)
	}
	name := Name(container, c)
	if err := blobstore.Put(ctx, store, name, data); err != nil {
		return "", fmt.Errorf("manifest: writing %s: %w", name, err)
	}
	return name, nil
}

// Read loads the manifest called name, selecting the codec from the name.
func Read(ctx context.Context, store blobstore.Store, name string) (*Manifest, error) {
	c, err := codecOf(name)
	if err != nil {
		return nil, err
	}
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, fmt.Errorf("manifest: reading %s: %w", name, err)
	}
	var m Manifest
	if err := c.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: decoding %s: %w", name, err)
	}
	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("manifest: unsupported version %d", m.Version)
	}
	return &m, nil
}
