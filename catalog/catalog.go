package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrConcurrentModification is returned when another publisher took
	// the version on every attempt.
	ErrConcurrentModification = errors.New("catalog: concurrent modification detected")
	// ErrNotFound is returned by Latest for unknown db keys.
	ErrNotFound = errors.New("catalog: no published version")
)

// Entry describes one published container.
type Entry struct {
	DBKey       string
	Version     uint64
	URI         string
	RecordCount int64
	Digest      string
	CreatedAt   time.Time
}

// Catalog publishes containers.
type Catalog interface {
	// Publish stores e under the next version of e.DBKey and returns the
	// stored entry.
	Publish(ctx context.Context, e Entry) (Entry, error)
	// Latest returns the highest version published for dbKey.
	Latest(ctx context.Context, dbKey string) (Entry, error)
}
