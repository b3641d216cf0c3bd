package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// Store creates, opens and deletes named blobs.
// Implementations must be safe for concurrent use.
type Store interface {
	// Create starts a new blob. It replaces any existing blob of the same
	// name once the returned blob is closed successfully.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
}

// WritableBlob is a blob being written.
type WritableBlob interface {
	io.Writer
	// Close commits the blob.
	Close() error
	// Abort discards the blob. It is a no-op after Close.
	Abort() error
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// Mappable is implemented by blobs whose content is addressable in memory.
type Mappable interface {
	// Bytes returns the blob content. The slice is valid until the Blob is
	// closed.
	Bytes() ([]byte, error)
}

// NewReader returns a sequential reader over the whole blob.
func NewReader(b Blob) io.Reader {
	return io.NewSectionReader(b, 0, b.Size())
}

// Put writes data as a complete blob.
func Put(ctx context.Context, s Store, name string, data []byte) error {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Abort()
		return err
	}
	return w.Close()
}

// ReadAll returns the full content of the named blob.
func ReadAll(ctx context.Context, s Store, name string) ([]byte, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if m, ok := b.(Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), data...), nil
	}
	return io.ReadAll(NewReader(b))
}
