package blobstore

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/fpdb/internal/fs"
	"github.com/hupe1980/fpdb/internal/mmap"
)

// ErrClosed is returned when writing to a committed or aborted blob.
var ErrClosed = errors.New("blobstore: blob is closed")

// LocalStore implements Store on the local file system.
type LocalStore struct {
	root string
	fs   fs.FileSystem
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithFileSystem replaces the file system used for writes.
func WithFileSystem(fsys fs.FileSystem) LocalOption {
	return func(s *LocalStore) {
		s.fs = fsys
	}
}

// NewLocalStore creates a new LocalStore rooted at the given directory.
// Absolute names bypass the root.
func NewLocalStore(root string, opts ...LocalOption) *LocalStore {
	s := &LocalStore{root: root, fs: fs.Default}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LocalStore) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.root, name)
}

// Create writes to a temporary file next to the target and renames it
// into place on Close.
func (s *LocalStore) Create(_ context.Context, name string) (WritableBlob, error) {
	target := s.path(name)
	if err := s.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, err
	}

	var suffix [6]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return nil, err
	}
	tmp := target + ".tmp-" + hex.EncodeToString(suffix[:])

	f, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &localWritableBlob{
		fs:     s.fs,
		f:      f,
		buf:    bufio.NewWriterSize(f, 256*1024),
		tmp:    tmp,
		target: target,
	}, nil
}

// Open maps the blob into memory.
func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	m, err := mmap.Open(s.path(name))
	if err != nil {
		return nil, err
	}
	return &localBlob{m: m}, nil
}

// Delete removes the blob.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	err := s.fs.Remove(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

type localBlob struct {
	m *mmap.Mapping
}

func (b *localBlob) ReadAt(p []byte, off int64) (int, error) {
	return b.m.ReadAt(p, off)
}

func (b *localBlob) Close() error {
	return b.m.Close()
}

func (b *localBlob) Size() int64 {
	return int64(b.m.Size())
}

func (b *localBlob) Bytes() ([]byte, error) {
	if err := b.m.Advise(mmap.AccessSequential); err != nil {
		return nil, err
	}
	return b.m.Bytes(), nil
}

type localWritableBlob struct {
	mu     sync.Mutex
	fs     fs.FileSystem
	f      fs.File
	buf    *bufio.Writer
	tmp    string
	target string
	done   bool
}

func (w *localWritableBlob) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return 0, ErrClosed
	}
	return w.buf.Write(p)
}

func (w *localWritableBlob) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return ErrClosed
	}
	w.done = true

	if err := w.commit(); err != nil {
		_ = w.fs.Remove(w.tmp)
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(filepath.Dir(w.target)); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

func (w *localWritableBlob) commit() error {
	if err := w.buf.Flush(); err != nil {
		_ = w.f.Close()
		return err
	}
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		return err
	}
	if err := w.f.Close(); err != nil {
		return err
	}
	return w.fs.Rename(w.tmp, w.target)
}

func (w *localWritableBlob) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return nil
	}
	w.done = true
	w.buf.Reset(io.Discard)
	_ = w.f.Close()
	return w.fs.Remove(w.tmp)
}
