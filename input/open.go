package input

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Format is the detected encoding of an input stream.
type Format uint8

const (
	FormatPlain Format = iota
	FormatGzip
	FormatZstd
	FormatLZ4
)

func (f Format) String() string {
	switch f {
	case FormatGzip:
		return "gzip"
	case FormatZstd:
		return "zstd"
	case FormatLZ4:
		return "lz4"
	default:
		return "plain"
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Detect returns the format indicated by the leading bytes of p.
func Detect(p []byte) Format {
	switch {
	case bytes.HasPrefix(p, gzipMagic):
		return FormatGzip
	case bytes.HasPrefix(p, zstdMagic):
		return FormatZstd
	case bytes.HasPrefix(p, lz4Magic):
		return FormatLZ4
	default:
		return FormatPlain
	}
}

type readCloser struct {
	io.Reader
	closers []func() error
}

func (rc *readCloser) Close() error {
	var errs []error
	for _, c := range rc.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewReader wraps r with the decompressor matching its magic bytes.
// Closing the result releases decompressor resources but does not close r.
func NewReader(r io.Reader) (io.ReadCloser, Format, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	head, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, FormatPlain, fmt.Errorf("input: sniffing format: %w", err)
	}

	format := Detect(head)
	switch format {
	case FormatGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, format, fmt.Errorf("input: gzip: %w", err)
		}
		return &readCloser{Reader: zr, closers: []func() error{zr.Close}}, format, nil
	case FormatZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, format, fmt.Errorf("input: zstd: %w", err)
		}
		return &readCloser{Reader: zr, closers: []func() error{func() error { zr.Close(); return nil }}}, format, nil
	case FormatLZ4:
		return &readCloser{Reader: lz4.NewReader(br)}, format, nil
	default:
		return &readCloser{Reader: br}, format, nil
	}
}

// Open opens the file at path, or standard input for "-".
func Open(path string) (io.ReadCloser, Format, error) {
	if path == "-" {
		return NewReader(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, FormatPlain, fmt.Errorf("input: %w", err)
	}
	rc, format, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, format, err
	}
	wrapped := rc.(*readCloser)
	wrapped.closers = append(wrapped.closers, f.Close)
	return wrapped, format, nil
}
