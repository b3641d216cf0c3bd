package compression

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// HeaderSize is the size of the original-length prefix of a block.
const HeaderSize = 4

var (
	// ErrBlockTooSmall is returned when a block is shorter than its header.
	ErrBlockTooSmall = errors.New("compression: block too small for header")
	// ErrSizeMismatch is returned when the decompressed size differs from
	// the size recorded in the block header.
	ErrSizeMismatch = errors.New("compression: decompressed size mismatch")
	// ErrChunkTooLarge is returned for chunks that do not fit the 32-bit header.
	ErrChunkTooLarge = errors.New("compression: chunk exceeds 32-bit length")
)

// Compressor compresses chunks into qCompress-compatible blocks.
// The zero value uses zlib.DefaultCompression. A Compressor is safe for
// concurrent use.
type Compressor struct {
	// Level is the zlib compression level (-1..9). Zero means default.
	Level int

	once    sync.Once
	writers sync.Pool
	initErr error
}

// NewCompressor returns a Compressor using the given zlib level.
func NewCompressor(level int) (*Compressor, error) {
	c := &Compressor{Level: level}
	if err := c.init(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Compressor) level() int {
	if c.Level == 0 {
		return zlib.DefaultCompression
	}
	return c.Level
}

func (c *Compressor) init() error {
	c.once.Do(func() {
		if _, err := zlib.NewWriterLevel(io.Discard, c.level()); err != nil {
			c.initErr = fmt.Errorf("compression: invalid zlib level %d: %w", c.Level, err)
		}
	})
	return c.initErr
}

func (c *Compressor) getWriter(w io.Writer) *zlib.Writer {
	if v := c.writers.Get(); v != nil {
		zw := v.(*zlib.Writer)
		zw.Reset(w)
		return zw
	}
	// Level was validated in init.
	zw, _ := zlib.NewWriterLevel(w, c.level())
	return zw
}

// Compress returns the compressed block for chunk.
func (c *Compressor) Compress(chunk []byte) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, err
	}
	if uint64(len(chunk)) > math.MaxUint32 {
		return nil, ErrChunkTooLarge
	}
	if len(chunk) == 0 {
		return make([]byte, HeaderSize), nil
	}

	var buf bytes.Buffer
	buf.Grow(HeaderSize + len(chunk)/2)
	var hdr [HeaderSize]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(chunk)))
	buf.Write(hdr[:])

	zw := c.getWriter(&buf)
	defer c.writers.Put(zw)

	if _, err := zw.Write(chunk); err != nil {
		return nil, fmt.Errorf("compression: zlib write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compression: zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

// OriginalSize returns the uncompressed size recorded in block.
func OriginalSize(block []byte) (int, error) {
	if len(block) < HeaderSize {
		return 0, ErrBlockTooSmall
	}
	return int(binary.BigEndian.Uint32(block)), nil
}

// Decompress restores the original chunk from block.
func Decompress(block []byte) ([]byte, error) {
	size, err := OriginalSize(block)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return []byte{}, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(block[HeaderSize:]))
	if err != nil {
		return nil, fmt.Errorf("compression: zlib header: %w", err)
	}
	defer zr.Close()

	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: expected %d bytes", ErrSizeMismatch, size)
		}
		return nil, fmt.Errorf("compression: zlib read: %w", err)
	}

	// The stream must end exactly at the recorded size.
	var extra [1]byte
	n, err := zr.Read(extra[:])
	if n != 0 {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrSizeMismatch, size)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("compression: zlib read: %w", err)
	}
	return out, nil
}
