package container

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/fpdb/compression"
	"github.com/hupe1980/fpdb/internal/qds"
	"github.com/hupe1980/fpdb/model"
)

// Reader parses a container from an io.Reader.
type Reader struct {
	br    *bufio.Reader
	state state
}

// NewReader returns a Reader for r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, writeBufferSize)}
}

// ReadHeader reads the container header.
func (r *Reader) ReadHeader() (Header, error) {
	if r.state != stateHeader {
		return Header{}, fmt.Errorf("%w: header while expecting %s", ErrInvalidTransition, r.state)
	}
	version, err := qds.ReadInt32(r.br)
	if err != nil {
		return Header{}, corrupt("version", err)
	}
	if version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	key, err := qds.ReadCStringFrom(r.br, 1<<20)
	if err != nil {
		return Header{}, corrupt("db key", err)
	}
	bitCount, err := qds.ReadInt32(r.br)
	if err != nil {
		return Header{}, corrupt("bit count", err)
	}
	count, err := qds.ReadInt32(r.br)
	if err != nil {
		return Header{}, corrupt("record count", err)
	}

	h := Header{Version: version, DBKey: string(key), BitCount: bitCount, RecordCount: count}
	if err := h.validate(); err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	r.state = stateFingerprint
	return h, nil
}

// ReadStream reads the next chunk table and returns its kind and blocks.
func (r *Reader) ReadStream() (model.StreamKind, [][]byte, error) {
	if r.state < stateFingerprint || r.state > stateIdentifier {
		return 0, nil, fmt.Errorf("%w: stream while expecting %s", ErrInvalidTransition, r.state)
	}
	kind := r.state.kind()

	n, err := qds.ReadInt32(r.br)
	if err != nil {
		return kind, nil, corrupt(kind.String()+" chunk count", err)
	}
	if n < 0 || n > maxChunks {
		return kind, nil, fmt.Errorf("%w: %s chunk count %d", ErrCorrupt, kind, n)
	}

	blocks := make([][]byte, 0, n)
	for i := int32(0); i < n; i++ {
		b, err := qds.ReadBytes(r.br, maxBlockSize)
		if err != nil {
			return kind, nil, corrupt(fmt.Sprintf("%s chunk %d", kind, i), err)
		}
		if len(b) < compression.HeaderSize {
			return kind, nil, fmt.Errorf("%w: %s chunk %d has %d bytes", ErrCorrupt, kind, i, len(b))
		}
		blocks = append(blocks, b)
	}
	r.state++
	return kind, blocks, nil
}

func corrupt(what string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: reading %s: %w", ErrCorrupt, what, err)
}

// Container is a fully read container with compressed blocks.
type Container struct {
	Header Header
	Blocks [model.NumStreams][][]byte
}

// Read reads a whole container from r.
func Read(r io.Reader) (*Container, error) {
	cr := NewReader(r)
	h, err := cr.ReadHeader()
	if err != nil {
		return nil, err
	}
	c := &Container{Header: h}
	for range model.StreamOrder {
		kind, blocks, err := cr.ReadStream()
		if err != nil {
			return nil, err
		}
		c.Blocks[kind] = blocks
	}
	return c, nil
}

// Write writes c to w.
func (c *Container) Write(w io.Writer) error {
	cw := NewWriter(w)
	if err := cw.WriteHeader(c.Header); err != nil {
		return err
	}
	for _, kind := range model.StreamOrder {
		if err := cw.WriteStream(kind, c.Blocks[kind]); err != nil {
			return err
		}
	}
	return cw.Close()
}

// Stream decompresses the chunks of kind and returns their concatenation.
func (c *Container) Stream(kind model.StreamKind) ([]byte, error) {
	var out []byte
	for i, b := range c.Blocks[kind] {
		chunk, err := compression.Decompress(b)
		if err != nil {
			return nil, fmt.Errorf("%s chunk %d: %w", kind, i, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// Records decodes every record. It fails with ErrCorrupt when the streams
// disagree with each other or with the record count.
func (c *Container) Records() ([]model.Record, error) {
	var data [model.NumStreams][]byte
	for _, kind := range model.StreamOrder {
		d, err := c.Stream(kind)
		if err != nil {
			return nil, err
		}
		data[kind] = d
	}

	count := int(c.Header.RecordCount)
	size := c.Header.FingerprintSize()
	fps := data[model.StreamFingerprint]
	if len(fps) != count*size {
		return nil, fmt.Errorf("%w: fingerprint stream has %d bytes, want %d", ErrCorrupt, len(fps), count*size)
	}

	texts, err := splitCStrings(data[model.StreamText], count)
	if err != nil {
		return nil, fmt.Errorf("%w: text stream: %w", ErrCorrupt, err)
	}
	ids, err := splitCStrings(data[model.StreamIdentifier], count)
	if err != nil {
		return nil, fmt.Errorf("%w: identifier stream: %w", ErrCorrupt, err)
	}

	records := make([]model.Record, count)
	for i := range records {
		records[i] = model.Record{
			CanonicalText: texts[i],
			Identifier:    ids[i],
			Fingerprint:   fps[i*size : (i+1)*size],
		}
	}
	return records, nil
}

func splitCStrings(data []byte, count int) ([][]byte, error) {
	out := make([][]byte, 0, count)
	for len(data) > 0 {
		s, rest, err := qds.ReadCString(data)
		if err != nil {
			return nil, err
		}
		if s == nil {
			s = []byte{}
		}
		out = append(out, bytes.Clone(s))
		data = rest
	}
	if len(out) != count {
		return nil, fmt.Errorf("got %d strings, want %d", len(out), count)
	}
	return out, nil
}
