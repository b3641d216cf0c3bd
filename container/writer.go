package container

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/fpdb/compression"
	"github.com/hupe1980/fpdb/internal/conv"
	"github.com/hupe1980/fpdb/internal/qds"
	"github.com/hupe1980/fpdb/model"
)

const writeBufferSize = 256 * 1024

// Writer emits a container to an io.Writer.
type Writer struct {
	bw    *bufio.Writer
	state state
	err   error
	n     int64
}

// NewWriter returns a Writer that buffers output to w. Close flushes the
// buffer but does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, writeBufferSize)}
}

// BytesWritten returns the number of bytes accepted so far.
func (w *Writer) BytesWritten() int64 {
	return w.n
}

func (w *Writer) transition(want state, op string) error {
	if w.err != nil {
		return w.err
	}
	if w.state != want {
		return fmt.Errorf("%w: %s while expecting %s", ErrInvalidTransition, op, w.state)
	}
	return nil
}

// WriteHeader writes the version, db key, bit count and record count.
func (w *Writer) WriteHeader(h Header) error {
	if err := w.transition(stateHeader, "header"); err != nil {
		return err
	}
	if h.Version == 0 {
		h.Version = Version
	}
	if err := h.validate(); err != nil {
		return err
	}

	// The header is assembled first so a rejected db key writes nothing.
	var buf bytes.Buffer
	buf.Grow(16 + len(h.DBKey))
	_ = qds.WriteInt32(&buf, h.Version)
	if err := qds.WriteCString(&buf, []byte(h.DBKey)); err != nil {
		return fmt.Errorf("%w: db key: %w", ErrInvalidHeader, err)
	}
	_ = qds.WriteInt32(&buf, h.BitCount)
	_ = qds.WriteInt32(&buf, h.RecordCount)

	if err := w.write(buf.Bytes()); err != nil {
		return err
	}
	w.state = stateFingerprint
	return nil
}

// WriteStream writes the chunk table of kind. blocks are qCompress blocks
// in chunk creation order. kind must be the next stream in
// model.StreamOrder.
func (w *Writer) WriteStream(kind model.StreamKind, blocks [][]byte) error {
	if w.err != nil {
		return w.err
	}
	if w.state < stateFingerprint || w.state > stateIdentifier || w.state.kind() != kind {
		return fmt.Errorf("%w: %s stream while expecting %s", ErrInvalidTransition, kind, w.state)
	}
	count, err := conv.IntToInt32(len(blocks))
	if err != nil {
		return fmt.Errorf("container: %s chunk count: %w", kind, err)
	}
	for i, b := range blocks {
		if len(b) < compression.HeaderSize || uint64(len(b)) >= math.MaxUint32 {
			return fmt.Errorf("container: %s chunk %d: invalid block size %d", kind, i, len(b))
		}
	}

	out := sink{w}
	if err := qds.WriteInt32(out, count); err != nil {
		return err
	}
	for _, b := range blocks {
		if err := qds.WriteBytes(out, b); err != nil {
			return err
		}
	}
	w.state++
	return nil
}

// Close flushes buffered output. It fails with ErrIncomplete unless the
// header and all three streams were written. Close is idempotent after a
// successful call.
func (w *Writer) Close() error {
	if w.state == stateClosed {
		return nil
	}
	if w.err != nil {
		return w.err
	}
	if w.state != stateDone {
		return fmt.Errorf("%w: expecting %s", ErrIncomplete, w.state)
	}
	if err := w.bw.Flush(); err != nil {
		w.err = err
		return err
	}
	w.state = stateClosed
	return nil
}

// sink adapts Writer.write to io.Writer.
type sink struct{ w *Writer }

func (s sink) Write(p []byte) (int, error) {
	if err := s.w.write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *Writer) write(p []byte) error {
	if w.err != nil {
		return w.err
	}
	n, err := w.bw.Write(p)
	w.n += int64(n)
	if err != nil {
		w.err = err
	}
	return err
}
