package chunk

import "errors"

// DefaultCapacity is the per-chunk size cap (1 GiB).
const DefaultCapacity = 1 << 30

// ErrSealed is returned when writing to a sealed buffer.
var ErrSealed = errors.New("chunk: buffer is sealed")

// Buffer is a growable byte buffer that becomes immutable once sealed.
type Buffer struct {
	data   []byte
	sealed bool
}

// Len returns the number of bytes in the buffer.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Bytes returns the buffer contents. The slice must not be modified.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Sealed reports whether the buffer is sealed.
func (b *Buffer) Sealed() bool {
	return b.sealed
}

func (b *Buffer) write(p []byte) error {
	if b.sealed {
		return ErrSealed
	}
	b.data = append(b.data, p...)
	return nil
}

func (b *Buffer) seal() {
	b.sealed = true
}
