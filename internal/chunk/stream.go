package chunk

import (
	"github.com/hupe1980/fpdb/model"
)

// SealFunc is called once for every chunk that becomes sealed.
// data is immutable and remains valid for the lifetime of the Stream.
type SealFunc func(kind model.StreamKind, id int, data []byte)

// Stream is the ordered sequence of chunks for one record field.
type Stream struct {
	kind     model.StreamKind
	capacity int
	chunks   []*Buffer
	onSeal   SealFunc
	size     int64
}

func newStream(kind model.StreamKind, capacity int, onSeal SealFunc) *Stream {
	return &Stream{
		kind:     kind,
		capacity: capacity,
		onSeal:   onSeal,
	}
}

// Kind returns the stream kind.
func (s *Stream) Kind() model.StreamKind {
	return s.kind
}

// NumChunks returns the number of chunks, including the open one.
func (s *Stream) NumChunks() int {
	return len(s.chunks)
}

// Chunk returns the buffer with the given chunk id.
func (s *Stream) Chunk(id int) *Buffer {
	return s.chunks[id]
}

// Size returns the total number of bytes appended to the stream.
func (s *Stream) Size() int64 {
	return s.size
}

// Sealed returns the contents of every sealed chunk in creation order.
func (s *Stream) Sealed() [][]byte {
	out := make([][]byte, 0, len(s.chunks))
	for _, c := range s.chunks {
		if !c.sealed {
			break
		}
		out = append(out, c.data)
	}
	return out
}

// Concat returns the concatenation of all chunks in creation order.
func (s *Stream) Concat() []byte {
	out := make([]byte, 0, s.size)
	for _, c := range s.chunks {
		out = append(out, c.data...)
	}
	return out
}

// open returns the chunk that receives the next write. The current chunk
// is sealed only once its size has reached the cap, so a chunk may exceed
// the cap by less than one field.
func (s *Stream) open() *Buffer {
	if len(s.chunks) > 0 {
		cur := s.chunks[len(s.chunks)-1]
		if !cur.sealed {
			if cur.Len() < s.capacity {
				return cur
			}
			s.sealLast()
		}
	}
	b := &Buffer{}
	s.chunks = append(s.chunks, b)
	return b
}

func (s *Stream) write(p []byte) error {
	if err := s.open().write(p); err != nil {
		return err
	}
	s.size += int64(len(p))
	return nil
}

func (s *Stream) sealLast() {
	id := len(s.chunks) - 1
	b := s.chunks[id]
	if b.sealed {
		return
	}
	b.seal()
	if s.onSeal != nil {
		s.onSeal(s.kind, id, b.data)
	}
}

// finish seals the open chunk. A stream that never received data gets a
// single empty sealed chunk.
func (s *Stream) finish() {
	if len(s.chunks) == 0 {
		s.chunks = append(s.chunks, &Buffer{})
	}
	s.sealLast()
}
