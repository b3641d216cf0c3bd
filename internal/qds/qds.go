// Package qds implements the subset of the Qt QDataStream (Qt_5_2) wire
// encoding used by fingerprint containers.
//
// All integers are big-endian. Strings are written the way QDataStream
// serializes a C string: a uint32 length that counts the trailing NUL,
// the bytes, then the NUL. Byte arrays are a uint32 length followed by
// the bytes.
package qds

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/fpdb/internal/conv"
)

// preallocLimit is the largest byte array allocated up front by ReadBytes.
const preallocLimit = 1 << 20

// ByteOrder is the byte order of every integer in the stream.
var ByteOrder = binary.BigEndian

var (
	// ErrTooLarge is returned when a value does not fit the 32-bit length prefix.
	ErrTooLarge = errors.New("qds: value exceeds 32-bit length")
	// ErrShortBuffer is returned when decoding runs past the end of the input.
	ErrShortBuffer = errors.New("qds: short buffer")
	// ErrMissingTerminator is returned when a string lacks its trailing NUL.
	ErrMissingTerminator = errors.New("qds: string missing NUL terminator")
)

// CStringSize returns the encoded size of s.
func CStringSize(s []byte) int {
	return 4 + len(s) + 1
}

// AppendCString appends s in C-string form to dst.
func AppendCString(dst, s []byte) ([]byte, error) {
	n, err := conv.IntToUint32(len(s) + 1)
	if err != nil || n == math.MaxUint32 {
		return dst, ErrTooLarge
	}
	dst = ByteOrder.AppendUint32(dst, n)
	dst = append(dst, s...)
	return append(dst, 0), nil
}

// ReadCString decodes one C string from the front of src and returns it
// together with the remaining bytes. The returned slice aliases src.
func ReadCString(src []byte) (s, rest []byte, err error) {
	if len(src) < 4 {
		return nil, src, ErrShortBuffer
	}
	n := ByteOrder.Uint32(src)
	src = src[4:]
	if n == 0 || n == math.MaxUint32 {
		// Null string.
		return nil, src, nil
	}
	if uint64(len(src)) < uint64(n) {
		return nil, src, ErrShortBuffer
	}
	if src[n-1] != 0 {
		return nil, src, ErrMissingTerminator
	}
	return src[:n-1], src[n:], nil
}

// WriteInt32 writes v as a big-endian int32.
func WriteInt32(w io.Writer, v int32) error {
	var buf [4]byte
	ByteOrder.PutUint32(buf[:], uint32(v))
	_, err := w.Write(buf[:])
	return err
}

// WriteCString writes s in C-string form.
func WriteCString(w io.Writer, s []byte) error {
	buf, err := AppendCString(make([]byte, 0, CStringSize(s)), s)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// WriteBytes writes p as a length-prefixed byte array.
func WriteBytes(w io.Writer, p []byte) error {
	if uint64(len(p)) >= math.MaxUint32 {
		return ErrTooLarge
	}
	var buf [4]byte
	ByteOrder.PutUint32(buf[:], uint32(len(p)))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	_, err := w.Write(p)
	return err
}

// ReadInt32 reads a big-endian int32.
func ReadInt32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(ByteOrder.Uint32(buf[:])), nil
}

// ReadBytes reads a length-prefixed byte array. limit bounds the accepted
// length; a zero limit disables the check.
func ReadBytes(r io.Reader, limit uint32) ([]byte, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	n := ByteOrder.Uint32(buf[:])
	if n == math.MaxUint32 {
		return nil, nil
	}
	if limit > 0 && n > limit {
		return nil, fmt.Errorf("qds: byte array length %d exceeds limit %d", n, limit)
	}
	if n <= preallocLimit {
		p := make([]byte, n)
		if _, err := io.ReadFull(r, p); err != nil {
			return nil, err
		}
		return p, nil
	}

	// Large arrays grow with the data actually read so a corrupt length
	// cannot force a huge allocation.
	var b bytes.Buffer
	if _, err := io.CopyN(&b, r, int64(n)); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return b.Bytes(), nil
}

// ReadCStringFrom reads one C string from r.
func ReadCStringFrom(r io.Reader, limit uint32) ([]byte, error) {
	p, err := ReadBytes(r, limit)
	if err != nil || len(p) == 0 {
		return nil, err
	}
	if p[len(p)-1] != 0 {
		return nil, ErrMissingTerminator
	}
	return p[:len(p)-1], nil
}
