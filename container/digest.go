package container

import (
	"encoding/hex"
	"io"

	"github.com/zeebo/blake3"
)

// DigestWriter wraps an io.Writer and computes a running BLAKE3 digest of
// the bytes written through it.
type DigestWriter struct {
	w    io.Writer
	hash *blake3.Hasher
	n    int64
}

// NewDigestWriter creates a new digesting writer.
func NewDigestWriter(w io.Writer) *DigestWriter {
	return &DigestWriter{w: w, hash: blake3.New()}
}

// Write implements io.Writer. Only bytes accepted by the underlying writer
// are digested.
func (dw *DigestWriter) Write(p []byte) (int, error) {
	n, err := dw.w.Write(p)
	_, _ = dw.hash.Write(p[:n])
	dw.n += int64(n)
	return n, err
}

// Size returns the number of bytes written.
func (dw *DigestWriter) Size() int64 {
	return dw.n
}

// Sum returns the digest of everything written so far.
func (dw *DigestWriter) Sum() [32]byte {
	var sum [32]byte
	copy(sum[:], dw.hash.Sum(nil))
	return sum
}

// Hex returns Sum as a hex string.
func (dw *DigestWriter) Hex() string {
	sum := dw.Sum()
	return hex.EncodeToString(sum[:])
}

// Digest returns the BLAKE3 digest of data as a hex string.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
