package input

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/hupe1980/fpdb/dispatch"
)

// DefaultBatchBytes is the default byte budget of one batch.
const DefaultBatchBytes = 10_000_000

// BatchReader splits a line stream into batches. A batch holds whole lines
// and ends with the first line that brings its size to the byte budget,
// so every batch holds at least one line.
type BatchReader struct {
	br     *bufio.Reader
	budget int
	next   int
	err    error
}

// NewBatchReader returns a BatchReader over r. budget <= 0 uses
// DefaultBatchBytes.
func NewBatchReader(r io.Reader, budget int) *BatchReader {
	if budget <= 0 {
		budget = DefaultBatchBytes
	}
	return &BatchReader{br: bufio.NewReaderSize(r, 1<<20), budget: budget, next: 1}
}

// LinesRead returns the number of lines returned so far.
func (b *BatchReader) LinesRead() int {
	return b.next - 1
}

// Next returns the next batch. It returns io.EOF once the input is
// exhausted. Line terminators ("\n" or "\r\n") are stripped.
func (b *BatchReader) Next() (dispatch.Batch, error) {
	if b.err != nil {
		return dispatch.Batch{}, b.err
	}

	var texts []string
	size := 0
	for size < b.budget {
		line, err := b.br.ReadBytes('\n')
		if len(line) > 0 {
			size += len(line)
			line = bytes.TrimSuffix(line, []byte{'\n'})
			line = bytes.TrimSuffix(line, []byte{'\r'})
			texts = append(texts, string(line))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				b.err = err
				return dispatch.Batch{}, err
			}
			b.err = io.EOF
			break
		}
	}

	if len(texts) == 0 {
		return dispatch.Batch{}, io.EOF
	}
	batch := dispatch.NewBatch(b.next, texts)
	b.next += len(texts)
	return batch, nil
}
