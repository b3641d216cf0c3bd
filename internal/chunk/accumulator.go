package chunk

import (
	"errors"
	"fmt"

	"github.com/hupe1980/fpdb/internal/qds"
	"github.com/hupe1980/fpdb/model"
)

var (
	// ErrFinished is returned when appending to a finished Accumulator.
	ErrFinished = errors.New("chunk: accumulator is finished")
	// ErrFingerprintSize is returned when a record's fingerprint length
	// does not match the configured size.
	ErrFingerprintSize = errors.New("chunk: fingerprint size mismatch")
)

// Options configures an Accumulator.
type Options struct {
	// Capacity is the per-chunk size cap in bytes. Defaults to DefaultCapacity.
	Capacity int
	// FingerprintSize is the required fingerprint length in bytes.
	// Zero disables the check.
	FingerprintSize int
	// OnSeal is invoked for every sealed chunk. Optional.
	OnSeal SealFunc
}

// Accumulator appends records to the fingerprint, text and identifier
// streams in lock-step.
type Accumulator struct {
	streams  [model.NumStreams]*Stream
	fpSize   int
	count    int
	finished bool
	scratch  []byte
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator(opts Options) *Accumulator {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	a := &Accumulator{fpSize: opts.FingerprintSize}
	for _, kind := range model.StreamOrder {
		a.streams[kind] = newStream(kind, opts.Capacity, opts.OnSeal)
	}
	return a
}

// Append adds rec to all three streams. The record is validated before
// any stream is touched so a rejected record leaves the streams unchanged.
func (a *Accumulator) Append(rec model.Record) error {
	if a.finished {
		return ErrFinished
	}
	if a.fpSize > 0 && len(rec.Fingerprint) != a.fpSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFingerprintSize, len(rec.Fingerprint), a.fpSize)
	}

	text, err := qds.AppendCString(a.scratch[:0], rec.CanonicalText)
	if err != nil {
		return err
	}
	split := len(text)
	text, err = qds.AppendCString(text, rec.Identifier)
	if err != nil {
		return err
	}
	a.scratch = text

	if err := a.streams[model.StreamFingerprint].write(rec.Fingerprint); err != nil {
		return err
	}
	if err := a.streams[model.StreamText].write(text[:split]); err != nil {
		return err
	}
	if err := a.streams[model.StreamIdentifier].write(text[split:]); err != nil {
		return err
	}
	a.count++
	return nil
}

// Count returns the number of records appended.
func (a *Accumulator) Count() int {
	return a.count
}

// Stream returns the stream of the given kind.
func (a *Accumulator) Stream(kind model.StreamKind) *Stream {
	return a.streams[kind]
}

// Finish seals every open chunk and returns the streams in StreamOrder.
// Finish is idempotent; no records may be appended afterwards.
func (a *Accumulator) Finish() [model.NumStreams]*Stream {
	if !a.finished {
		for _, kind := range model.StreamOrder {
			a.streams[kind].finish()
		}
		a.finished = true
		a.scratch = nil
	}
	return a.streams
}
