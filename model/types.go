package model

import (
	"fmt"
)

// StreamKind identifies one of the three parallel record streams.
type StreamKind uint8

const (
	// StreamFingerprint holds the fixed-length fingerprint bytes.
	StreamFingerprint StreamKind = iota
	// StreamText holds the canonical structure text.
	StreamText
	// StreamIdentifier holds the record identifiers.
	StreamIdentifier
)

// NumStreams is the number of streams in a container.
const NumStreams = 3

// StreamOrder is the order in which streams are written to a container.
// It is part of the binary format.
var StreamOrder = [NumStreams]StreamKind{StreamFingerprint, StreamText, StreamIdentifier}

// String returns the stream name.
func (k StreamKind) String() string {
	switch k {
	case StreamFingerprint:
		return "fingerprint"
	case StreamText:
		return "text"
	case StreamIdentifier:
		return "identifier"
	default:
		return fmt.Sprintf("stream(%d)", uint8(k))
	}
}

// Record is the fingerprinted form of one input line.
// A Record is immutable once produced.
type Record struct {
	// CanonicalText is the normalized structure text returned by the
	// fingerprint generator (not the raw input text).
	CanonicalText []byte
	// Identifier is the record identifier taken from the input line.
	Identifier []byte
	// Fingerprint holds bit_count/8 bytes.
	Fingerprint []byte
}

// Outcome is the result of fingerprinting a single input line:
// either an accepted Record or a skip with its reason.
type Outcome struct {
	record Record
	line   int
	reason error
}

// Accept returns an Outcome carrying rec.
func Accept(rec Record) Outcome {
	return Outcome{record: rec}
}

// Skip returns an Outcome marking the given input line as skipped.
// reason must be non-nil.
func Skip(line int, reason error) Outcome {
	if reason == nil {
		reason = fmt.Errorf("line %d skipped", line)
	}
	return Outcome{line: line, reason: reason}
}

// Skipped reports whether the line was skipped.
func (o Outcome) Skipped() bool {
	return o.reason != nil
}

// Record returns the accepted record. ok is false for skipped outcomes.
func (o Outcome) Record() (rec Record, ok bool) {
	if o.reason != nil {
		return Record{}, false
	}
	return o.record, true
}

// Reason returns the skip reason, or nil if the outcome was accepted.
func (o Outcome) Reason() error {
	return o.reason
}

// Line returns the input line number of a skipped outcome.
func (o Outcome) Line() int {
	return o.line
}

// String returns a string representation of the Outcome.
func (o Outcome) String() string {
	if o.reason != nil {
		return fmt.Sprintf("Skipped(line=%d: %v)", o.line, o.reason)
	}
	return fmt.Sprintf("Record(%s)", o.record.Identifier)
}
