package dispatch

import "fmt"

// MalformedRecordError reports an input line without both a structure
// and an identifier.
type MalformedRecordError struct {
	Line   int
	Tokens int
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("line %d: malformed record: want structure and identifier, got %d token(s)", e.Line, e.Tokens)
}

// FingerprintComputationError reports a generator failure for one line.
//
// The original underlying error can be accessed via errors.Unwrap.
type FingerprintComputationError struct {
	Line  int
	Text  string
	cause error
}

func (e *FingerprintComputationError) Error() string {
	return fmt.Sprintf("line %d: fingerprint computation failed for %q: %v", e.Line, e.Text, e.cause)
}

func (e *FingerprintComputationError) Unwrap() error { return e.cause }
