package fpdb

import (
	"errors"
	"fmt"

	"github.com/hupe1980/fpdb/dispatch"
	"github.com/hupe1980/fpdb/fingerprint"
)

var (
	// ErrNoInput is returned when no input location is given.
	ErrNoInput = errors.New("fpdb: no input")
	// ErrNoOutput is returned when no output location is given.
	ErrNoOutput = errors.New("fpdb: no output")
	// ErrTooManyRecords is returned when the accepted records no longer fit
	// the container's int32 record count.
	ErrTooManyRecords = errors.New("fpdb: record count exceeds container limit")
)

// MalformedRecordError reports an input line with fewer than two tokens.
// Such lines are skipped.
type MalformedRecordError = dispatch.MalformedRecordError

// FingerprintComputationError reports a line whose structure could not be
// fingerprinted. Such lines are skipped.
type FingerprintComputationError = dispatch.FingerprintComputationError

// UnsupportedAlgorithmError reports an unknown fingerprint algorithm name.
// It is fatal and detected before any output is created.
type UnsupportedAlgorithmError = fingerprint.UnsupportedAlgorithmError

// ContainerIOError indicates a failure to read input or to create, write
// or close the output container.
//
// The original underlying error can be accessed via errors.Unwrap.
type ContainerIOError struct {
	Op    string
	Path  string
	cause error
}

func (e *ContainerIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.cause)
}

func (e *ContainerIOError) Unwrap() error { return e.cause }

func ioError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &ContainerIOError{Op: op, Path: path, cause: err}
}
