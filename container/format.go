package container

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/fpdb/model"
)

// Version is the container format version.
const Version = 3

const (
	// maxChunks bounds the chunk count accepted by the Reader.
	maxChunks = 1 << 20
	// maxBlockSize bounds the length of a single block accepted by the Reader.
	maxBlockSize = math.MaxInt32
)

var (
	// ErrInvalidTransition is returned for calls out of the header, fingerprint,
	// text, identifier order.
	ErrInvalidTransition = errors.New("container: invalid writer transition")
	// ErrIncomplete is returned by Close before every stream is written.
	ErrIncomplete = errors.New("container: incomplete container")
	// ErrUnsupportedVersion is returned for containers of another version.
	ErrUnsupportedVersion = errors.New("container: unsupported version")
	// ErrCorrupt is returned for structurally invalid containers.
	ErrCorrupt = errors.New("container: corrupt container")
	// ErrInvalidHeader is returned for header values that cannot be written.
	ErrInvalidHeader = errors.New("container: invalid header")
)

// Header is the fixed part of a container.
type Header struct {
	// Version defaults to Version when zero.
	Version     int32
	DBKey       string
	BitCount    int32
	RecordCount int32
}

// FingerprintSize returns the fingerprint length in bytes.
func (h Header) FingerprintSize() int {
	return int(h.BitCount) / 8
}

func (h Header) validate() error {
	if h.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.BitCount <= 0 || h.BitCount%8 != 0 {
		return fmt.Errorf("%w: bit count %d", ErrInvalidHeader, h.BitCount)
	}
	if h.RecordCount < 0 {
		return fmt.Errorf("%w: record count %d", ErrInvalidHeader, h.RecordCount)
	}
	return nil
}

// state is the position of a Writer or Reader in the container layout.
type state uint8

const (
	stateHeader state = iota
	stateFingerprint
	stateText
	stateIdentifier
	stateDone
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateHeader:
		return "header"
	case stateFingerprint, stateText, stateIdentifier:
		return s.kind().String() + " stream"
	case stateDone:
		return "done"
	default:
		return "closed"
	}
}

// kind returns the stream expected in a stream state.
func (s state) kind() model.StreamKind {
	return model.StreamOrder[s-stateFingerprint]
}
