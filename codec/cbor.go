package codec

import (
	"github.com/fxamacker/cbor/v2"
)

var cborEnc = func() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	em, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// CBOR is a deterministic CBOR codec backed by github.com/fxamacker/cbor/v2.
// Struct fields use their json tags when no cbor tag is present.
type CBOR struct{}

// Marshal encodes the value to core deterministic CBOR.
func (CBOR) Marshal(v any) ([]byte, error) { return cborEnc.Marshal(v) }

// Unmarshal decodes the CBOR data into v.
func (CBOR) Unmarshal(data []byte, v any) error { return cbor.Unmarshal(data, v) }

// Name returns the unique name of the codec ("cbor").
func (CBOR) Name() string { return "cbor" }
