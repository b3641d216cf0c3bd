// Package codec encodes build manifests.
//
// A manifest's codec is part of its file name, so readers select the codec
// by name.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "cbor":
		return CBOR{}, true
	default:
		return nil, false
	}
}

// MustByName is ByName that panics on unknown names.
func MustByName(name string) Codec {
	c, ok := ByName(name)
	if !ok {
		panic(fmt.Sprintf("codec: unknown codec %q", name))
	}
	return c
}

// Default is the codec used when none is configured.
var Default Codec = JSON{}
