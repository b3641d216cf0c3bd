package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec. Output is indented for people
// reading manifests next to their containers.
type JSON struct{}

// Marshal encodes the value to indented JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }
