package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	DBKey    string   `json:"db_key"`
	BitCount int      `json:"bit_count"`
	Chunks   []int    `json:"chunks"`
	Tags     []string `json:"tags,omitempty"`
}

func TestCodecs(t *testing.T) {
	in := sample{DBKey: "chembl", BitCount: 1024, Chunks: []int{1, 1, 1}}

	for _, name := range []string{"json", "cbor"} {
		t.Run(name, func(t *testing.T) {
			c, ok := ByName(name)
			require.True(t, ok)
			assert.Equal(t, name, c.Name())

			data, err := c.Marshal(in)
			require.NoError(t, err)

			var out sample
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestJSONUsesFieldTags(t *testing.T) {
	data, err := JSON{}.Marshal(sample{DBKey: "k"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"db_key": "k"`)
	assert.NotContains(t, string(data), "tags")
}

func TestCBORIsDeterministic(t *testing.T) {
	m := map[string]int{"b": 2, "a": 1, "c": 3}
	first, err := CBOR{}.Marshal(m)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := CBOR{}.Marshal(m)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestByNameUnknown(t *testing.T) {
	_, ok := ByName("go-json")
	assert.False(t, ok)
	assert.Panics(t, func() { MustByName("xml") })
	assert.Equal(t, "json", Default.Name())
}
