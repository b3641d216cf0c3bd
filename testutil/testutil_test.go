package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fpdb/fingerprint"
)

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	v1 := rng.SMILESLines(10)

	rng.Reset()
	v2 := rng.SMILESLines(10)

	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestSMILESLines(t *testing.T) {
	rng := NewRNG(1)
	lines := rng.SMILESLines(50)
	require.Len(t, lines, 50)

	seen := make(map[string]bool)
	for _, l := range lines {
		fields := strings.Fields(l)
		require.Len(t, fields, 2)
		assert.Contains(t, Molecules, fields[0])
		assert.False(t, seen[fields[1]], "duplicate identifier %s", fields[1])
		seen[fields[1]] = true
	}

	assert.Equal(t, "", JoinLines(nil))
	assert.Equal(t, "a\nb\n", JoinLines([]string{"a", "b"}))
}

func TestMoleculesAreValid(t *testing.T) {
	g, err := fingerprint.NewBuiltin(fingerprint.DefaultBitCount)
	require.NoError(t, err)
	for _, m := range Molecules {
		_, err := g.Generate(m, fingerprint.Morgan, false)
		assert.NoError(t, err, m)
	}
}

func TestFakeGenerator(t *testing.T) {
	g := NewFakeGenerator(64)
	g.FailOn("bad")
	g.Jitter(NewRNG(2), time.Microsecond)

	res, err := g.Generate("cco", fingerprint.Morgan, false)
	require.NoError(t, err)
	assert.Equal(t, "CCO", res.Canonical)
	assert.Len(t, res.Bits, 8)
	assert.Equal(t, FakeBits("cco", fingerprint.Morgan, 64), res.Bits)
	assert.NotZero(t, fingerprint.BitVector(res.Bits).Count())

	_, err = g.Generate("bad", fingerprint.Morgan, false)
	assert.ErrorIs(t, err, ErrFake)

	_, err = g.Generate("cco", fingerprint.Algorithm(0), false)
	var ue *fingerprint.UnsupportedAlgorithmError
	assert.ErrorAs(t, err, &ue)

	assert.Equal(t, 3, g.Calls())
	assert.Equal(t, 64, g.BitCount())
}
