package chunk

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fpdb/internal/qds"
	"github.com/hupe1980/fpdb/model"
)

func testRecord(i int) model.Record {
	return model.Record{
		CanonicalText: []byte(fmt.Sprintf("C%dO", i)),
		Identifier:    []byte(fmt.Sprintf("id%d", i)),
		Fingerprint:   []byte{byte(i), byte(i >> 8), 0xAB, 0xCD},
	}
}

func TestAccumulator_SingleChunkPerStream(t *testing.T) {
	acc := NewAccumulator(Options{FingerprintSize: 4})
	for i := 0; i < 3; i++ {
		require.NoError(t, acc.Append(testRecord(i)))
	}
	assert.Equal(t, 3, acc.Count())

	streams := acc.Finish()
	for _, s := range streams {
		assert.Equal(t, 1, s.NumChunks(), s.Kind().String())
		assert.True(t, s.Chunk(0).Sealed())
	}

	assert.Equal(t, 12, streams[model.StreamFingerprint].Chunk(0).Len())

	var wantText, wantID []byte
	for i := 0; i < 3; i++ {
		rec := testRecord(i)
		wantText, _ = qds.AppendCString(wantText, rec.CanonicalText)
		wantID, _ = qds.AppendCString(wantID, rec.Identifier)
	}
	assert.Equal(t, wantText, streams[model.StreamText].Chunk(0).Bytes())
	assert.Equal(t, wantID, streams[model.StreamIdentifier].Chunk(0).Bytes())
}

func TestAccumulator_EmptyInputYieldsOneEmptyChunk(t *testing.T) {
	acc := NewAccumulator(Options{})
	streams := acc.Finish()

	for _, s := range streams {
		require.Equal(t, 1, s.NumChunks())
		assert.True(t, s.Chunk(0).Sealed())
		assert.Equal(t, 0, s.Chunk(0).Len())
	}
	assert.Equal(t, 0, acc.Count())
}

func TestAccumulator_SmallCapReassembles(t *testing.T) {
	const capacity = 16
	acc := NewAccumulator(Options{Capacity: capacity, FingerprintSize: 4})

	// 25 records * 4 bytes = 100 fingerprint bytes.
	var want []byte
	for i := 0; i < 25; i++ {
		rec := testRecord(i)
		want = append(want, rec.Fingerprint...)
		require.NoError(t, acc.Append(rec))
	}
	streams := acc.Finish()

	fp := streams[model.StreamFingerprint]
	assert.Equal(t, 7, fp.NumChunks())
	var got []byte
	for id := 0; id < fp.NumChunks(); id++ {
		c := fp.Chunk(id)
		assert.True(t, c.Sealed())
		if id < fp.NumChunks()-1 {
			assert.Equal(t, capacity, c.Len())
		}
		got = append(got, c.Bytes()...)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, want, fp.Concat())
	assert.Equal(t, int64(100), fp.Size())
}

func TestAccumulator_StreamsChunkIndependently(t *testing.T) {
	acc := NewAccumulator(Options{Capacity: 32, FingerprintSize: 4})
	for i := 0; i < 40; i++ {
		rec := testRecord(i)
		rec.CanonicalText = bytes.Repeat([]byte("c"), 10)
		require.NoError(t, acc.Append(rec))
	}
	streams := acc.Finish()

	// Text records are 15 bytes, fingerprints 4 bytes: different chunk counts.
	assert.NotEqual(t, streams[model.StreamFingerprint].NumChunks(), streams[model.StreamText].NumChunks())

	// A sealed chunk reached the cap and overflows it by less than one field.
	for _, s := range streams {
		for id := 0; id < s.NumChunks()-1; id++ {
			assert.GreaterOrEqual(t, s.Chunk(id).Len(), 32)
			assert.Less(t, s.Chunk(id).Len(), 32+15)
		}
	}

	// Every record is recoverable, in order, from every stream.
	text := streams[model.StreamText].Concat()
	ids := streams[model.StreamIdentifier].Concat()
	for i := 0; i < 40; i++ {
		var s []byte
		var err error
		s, text, err = qds.ReadCString(text)
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte("c"), 10), s)

		s, ids, err = qds.ReadCString(ids)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("id%d", i), string(s))
	}
	assert.Empty(t, text)
	assert.Empty(t, ids)
}

func TestAccumulator_SealsOnlyAtCap(t *testing.T) {
	acc := NewAccumulator(Options{Capacity: 16})
	for i := 0; i < 3; i++ {
		require.NoError(t, acc.Append(model.Record{Fingerprint: bytes.Repeat([]byte{byte(i)}, 12)}))
	}
	streams := acc.Finish()

	// 12 < 16 keeps the chunk open; at 24 it is sealed before the next write.
	fp := streams[model.StreamFingerprint]
	require.Equal(t, 2, fp.NumChunks())
	assert.Equal(t, 24, fp.Chunk(0).Len())
	assert.Equal(t, 12, fp.Chunk(1).Len())
}

func TestAccumulator_OversizedFieldStaysInOpenChunk(t *testing.T) {
	acc := NewAccumulator(Options{Capacity: 8})
	require.NoError(t, acc.Append(model.Record{Fingerprint: []byte{1, 2}}))
	require.NoError(t, acc.Append(model.Record{Fingerprint: bytes.Repeat([]byte{7}, 20)}))
	require.NoError(t, acc.Append(model.Record{Fingerprint: []byte{3}}))
	streams := acc.Finish()

	fp := streams[model.StreamFingerprint]
	require.Equal(t, 2, fp.NumChunks())
	assert.Equal(t, append([]byte{1, 2}, bytes.Repeat([]byte{7}, 20)...), fp.Chunk(0).Bytes())
	assert.Equal(t, []byte{3}, fp.Chunk(1).Bytes())
}

func TestAccumulator_FingerprintSizeMismatch(t *testing.T) {
	acc := NewAccumulator(Options{FingerprintSize: 128})
	err := acc.Append(model.Record{Fingerprint: []byte{1}})
	assert.ErrorIs(t, err, ErrFingerprintSize)
	assert.Equal(t, 0, acc.Count())

	for _, kind := range model.StreamOrder {
		assert.Equal(t, int64(0), acc.Stream(kind).Size())
	}
}

func TestAccumulator_AppendAfterFinish(t *testing.T) {
	acc := NewAccumulator(Options{})
	acc.Finish()
	assert.ErrorIs(t, acc.Append(testRecord(1)), ErrFinished)

	// Finish is idempotent.
	streams := acc.Finish()
	assert.Equal(t, 1, streams[model.StreamText].NumChunks())
}

func TestAccumulator_OnSeal(t *testing.T) {
	type sealed struct {
		kind model.StreamKind
		id   int
		size int
	}
	var got []sealed
	acc := NewAccumulator(Options{
		Capacity: 8,
		OnSeal: func(kind model.StreamKind, id int, data []byte) {
			got = append(got, sealed{kind, id, len(data)})
		},
	})
	for i := 0; i < 4; i++ {
		require.NoError(t, acc.Append(model.Record{Fingerprint: []byte{1, 2, 3, 4}}))
	}
	acc.Finish()

	var fp []sealed
	for _, s := range got {
		if s.kind == model.StreamFingerprint {
			fp = append(fp, s)
		}
	}
	assert.Equal(t, []sealed{
		{model.StreamFingerprint, 0, 8},
		{model.StreamFingerprint, 1, 8},
	}, fp)

	// Every chunk of every stream is reported exactly once.
	total := 0
	for _, kind := range model.StreamOrder {
		total += acc.Stream(kind).NumChunks()
	}
	assert.Len(t, got, total)
}

func TestBuffer_WriteAfterSeal(t *testing.T) {
	var b Buffer
	require.NoError(t, b.write([]byte("ab")))
	b.seal()
	assert.ErrorIs(t, b.write([]byte("c")), ErrSealed)
	assert.Equal(t, []byte("ab"), b.Bytes())
}

func TestStream_Sealed(t *testing.T) {
	s := newStream(model.StreamText, 4, nil)
	require.NoError(t, s.write([]byte("abcd")))
	require.NoError(t, s.write([]byte("ef")))

	assert.Equal(t, [][]byte{[]byte("abcd")}, s.Sealed())
	s.finish()
	assert.Equal(t, [][]byte{[]byte("abcd"), []byte("ef")}, s.Sealed())
}
