package compression

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"io"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fpdb/resource"
)

func TestCompress_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	random := make([]byte, 4096)
	rng.Read(random)

	cases := map[string][]byte{
		"empty":      {},
		"single":     {0x42},
		"repetitive": bytes.Repeat([]byte("CC(=O)O\x00"), 1000),
		"random":     random,
	}

	c := &Compressor{}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			block, err := c.Compress(data)
			require.NoError(t, err)

			size, err := OriginalSize(block)
			require.NoError(t, err)
			assert.Equal(t, len(data), size)

			got, err := Decompress(block)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestCompress_EmptyIsFourZeroBytes(t *testing.T) {
	block, err := (&Compressor{}).Compress(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, block)
}

func TestCompress_QtLayout(t *testing.T) {
	data := bytes.Repeat([]byte("c1ccccc1"), 64)
	block, err := (&Compressor{Level: 9}).Compress(data)
	require.NoError(t, err)

	assert.Equal(t, uint32(len(data)), binary.BigEndian.Uint32(block))

	// The payload is a plain zlib stream readable by the standard library.
	zr, err := zlib.NewReader(bytes.NewReader(block[HeaderSize:]))
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestNewCompressor_InvalidLevel(t *testing.T) {
	_, err := NewCompressor(42)
	assert.Error(t, err)

	c := &Compressor{Level: 42}
	_, err = c.Compress([]byte("x"))
	assert.Error(t, err)
}

func TestDecompress_Errors(t *testing.T) {
	_, err := Decompress([]byte{0, 0})
	assert.ErrorIs(t, err, ErrBlockTooSmall)

	block, err := (&Compressor{}).Compress([]byte("hello world"))
	require.NoError(t, err)

	wrong := append([]byte(nil), block...)
	binary.BigEndian.PutUint32(wrong, 20)
	_, err = Decompress(wrong)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	binary.BigEndian.PutUint32(wrong, 5)
	_, err = Decompress(wrong)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	_, err = Decompress([]byte{0, 0, 0, 3, 'x', 'y', 'z'})
	assert.Error(t, err)
}

func TestCompressAll_PreservesOrder(t *testing.T) {
	chunks := make([][]byte, 32)
	for i := range chunks {
		chunks[i] = bytes.Repeat([]byte{byte(i)}, 100*(i+1))
	}

	var observed atomic.Int64
	c := &Compressor{}
	blocks, err := c.CompressAll(context.Background(), chunks, Options{
		Concurrency: 4,
		Controller:  resource.NewController(resource.Config{MaxBackgroundWorkers: 2}),
		Observe: func(_, _, _ int, _ time.Duration) {
			observed.Add(1)
		},
	})
	require.NoError(t, err)
	require.Len(t, blocks, len(chunks))
	assert.Equal(t, int64(len(chunks)), observed.Load())

	for i, block := range blocks {
		got, err := Decompress(block)
		require.NoError(t, err)
		assert.Equal(t, chunks[i], got)
	}
}

func TestCompressAll_Sequential(t *testing.T) {
	chunks := [][]byte{[]byte("a"), {}, []byte("bbb")}
	blocks, err := (&Compressor{}).CompressAll(context.Background(), chunks, Options{Concurrency: 1})
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, []byte{0, 0, 0, 0}, blocks[1])
}

func TestCompressAll_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Compressor{}).CompressAll(ctx, [][]byte{[]byte("a")}, Options{Concurrency: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_OrdersByID(t *testing.T) {
	p := (&Compressor{}).NewPipeline(context.Background(), Options{Concurrency: 1})
	p.Submit(2, []byte("ccc"))
	p.Submit(0, []byte("a"))
	p.Submit(1, []byte("bb"))

	blocks, err := p.Wait()
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	for i, want := range []string{"a", "bb", "ccc"} {
		got, err := Decompress(blocks[i])
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
}

func TestPipeline_BusySlotsCompressInline(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{MaxBackgroundWorkers: 1})
	require.NoError(t, rc.AcquireBackground(ctx))

	var observed atomic.Int64
	p := (&Compressor{}).NewPipeline(ctx, Options{
		Concurrency: 4,
		Controller:  rc,
		Observe: func(_, _, _ int, _ time.Duration) {
			observed.Add(1)
		},
	})
	for i := 0; i < 3; i++ {
		p.Submit(i, bytes.Repeat([]byte{byte(i)}, 64))
	}
	// No slot was free, so every chunk was compressed before Submit returned.
	assert.Equal(t, int64(3), observed.Load())
	rc.ReleaseBackground()

	blocks, err := p.Wait()
	require.NoError(t, err)
	assert.Len(t, blocks, 3)
	assert.True(t, rc.TryAcquireBackground())
}

func TestPipeline_MissingID(t *testing.T) {
	p := (&Compressor{}).NewPipeline(context.Background(), Options{})
	p.Submit(1, []byte("b"))
	_, err := p.Wait()
	assert.ErrorContains(t, err, "chunk 0")
}
