package fpdb_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fpdb"
	"github.com/hupe1980/fpdb/blobstore"
	"github.com/hupe1980/fpdb/catalog"
	"github.com/hupe1980/fpdb/codec"
	"github.com/hupe1980/fpdb/container"
	"github.com/hupe1980/fpdb/fingerprint"
	"github.com/hupe1980/fpdb/internal/fs"
	"github.com/hupe1980/fpdb/manifest"
	"github.com/hupe1980/fpdb/model"
	"github.com/hupe1980/fpdb/resource"
	"github.com/hupe1980/fpdb/testutil"
)

const testBits = 64

func readContainer(t *testing.T, store blobstore.Store, name string) (*container.Container, []byte) {
	t.Helper()
	data, err := blobstore.ReadAll(context.Background(), store, name)
	require.NoError(t, err)
	c, err := container.Read(bytes.NewReader(data))
	require.NoError(t, err)
	return c, data
}

func quiet() fpdb.Option {
	return fpdb.WithLogger(fpdb.NoopLogger())
}

func TestBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("GoodAndMalformedLines", func(t *testing.T) {
		gen := testutil.NewFakeGenerator(testBits)
		gen.FailOn("XX")
		store := blobstore.NewMemoryStore()

		in := testutil.JoinLines([]string{
			"CCO ID1",
			"garbage",
			"c1ccccc1 ID2 trailing tokens",
			"",
			"XX ID3",
		})
		report, err := fpdb.Build(ctx, strings.NewReader(in), store, "db.fpdb", "Morgan",
			fpdb.WithGenerator(gen), fpdb.WithDBKey("chembl"), quiet())
		require.NoError(t, err)

		assert.Equal(t, 2, report.Records)
		assert.Equal(t, 5, report.LinesRead)
		assert.Equal(t, []uint32{2, 4, 5}, report.Skipped.ToArray())

		c, data := readContainer(t, store, "db.fpdb")
		assert.Equal(t, int32(container.Version), c.Header.Version)
		assert.Equal(t, "chembl", c.Header.DBKey)
		assert.Equal(t, int32(testBits), c.Header.BitCount)
		assert.Equal(t, int32(2), c.Header.RecordCount)
		assert.Equal(t, int64(len(data)), report.Size)
		assert.Equal(t, container.Digest(data), report.Digest)

		records, err := c.Records()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "CCO", string(records[0].CanonicalText))
		assert.Equal(t, "ID1", string(records[0].Identifier))
		assert.Equal(t, testutil.FakeBits("CCO", fingerprint.Morgan, testBits), records[0].Fingerprint)
		assert.Equal(t, "C1CCCCC1", string(records[1].CanonicalText))
		assert.Equal(t, "ID2", string(records[1].Identifier))

		for _, kind := range model.StreamOrder {
			assert.Len(t, c.Blocks[kind], 1, kind.String())
			assert.Equal(t, 1, report.Streams[kind].Chunks, kind.String())
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		report, err := fpdb.Build(ctx, strings.NewReader(""), store, "empty.fpdb", "RDKit",
			fpdb.WithGenerator(testutil.NewFakeGenerator(testBits)), quiet())
		require.NoError(t, err)
		assert.Zero(t, report.Records)
		assert.True(t, report.Skipped.IsEmpty())

		c, _ := readContainer(t, store, "empty.fpdb")
		assert.Equal(t, int32(0), c.Header.RecordCount)
		for _, kind := range model.StreamOrder {
			require.Len(t, c.Blocks[kind], 1, kind.String())
			assert.Equal(t, []byte{0, 0, 0, 0}, c.Blocks[kind][0], kind.String())
			assert.Equal(t, 1, report.Streams[kind].Chunks)
		}
	})

	t.Run("AllLinesSkipped", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		report, err := fpdb.Build(ctx, strings.NewReader("a\nb\nc\n"), store, "skip.fpdb", "Avalon",
			fpdb.WithGenerator(testutil.NewFakeGenerator(testBits)), quiet())
		require.NoError(t, err)
		assert.Zero(t, report.Records)
		assert.Equal(t, uint64(3), report.Skipped.GetCardinality())

		c, _ := readContainer(t, store, "skip.fpdb")
		records, err := c.Records()
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("UnsupportedAlgorithm", func(t *testing.T) {
		gen := testutil.NewFakeGenerator(testBits)
		store := blobstore.NewMemoryStore()

		_, err := fpdb.Build(ctx, strings.NewReader("CCO ID1\n"), store, "db.fpdb", "morgan",
			fpdb.WithGenerator(gen), quiet())

		var ua *fpdb.UnsupportedAlgorithmError
		require.ErrorAs(t, err, &ua)
		assert.Equal(t, "morgan", ua.Name)
		assert.Empty(t, store.List(""))
		assert.Zero(t, gen.Calls())
	})

	t.Run("InvalidBitCount", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		_, err := fpdb.Build(ctx, strings.NewReader("CCO ID1\n"), store, "db.fpdb", "Morgan",
			fpdb.WithBitCount(100), quiet())
		require.ErrorIs(t, err, fingerprint.ErrInvalidBitCount)
		assert.Empty(t, store.List(""))
	})

	t.Run("NoOutputName", func(t *testing.T) {
		_, err := fpdb.Build(ctx, strings.NewReader(""), blobstore.NewMemoryStore(), "", "Morgan", quiet())
		require.ErrorIs(t, err, fpdb.ErrNoOutput)
	})
}

func TestBuild_SequentialMatchesParallel(t *testing.T) {
	ctx := context.Background()
	lines := testutil.NewRNG(7).SMILESLines(800)
	lines[10] = "broken"
	lines[500] = ""
	in := testutil.JoinLines(lines)

	build := func(t *testing.T, opts ...fpdb.Option) (*fpdb.Report, []byte) {
		t.Helper()
		gen := testutil.NewFakeGenerator(testBits)
		gen.FailOn("F/C=C/F")
		gen.Jitter(testutil.NewRNG(3), 200*time.Microsecond)

		store := blobstore.NewMemoryStore()
		base := []fpdb.Option{
			fpdb.WithGenerator(gen),
			fpdb.WithDBKey("mix"),
			fpdb.WithChunkCapacity(512),
			fpdb.WithBatchBytes(1024),
			quiet(),
		}
		report, err := fpdb.Build(ctx, strings.NewReader(in), store, "db.fpdb", "AtomPairs", append(base, opts...)...)
		require.NoError(t, err)
		data, err := blobstore.ReadAll(ctx, store, "db.fpdb")
		require.NoError(t, err)
		return report, data
	}

	seqReport, seq := build(t, fpdb.WithSingleThreaded())
	parReport, par := build(t, fpdb.WithWorkers(8))

	assert.Equal(t, seq, par)
	assert.Equal(t, seqReport.Digest, parReport.Digest)
	assert.Equal(t, seqReport.Records, parReport.Records)
	assert.True(t, seqReport.Skipped.Equals(parReport.Skipped))
	assert.True(t, seqReport.Skipped.Contains(11))
	assert.True(t, seqReport.Skipped.Contains(501))

	for _, kind := range model.StreamOrder {
		assert.Greater(t, seqReport.Streams[kind].Chunks, 1, kind.String())
	}

	c, err := container.Read(bytes.NewReader(seq))
	require.NoError(t, err)
	records, err := c.Records()
	require.NoError(t, err)
	assert.Len(t, records, seqReport.Records)
	assert.Equal(t, int(seqReport.Skipped.GetCardinality())+seqReport.Records, len(lines))

	// Identifiers keep input order across chunk and batch boundaries.
	prev := ""
	for _, rec := range records {
		id := string(rec.Identifier)
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestBuild_BuiltinGenerator(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	lines := make([]string, len(testutil.Molecules))
	for i, m := range testutil.Molecules {
		lines[i] = m + " M" + string(rune('A'+i))
	}
	lines = append(lines, "C(C)(C)(C)(C)C PENTA", "C1CC OPEN")

	report, err := fpdb.Build(ctx, strings.NewReader(testutil.JoinLines(lines)), store, "db.fpdb", "Morgan",
		fpdb.WithBitCount(256), quiet())
	require.NoError(t, err)
	assert.Equal(t, len(testutil.Molecules), report.Records)
	assert.Equal(t, []uint32{uint32(len(lines) - 1), uint32(len(lines))}, report.Skipped.ToArray())

	c, _ := readContainer(t, store, "db.fpdb")
	records, err := c.Records()
	require.NoError(t, err)
	for _, rec := range records {
		assert.Len(t, rec.Fingerprint, 32)
	}

	trusted := blobstore.NewMemoryStore()
	report, err = fpdb.Build(ctx, strings.NewReader(testutil.JoinLines(lines)), trusted, "db.fpdb", "Morgan",
		fpdb.WithBitCount(256), fpdb.WithTrustInput(true), quiet())
	require.NoError(t, err)
	assert.Equal(t, len(testutil.Molecules)+1, report.Records)
}

func TestBuild_IOFault(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("db.fpdb", fs.Fault{FailAfterBytes: 10})
	store := blobstore.NewLocalStore(dir, blobstore.WithFileSystem(ffs))

	_, err := fpdb.Build(ctx, strings.NewReader("CCO ID1\nCCC ID2\n"), store, "db.fpdb", "Morgan",
		fpdb.WithGenerator(testutil.NewFakeGenerator(testBits)), quiet())

	var cio *fpdb.ContainerIOError
	require.ErrorAs(t, err, &cio)
	assert.Equal(t, "db.fpdb", cio.Path)
	assert.ErrorIs(t, err, fs.ErrInjected)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestBuild_InputFault(t *testing.T) {
	store := blobstore.NewMemoryStore()
	boom := errors.New("disk gone")

	_, err := fpdb.Build(context.Background(), errReader{boom}, store, "db.fpdb", "Morgan",
		fpdb.WithGenerator(testutil.NewFakeGenerator(testBits)), quiet())

	var cio *fpdb.ContainerIOError
	require.ErrorAs(t, err, &cio)
	assert.Equal(t, "read", cio.Op)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.List(""))
}

type memCatalog struct {
	mu      sync.Mutex
	entries []catalog.Entry
}

func (c *memCatalog) Publish(_ context.Context, e catalog.Entry) (catalog.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.Version = uint64(len(c.entries) + 1)
	e.CreatedAt = time.Now()
	c.entries = append(c.entries, e)
	return e, nil
}

func (c *memCatalog) Latest(_ context.Context, dbKey string) (catalog.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.entries) - 1; i >= 0; i-- {
		if c.entries[i].DBKey == dbKey {
			return c.entries[i], nil
		}
	}
	return catalog.Entry{}, catalog.ErrNotFound
}

func TestBuild_ManifestAndCatalog(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	cat := &memCatalog{}
	in := testutil.JoinLines(testutil.NewRNG(1).SMILESLines(20))

	for i := 1; i <= 2; i++ {
		report, err := fpdb.Build(ctx, strings.NewReader(in), store, "db.fpdb", "TopologicalTorsions",
			fpdb.WithGenerator(testutil.NewFakeGenerator(testBits)),
			fpdb.WithDBKey("zinc"),
			fpdb.WithManifest(codec.CBOR{}),
			fpdb.WithCatalog(cat),
			quiet(),
		)
		require.NoError(t, err)
		require.NotNil(t, report.Published)
		assert.Equal(t, uint64(i), report.Published.Version)
		assert.Equal(t, "db.fpdb", report.Published.URI)
		assert.Equal(t, report.Digest, report.Published.Digest)
		assert.Equal(t, "db.fpdb.manifest.cbor", report.Manifest)
	}

	m, err := manifest.Read(ctx, store, "db.fpdb.manifest.cbor")
	require.NoError(t, err)
	assert.Equal(t, "zinc", m.DBKey)
	assert.Equal(t, "TopologicalTorsions", m.Algorithm)
	assert.Equal(t, int32(20), m.RecordCount)
	assert.Equal(t, int64(20), m.LinesRead)
	require.Len(t, m.Streams, model.NumStreams)
	assert.Equal(t, "fingerprint", m.Streams[0].Kind)

	latest, err := cat.Latest(ctx, "zinc")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), latest.Version)
}

func TestBuild_MetricsAndResources(t *testing.T) {
	ctx := context.Background()
	mc := &fpdb.BasicMetricsCollector{}
	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:     1 << 20,
		MaxBackgroundWorkers: 2,
		IOLimitBytesPerSec:   1 << 30,
	})
	lines := testutil.NewRNG(9).SMILESLines(100)
	lines = append(lines, "bad")

	report, err := fpdb.Build(ctx, strings.NewReader(testutil.JoinLines(lines)), blobstore.NewMemoryStore(), "db.fpdb", "Morgan",
		fpdb.WithGenerator(testutil.NewFakeGenerator(testBits)),
		fpdb.WithMetricsCollector(mc),
		fpdb.WithResourceController(rc),
		fpdb.WithBatchBytes(256),
		fpdb.WithChunkCapacity(1024),
		quiet(),
	)
	require.NoError(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(101), stats.LinesProcessed)
	assert.Equal(t, int64(1), stats.LinesSkipped)
	assert.Greater(t, stats.BatchCount, int64(1))

	chunks := 0
	for _, s := range report.Streams {
		chunks += s.Chunks
	}
	assert.Equal(t, int64(chunks), stats.ChunksCompressed)
	assert.Equal(t, int64(chunks), stats.ChunksSealed)
	assert.Positive(t, stats.CompressionRatio())
	assert.Zero(t, rc.MemoryUsage())
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestBuild_WaitsForBatchMemory(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 4096})
	require.NoError(t, rc.AcquireMemory(ctx, 4096))

	var logs lockedBuffer
	logger := fpdb.NewLogger(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	in := testutil.JoinLines(testutil.NewRNG(4).SMILESLines(20))

	type result struct {
		report *fpdb.Report
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := fpdb.Build(ctx, strings.NewReader(in), blobstore.NewMemoryStore(), "db.fpdb", "Morgan",
			fpdb.WithGenerator(testutil.NewFakeGenerator(testBits)),
			fpdb.WithResourceController(rc),
			fpdb.WithBatchBytes(256),
			fpdb.WithLogger(logger),
		)
		done <- result{report, err}
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "waiting for batch memory")
	}, 5*time.Second, 5*time.Millisecond)
	select {
	case <-done:
		t.Fatal("build finished while memory was exhausted")
	default:
	}

	rc.ReleaseMemory(4096)
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, 20, res.report.Records)
	assert.Zero(t, rc.MemoryUsage())
}

func TestBuildFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(testutil.JoinLines(testutil.NewRNG(2).SMILESLines(50))))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	inPath := filepath.Join(dir, "in.smi.gz")
	require.NoError(t, os.WriteFile(inPath, buf.Bytes(), 0o644))
	outPath := filepath.Join(dir, "out", "db.fpdb")

	report, err := fpdb.BuildFile(ctx, inPath, outPath, "RDKit",
		fpdb.WithGenerator(testutil.NewFakeGenerator(testBits)),
		fpdb.WithManifest(nil),
		quiet(),
	)
	require.NoError(t, err)
	assert.Equal(t, 50, report.Records)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, report.Digest, container.Digest(data))

	_, err = os.Stat(outPath + ".manifest.json")
	require.NoError(t, err)

	t.Run("UnsupportedAlgorithmCreatesNothing", func(t *testing.T) {
		other := filepath.Join(dir, "other.fpdb")
		_, err := fpdb.BuildFile(ctx, inPath, other, "ECFP4", quiet())
		var ua *fpdb.UnsupportedAlgorithmError
		require.ErrorAs(t, err, &ua)
		_, err = os.Stat(other)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("MissingInput", func(t *testing.T) {
		_, err := fpdb.BuildFile(ctx, filepath.Join(dir, "nope.smi"), filepath.Join(dir, "x.fpdb"), "Morgan", quiet())
		var cio *fpdb.ContainerIOError
		require.ErrorAs(t, err, &cio)
		assert.Equal(t, "open", cio.Op)
	})

	t.Run("NoInput", func(t *testing.T) {
		_, err := fpdb.BuildFile(ctx, "", outPath, "Morgan")
		require.ErrorIs(t, err, fpdb.ErrNoInput)
	})
}
