package fpdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/fpdb/blobstore"
	"github.com/hupe1980/fpdb/blobstore/resolve"
	"github.com/hupe1980/fpdb/catalog"
	"github.com/hupe1980/fpdb/compression"
	"github.com/hupe1980/fpdb/container"
	"github.com/hupe1980/fpdb/dispatch"
	"github.com/hupe1980/fpdb/fingerprint"
	"github.com/hupe1980/fpdb/input"
	"github.com/hupe1980/fpdb/internal/chunk"
	"github.com/hupe1980/fpdb/internal/conv"
	"github.com/hupe1980/fpdb/manifest"
	"github.com/hupe1980/fpdb/model"
	"github.com/hupe1980/fpdb/resource"
)

// StreamReport describes one stream of a written container.
type StreamReport struct {
	Kind            model.StreamKind
	Chunks          int
	OriginalBytes   int64
	CompressedBytes int64
}

// Report summarizes a finished build.
type Report struct {
	DBKey     string
	Algorithm fingerprint.Algorithm
	BitCount  int
	// Records is the number of accepted records in the container.
	Records int
	// LinesRead is the number of input lines consumed.
	LinesRead int
	// Skipped holds the 1-based line numbers that produced no record.
	Skipped *roaring.Bitmap
	// Size is the container size in bytes and Digest its BLAKE3 hex digest.
	Size    int64
	Digest  string
	Streams [model.NumStreams]StreamReport
	// Manifest is the sidecar name, empty unless WithManifest was used.
	Manifest string
	// Published is the catalog entry, nil unless WithCatalog was used.
	Published *catalog.Entry
	Duration  time.Duration
}

// BuildFile builds a container from the input at inPath into the output
// location out. inPath may be "-" for stdin and may be gzip, zstd or lz4
// compressed. out is a local path or an s3:// or minio:// URI.
func BuildFile(ctx context.Context, inPath, out, algorithm string, opts ...Option) (*Report, error) {
	if inPath == "" {
		return nil, ErrNoInput
	}
	if out == "" {
		return nil, ErrNoOutput
	}
	// Reject unknown algorithms before touching input or output.
	if _, err := fingerprint.ParseAlgorithm(algorithm); err != nil {
		return nil, err
	}

	store, name, err := resolve.Resolve(ctx, out)
	if err != nil {
		return nil, ioError("open", out, err)
	}

	in, _, err := input.Open(inPath)
	if err != nil {
		return nil, ioError("open", inPath, err)
	}
	defer in.Close()

	return Build(ctx, in, store, name, algorithm, append([]Option{withURI(out)}, opts...)...)
}

// Build reads "<structure> <identifier>" lines from r and writes the
// container name to store using the named fingerprint algorithm.
//
// Malformed lines and structures that cannot be fingerprinted are skipped
// and listed in Report.Skipped. An unknown algorithm fails with
// *UnsupportedAlgorithmError before the output is created. Failures to
// read input or write the container are returned as *ContainerIOError and
// leave no output behind.
func Build(ctx context.Context, r io.Reader, store blobstore.Store, name, algorithm string, optFns ...Option) (*Report, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	if name == "" {
		return nil, ErrNoOutput
	}

	alg, err := fingerprint.ParseAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}

	gen := o.generator
	if gen == nil {
		builtin, err := fingerprint.NewBuiltin(o.bitCount)
		if err != nil {
			return nil, err
		}
		gen = builtin
	}
	if err := fingerprint.ValidateBitCount(gen.BitCount()); err != nil {
		return nil, err
	}

	if o.uri == "" {
		o.uri = name
	}

	b := &builder{
		opts:    o,
		cfg:     dispatch.Config{Algorithm: alg, TrustInput: o.trustInput},
		gen:     gen,
		logger:  o.logger.WithDBKey(o.dbKey),
		metrics: o.metricsCollector,
	}
	report, err := b.run(ctx, r, store, name)
	b.logger.LogBuild(ctx, o.dbKey, reportRecords(report), err)
	return report, err
}

func reportRecords(r *Report) int {
	if r == nil {
		return 0
	}
	return r.Records
}

type builder struct {
	opts    options
	cfg     dispatch.Config
	gen     fingerprint.Generator
	logger  *Logger
	metrics MetricsCollector
}

func (b *builder) run(ctx context.Context, r io.Reader, store blobstore.Store, name string) (*Report, error) {
	start := time.Now()

	var strategy dispatch.Strategy = dispatch.Sequential{}
	concurrency := 1
	if !b.opts.singleThreaded {
		pool := dispatch.NewPool(b.opts.workers)
		defer pool.Close()
		strategy = pool
		concurrency = b.opts.workers
	}

	// The output is created first so an unwritable destination fails before
	// any fingerprinting work.
	blob, err := store.Create(ctx, name)
	if err != nil {
		return nil, ioError("create", name, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = blob.Abort()
		}
	}()

	report := &Report{
		DBKey:     b.opts.dbKey,
		Algorithm: b.cfg.Algorithm,
		BitCount:  b.gen.BitCount(),
		Skipped:   roaring.New(),
	}

	comp, err := compression.NewCompressor(b.opts.compressionLevel)
	if err != nil {
		return nil, err
	}
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	pipes := b.pipelines(cctx, comp, concurrency)

	streams, err := b.accumulate(ctx, r, strategy, pipes, report)
	if err != nil {
		cancel()
		b.drain(pipes)
		return nil, err
	}
	recordCount, err := conv.IntToInt32(report.Records)
	if err != nil {
		cancel()
		b.drain(pipes)
		return nil, fmt.Errorf("%w: %w", ErrTooManyRecords, err)
	}

	blocks, err := b.collect(pipes, streams, report)
	if err != nil {
		return nil, err
	}

	header := container.Header{
		Version:     container.Version,
		DBKey:       b.opts.dbKey,
		BitCount:    int32(report.BitCount),
		RecordCount: recordCount,
	}
	if err := b.write(ctx, blob, header, blocks, report); err != nil {
		return nil, ioError("write", name, err)
	}

	err = blob.Close()
	committed = true
	if err != nil {
		return nil, ioError("close", name, err)
	}

	if b.opts.manifestCodec != nil {
		m := b.manifest(name, report)
		report.Manifest, err = manifest.Write(ctx, store, name, m, b.opts.manifestCodec)
		if err != nil {
			return nil, ioError("write manifest", name, err)
		}
	}

	if b.opts.catalog != nil {
		entry, err := b.opts.catalog.Publish(ctx, catalog.Entry{
			DBKey:       b.opts.dbKey,
			URI:         b.opts.uri,
			RecordCount: int64(report.Records),
			Digest:      report.Digest,
		})
		if err != nil {
			return nil, fmt.Errorf("publish %s: %w", b.opts.uri, err)
		}
		report.Published = &entry
	}

	report.Duration = time.Since(start)
	return report, nil
}

// accumulate reads batches from r, fingerprints them and appends accepted
// records in input order. Every sealed chunk is handed to the pipeline of
// its stream.
func (b *builder) accumulate(ctx context.Context, r io.Reader, strategy dispatch.Strategy, pipes [model.NumStreams]*compression.Pipeline, report *Report) ([model.NumStreams]*chunk.Stream, error) {
	acc := chunk.NewAccumulator(chunk.Options{
		Capacity:        b.opts.chunkCapacity,
		FingerprintSize: b.gen.BitCount() / 8,
		OnSeal: func(kind model.StreamKind, id int, data []byte) {
			b.metrics.RecordChunkSealed(kind, len(data))
			b.logger.LogChunkSealed(ctx, kind, id, len(data))
			pipes[kind].Submit(id, data)
		},
	})

	d := dispatch.New(b.gen, strategy, nil)
	br := input.NewBatchReader(r, b.opts.batchBytes)
	rc := b.opts.controller

	for {
		batch, err := br.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return [model.NumStreams]*chunk.Stream{}, ioError("read", "input", err)
		}

		batchStart := time.Now()
		mem := batch.Bytes()
		if !rc.TryAcquireMemory(mem) {
			b.logger.DebugContext(ctx, "waiting for batch memory", "bytes", mem)
			if err := rc.AcquireMemory(ctx, mem); err != nil {
				return [model.NumStreams]*chunk.Stream{}, err
			}
		}

		outcomes, err := d.Dispatch(ctx, b.cfg, batch)
		if err != nil {
			rc.ReleaseMemory(mem)
			return [model.NumStreams]*chunk.Stream{}, err
		}

		skipped := 0
		for _, out := range outcomes {
			rec, ok := out.Record()
			if !ok {
				skipped++
				report.Skipped.Add(uint32(out.Line()))
				b.logger.LogSkip(ctx, out.Line(), out.Reason())
				continue
			}
			if err := acc.Append(rec); err != nil {
				rc.ReleaseMemory(mem)
				return [model.NumStreams]*chunk.Stream{}, err
			}
		}
		rc.ReleaseMemory(mem)

		b.metrics.RecordBatch(batch.Len(), skipped, time.Since(batchStart))
		b.logger.LogBatch(ctx, br.LinesRead(), int(report.Skipped.GetCardinality()))
	}

	report.LinesRead = br.LinesRead()
	report.Records = acc.Count()
	return acc.Finish(), nil
}

// pipelines returns one compression pipeline per stream.
func (b *builder) pipelines(ctx context.Context, comp *compression.Compressor, concurrency int) [model.NumStreams]*compression.Pipeline {
	var pipes [model.NumStreams]*compression.Pipeline
	for _, kind := range model.StreamOrder {
		pipes[kind] = comp.NewPipeline(ctx, compression.Options{
			Concurrency: concurrency,
			Controller:  b.opts.controller,
			Observe: func(_, original, compressed int, elapsed time.Duration) {
				b.metrics.RecordChunkCompressed(kind, original, compressed, elapsed)
			},
		})
	}
	return pipes
}

// drain waits for in-flight compressions of a failed build.
func (b *builder) drain(pipes [model.NumStreams]*compression.Pipeline) {
	for _, p := range pipes {
		_, _ = p.Wait()
	}
}

// collect waits for the blocks of every stream, in chunk-creation order.
func (b *builder) collect(pipes [model.NumStreams]*compression.Pipeline, streams [model.NumStreams]*chunk.Stream, report *Report) ([model.NumStreams][][]byte, error) {
	var blocks [model.NumStreams][][]byte
	var firstErr error
	for _, kind := range model.StreamOrder {
		out, err := pipes[kind].Wait()
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("compress %s stream: %w", kind, err)
			}
			continue
		}
		if len(out) != streams[kind].NumChunks() {
			return blocks, fmt.Errorf("compress %s stream: %d blocks for %d chunks", kind, len(out), streams[kind].NumChunks())
		}

		sr := &report.Streams[kind]
		sr.Kind = kind
		sr.Chunks = len(out)
		sr.OriginalBytes = streams[kind].Size()
		for _, blk := range out {
			sr.CompressedBytes += int64(len(blk))
		}
		blocks[kind] = out
	}
	return blocks, firstErr
}

// write serializes the container into w, optionally rate limited, and
// records its size and digest.
func (b *builder) write(ctx context.Context, w io.Writer, h container.Header, blocks [model.NumStreams][][]byte, report *Report) error {
	var sink io.Writer = w
	if rc := b.opts.controller; rc != nil {
		sink = resource.NewRateLimitedWriter(ctx, w, rc)
	}
	dw := container.NewDigestWriter(sink)
	cw := container.NewWriter(dw)

	if err := cw.WriteHeader(h); err != nil {
		return err
	}
	for _, kind := range model.StreamOrder {
		if err := cw.WriteStream(kind, blocks[kind]); err != nil {
			return err
		}
	}
	if err := cw.Close(); err != nil {
		return err
	}

	report.Size = dw.Size()
	report.Digest = dw.Hex()
	return nil
}

func (b *builder) manifest(name string, report *Report) *manifest.Manifest {
	m := &manifest.Manifest{
		Version:     manifest.CurrentVersion,
		Container:   name,
		Format:      container.Version,
		DBKey:       report.DBKey,
		Algorithm:   report.Algorithm.String(),
		TrustInput:  b.opts.trustInput,
		BitCount:    int32(report.BitCount),
		RecordCount: int32(report.Records),
		LinesRead:   int64(report.LinesRead),
		Skipped:     report.Skipped.GetCardinality(),
		Size:        report.Size,
		Digest:      report.Digest,
		CreatedAt:   time.Now().UTC(),
	}
	for _, kind := range model.StreamOrder {
		s := report.Streams[kind]
		m.Streams = append(m.Streams, manifest.StreamInfo{
			Kind:            kind.String(),
			Chunks:          s.Chunks,
			OriginalBytes:   s.OriginalBytes,
			CompressedBytes: s.CompressedBytes,
		})
	}
	return m
}
