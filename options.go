package fpdb

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/fpdb/catalog"
	"github.com/hupe1980/fpdb/codec"
	"github.com/hupe1980/fpdb/fingerprint"
	"github.com/hupe1980/fpdb/input"
	"github.com/hupe1980/fpdb/resource"
)

type options struct {
	dbKey            string
	trustInput       bool
	singleThreaded   bool
	workers          int
	bitCount         int
	chunkCapacity    int
	batchBytes       int
	compressionLevel int
	generator        fingerprint.Generator
	controller       *resource.Controller
	metricsCollector MetricsCollector
	logger           *Logger
	manifestCodec    codec.Codec
	catalog          catalog.Catalog
	uri              string // location recorded in the catalog; defaults to the container name
}

func defaultOptions() options {
	return options{
		workers:          runtime.GOMAXPROCS(0),
		bitCount:         fingerprint.DefaultBitCount,
		batchBytes:       input.DefaultBatchBytes,
		metricsCollector: NoopMetricsCollector{},
		logger:           NewLogger(nil),
	}
}

// Option configures a build.
type Option func(*options)

// WithDBKey sets the db_key written into the container header.
// The default is the empty string.
func WithDBKey(dbKey string) Option {
	return func(o *options) {
		o.dbKey = dbKey
	}
}

// WithTrustInput skips structure sanitization. Structures are still parsed,
// but valence and aromaticity are not checked.
func WithTrustInput(trust bool) Option {
	return func(o *options) {
		o.trustInput = trust
	}
}

// WithSingleThreaded runs fingerprinting and compression sequentially on the
// calling goroutine. The container is byte-identical to a parallel build.
func WithSingleThreaded() Option {
	return func(o *options) {
		o.singleThreaded = true
	}
}

// WithWorkers sets the number of fingerprint and compression workers used
// in parallel mode. Values <= 0 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		o.workers = n
	}
}

// WithBitCount sets the fingerprint width of the built-in generator.
// It must be a positive multiple of 32. Ignored when WithGenerator is used.
func WithBitCount(n int) Option {
	return func(o *options) {
		o.bitCount = n
	}
}

// WithGenerator replaces the built-in fingerprint generator. The container
// bit count is taken from the generator.
func WithGenerator(g fingerprint.Generator) Option {
	return func(o *options) {
		o.generator = g
	}
}

// WithChunkCapacity sets the per-chunk size cap in bytes.
//
// Chunks are sealed once they reach the cap, so a smaller value yields
// more, smaller compressed blocks. The default is 1 GiB.
func WithChunkCapacity(n int) Option {
	return func(o *options) {
		o.chunkCapacity = n
	}
}

// WithBatchBytes sets the approximate input size read per batch.
// Values <= 0 use the default of 10,000,000 bytes.
func WithBatchBytes(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = input.DefaultBatchBytes
		}
		o.batchBytes = n
	}
}

// WithCompressionLevel sets the zlib level of compressed chunks.
// Zero selects the default level.
func WithCompressionLevel(level int) Option {
	return func(o *options) {
		o.compressionLevel = level
	}
}

// WithResourceController bounds memory held by in-flight batches, the
// number of concurrent compressions and the output write rate.
//
// Example:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:     256 << 20,
//	    MaxBackgroundWorkers: 4,
//	    IOLimitBytesPerSec:   64 << 20,
//	})
//	fpdb.Build(ctx, r, store, "out.fpdb", "Morgan", fpdb.WithResourceController(rc))
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithMetricsCollector configures build metrics. If nil is passed, metrics
// are discarded.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel installs a text logger on stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithManifest writes a sidecar manifest next to the container, encoded
// with c. If nil is passed, codec.Default is used.
func WithManifest(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.manifestCodec = c
	}
}

// WithCatalog publishes the finished container to c.
func WithCatalog(c catalog.Catalog) Option {
	return func(o *options) {
		o.catalog = c
	}
}

func withURI(uri string) Option {
	return func(o *options) {
		o.uri = uri
	}
}
