// fpdb-create builds a fingerprint database container from a file of
// "<structure> <identifier>" lines.
//
// Usage:
//
//	fpdb-create [flags] <input> <output> <fingerprint>
//
// input may be "-" for stdin and may be gzip, zstd or lz4 compressed.
// output is a local path or an s3://bucket/key or minio://bucket/key URI.
// fingerprint is one of Morgan, RDKit, AtomPairs, TopologicalTorsions or
// Avalon.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/hupe1980/fpdb"
	"github.com/hupe1980/fpdb/catalog"
	"github.com/hupe1980/fpdb/codec"
	"github.com/hupe1980/fpdb/internal/config"
	"github.com/hupe1980/fpdb/resource"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// flags holds the command-line values. Values from a config file are
// overridden only by flags that were set explicitly.
type flags struct {
	configPath     string
	dbKey          string
	trustInput     bool
	singleThreaded bool
	workers        int
	bitCount       int
	manifest       string
	catalogTable   string
	logLevel       string
	logFormat      string
}

// normalize maps the legacy --trustSmiles spelling to --trustInput.
func normalize(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "trustSmiles" {
		name = "trustInput"
	}
	return pflag.NormalizedName(name)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var f flags
	flagSet := pflag.NewFlagSet("fpdb-create", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetNormalizeFunc(normalize)
	flagSet.StringVar(&f.configPath, "config", "", "YAML config file (default: $"+config.EnvVar+")")
	flagSet.StringVar(&f.dbKey, "dbkey", "", "key stored in the container header")
	flagSet.BoolVar(&f.trustInput, "trustInput", false, "skip structure sanitization")
	flagSet.BoolVar(&f.singleThreaded, "singleThreaded", false, "fingerprint and compress on a single goroutine")
	flagSet.IntVar(&f.workers, "workers", 0, "worker count in parallel mode (default: GOMAXPROCS)")
	flagSet.IntVar(&f.bitCount, "bitCount", 1024, "fingerprint width in bits, a multiple of 32")
	flagSet.StringVar(&f.manifest, "manifest", "", "write a sidecar manifest encoded as json or cbor")
	flagSet.StringVar(&f.catalogTable, "catalogTable", "", "DynamoDB table to publish the container to")
	flagSet.StringVar(&f.logLevel, "logLevel", "info", "log level: debug, info, warn or error")
	flagSet.StringVar(&f.logFormat, "logFormat", "text", "log format: text or json")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage: fpdb-create [flags] <input> <output> <fingerprint>\n\nFlags:\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 3 {
		flagSet.Usage()
		return fmt.Errorf("expected 3 arguments, got %d", flagSet.NArg())
	}
	inPath, outPath, algorithm := flagSet.Arg(0), flagSet.Arg(1), flagSet.Arg(2)

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, flagSet, &f)
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts, err := buildOptions(ctx, cfg, stderr)
	if err != nil {
		return err
	}

	report, err := fpdb.BuildFile(ctx, inPath, outPath, algorithm, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "wrote %s: %d records, %d skipped, %d bytes, blake3 %s\n",
		outPath, report.Records, report.Skipped.GetCardinality(), report.Size, report.Digest)
	if report.Published != nil {
		fmt.Fprintf(stdout, "published %s version %d\n", report.Published.DBKey, report.Published.Version)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func applyFlags(cfg *config.Config, fs *pflag.FlagSet, f *flags) {
	if fs.Changed("dbkey") {
		cfg.DBKey = f.dbKey
	}
	if fs.Changed("trustInput") {
		cfg.TrustInput = f.trustInput
	}
	if fs.Changed("singleThreaded") {
		cfg.SingleThreaded = f.singleThreaded
	}
	if fs.Changed("workers") {
		cfg.Workers = f.workers
	}
	if fs.Changed("bitCount") {
		cfg.BitCount = f.bitCount
	}
	if fs.Changed("manifest") {
		cfg.Manifest = strings.ToLower(f.manifest)
	}
	if fs.Changed("catalogTable") {
		cfg.CatalogTable = f.catalogTable
	}
	if fs.Changed("logLevel") {
		cfg.Log.Level = f.logLevel
	}
	if fs.Changed("logFormat") {
		cfg.Log.Format = f.logFormat
	}
}

func buildOptions(ctx context.Context, cfg *config.Config, stderr io.Writer) ([]fpdb.Option, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(stderr, handlerOpts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(stderr, handlerOpts)
	}

	opts := []fpdb.Option{
		fpdb.WithLogger(fpdb.NewLogger(handler)),
		fpdb.WithDBKey(cfg.DBKey),
		fpdb.WithTrustInput(cfg.TrustInput),
		fpdb.WithBitCount(cfg.BitCount),
		fpdb.WithBatchBytes(cfg.BatchBytes),
		fpdb.WithCompressionLevel(cfg.CompressionLevel),
		fpdb.WithWorkers(cfg.Workers),
	}
	if cfg.SingleThreaded {
		opts = append(opts, fpdb.WithSingleThreaded())
	}

	if cfg.MemoryLimit > 0 || cfg.IORate > 0 {
		workers := int64(cfg.Workers)
		if workers == 0 {
			workers = int64(runtime.GOMAXPROCS(0))
		}
		if cfg.SingleThreaded {
			workers = 1
		}
		opts = append(opts, fpdb.WithResourceController(resource.NewController(resource.Config{
			MemoryLimitBytes:     cfg.MemoryLimit,
			MaxBackgroundWorkers: workers,
			IOLimitBytesPerSec:   int64(cfg.IORate),
		})))
	}

	if cfg.Manifest != "" {
		c, ok := codec.ByName(cfg.Manifest)
		if !ok {
			return nil, fmt.Errorf("unknown manifest codec %q", cfg.Manifest)
		}
		opts = append(opts, fpdb.WithManifest(c))
	}

	if cfg.CatalogTable != "" {
		cat, err := catalog.NewDynamoCatalogFromConfig(ctx, cfg.CatalogTable)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fpdb.WithCatalog(cat))
	}
	return opts, nil
}
