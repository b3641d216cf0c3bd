// Package fpdb builds chemical fingerprint databases.
//
// A build reads a stream of "<structure> <identifier>" lines, computes a
// fixed-width molecular fingerprint for each structure and writes the
// accepted records into a single chunked, compressed container. Lines that
// cannot be parsed or fingerprinted are skipped and reported; they never
// abort the run.
//
// # Quick Start
//
//	ctx := context.Background()
//	report, err := fpdb.BuildFile(ctx, "molecules.smi.gz", "out.fpdb", "Morgan",
//	    fpdb.WithDBKey("chembl"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(report.Records, report.Skipped.GetCardinality())
//
// Outputs may be local paths or object store locations:
//
//	fpdb.BuildFile(ctx, "-", "s3://bucket/dbs/chembl.fpdb", "RDKit")
//	fpdb.BuildFile(ctx, "-", "minio://bucket/chembl.fpdb", "AtomPairs")
//
// # Container Layout
//
// The container is a big-endian stream of version 3:
//
//	version       int32
//	db_key        uint32 length (including NUL) | bytes | NUL
//	bit_count     int32
//	record_count  int32
//	fingerprint, text, identifier streams:
//	    chunk_count int32
//	    chunk_count x (uint32 length | qCompress block)
//
// Concatenating the decompressed chunks of a stream reproduces the
// per-record bytes in input order. Empty input yields one empty chunk per
// stream.
//
// # Execution Modes
//
// By default batches are fingerprinted on a worker pool and chunks are
// compressed concurrently. WithSingleThreaded runs everything on the
// calling goroutine. Both modes produce byte-identical containers.
//
// # Publishing
//
// WithManifest writes a sidecar describing the build next to the container,
// and WithCatalog registers the container under a monotonically increasing
// version of its db_key.
package fpdb
