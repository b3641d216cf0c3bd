// Package blobstore abstracts where finished container files are written
// and read back.
//
// A [Store] creates blobs for streaming writes and opens them for reading.
// A [WritableBlob] becomes visible only when Close succeeds; Abort discards
// everything written so far.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, atomic rename on Close, mmap reads
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 multipart uploads (package blobstore/s3)
//   - minio.Store: MinIO and S3-compatible services (package blobstore/minio)
//
// Package blobstore/resolve maps a URI such as s3://bucket/key to a Store.
package blobstore
