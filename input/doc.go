// Package input opens line-oriented structure files and reads them in
// batches.
//
// Compressed inputs are detected by their magic bytes: gzip, zstd and
// LZ4 frames are decompressed transparently, anything else is read as
// plain text.
package input
