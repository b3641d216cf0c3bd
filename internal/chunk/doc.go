// Package chunk implements the chunked accumulation of record fields.
//
// An Accumulator owns three Streams (fingerprint, text, identifier). Each
// Stream is an arena of Buffers indexed by chunk id: the last buffer is the
// open chunk, every earlier buffer is sealed and never mutated again.
// Sealing chunk i means freezing index i and allocating index i+1.
//
// # Concurrency Model
//
// An Accumulator has exactly one writer. Sealed buffers may be read
// concurrently (for example by compression workers) because they never
// change after sealing.
package chunk
