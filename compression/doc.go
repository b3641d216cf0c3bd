// Package compression turns sealed chunks into self-contained compressed blocks.
//
// The block layout is the one produced by Qt's qCompress:
//
//	block := original_length uint32 (big-endian) | zlib stream
//
// An empty chunk compresses to exactly four zero bytes. When a block is
// stored in a container it is additionally prefixed with its own length,
// so each stored chunk carries compressed length, original length and
// payload and can be decompressed without external knowledge.
//
// Compression of distinct chunks is order-independent; CompressAll runs
// chunks concurrently and returns blocks in input order.
package compression
