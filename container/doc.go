// Package container reads and writes fingerprint database containers.
//
// A container is a QDataStream (Qt_5_2, big-endian) file:
//
//	version       int32 (3)
//	db_key        uint32 length including NUL | bytes | 0x00
//	bit_count     int32
//	record_count  int32
//	fingerprint, text and identifier streams, each:
//	    chunk_count int32
//	    chunk_count × (uint32 length | qCompress block)
//
// The Writer is a linear state machine: the header first, then the three
// streams in that fixed order, then Close. Out-of-order calls fail with
// ErrInvalidTransition and write nothing.
package container
