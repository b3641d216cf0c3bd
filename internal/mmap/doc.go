// Package mmap maps container files read-only into memory.
//
// Unix platforms use mmap(2) with madvise(2) hints; Windows uses
// CreateFileMapping/MapViewOfFile and ignores hints.
package mmap
