// Package fs abstracts the filesystem calls made by the local blob store so
// tests can inject write, sync and close failures.
//
// Production code uses [Default]; tests wrap it in a [FaultyFS].
package fs
