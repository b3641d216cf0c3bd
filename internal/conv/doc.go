// Package conv provides safe integer type conversion utilities.
//
// The container format stores counts and lengths as 32-bit big-endian
// integers. These functions perform the bounds checks needed when Go's
// platform-dependent int is narrowed to those fixed-width types.
//
// For conversions that are provably safe by domain constraints (e.g., loop
// indices, bounded counters), use direct type casts instead.
package conv
