// Package dispatch computes fingerprints for batches of input lines.
//
// A Dispatcher maps every line of a Batch to a model.Outcome through an
// injectable Strategy. Strategies may run work concurrently but results
// are stored by index, so the output order always equals the input order.
//
// Per-line failures never escape Dispatch: lines with fewer than two
// tokens become MalformedRecordError skips and generator failures become
// FingerprintComputationError skips. Only strategy failures such as a
// canceled context are returned as errors.
package dispatch
