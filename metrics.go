package fpdb

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/fpdb/model"
)

// MetricsCollector defines an interface for collecting build metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Methods may be called concurrently from compression workers.
type MetricsCollector interface {
	// RecordBatch is called after each input batch has been dispatched.
	// lines is the number of lines in the batch, skipped the number that
	// produced no record.
	RecordBatch(lines, skipped int, duration time.Duration)

	// RecordChunkSealed is called when a chunk of a stream is sealed.
	RecordChunkSealed(kind model.StreamKind, size int)

	// RecordChunkCompressed is called after each chunk is compressed.
	RecordChunkCompressed(kind model.StreamKind, original, compressed int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBatch(int, int, time.Duration)                             {}
func (NoopMetricsCollector) RecordChunkSealed(model.StreamKind, int)                         {}
func (NoopMetricsCollector) RecordChunkCompressed(model.StreamKind, int, int, time.Duration) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	BatchCount         atomic.Int64
	LinesProcessed     atomic.Int64
	LinesSkipped       atomic.Int64
	BatchTotalNanos    atomic.Int64
	ChunksSealed       atomic.Int64
	SealedBytes        atomic.Int64
	ChunksCompressed   atomic.Int64
	OriginalBytes      atomic.Int64
	CompressedBytes    atomic.Int64
	CompressTotalNanos atomic.Int64
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(lines, skipped int, duration time.Duration) {
	b.BatchCount.Add(1)
	b.LinesProcessed.Add(int64(lines))
	b.LinesSkipped.Add(int64(skipped))
	b.BatchTotalNanos.Add(duration.Nanoseconds())
}

// RecordChunkSealed implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunkSealed(_ model.StreamKind, size int) {
	b.ChunksSealed.Add(1)
	b.SealedBytes.Add(int64(size))
}

// RecordChunkCompressed implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunkCompressed(_ model.StreamKind, original, compressed int, duration time.Duration) {
	b.ChunksCompressed.Add(1)
	b.OriginalBytes.Add(int64(original))
	b.CompressedBytes.Add(int64(compressed))
	b.CompressTotalNanos.Add(duration.Nanoseconds())
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BatchCount:       b.BatchCount.Load(),
		LinesProcessed:   b.LinesProcessed.Load(),
		LinesSkipped:     b.LinesSkipped.Load(),
		BatchAvgNanos:    avg(b.BatchTotalNanos.Load(), b.BatchCount.Load()),
		ChunksSealed:     b.ChunksSealed.Load(),
		SealedBytes:      b.SealedBytes.Load(),
		ChunksCompressed: b.ChunksCompressed.Load(),
		OriginalBytes:    b.OriginalBytes.Load(),
		CompressedBytes:  b.CompressedBytes.Load(),
		CompressAvgNanos: avg(b.CompressTotalNanos.Load(), b.ChunksCompressed.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BatchCount       int64
	LinesProcessed   int64
	LinesSkipped     int64
	BatchAvgNanos    int64
	ChunksSealed     int64
	SealedBytes      int64
	ChunksCompressed int64
	OriginalBytes    int64
	CompressedBytes  int64
	CompressAvgNanos int64
}

// CompressionRatio returns compressed/original bytes, or 0 before any chunk
// was compressed.
func (s BasicMetricsStats) CompressionRatio() float64 {
	if s.OriginalBytes == 0 {
		return 0
	}
	return float64(s.CompressedBytes) / float64(s.OriginalBytes)
}
