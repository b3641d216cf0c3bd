// Package resource bounds the resources a build may use.
//
// A Controller governs three things:
//
//   - Memory: bytes held by in-flight input batches (blocking semaphore)
//   - Background slots: concurrent chunk compressions
//   - IO: output throughput (token bucket), via RateLimitedWriter
//
// A nil *Controller is valid and imposes no limits.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:     2 << 30,
//	    MaxBackgroundWorkers: 4,
//	})
//	if err := rc.AcquireMemory(ctx, int64(batch.Bytes)); err != nil { ... }
//	defer rc.ReleaseMemory(int64(batch.Bytes))
package resource
