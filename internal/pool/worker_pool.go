package pool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned when submitting to a closed pool.
var ErrClosed = errors.New("pool: worker pool is closed")

// WorkerPool manages a fixed set of goroutines that run submitted tasks.
// One pool serves every batch of a build, so goroutines are not spawned
// per line.
type WorkerPool struct {
	numWorkers int
	workCh     chan func()
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closed     atomic.Bool
	submitMu   sync.RWMutex
}

// NewWorkerPool creates a worker pool with numWorkers goroutines.
// numWorkers <= 0 uses runtime.GOMAXPROCS(0).
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	wp := &WorkerPool{
		numWorkers: numWorkers,
		workCh:     make(chan func(), numWorkers*2),
		stopCh:     make(chan struct{}),
	}

	wp.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go wp.worker()
	}

	return wp
}

// Size returns the number of worker goroutines.
func (wp *WorkerPool) Size() int {
	return wp.numWorkers
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.stopCh:
			// Drain remaining work before exiting.
			for {
				select {
				case task, ok := <-wp.workCh:
					if !ok {
						return
					}
					task()
				default:
					return
				}
			}
		case task, ok := <-wp.workCh:
			if !ok {
				return
			}
			task()
		}
	}
}

// Submit enqueues task. It blocks while the queue is full.
//
// Returns ErrClosed if the pool is closed, or ctx.Err() if ctx is done
// before the task is enqueued.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	wp.submitMu.RLock()
	defer wp.submitMu.RUnlock()

	if wp.closed.Load() {
		return ErrClosed
	}

	select {
	case wp.workCh <- task:
		return nil
	case <-wp.stopCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work, runs already queued tasks and waits for the
// workers to exit. Close is idempotent.
func (wp *WorkerPool) Close() {
	if !wp.closed.CompareAndSwap(false, true) {
		return
	}

	wp.submitMu.Lock()
	close(wp.stopCh)
	close(wp.workCh)
	wp.submitMu.Unlock()

	wp.wg.Wait()
}
