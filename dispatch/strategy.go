package dispatch

import (
	"context"
	"sync"

	"github.com/hupe1980/fpdb/internal/pool"
)

// Strategy runs fn for every index in [0, n). Implementations may call fn
// concurrently; Run returns only after every started call has finished.
type Strategy interface {
	Run(ctx context.Context, n int, fn func(i int)) error
}

// MapOrdered applies fn to every item using s. out[i] is fn(items[i])
// regardless of completion order.
func MapOrdered[T, R any](ctx context.Context, s Strategy, items []T, fn func(T) R) ([]R, error) {
	out := make([]R, len(items))
	if err := s.Run(ctx, len(items), func(i int) {
		out[i] = fn(items[i])
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// Sequential runs every call in order on the calling goroutine.
type Sequential struct{}

// Run implements Strategy.
func (Sequential) Run(ctx context.Context, n int, fn func(i int)) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(i)
	}
	return nil
}

// tasksPerWorker controls how finely a call is split across workers.
const tasksPerWorker = 4

// Pool runs calls on a fixed set of worker goroutines shared by every Run.
type Pool struct {
	workers *pool.WorkerPool
}

// NewPool creates a Pool with n workers. n <= 0 uses GOMAXPROCS.
func NewPool(n int) *Pool {
	return &Pool{workers: pool.NewWorkerPool(n)}
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers.Size()
}

// Run implements Strategy. Indexes are split into contiguous ranges so a
// large batch costs a handful of submissions rather than one per item.
func (p *Pool) Run(ctx context.Context, n int, fn func(i int)) error {
	if n == 0 {
		return ctx.Err()
	}
	size := n / (p.workers.Size() * tasksPerWorker)
	if size < 1 {
		size = 1
	}

	var (
		wg     sync.WaitGroup
		submit error
	)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		wg.Add(1)
		err := p.workers.Submit(ctx, func() {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				if ctx.Err() != nil {
					return
				}
				fn(i)
			}
		})
		if err != nil {
			wg.Done()
			submit = err
			break
		}
	}
	wg.Wait()

	if submit != nil {
		return submit
	}
	return ctx.Err()
}

// Close stops the workers. Run fails with pool.ErrClosed afterwards.
func (p *Pool) Close() {
	p.workers.Close()
}
