package compression

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/fpdb/resource"
)

// Options configures CompressAll and Pipeline.
type Options struct {
	// Concurrency bounds the number of chunks compressed at once.
	// Zero means GOMAXPROCS; 1 compresses sequentially on the calling goroutine.
	Concurrency int
	// Controller, when set, gates background compression on its background
	// slots. A chunk submitted while every slot is busy is compressed on the
	// submitting goroutine.
	Controller *resource.Controller
	// Observe, when set, is called after each chunk is compressed. It may be
	// called concurrently.
	Observe func(index, original, compressed int, elapsed time.Duration)
}

// Pipeline compresses chunks as they are submitted, so compression of
// sealed chunks overlaps with filling the next one.
type Pipeline struct {
	c    *Compressor
	opts Options
	ctx  context.Context
	g    *errgroup.Group // nil in sequential mode

	mu     sync.Mutex
	blocks [][]byte
	err    error
}

// NewPipeline returns a Pipeline compressing with c.
func (c *Compressor) NewPipeline(ctx context.Context, opts Options) *Pipeline {
	p := &Pipeline{c: c, opts: opts, ctx: ctx}
	if opts.Concurrency == 1 {
		return p
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	p.g, p.ctx = errgroup.WithContext(ctx)
	p.g.SetLimit(limit)
	return p
}

// Submit schedules chunk id for compression. chunk must not change until
// Wait returns. Errors are reported by Wait.
func (p *Pipeline) Submit(id int, chunk []byte) {
	if p.g == nil {
		p.fail(p.run(id, chunk))
		return
	}

	rc := p.opts.Controller
	if rc == nil {
		p.g.Go(func() error { return p.run(id, chunk) })
		return
	}
	if !rc.TryAcquireBackground() {
		p.fail(p.run(id, chunk))
		return
	}
	p.g.Go(func() error {
		defer rc.ReleaseBackground()
		return p.run(id, chunk)
	})
}

// Wait blocks until every submitted chunk is compressed and returns the
// blocks ordered by id. Ids must be dense from zero.
func (p *Pipeline) Wait() ([][]byte, error) {
	var err error
	if p.g != nil {
		err = p.g.Wait()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		err = p.err
	}
	if err != nil {
		return nil, err
	}
	for i, b := range p.blocks {
		if b == nil {
			return nil, fmt.Errorf("compression: chunk %d was never submitted", i)
		}
	}
	return p.blocks, nil
}

func (p *Pipeline) run(id int, chunk []byte) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	block, err := p.c.Compress(chunk)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if id >= len(p.blocks) {
		p.blocks = append(p.blocks, make([][]byte, id+1-len(p.blocks))...)
	}
	p.blocks[id] = block
	p.mu.Unlock()

	if p.opts.Observe != nil {
		p.opts.Observe(id, len(chunk), len(block), time.Since(start))
	}
	return nil
}

func (p *Pipeline) fail(err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
}

// CompressAll compresses every chunk and returns the blocks in input order.
func (c *Compressor) CompressAll(ctx context.Context, chunks [][]byte, opts Options) ([][]byte, error) {
	p := c.NewPipeline(ctx, opts)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			_, _ = p.Wait()
			return nil, err
		}
		p.Submit(i, chunk)
	}
	blocks, err := p.Wait()
	if err != nil {
		return nil, err
	}
	if blocks == nil {
		blocks = [][]byte{}
	}
	return blocks, nil
}
