package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fpdb/internal/pool"
	"github.com/hupe1980/fpdb/testutil"
)

func strategies(t *testing.T) map[string]Strategy {
	t.Helper()
	p := NewPool(4)
	t.Cleanup(p.Close)
	return map[string]Strategy{
		"sequential": Sequential{},
		"pool":       p,
	}
}

func TestMapOrderedPreservesOrder(t *testing.T) {
	rng := testutil.NewRNG(42)
	items := make([]int, 500)
	for i := range items {
		items[i] = i
	}

	for name, s := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			out, err := MapOrdered(context.Background(), s, items, func(v int) int {
				time.Sleep(time.Duration(rng.Intn(200)) * time.Microsecond)
				return v * v
			})
			require.NoError(t, err)
			require.Len(t, out, len(items))
			for i, v := range out {
				assert.Equal(t, i*i, v)
			}
		})
	}
}

func TestMapOrderedEmpty(t *testing.T) {
	for name, s := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			out, err := MapOrdered(context.Background(), s, []string{}, func(v string) int { return len(v) })
			require.NoError(t, err)
			assert.Empty(t, out)
		})
	}
}

func TestStrategyCanceled(t *testing.T) {
	for name, s := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			var calls atomic.Int32
			err := s.Run(ctx, 100, func(int) { calls.Add(1) })
			assert.ErrorIs(t, err, context.Canceled)
			assert.Less(t, calls.Load(), int32(100))
		})
	}
}

func TestPoolRunsEveryIndexOnce(t *testing.T) {
	p := NewPool(3)
	defer p.Close()
	assert.Equal(t, 3, p.Workers())

	for _, n := range []int{1, 2, 11, 1000} {
		hits := make([]atomic.Int32, n)
		require.NoError(t, p.Run(context.Background(), n, func(i int) { hits[i].Add(1) }))
		for i := range hits {
			assert.Equal(t, int32(1), hits[i].Load(), "n=%d i=%d", n, i)
		}
	}
}

func TestPoolClosed(t *testing.T) {
	p := NewPool(2)
	p.Close()

	err := p.Run(context.Background(), 10, func(int) {})
	assert.True(t, errors.Is(err, pool.ErrClosed))
}
