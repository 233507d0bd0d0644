package engine

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrently running CPU-bound tasks.
type Pool struct {
	sem  *semaphore.Weighted
	size int
	busy func(delta float64)
}

// NewPool creates a pool with size slots. busy, if non-nil, is told about
// every slot acquired (+1) and released (-1).
func NewPool(size int, busy func(delta float64)) *Pool {
	if size < 1 {
		size = 1
	}
	if busy == nil {
		busy = func(float64) {}
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size, busy: busy}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return p.size
}

// Do runs fn on the calling goroutine once a slot is free. ctx only bounds the
// wait for a slot; fn itself is not interrupted.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.busy(1)
	defer func() {
		p.busy(-1)
		p.sem.Release(1)
	}()
	return fn()
}
