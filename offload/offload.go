// Package offload runs blocking file system work on a bounded number of
// goroutines.
//
// Work that has started always runs to completion. A caller whose context
// ends stops waiting, and the late result is handed to a discard function so
// it can release what it holds (open handles, typically).
package offload

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many offloaded calls run at once.
type Pool struct {
	sem  *semaphore.Weighted
	size int64
}

// NewPool creates a pool running at most size calls concurrently.
// size <= 0 means four per CPU.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 4 * runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: int64(size)}
}

// Size returns the concurrency limit.
func (p *Pool) Size() int { return int(p.size) }

type result[T any] struct {
	value T
	err   error
}

// Do runs fn on the pool and waits for it.
//
// If ctx ends before a slot is free, fn never runs. If ctx ends while fn is
// running, Do returns immediately and, once fn finishes successfully, its
// value is passed to discard (when not nil).
func Do[T any](ctx context.Context, p *Pool, fn func() (T, error), discard func(T)) (T, error) {
	var zero T

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, fmt.Errorf("offload: waiting for a worker: %w", err)
	}

	done := make(chan result[T], 1)
	go func() {
		defer p.sem.Release(1)
		v, err := fn()
		done <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		go func() {
			r := <-done
			if r.err == nil && discard != nil {
				discard(r.value)
			}
		}()
		return zero, fmt.Errorf("offload: abandoned: %w", ctx.Err())
	}
}
