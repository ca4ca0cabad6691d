// Package pool provides a bounded worker pool for running independent units
// of work concurrently. Both screening phases run on their own pool lifecycle:
// a Map call returns only after every dispatched task has drained.
package pool

import (
	"context"
	"sync"
)

// Result pairs a unit of work's output with its error. Task failures are
// captured as values, never propagated across tasks.
type Result[R any] struct {
	Value R
	Err   error
}

// Map runs fn over items using at most workers goroutines and returns results
// in input order. Each worker writes only its own result slot, so no locking
// is needed around the results slice.
func Map[T, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) (R, error)) []Result[R] {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	results := make([]Result[R], len(items))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				v, err := fn(ctx, items[i])
				results[i] = Result[R]{Value: v, Err: err}
			}
		}()
	}

	next := 0
dispatch:
	for ; next < len(items); next++ {
		select {
		case jobs <- next:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	// Items never dispatched because the context ended carry its error.
	for i := next; i < len(items); i++ {
		results[i] = Result[R]{Err: ctx.Err()}
	}

	return results
}
