package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestMapPreservesInputOrder(t *testing.T) {
	items := []int{5, 3, 8, 1, 9, 2}
	results := Map(context.Background(), 3, items, func(ctx context.Context, v int) (int, error) {
		return v * 10, nil
	})

	if len(results) != len(items) {
		t.Fatalf("Expected %d results, got %d", len(items), len(results))
	}
	for i, item := range items {
		if results[i].Err != nil {
			t.Errorf("Result %d: unexpected error %v", i, results[i].Err)
		}
		if results[i].Value != item*10 {
			t.Errorf("Result %d: expected %d, got %d", i, item*10, results[i].Value)
		}
	}
}

func TestMapBoundsConcurrency(t *testing.T) {
	const workers = 4
	var active, peak int64

	items := make([]int, 50)
	Map(context.Background(), workers, items, func(ctx context.Context, v int) (int, error) {
		n := atomic.AddInt64(&active, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt64(&active, -1)
		return 0, nil
	})

	if peak > workers {
		t.Errorf("Expected at most %d concurrent tasks, observed %d", workers, peak)
	}
}

func TestMapCapturesTaskErrors(t *testing.T) {
	boom := errors.New("boom")
	items := []int{1, 2, 3}
	results := Map(context.Background(), 2, items, func(ctx context.Context, v int) (int, error) {
		if v == 2 {
			return 0, boom
		}
		return v, nil
	})

	if results[1].Err == nil || !errors.Is(results[1].Err, boom) {
		t.Errorf("Expected task error to be captured, got %v", results[1].Err)
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Error("Expected sibling tasks to be unaffected by one failure")
	}
}

func TestMapMarksUndispatchedOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	items := make([]int, 100)
	results := Map(ctx, 1, items, func(ctx context.Context, v int) (int, error) {
		cancel()
		return 1, nil
	})

	var processed, cancelled int
	for _, res := range results {
		switch {
		case res.Err == nil && res.Value == 1:
			processed++
		case errors.Is(res.Err, context.Canceled):
			cancelled++
		default:
			t.Errorf("Unexpected result %+v", res)
		}
	}
	if processed == 0 {
		t.Error("Expected at least one task to run before cancellation")
	}
	if cancelled == 0 {
		t.Error("Expected undispatched items to carry the context error")
	}
	if processed+cancelled != len(items) {
		t.Errorf("Expected every slot filled, got %d+%d of %d", processed, cancelled, len(items))
	}
}

func TestMapMoreWorkersThanItems(t *testing.T) {
	results := Map(context.Background(), 16, []int{1, 2}, func(ctx context.Context, v int) (int, error) {
		return v, nil
	})
	if len(results) != 2 || results[0].Value != 1 || results[1].Value != 2 {
		t.Errorf("Unexpected results %+v", results)
	}
}

func TestMapEmptyItems(t *testing.T) {
	results := Map(context.Background(), 8, nil, func(ctx context.Context, v int) (int, error) {
		t.Fatal("fn must not be called for empty input")
		return 0, nil
	})
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}
