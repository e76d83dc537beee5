package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestForEachBatchBoundsConcurrency(t *testing.T) {
	items := make([]int, 45)
	for i := range items {
		items[i] = i
	}

	var (
		inFlight atomic.Int32
		peak     atomic.Int32
		mu       sync.Mutex
		seen     = make(map[int]bool)
	)
	err := forEachBatch(context.Background(), items, 20, 0, func(ctx context.Context, idx int, item int) error {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)

		mu.Lock()
		seen[item] = idx == item
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("forEachBatch unexpected error: %v", err)
	}
	if peak.Load() > 20 {
		t.Fatalf("peak concurrency = %d, want <= 20", peak.Load())
	}
	if len(seen) != len(items) {
		t.Fatalf("visited %d items, want %d", len(seen), len(items))
	}
	for item, ok := range seen {
		if !ok {
			t.Fatalf("item %d received wrong index", item)
		}
	}
}

func TestForEachBatchStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	err := forEachBatch(context.Background(), []int{1, 2, 3, 4, 5}, 2, 0, func(ctx context.Context, idx int, item int) error {
		calls.Add(1)
		if item == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2 (later batches must not start)", calls.Load())
	}
}

func TestForEachBatchHonoursCancellationBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := forEachBatch(ctx, []int{1, 2, 3}, 1, time.Hour, func(ctx context.Context, idx int, item int) error {
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
