package catalog

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// forEachBatch runs fn over items in sequential batches of at most size
// concurrent calls, sleeping delay between batches. The first error cancels
// the running batch and is returned.
func forEachBatch[T any](ctx context.Context, items []T, size int, delay time.Duration, fn func(ctx context.Context, idx int, item T) error) error {
	if size <= 0 {
		size = 1
	}
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			idx, item := i, items[i]
			g.Go(func() error {
				return fn(gctx, idx, item)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if delay > 0 && end < len(items) {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return nil
}
