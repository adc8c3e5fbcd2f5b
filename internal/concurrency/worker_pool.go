package concurrency

import (
	"context"
	"sync"
)

// WorkerFn handles task index. Tasks must not share mutable state unless
// they synchronise it themselves.
type WorkerFn func(ctx context.Context, index int)

// SimpleWorkerPool runs fn once for every index in [0, tasks) on at most
// concurrency goroutines and returns when all started tasks finish. Once ctx
// is cancelled no further indices are handed out.
func SimpleWorkerPool(ctx context.Context, concurrency int, tasks int, fn WorkerFn) {
	if tasks <= 0 {
		return
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > tasks {
		concurrency = tasks
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				fn(ctx, i)
			}
		}()
	}

feed:
	for i := 0; i < tasks; i++ {
		select {
		case idx <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(idx)
	wg.Wait()
}
