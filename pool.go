package svgbob

import (
	"context"
	"runtime"
	"sync"
)

// Job sizing constants.
const (
	// MinJobs ensures at least one worker is available.
	MinJobs = 1

	// MaxAutoJobs caps the automatic value; each PNG job drives a browser tab.
	MaxAutoJobs = 8
)

// ResolveJobs determines how many diagrams render at once.
// Priority: explicit jobs > GOMAXPROCS-based calculation.
// Exported for use by CLIs.
func ResolveJobs(jobs int) int {
	// Explicit value takes priority
	if jobs > 0 {
		return jobs
	}

	// Auto-calculate based on GOMAXPROCS (adjusted by automaxprocs for containers)
	n := runtime.GOMAXPROCS(0)
	if n < MinJobs {
		return MinJobs
	}
	if n > MaxAutoJobs {
		return MaxAutoJobs
	}
	return n
}

// runBatch calls fn for every index with at most workers calls in flight.
// Indexes are handed out in order, so a single worker processes them
// sequentially. fn must record its own results.
func runBatch(ctx context.Context, workers int, indexes []int, fn func(ctx context.Context, i int)) {
	if len(indexes) == 0 {
		return
	}

	if workers < MinJobs {
		workers = MinJobs
	}
	if workers > len(indexes) {
		workers = len(indexes)
	}

	var wg sync.WaitGroup
	jobs := make(chan int, len(indexes))

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				fn(ctx, idx)
			}
		}()
	}

	for _, i := range indexes {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
}
