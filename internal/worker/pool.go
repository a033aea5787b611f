package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Job is one unit of per-employee audit work. Jobs for different
// employees share no mutable state, so they may run in parallel
// without coordination.
type Job func(ctx context.Context) error

// Pool fans a batch of jobs over a bounded number of goroutines. Call
// volume equals employee count, which is bounded by a single audit
// batch, so a buffered channel is all the backpressure needed.
type Pool struct {
	size   int
	logger *zap.Logger
}

// NewPool creates a pool with the given parallelism. Sizes below one
// are clamped to one.
func NewPool(size int, logger *zap.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size:   size,
		logger: logger,
	}
}

// Run executes all jobs and returns their errors positionally; a nil
// entry means the job succeeded. One failing job never stops the
// others, but context cancellation drains the queue.
func (p *Pool) Run(ctx context.Context, jobs []Job) []error {
	errs := make([]error, len(jobs))
	if len(jobs) == 0 {
		return errs
	}

	type task struct {
		idx int
		job Job
	}

	queue := make(chan task, len(jobs))
	for i, j := range jobs {
		queue <- task{idx: i, job: j}
	}
	close(queue)

	workers := p.size
	if workers > len(jobs) {
		workers = len(jobs)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for t := range queue {
				if err := ctx.Err(); err != nil {
					errs[t.idx] = err
					continue
				}
				if err := t.job(ctx); err != nil {
					p.logger.Error("Job failed", zap.Int("index", t.idx), zap.Error(err))
					errs[t.idx] = err
				}
			}
		}()
	}
	wg.Wait()

	return errs
}
