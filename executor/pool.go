// Package executor provides the shared worker pool that runs fragment-level
// I/O, and a completion-ordered queue for fanning results back in.
package executor

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultWorkers is the concurrency bound used when none is configured.
const DefaultWorkers = 16

// Pool runs tasks on goroutines, with at most a fixed number running at once.
// A single Pool is shared by all concurrent operations of a service.
type Pool struct {
	sem     *semaphore.Weighted
	workers int
	wg      sync.WaitGroup
	log     *slog.Logger
}

// New creates a pool running at most workers tasks concurrently.
func New(workers int, log *slog.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = slog.Default()
	}

	return &Pool{
		sem:     semaphore.NewWeighted(int64(workers)),
		workers: workers,
		log:     log,
	}
}

// Workers returns the concurrency bound.
func (p *Pool) Workers() int {
	return p.workers
}

// Go schedules task. It never blocks the caller: the task waits for a free
// worker slot on its own goroutine.
func (p *Pool) Go(task func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		// Acquire only fails on a cancelled context, and Background never is.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)

		task()
	}()
}

// Close waits for every scheduled task to finish.
func (p *Pool) Close() {
	p.wg.Wait()
	p.log.Debug("Executor pool drained", slog.Int("workers", p.workers))
}
