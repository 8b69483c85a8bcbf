package executor

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrQueueFull is returned when more tasks are submitted than the queue was sized for.
	ErrQueueFull = errors.New("completion queue: capacity exceeded")

	// ErrNothingPending is returned by Take when no submitted task is left to wait for.
	ErrNothingPending = errors.New("completion queue: no pending tasks")
)

// CompletionQueue submits tasks to a Pool and hands their results back in
// completion order, not submission order. One queue belongs to exactly one
// operation.
//
// The queue is sized for the total number of tasks the operation may submit,
// so a finished task never blocks on delivery even if the operation stopped
// taking results.
type CompletionQueue[T any] struct {
	pool    *Pool
	results chan T
	onPanic func(any) T

	mu        sync.Mutex
	submitted int
	pending   int
}

// NewCompletionQueue creates a queue over pool accepting up to capacity
// submissions. If a task panics, onPanic converts the recovered value into
// the result delivered in its place.
func NewCompletionQueue[T any](pool *Pool, capacity int, onPanic func(any) T) *CompletionQueue[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &CompletionQueue[T]{
		pool:    pool,
		results: make(chan T, capacity),
		onPanic: onPanic,
	}
}

// Submit schedules task on the pool.
func (q *CompletionQueue[T]) Submit(task func() T) error {
	q.mu.Lock()
	if q.submitted == cap(q.results) {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.submitted++
	q.pending++
	q.mu.Unlock()

	q.pool.Go(func() {
		q.results <- q.run(task)
	})
	return nil
}

func (q *CompletionQueue[T]) run(task func() T) (result T) {
	defer func() {
		if r := recover(); r != nil && q.onPanic != nil {
			result = q.onPanic(r)
		}
	}()
	return task()
}

// Take blocks until the next task completes and returns its result.
// It fails if no task is pending or ctx is done first.
func (q *CompletionQueue[T]) Take(ctx context.Context) (T, error) {
	var zero T

	if q.Pending() == 0 {
		return zero, ErrNothingPending
	}

	select {
	case result := <-q.results:
		q.mu.Lock()
		q.pending--
		q.mu.Unlock()
		return result, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Pending returns the number of submitted tasks whose result was not taken yet.
func (q *CompletionQueue[T]) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}
