package persistence

// RepositoryPool hands out each of its items at most once. A pool belongs to
// exactly one save or load operation and is never shared between goroutines,
// so no fragment slot of an operation is ever assigned twice while concurrent
// operations still draw from the same configured list independently.
type RepositoryPool[T any] struct {
	items []T
}

// NewRepositoryPool creates a pool over a copy of items.
func NewRepositoryPool[T any](items []T) *RepositoryPool[T] {
	return &RepositoryPool[T]{items: append([]T(nil), items...)}
}

// Take removes and returns the next remaining item, or false once the pool is exhausted.
func (p *RepositoryPool[T]) Take() (T, bool) {
	var zero T
	if len(p.items) == 0 {
		return zero, false
	}

	item := p.items[0]
	p.items[0] = zero
	p.items = p.items[1:]
	return item, true
}

// Len returns the number of remaining items.
func (p *RepositoryPool[T]) Len() int {
	return len(p.items)
}
