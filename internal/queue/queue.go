package queue

import (
	"sync"
)

// Queue is a thread-safe batch buffer. Push reports when the configured
// limit is reached so the owner can drain and write the batch in one go.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	limit int
}

// New creates an empty queue that reports full at limit items.
// A limit below one disables the report.
func New[T any](limit int) *Queue[T] {
	size := limit
	if size < 0 {
		size = 0
	}
	return &Queue[T]{
		items: make([]T, 0, size),
		limit: limit,
	}
}

// Push appends items and returns true once the queue holds at least limit items.
func (q *Queue[T]) Push(items ...T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	return q.limit > 0 && len(q.items) >= q.limit
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Limit returns the batch size the queue was created with.
func (q *Queue[T]) Limit() int {
	return q.limit
}

// Drain returns all items in push order and empties the queue.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = make([]T, 0, cap(result))
	return result
}
