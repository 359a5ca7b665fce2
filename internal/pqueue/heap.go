// Package pqueue provides a generic binary-heap priority queue.
//
// The queue is not safe for concurrent use. The store guards it with its own
// mutex so that submissions from many goroutines are serialized.
package pqueue

import "errors"

// ErrEmpty is returned by RemoveHighest when the queue holds no items.
var ErrEmpty = errors.New("pqueue: queue is empty")

// Queue is a binary max-heap ordered by a caller-supplied comparator.
//
// less(a, b) reports whether a ranks strictly below b. The item with no
// item ranking above it is at the root.
type Queue[T any] struct {
	items []T
	less  func(a, b T) bool
}

// New creates an empty queue ordered by less.
func New[T any](less func(a, b T) bool) *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0, 16),
		less:  less,
	}
}

// Insert adds item to the queue. O(log n).
func (q *Queue[T]) Insert(item T) {
	q.items = append(q.items, item)
	q.siftUp(len(q.items) - 1)
}

// RemoveHighest removes and returns the highest-ranked item. O(log n).
// Returns ErrEmpty if the queue is empty.
func (q *Queue[T]) RemoveHighest() (T, error) {
	var zero T
	n := len(q.items)
	if n == 0 {
		return zero, ErrEmpty
	}

	top := q.items[0]
	last := n - 1
	q.items[0] = q.items[last]
	// Clear the vacated slot so the backing array does not pin the item.
	q.items[last] = zero
	q.items = q.items[:last]

	if len(q.items) > 1 {
		q.siftDown(0)
	}
	return top, nil
}

// PeekHighest returns the highest-ranked item without removing it.
func (q *Queue[T]) PeekHighest() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

// IsEmpty reports whether the queue holds no items.
func (q *Queue[T]) IsEmpty() bool {
	return len(q.items) == 0
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Clear removes all items.
func (q *Queue[T]) Clear() {
	clear(q.items)
	q.items = q.items[:0]
}

// Drain removes every item and returns them in priority order.
func (q *Queue[T]) Drain() []T {
	out := make([]T, 0, len(q.items))
	for !q.IsEmpty() {
		item, _ := q.RemoveHighest()
		out = append(out, item)
	}
	return out
}

func (q *Queue[T]) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.less(q.items[parent], q.items[i]) {
			return
		}
		q.items[parent], q.items[i] = q.items[i], q.items[parent]
		i = parent
	}
}

func (q *Queue[T]) siftDown(i int) {
	n := len(q.items)
	for {
		largest := i
		left := 2*i + 1
		right := left + 1

		if left < n && q.less(q.items[largest], q.items[left]) {
			largest = left
		}
		if right < n && q.less(q.items[largest], q.items[right]) {
			largest = right
		}
		if largest == i {
			return
		}
		q.items[i], q.items[largest] = q.items[largest], q.items[i]
		i = largest
	}
}
