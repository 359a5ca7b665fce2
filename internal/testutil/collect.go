package testutil

import (
	"sync"
	"time"
)

// Collector drains a channel into a slice on its own goroutine.
type Collector[T any] struct {
	mu      sync.Mutex
	values  []T
	changed chan struct{}
	done    chan struct{}
}

// Collect starts draining ch. Collection stops when ch is closed.
func Collect[T any](ch <-chan T) *Collector[T] {
	c := &Collector[T]{
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		for v := range ch {
			c.mu.Lock()
			c.values = append(c.values, v)
			c.mu.Unlock()
			select {
			case c.changed <- struct{}{}:
			default:
			}
		}
	}()
	return c
}

// Values returns a copy of everything collected so far.
func (c *Collector[T]) Values() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.values...)
}

// Len returns the number of values collected so far.
func (c *Collector[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

// WaitFor blocks until at least n values were collected or timeout elapses.
// It reports whether n was reached.
func (c *Collector[T]) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if c.Len() >= n {
			return true
		}
		select {
		case <-c.changed:
		case <-c.done:
			return c.Len() >= n
		case <-deadline.C:
			return c.Len() >= n
		}
	}
}

// Closed blocks until the channel is closed or timeout elapses.
func (c *Collector[T]) Closed(timeout time.Duration) bool {
	select {
	case <-c.done:
		return true
	case <-time.After(timeout):
		return false
	}
}
