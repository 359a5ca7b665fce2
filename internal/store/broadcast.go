package store

import "sync"

// Subscription receives values from a store broadcast.
//
// Each subscription has an unbounded mailbox drained by its own goroutine,
// so a slow reader never blocks the processing loop. Values arrive in
// publish order.
type Subscription[T any] struct {
	ch     chan T
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
	leave  func()

	mu      sync.Mutex
	mailbox []T
}

// C returns the receive channel. It is closed after Close or when the store
// is disposed, once buffered values have been delivered or abandoned.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		if s.leave != nil {
			s.leave()
		}
		close(s.done)
	})
}

func (s *Subscription[T]) push(v T) {
	s.mu.Lock()
	s.mailbox = append(s.mailbox, v)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) take() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.mailbox
	s.mailbox = nil
	return batch
}

func (s *Subscription[T]) pump() {
	defer close(s.ch)
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}

		for _, v := range s.take() {
			select {
			case s.ch <- v:
			case <-s.done:
				return
			}
		}
	}
}

// broadcast fans values out to subscriptions.
type broadcast[T any] struct {
	mu     sync.Mutex
	subs   map[*Subscription[T]]struct{}
	closed bool
}

func newBroadcast[T any]() *broadcast[T] {
	return &broadcast[T]{subs: make(map[*Subscription[T]]struct{})}
}

func (b *broadcast[T]) subscribe() *Subscription[T] {
	sub := &Subscription[T]{
		ch:     make(chan T),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	sub.leave = func() { b.remove(sub) }

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.once.Do(func() { close(sub.done) })
		close(sub.ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go sub.pump()
	return sub
}

func (b *broadcast[T]) remove(sub *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

func (b *broadcast[T]) publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		sub.push(v)
	}
}

func (b *broadcast[T]) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *broadcast[T]) close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[*Subscription[T]]struct{})
	b.closed = true
	b.mu.Unlock()

	for sub := range subs {
		sub.Close()
	}
}
