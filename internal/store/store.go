package store

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/statestore/internal/action"
	"github.com/roach88/statestore/internal/equality"
	"github.com/roach88/statestore/internal/middleware"
	"github.com/roach88/statestore/internal/pqueue"
	"github.com/roach88/statestore/internal/registry"
)

// internalPriority runs history navigation and restores ahead of everything
// already queued.
const internalPriority = math.MaxInt

// Store owns one authoritative state value and the loop that transitions it.
//
// Thread-safety model:
//   - State(), Subscribe(), Errors(): safe from any goroutine, lock-free reads
//   - Dispatch() and friends: safe from any goroutine, serialized by mu
//   - transitions: run on the single loop goroutine, one at a time
//
// INVARIANTS:
//   - at most one loop goroutine exists at any instant (running)
//   - only the loop goroutine commits state
//   - a failed transition never changes the committed state
type Store[S any] struct {
	id       string
	logger   *slog.Logger
	clock    *Clock
	ids      IDGenerator
	equal    func(a, b S) bool
	globals  *middleware.Globals[S]
	local    *middleware.Chain[S]
	registry *registry.Registry
	onError  func(action.Failure[S])

	validator action.Validator[S]

	state  atomic.Pointer[S]
	states *broadcast[S]
	errs   *broadcast[action.Failure[S]]

	// Cancelled by Dispose; parent of every transition context.
	ctx    context.Context
	cancel context.CancelFunc

	// Fixed at construction.
	clearQueueOnError  bool
	maxActionsPerCycle int
	maxProcessingTime  time.Duration

	mu            sync.Mutex
	queue         *pqueue.Queue[entry[S]]
	gate          *gate[S]
	running       bool
	disposed      bool
	batchDelay    time.Duration
	actionTimeout time.Duration
	historyLimit  int
	history       *history[S]
	adaptive      *adaptiveDelay
	waiters       []chan struct{}
	stats         Stats

	// Batched mode pending emission.
	pending      *S
	pendingSince time.Time
	emitTimer    *time.Timer
	emitGen      uint64
	published    *S
}

// entry is a queued action.
type entry[S any] struct {
	action action.Action[S]
	seq    int64

	// internal entries bypass middleware; untracked ones are not recorded
	// in history.
	internal  bool
	untracked bool
	reduce    func() (S, bool)
}

// rank orders entries by priority descending, then sequence ascending.
func rank[S any](a, b entry[S]) bool {
	if a.action.Priority != b.action.Priority {
		return a.action.Priority < b.action.Priority
	}
	return a.seq > b.seq
}

// Stats are cumulative store counters.
type Stats struct {
	Dispatched int64 `json:"dispatched"`
	Throttled  int64 `json:"throttled"`
	Debounced  int64 `json:"debounced"`
	Dropped    int64 `json:"dropped"`
	Executed   int64 `json:"executed"`
	Commits    int64 `json:"commits"`
	Unchanged  int64 `json:"unchanged"`
	Publishes  int64 `json:"publishes"`
	Failures   int64 `json:"failures"`
	Cleared    int64 `json:"cleared"`
	QueueLen   int   `json:"queue_len"`
}

// New creates a store holding initial.
func New[S any](initial S, opts ...Option[S]) *Store[S] {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store[S]{
		logger:             slog.Default(),
		clock:              NewClock(),
		ids:                UUIDv7Generator{},
		equal:              equality.Typed[S](equality.ShallowEqual),
		local:              middleware.NewChain[S](),
		states:             newBroadcast[S](),
		errs:               newBroadcast[action.Failure[S]](),
		ctx:                ctx,
		cancel:             cancel,
		clearQueueOnError:  true,
		maxActionsPerCycle: DefaultMaxActionsPerCycle,
		maxProcessingTime:  DefaultMaxProcessingTime,
		queue:              pqueue.New(rank[S]),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.id = s.ids.Generate()
	if s.registry == nil {
		s.registry = registry.New()
	}
	s.gate = newGate(s.fireDebounced)
	s.adaptive = newAdaptiveDelay(s.batchDelay)
	s.state.Store(&initial)
	s.published = &initial
	if s.historyLimit > 0 {
		s.history = newHistory(s.historyLimit, initial)
	}

	s.logger.Debug("store created",
		"store_id", s.id,
		"batched", s.batchDelay > 0,
		"batch_delay", s.batchDelay,
		"history_limit", s.historyLimit)
	return s
}

// ID returns the store's identifier.
func (s *Store[S]) ID() string { return s.id }

// Registry returns the dependency registry.
func (s *Store[S]) Registry() *registry.Registry { return s.registry }

// State returns the committed state. In batched mode this may be ahead of
// what subscribers have received.
func (s *Store[S]) State() S {
	return *s.state.Load()
}

// Subscribe returns a subscription to published states. The first value
// received is the next publish, not the current state.
func (s *Store[S]) Subscribe() *Subscription[S] {
	return s.states.subscribe()
}

// Errors returns a subscription to failure records.
func (s *Store[S]) Errors() *Subscription[action.Failure[S]] {
	return s.errs.subscribe()
}

// Use appends local fire-and-forget links.
func (s *Store[S]) Use(links ...middleware.Link[S]) { s.local.Use(links...) }

// UseResult appends local result links.
func (s *Store[S]) UseResult(links ...middleware.ResultLink[S]) { s.local.UseResult(links...) }

// Dispatch submits a. After Dispose it is a logged no-op.
func (s *Store[S]) Dispatch(a action.Action[S]) {
	s.DispatchAll(a)
}

// DispatchAll submits actions in order through the gate and enqueues the
// admitted ones together, so none starts before all are queued.
func (s *Store[S]) DispatchAll(actions ...action.Action[S]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		s.logger.Warn("dispatch on disposed store ignored",
			"store_id", s.id,
			"actions", len(actions),
			"error", action.ErrDisposed)
		return
	}

	now := time.Now()
	admitted := make([]entry[S], 0, len(actions))
	for _, a := range actions {
		if a.Reduce == nil {
			s.logger.Warn("action without transition ignored", "store_id", s.id, "action", a.Kind())
			continue
		}
		s.stats.Dispatched++
		if a.Gated() {
			switch s.gate.admit(a, now) {
			case throttled:
				s.stats.Throttled++
				s.logger.Debug("action throttled", "store_id", s.id, "action", a.Kind(), "key", a.GateKey())
				continue
			case debounced:
				s.stats.Debounced++
				continue
			}
		}
		admitted = append(admitted, entry[S]{action: a, seq: s.clock.Next()})
	}
	s.enqueueLocked(admitted...)
}

// Mutate dispatches fn as an action named name.
func (s *Store[S]) Mutate(name string, fn func(S) S) {
	s.Dispatch(action.New(name, action.Sync(fn)))
}

// Set dispatches an action replacing the state with value.
func (s *Store[S]) Set(value S) {
	s.Dispatch(action.New("set", action.Set(value)))
}

func (s *Store[S]) enqueueLocked(entries ...entry[S]) {
	for _, e := range entries {
		s.queue.Insert(e)
	}
	if s.running || s.queue.IsEmpty() {
		return
	}

	// The idle dispatcher dequeues the head itself so that the first
	// submission starts before any later, higher-priority one can overtake it.
	s.running = true
	head, _ := s.queue.RemoveHighest()
	go s.run(head)
}

func (s *Store[S]) fireDebounced(key string, gen uint64, a action.Action[S]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gate.claim(key, gen) || s.disposed {
		return
	}
	s.enqueueLocked(entry[S]{action: a, seq: s.clock.Next()})
	s.notifyIdleLocked()
}

// dispatchInternal queues store-owned work ahead of user actions.
func (s *Store[S]) dispatchInternal(name string, untracked bool, reduce func() (S, bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		s.logger.Warn("operation on disposed store ignored", "store_id", s.id, "action", name)
		return
	}
	s.enqueueLocked(entry[S]{
		action:    action.Action[S]{Name: name, Priority: internalPriority},
		seq:       s.clock.Next(),
		internal:  true,
		untracked: untracked,
		reduce:    reduce,
	})
}

// SetBatchDelay switches modes at runtime. Zero means simple mode; a pending
// emission is published immediately when leaving batched mode.
func (s *Store[S]) SetBatchDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batchDelay = max(d, 0)
	s.adaptive.reset(s.batchDelay)
	if s.batchDelay == 0 && s.pending != nil {
		s.publishPendingLocked()
	}
}

// BatchDelay returns the configured base delay.
func (s *Store[S]) BatchDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batchDelay
}

// SetActionTimeout changes the default timeout for pending transitions.
func (s *Store[S]) SetActionTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actionTimeout = d
}

// Stats returns a copy of the counters.
func (s *Store[S]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.QueueLen = s.queue.Len()
	return st
}

// Settle blocks until the store is idle: no running loop, no queued actions,
// no pending debounce timers and no pending emission.
func (s *Store[S]) Settle(ctx context.Context) error {
	s.mu.Lock()
	if s.idleLocked() {
		s.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store[S]) idleLocked() bool {
	return s.disposed || (!s.running && s.queue.IsEmpty() && s.gate.pending() == 0 && s.pending == nil)
}

func (s *Store[S]) notifyIdleLocked() {
	if !s.idleLocked() {
		return
	}
	for _, ch := range s.waiters {
		close(ch)
	}
	s.waiters = nil
}

// Disposed reports whether Dispose has been called.
func (s *Store[S]) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Dispose stops timers, clears the queue and closes every subscription.
// Results of transitions still running are discarded. Idempotent.
func (s *Store[S]) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.cancel()
	s.gate.stop()
	dropped := s.queue.Len()
	s.queue.Clear()
	if s.emitTimer != nil {
		s.emitTimer.Stop()
		s.emitTimer = nil
	}
	s.pending = nil
	s.notifyIdleLocked()
	s.mu.Unlock()

	s.states.close()
	s.errs.close()

	s.logger.Info("store disposed", "store_id", s.id, "dropped", dropped)
}

// String identifies the store in logs.
func (s *Store[S]) String() string {
	return fmt.Sprintf("store(%s)", s.id)
}
