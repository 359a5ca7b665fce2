package store

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/roach88/statestore/internal/action"
	"github.com/roach88/statestore/internal/middleware"
)

// run drains the queue starting with head. Exactly one run goroutine exists
// while s.running is true.
func (s *Store[S]) run(head entry[S]) {
	e := head
	cycleStart := time.Now()
	processed := 0

	for {
		s.process(e)
		processed++

		s.mu.Lock()
		if s.disposed || s.queue.IsEmpty() {
			s.stopLocked()
			s.mu.Unlock()
			return
		}
		yield := s.batchDelay > 0 &&
			(processed >= s.maxActionsPerCycle || time.Since(cycleStart) >= s.maxProcessingTime)
		if !yield {
			e, _ = s.queue.RemoveHighest()
			s.mu.Unlock()
			continue
		}
		s.mu.Unlock()

		s.logger.Debug("cycle budget reached, yielding",
			"store_id", s.id,
			"processed", processed,
			"elapsed", time.Since(cycleStart))
		runtime.Gosched()
		processed = 0
		cycleStart = time.Now()

		s.mu.Lock()
		if s.disposed || s.queue.IsEmpty() {
			s.stopLocked()
			s.mu.Unlock()
			return
		}
		e, _ = s.queue.RemoveHighest()
		s.mu.Unlock()
	}
}

// stopLocked ends the run. A batch whose cycle drained the queue publishes
// its pending emission without waiting for the timer.
func (s *Store[S]) stopLocked() {
	s.running = false
	if !s.disposed && s.pending != nil {
		s.publishPendingLocked()
	}
	s.notifyIdleLocked()
}

// process executes one entry and folds its outcome into the store.
func (s *Store[S]) process(e entry[S]) {
	a := e.action
	s.logger.Debug("processing action",
		"store_id", s.id,
		"action", a.Kind(),
		"seq", e.seq,
		"priority", a.Priority)

	if e.internal {
		next, ok := e.reduce()
		if ok {
			s.commit(e, next, e.untracked)
		}
		return
	}

	next, ran, err := s.execute(e)
	if err != nil {
		s.fail(e, err)
		return
	}
	if !ran {
		s.mu.Lock()
		s.stats.Dropped++
		s.mu.Unlock()
		s.logger.Debug("action dropped by middleware", "store_id", s.id, "action", a.Kind(), "seq", e.seq)
		return
	}
	if !s.commit(e, next, false) {
		return
	}

	if a.OnResult != nil {
		if err := s.callOnResult(a, next); err != nil {
			s.fail(e, err)
		}
	}
}

// execute runs the entry through middleware and its transition.
// Panics anywhere in the pipeline are recovered.
func (s *Store[S]) execute(e entry[S]) (next S, ran bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &action.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	current := s.State()
	terminal := func(ctx context.Context, a action.Action[S]) (S, error) {
		return s.transition(ctx, a, current)
	}
	return middleware.Execute(s.ctx, s, e.action, terminal, s.globals.Chain(), s.local)
}

// transition applies a's transition to state, bounding pending results by
// the action or store timeout.
func (s *Store[S]) transition(ctx context.Context, a action.Action[S], state S) (S, error) {
	s.mu.Lock()
	s.stats.Executed++
	timeout := a.Timeout
	if timeout == 0 {
		timeout = s.actionTimeout
	}
	s.mu.Unlock()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	r := a.Reduce(ctx, state)
	if !r.IsPending() {
		return r.Await(ctx)
	}

	next, err := r.Await(ctx)
	if err != nil && timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.logger.Warn("action timed out",
			"store_id", s.id,
			"action", a.Kind(),
			"timeout", timeout,
			"fallback", a.OnTimeout != nil)
		if a.OnTimeout != nil {
			return a.OnTimeout(s.State(), timeout), nil
		}
		var zero S
		return zero, &action.TimeoutError{Action: a.Kind(), Timeout: timeout}
	}
	return next, err
}

// commit installs next as the committed state and publishes it, unless the
// store was disposed meanwhile. It reports whether the result was kept.
func (s *Store[S]) commit(e entry[S], next S, untracked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		s.logger.Debug("result discarded after dispose", "store_id", s.id, "action", e.action.Kind())
		return false
	}

	if s.equal(s.State(), next) {
		s.stats.Unchanged++
		s.logger.Debug("state unchanged", "store_id", s.id, "action", e.action.Kind(), "seq", e.seq)
		return true
	}

	s.state.Store(&next)
	s.stats.Commits++
	if s.history != nil && !untracked {
		s.history.record(next)
	}

	if s.batchDelay > 0 {
		s.schedulePublishLocked(next, time.Now())
	} else {
		s.publishLocked(next)
	}
	return true
}

// schedulePublishLocked holds next as the pending emission and (re)arms the
// emission timer. The timer only fires for batches that span cycles; each
// commit pushes it back by the adaptive delay, but never beyond
// MaxAdaptiveDelay after the first held commit.
func (s *Store[S]) schedulePublishLocked(next S, now time.Time) {
	s.pending = &next
	s.adaptive.observe(now)
	if s.pendingSince.IsZero() {
		s.pendingSince = now
	}

	delay := s.adaptive.effective()
	if remaining := MaxAdaptiveDelay - now.Sub(s.pendingSince); delay > remaining {
		delay = max(remaining, 0)
	}

	if s.emitTimer != nil {
		s.emitTimer.Stop()
	}
	s.emitGen++
	gen := s.emitGen
	s.emitTimer = time.AfterFunc(delay, func() { s.flush(gen) })
}

func (s *Store[S]) flush(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.emitGen || s.disposed || s.pending == nil {
		return
	}
	s.publishPendingLocked()
	s.notifyIdleLocked()
}

func (s *Store[S]) publishPendingLocked() {
	next := *s.pending
	s.pending = nil
	s.pendingSince = time.Time{}
	if s.emitTimer != nil {
		s.emitTimer.Stop()
		s.emitTimer = nil
	}
	s.emitGen++

	// A batch can end where the previous publish left off.
	if s.equal(*s.published, next) {
		s.logger.Debug("batched emission unchanged, skipped", "store_id", s.id)
		return
	}
	s.publishLocked(next)
}

func (s *Store[S]) publishLocked(next S) {
	s.published = &next
	s.stats.Publishes++
	s.states.publish(next)
}

func (s *Store[S]) callOnResult(a action.Action[S], next S) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("on result hook: %w", &action.PanicError{Value: r, Stack: debug.Stack()})
		}
	}()
	a.OnResult(next, s.Dispatch)
	return nil
}

// fail records a failure and applies the queue policy. The committed state
// is untouched.
func (s *Store[S]) fail(e entry[S], err error) {
	kind := e.action.Kind()
	var te *action.TransitionError
	if !errors.As(err, &te) {
		err = &action.TransitionError{Action: kind, Err: err}
	}

	f := action.Failure[S]{
		ID:      s.ids.Generate(),
		StoreID: s.id,
		Action:  kind,
		Seq:     e.seq,
		Err:     err,
		State:   s.State(),
		Time:    time.Now(),
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		s.logger.Debug("failure after dispose ignored", "store_id", s.id, "action", kind, "error", err)
		return
	}
	s.stats.Failures++
	cleared := 0
	if s.clearQueueOnError {
		cleared = s.queue.Len()
		s.queue.Clear()
		s.stats.Cleared += int64(cleared)
	}
	s.errs.publish(f)
	s.mu.Unlock()

	s.logger.Error("action failed",
		"store_id", s.id,
		"action", kind,
		"seq", e.seq,
		"code", f.Code(),
		"cleared", cleared,
		"error", err)

	s.globals.Notify(f)
	if s.onError != nil {
		s.onError(f)
	}
}
