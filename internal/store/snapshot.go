package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/statestore/internal/action"
	"github.com/roach88/statestore/internal/canon"
)

// ErrHistoryDisabled is returned by history operations on a store without
// history.
var ErrHistoryDisabled = errors.New("history is not enabled")

// EnableHistory starts recording with the given limit, seeded with the
// current state. A non-positive limit disables history and discards it.
func (s *Store[S]) EnableHistory(limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.historyLimit = max(limit, 0)
	if limit <= 0 {
		s.history = nil
		return
	}
	s.history = newHistory(limit, s.State())
}

// SetHistoryLimit changes the limit, trimming the oldest entries. Enabling
// history this way behaves like EnableHistory.
func (s *Store[S]) SetHistoryLimit(limit int) {
	s.mu.Lock()
	if s.history == nil || limit <= 0 {
		s.mu.Unlock()
		s.EnableHistory(limit)
		return
	}
	defer s.mu.Unlock()
	s.historyLimit = limit
	s.history.setLimit(limit)
}

// HistoryLimit returns the configured limit; zero means disabled.
func (s *Store[S]) HistoryLimit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyLimit
}

// History returns the recorded states, oldest first, and the cursor index
// of the current one.
func (s *Store[S]) History() ([]S, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == nil {
		return nil, -1
	}
	return s.history.list(), s.history.cursor
}

// CanUndo reports whether an earlier recorded state exists.
func (s *Store[S]) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history != nil && s.history.canUndo()
}

// CanRedo reports whether an undone state can be reapplied.
func (s *Store[S]) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history != nil && s.history.canRedo()
}

// Undo queues a step back in history ahead of pending actions.
func (s *Store[S]) Undo() error {
	return s.navigate("undo", func(h *history[S]) (S, bool) { return h.undo() })
}

// Redo queues a step forward in history ahead of pending actions.
func (s *Store[S]) Redo() error {
	return s.navigate("redo", func(h *history[S]) (S, bool) { return h.redo() })
}

// RevertTo queues a move to history entry i. Later entries stay redoable.
func (s *Store[S]) RevertTo(i int) error {
	s.mu.Lock()
	if s.history != nil && (i < 0 || i >= len(s.history.entries)) {
		n := len(s.history.entries)
		s.mu.Unlock()
		return fmt.Errorf("history index %d out of range [0, %d)", i, n)
	}
	s.mu.Unlock()
	return s.navigate("revert", func(h *history[S]) (S, bool) { return h.moveTo(i) })
}

func (s *Store[S]) navigate(name string, step func(*history[S]) (S, bool)) error {
	s.mu.Lock()
	enabled, disposed := s.history != nil, s.disposed
	s.mu.Unlock()
	if disposed {
		return action.ErrDisposed
	}
	if !enabled {
		return ErrHistoryDisabled
	}

	s.dispatchInternal(name, true, func() (S, bool) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.history == nil {
			var zero S
			return zero, false
		}
		return step(s.history)
	})
	return nil
}

// Snapshot is a point-in-time copy of a store's state.
type Snapshot[S any] struct {
	State       S         `json:"state"`
	Timestamp   time.Time `json:"timestamp"`
	EngineType  string    `json:"engine_type"`
	Fingerprint string    `json:"fingerprint"`
}

// EngineType names the store type that produced snapshots.
func (s *Store[S]) EngineType() string {
	return fmt.Sprintf("%T", s)
}

// Snapshot captures the committed state. The fingerprint is the
// domain-separated hash of the state's canonical JSON.
func (s *Store[S]) Snapshot() (Snapshot[S], error) {
	state := s.State()
	fp, err := canon.Fingerprint(canon.DomainSnapshot, state)
	if err != nil {
		return Snapshot[S]{}, fmt.Errorf("snapshot: %w", err)
	}
	return Snapshot[S]{
		State:       state,
		Timestamp:   time.Now().UTC(),
		EngineType:  s.EngineType(),
		Fingerprint: fp,
	}, nil
}

// Restore queues snap's state ahead of pending actions. With validate set,
// the engine type, the fingerprint and the state validator are checked
// first and any mismatch is returned without touching the store.
func (s *Store[S]) Restore(snap Snapshot[S], validate bool) error {
	if validate {
		if snap.EngineType != s.EngineType() {
			return fmt.Errorf("restore: snapshot from %s cannot restore %s", snap.EngineType, s.EngineType())
		}
		fp, err := canon.Fingerprint(canon.DomainSnapshot, snap.State)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		if fp != snap.Fingerprint {
			return fmt.Errorf("restore: fingerprint mismatch: snapshot %s, state %s", snap.Fingerprint, fp)
		}
		if errs := action.Validate(s.validator, snap.State); len(errs) > 0 {
			return fmt.Errorf("restore: %w", action.NewValidationError(errs...))
		}
	}

	if s.Disposed() {
		return action.ErrDisposed
	}
	state := snap.State
	s.dispatchInternal("restore", false, func() (S, bool) { return state, true })
	return nil
}
