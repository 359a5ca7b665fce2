package action

import (
	"context"
	"reflect"
	"runtime"
	"time"
)

// Transition maps the current state to the next one.
//
// The context is cancelled when the action's timeout elapses or the store is
// disposed. Long-running transitions should watch it; the store disregards
// late results either way.
type Transition[S any] func(ctx context.Context, state S) Result[S]

// Dispatch submits a follow-up action. It is the capability handed to
// OnResult hooks.
type Dispatch[S any] func(Action[S])

// Action describes one requested state transition and its scheduling policy.
//
// Actions are values: the With* methods return modified copies and the store
// never mutates what it is given.
type Action[S any] struct {
	// Name identifies the action kind in logs, failure records and as the
	// default gating key.
	Name string

	// Priority orders the queue; higher runs first. Equal priorities run in
	// submission order.
	Priority int

	// Timeout bounds a pending transition. Zero falls back to the store
	// default; a negative value disables the bound for this action.
	Timeout time.Duration

	// OnTimeout supplies the state to commit when Timeout elapses. Without
	// it a timeout surfaces as a TimeoutError.
	OnTimeout func(state S, timeout time.Duration) S

	// Debounce enqueues only the last submission per Key within the window.
	Debounce time.Duration

	// Throttle drops repeat submissions per Key within the window.
	Throttle time.Duration

	// Key groups submissions for debounce and throttle. Defaults to Kind().
	Key string

	// Reduce is the transition itself.
	Reduce Transition[S]

	// OnResult runs after the new state has been committed and published
	// (in batched mode: after the pending emission is scheduled). It may
	// dispatch further actions; its return value is not observed.
	OnResult func(state S, dispatch Dispatch[S])
}

// New creates an action with the given name and transition.
func New[S any](name string, reduce Transition[S]) Action[S] {
	return Action[S]{Name: name, Reduce: reduce}
}

// Kind returns the action's identity: its Name, or the symbol name of its
// transition function.
//
// Transitions built by the helpers in this package share a symbol, so gated
// actions should set Name or Key explicitly.
func (a Action[S]) Kind() string {
	if a.Name != "" {
		return a.Name
	}
	if a.Reduce == nil {
		return "anonymous"
	}
	fn := runtime.FuncForPC(reflect.ValueOf(a.Reduce).Pointer())
	if fn == nil {
		return "anonymous"
	}
	return fn.Name()
}

// GateKey returns the debounce/throttle key.
func (a Action[S]) GateKey() string {
	if a.Key != "" {
		return a.Key
	}
	return a.Kind()
}

// Gated reports whether the action is subject to debounce or throttle.
func (a Action[S]) Gated() bool {
	return a.Debounce > 0 || a.Throttle > 0
}

// WithPriority returns a copy with the given priority.
func (a Action[S]) WithPriority(p int) Action[S] {
	a.Priority = p
	return a
}

// WithTimeout returns a copy bounded by d, with an optional fallback.
func (a Action[S]) WithTimeout(d time.Duration, fallback func(S, time.Duration) S) Action[S] {
	a.Timeout = d
	a.OnTimeout = fallback
	return a
}

// WithDebounce returns a copy debounced over d.
func (a Action[S]) WithDebounce(d time.Duration) Action[S] {
	a.Debounce = d
	return a
}

// WithThrottle returns a copy throttled over d.
func (a Action[S]) WithThrottle(d time.Duration) Action[S] {
	a.Throttle = d
	return a
}

// WithKey returns a copy gated under key.
func (a Action[S]) WithKey(key string) Action[S] {
	a.Key = key
	return a
}

// WithOnResult returns a copy with the post-commit hook set.
func (a Action[S]) WithOnResult(fn func(S, Dispatch[S])) Action[S] {
	a.OnResult = fn
	return a
}

// Sync adapts a plain function to a Transition.
func Sync[S any](fn func(S) S) Transition[S] {
	return func(_ context.Context, state S) Result[S] {
		return Ready(fn(state))
	}
}

// SyncE adapts a fallible function to a Transition.
func SyncE[S any](fn func(S) (S, error)) Transition[S] {
	return func(_ context.Context, state S) Result[S] {
		next, err := fn(state)
		if err != nil {
			return Fail[S](err)
		}
		return Ready(next)
	}
}

// Async runs fn on its own goroutine and returns a pending Result.
func Async[S any](fn func(ctx context.Context, state S) (S, error)) Transition[S] {
	return func(ctx context.Context, state S) Result[S] {
		return Pending(ctx, func(ctx context.Context) (S, error) {
			return fn(ctx, state)
		})
	}
}

// Set returns a Transition that replaces the state with value.
func Set[S any](value S) Transition[S] {
	return func(context.Context, S) Result[S] {
		return Ready(value)
	}
}
