package action

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Result is the outcome of a Transition: ready now, or pending on a
// goroutine.
type Result[S any] struct {
	state   S
	err     error
	pending <-chan outcome[S]
}

type outcome[S any] struct {
	state S
	err   error
}

// Ready wraps an already-computed state.
func Ready[S any](state S) Result[S] {
	return Result[S]{state: state}
}

// Fail wraps an error.
func Fail[S any](err error) Result[S] {
	return Result[S]{err: err}
}

// Pending runs fn on a new goroutine. A panic inside fn is recovered and
// reported as a PanicError. The goroutine never blocks on delivery, so an
// abandoned Result does not leak it.
func Pending[S any](ctx context.Context, fn func(ctx context.Context) (S, error)) Result[S] {
	ch := make(chan outcome[S], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome[S]{err: &PanicError{Value: r, Stack: debug.Stack()}}
			}
		}()
		state, err := fn(ctx)
		ch <- outcome[S]{state: state, err: err}
	}()
	return Result[S]{pending: ch}
}

// IsPending reports whether the result must be awaited.
func (r Result[S]) IsPending() bool {
	return r.pending != nil
}

// Await returns the result, blocking for pending results until they finish
// or ctx is done.
func (r Result[S]) Await(ctx context.Context) (S, error) {
	if r.pending == nil {
		return r.state, r.err
	}
	select {
	case o := <-r.pending:
		return o.state, o.err
	case <-ctx.Done():
		var zero S
		return zero, ctx.Err()
	}
}

// PanicError carries a recovered panic out of a transition.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("transition panicked: %v", e.Value)
}
