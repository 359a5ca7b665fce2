// Package action defines the unit of work submitted to a store.
//
// An Action carries a Transition from the current state to the next, plus its
// scheduling policy: priority, timeout, and optional debounce or throttle
// gating. A Transition returns a Result that is either ready (the common
// synchronous case) or pending (work running on its own goroutine); the store
// awaits pending results uniformly, so synchronous and asynchronous actions
// share one execution path.
//
// Cross-cutting behaviour is layered on by wrapping transitions rather than
// by subtyping actions:
//
//	t := action.Authorized(isAdmin,
//	    action.Validated(
//	        action.Retryable(save, action.RetryPolicy[State]{
//	            MaxRetries: 3,
//	            Backoff:    action.ExponentialBackoff(10*time.Millisecond, 2, time.Second),
//	        }),
//	        nil, // use State.Validate
//	    ),
//	    nil, // fail with AuthorizationError
//	)
//
// Errors are structured (see errors.go) and classified by Code so that the
// store's error channel and CLI output can report them uniformly.
package action
