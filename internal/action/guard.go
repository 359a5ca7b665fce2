package action

import "context"

// Validator returns human-readable problems with a state; empty means valid.
type Validator[S any] func(S) []string

// Validatable is implemented by states that validate themselves.
type Validatable interface {
	Validate() []string
}

// Authorized runs t only when guard accepts the current state. Otherwise
// fallback runs, or, when fallback is nil, the transition fails with an
// AuthorizationError.
func Authorized[S any](guard func(S) bool, t Transition[S], fallback Transition[S]) Transition[S] {
	return func(ctx context.Context, state S) Result[S] {
		if guard(state) {
			return t(ctx, state)
		}
		if fallback != nil {
			return fallback(ctx, state)
		}
		return Fail[S](NewAuthorizationError("guard rejected transition"))
	}
}

// Validated checks the candidate state produced by t before it can be
// committed. A nil validate uses the state's own Validate method; states
// that do not implement Validatable pass.
func Validated[S any](t Transition[S], validate Validator[S]) Transition[S] {
	check := func(next S, err error) (S, error) {
		if err != nil {
			return next, err
		}
		if errs := runValidator(validate, next); len(errs) > 0 {
			var zero S
			return zero, NewValidationError(errs...)
		}
		return next, nil
	}

	return func(ctx context.Context, state S) Result[S] {
		r := t(ctx, state)
		if !r.IsPending() {
			next, err := check(r.Await(ctx))
			if err != nil {
				return Fail[S](err)
			}
			return Ready(next)
		}
		return Pending(ctx, func(ctx context.Context) (S, error) {
			return check(r.Await(ctx))
		})
	}
}

// Validate runs validate, or the state's own Validate method when validate is
// nil.
func Validate[S any](validate Validator[S], state S) []string {
	return runValidator(validate, state)
}

func runValidator[S any](validate Validator[S], state S) []string {
	if validate != nil {
		return validate(state)
	}
	if v, ok := any(state).(Validatable); ok {
		return v.Validate()
	}
	return nil
}
