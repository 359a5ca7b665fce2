package journal

import (
	"context"
	"log/slog"

	"github.com/roach88/statestore/internal/action"
	"github.com/roach88/statestore/internal/equality"
	"github.com/roach88/statestore/internal/middleware"
)

// Recorder returns a result link that appends a commit whenever the produced
// state differs from the host's committed state. A nil equal uses
// equality.ShallowEqual.
//
// A failed append fails the action, so the journal never misses a commit
// that the store kept.
func Recorder[S any](j *Journal, equal func(a, b S) bool) middleware.ResultLink[S] {
	if equal == nil {
		equal = equality.Typed[S](equality.ShallowEqual)
	}
	return func(ctx context.Context, h middleware.Host[S], a action.Action[S], next middleware.ResultNext[S]) (S, error) {
		state, err := next(ctx, a)
		if err != nil {
			return state, err
		}
		if equal(h.State(), state) {
			return state, nil
		}

		// The transition may have consumed its context; the write must not
		// inherit a cancelled deadline.
		c, err := j.AppendCommit(context.WithoutCancel(ctx), h.ID(), a.Kind(), state)
		if err != nil {
			var zero S
			return zero, err
		}
		slog.Debug("commit journaled",
			"store_id", h.ID(),
			"action", a.Kind(),
			"seq", c.Seq,
			"fingerprint", c.Fingerprint)
		return state, nil
	}
}

// FailureHook returns an error hook that records each failure under the
// store it came from, so one hook can serve every store sharing a Globals.
// Append errors are logged.
func FailureHook[S any](j *Journal) middleware.ErrorHook[S] {
	return func(f action.Failure[S]) {
		if _, err := j.AppendFailure(context.Background(), f.StoreID, f.Action, string(f.Code()), f.Err); err != nil {
			slog.Error("failed to journal failure",
				"store_id", f.StoreID,
				"action", f.Action,
				"error", err)
		}
	}
}
