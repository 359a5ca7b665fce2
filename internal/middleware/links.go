package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/statestore/internal/action"
)

// Logging logs every action at debug level, and failures at warn level.
// A nil logger uses slog.Default().
func Logging[S any](logger *slog.Logger) Link[S] {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, h Host[S], a action.Action[S], next Next[S]) error {
		start := time.Now()
		err := next(ctx, a)

		attrs := []any{
			"store_id", h.ID(),
			"action", a.Kind(),
			"priority", a.Priority,
			"duration", time.Since(start),
		}
		if err != nil {
			logger.Warn("action failed", append(attrs, "error", err)...)
			return err
		}
		logger.Debug("action executed", attrs...)
		return nil
	}
}

// RateLimit lets at most n actions of each kind through per window and drops
// the rest, logging each drop at warn level. A nil logger uses
// slog.Default(); a nil now uses time.Now.
func RateLimit[S any](logger *slog.Logger, n int, per time.Duration, now func() time.Time) Link[S] {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	type window struct {
		start time.Time
		count int
	}
	var (
		mu      sync.Mutex
		windows = make(map[string]*window)
	)

	allow := func(kind string) bool {
		mu.Lock()
		defer mu.Unlock()

		t := now()
		w, ok := windows[kind]
		if !ok || t.Sub(w.start) >= per {
			windows[kind] = &window{start: t, count: 1}
			return true
		}
		if w.count >= n {
			return false
		}
		w.count++
		return true
	}

	return func(ctx context.Context, h Host[S], a action.Action[S], next Next[S]) error {
		if !allow(a.Kind()) {
			logger.Warn("action dropped by rate limit",
				"store_id", h.ID(),
				"action", a.Kind(),
				"limit", n,
				"window", per)
			return nil
		}
		return next(ctx, a)
	}
}

// Validate rejects states produced by the rest of the pipeline that fail
// validate (nil uses the state's own Validate method). The committed state
// is left untouched on rejection.
func Validate[S any](validate action.Validator[S]) ResultLink[S] {
	return func(ctx context.Context, h Host[S], a action.Action[S], next ResultNext[S]) (S, error) {
		s, err := next(ctx, a)
		if err != nil {
			return s, err
		}
		if errs := action.Validate(validate, s); len(errs) > 0 {
			var zero S
			return zero, action.NewValidationError(errs...)
		}
		return s, nil
	}
}
