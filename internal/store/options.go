package store

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/statestore/internal/action"
	"github.com/roach88/statestore/internal/equality"
	"github.com/roach88/statestore/internal/middleware"
	"github.com/roach88/statestore/internal/registry"
)

// Defaults for batched-mode cycle budgets.
const (
	DefaultMaxActionsPerCycle = 100
	DefaultMaxProcessingTime  = 16 * time.Millisecond
)

// Option configures a Store.
type Option[S any] func(*Store[S])

// WithBatchDelay enables batched mode with base delay d. Zero keeps simple
// mode.
func WithBatchDelay[S any](d time.Duration) Option[S] {
	return func(s *Store[S]) {
		s.batchDelay = max(d, 0)
	}
}

// WithActionTimeout sets the default timeout for pending transitions.
func WithActionTimeout[S any](d time.Duration) Option[S] {
	return func(s *Store[S]) {
		s.actionTimeout = d
	}
}

// WithClearQueueOnError controls the failure policy. When true (the
// default) a failure clears the queue; otherwise processing continues with
// the next action.
func WithClearQueueOnError[S any](clearQueue bool) Option[S] {
	return func(s *Store[S]) {
		s.clearQueueOnError = clearQueue
	}
}

// WithHistory enables undo/redo with the given limit.
func WithHistory[S any](limit int) Option[S] {
	return func(s *Store[S]) {
		s.historyLimit = limit
	}
}

// WithCycleBudget sets the batched-mode per-cycle budgets. Non-positive
// values keep the defaults.
func WithCycleBudget[S any](maxActions int, maxTime time.Duration) Option[S] {
	return func(s *Store[S]) {
		if maxActions > 0 {
			s.maxActionsPerCycle = maxActions
		}
		if maxTime > 0 {
			s.maxProcessingTime = maxTime
		}
	}
}

// WithEquality sets the change-detection function.
func WithEquality[S any](eq func(a, b S) bool) Option[S] {
	return func(s *Store[S]) {
		if eq != nil {
			s.equal = eq
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(s *Store[S]) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithErrorHandler registers a store-local failure callback, called after
// global hooks.
func WithErrorHandler[S any](fn func(action.Failure[S])) Option[S] {
	return func(s *Store[S]) {
		s.onError = fn
	}
}

// WithGlobals injects the process-wide middleware tier.
func WithGlobals[S any](g *middleware.Globals[S]) Option[S] {
	return func(s *Store[S]) {
		s.globals = g
	}
}

// WithMiddleware appends local fire-and-forget links.
func WithMiddleware[S any](links ...middleware.Link[S]) Option[S] {
	return func(s *Store[S]) {
		s.local.Use(links...)
	}
}

// WithResultMiddleware appends local result links.
func WithResultMiddleware[S any](links ...middleware.ResultLink[S]) Option[S] {
	return func(s *Store[S]) {
		s.local.UseResult(links...)
	}
}

// WithRegistry sets the dependency registry handed to links.
func WithRegistry[S any](r *registry.Registry) Option[S] {
	return func(s *Store[S]) {
		s.registry = r
	}
}

// WithValidator sets the validator Restore applies. Default: the state's
// own Validate method, if any.
func WithValidator[S any](v action.Validator[S]) Option[S] {
	return func(s *Store[S]) {
		s.validator = v
	}
}

// WithIDGenerator sets the generator for store and failure IDs.
func WithIDGenerator[S any](g IDGenerator) Option[S] {
	return func(s *Store[S]) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithClock sets the sequence clock.
func WithClock[S any](c *Clock) Option[S] {
	return func(s *Store[S]) {
		if c != nil {
			s.clock = c
		}
	}
}

// Duration is a time.Duration that reads and writes as text ("50ms") in
// YAML and TOML.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// Config is the serialisable store configuration.
type Config struct {
	BatchDelay          Duration `yaml:"batch_delay" toml:"batch_delay" json:"batch_delay"`
	ActionTimeout       Duration `yaml:"action_timeout" toml:"action_timeout" json:"action_timeout"`
	ClearQueueOnError   *bool    `yaml:"clear_queue_on_error" toml:"clear_queue_on_error" json:"clear_queue_on_error"`
	HistoryLimit        int      `yaml:"history_limit" toml:"history_limit" json:"history_limit"`
	MaxActionsPerCycle  int      `yaml:"max_actions_per_cycle" toml:"max_actions_per_cycle" json:"max_actions_per_cycle"`
	MaxProcessingTimeMs int      `yaml:"max_processing_time_ms" toml:"max_processing_time_ms" json:"max_processing_time_ms"`
	EqualityCache       *bool    `yaml:"equality_cache" toml:"equality_cache" json:"equality_cache"`
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	var errs []error
	if c.BatchDelay < 0 {
		errs = append(errs, errors.New("batch_delay must not be negative"))
	}
	if c.HistoryLimit < 0 {
		errs = append(errs, errors.New("history_limit must not be negative"))
	}
	if c.MaxActionsPerCycle < 0 {
		errs = append(errs, errors.New("max_actions_per_cycle must not be negative"))
	}
	if c.MaxProcessingTimeMs < 0 {
		errs = append(errs, errors.New("max_processing_time_ms must not be negative"))
	}
	return errors.Join(errs...)
}

// Options converts the config into store options.
//
// EqualityCache only affects the store built from these options: false
// compares with equality.Equal instead of the cached ShallowEqual. The
// process-wide switch is equality.SetCacheEnabled.
func Options[S any](c Config) []Option[S] {
	opts := []Option[S]{
		WithBatchDelay[S](time.Duration(c.BatchDelay)),
		WithCycleBudget[S](c.MaxActionsPerCycle, time.Duration(c.MaxProcessingTimeMs)*time.Millisecond),
	}
	if c.ActionTimeout != 0 {
		opts = append(opts, WithActionTimeout[S](time.Duration(c.ActionTimeout)))
	}
	if c.ClearQueueOnError != nil {
		opts = append(opts, WithClearQueueOnError[S](*c.ClearQueueOnError))
	}
	if c.EqualityCache != nil && !*c.EqualityCache {
		opts = append(opts, WithEquality[S](equality.Typed[S](equality.Equal)))
	}
	if c.HistoryLimit > 0 {
		opts = append(opts, WithHistory[S](c.HistoryLimit))
	}
	return opts
}
