package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/statestore/internal/action"
	"github.com/roach88/statestore/internal/journal"
	"github.com/roach88/statestore/internal/middleware"
	"github.com/roach88/statestore/internal/schema"
	"github.com/roach88/statestore/internal/store"
)

// DefaultSettleTimeout bounds the wait after each step.
const DefaultSettleTimeout = 10 * time.Second

// Option configures a run.
type Option func(*runner)

// WithJournal records commits and failures of the run in j.
func WithJournal(j *journal.Journal) Option {
	return func(r *runner) { r.journal = j }
}

// WithIDGenerator sets the store's ID generator.
func WithIDGenerator(g store.IDGenerator) Option {
	return func(r *runner) { r.ids = g }
}

// WithLogger sets the logger handed to the store.
func WithLogger(logger *slog.Logger) Option {
	return func(r *runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSettleTimeout bounds the wait after each step.
func WithSettleTimeout(d time.Duration) Option {
	return func(r *runner) {
		if d > 0 {
			r.settle = d
		}
	}
}

type runner struct {
	journal *journal.Journal
	ids     store.IDGenerator
	logger  *slog.Logger
	settle  time.Duration

	mu    sync.Mutex
	trace []Event
}

func (r *runner) record(typ, name string, c Counter, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = append(r.trace, Event{
		Seq:    len(r.trace) + 1,
		Type:   typ,
		Action: name,
		Count:  c.Count,
		Code:   code,
	})
}

// traceLink records every result the pipeline produced, before the store
// decides whether it is a change.
func (r *runner) traceLink(ctx context.Context, h middleware.Host[Counter], a action.Action[Counter], next middleware.ResultNext[Counter]) (Counter, error) {
	c, err := next(ctx, a)
	if err != nil {
		return c, err
	}
	typ := EventCommit
	if c == h.State() {
		typ = EventUnchanged
	}
	r.record(typ, a.Kind(), c, "")
	return c, nil
}

func (r *runner) recordFailure(f action.Failure[Counter]) {
	r.record(EventFailure, f.Action, f.State, string(f.Code()))
}

// Run executes a scenario against a fresh store and checks its
// expectations. The returned error reports a run that could not complete;
// unmet expectations are reported in Result.Errors.
func Run(ctx context.Context, sc *Scenario, opts ...Option) (*Result, error) {
	r := &runner{logger: slog.Default(), settle: DefaultSettleTimeout}
	for _, opt := range opts {
		opt(r)
	}

	globals := middleware.NewGlobals[Counter]()
	storeOpts := store.Options[Counter](sc.Config)
	storeOpts = append(storeOpts,
		store.WithLogger[Counter](r.logger),
		store.WithGlobals(globals),
		store.WithErrorHandler(r.recordFailure),
	)
	if r.ids != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator[Counter](r.ids))
	}

	results := []middleware.ResultLink[Counter]{r.traceLink}
	if r.journal != nil {
		results = append(results, journal.Recorder[Counter](r.journal, nil))
	}
	if sc.Schema != nil {
		s, err := schema.Compile(sc.Schema.Source, sc.Schema.Path)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: schema: %w", sc.Name, err)
		}
		v := schema.Validator[Counter](s)
		results = append(results, middleware.Validate(v))
		storeOpts = append(storeOpts, store.WithValidator(v))
	}
	storeOpts = append(storeOpts, store.WithResultMiddleware(results...))

	if r.journal != nil {
		globals.OnError(journal.FailureHook[Counter](r.journal))
	}
	st := store.New(sc.Initial, storeOpts...)
	defer st.Dispose()
	sub := st.Subscribe()

	r.logger.Info("scenario started",
		"scenario", sc.Name,
		"store_id", st.ID(),
		"steps", len(sc.Steps))

	var saved *store.Snapshot[Counter]
	for i, step := range sc.Steps {
		if err := r.step(st, step, &saved); err != nil {
			return nil, fmt.Errorf("scenario %s: steps[%d]: %w", sc.Name, i, err)
		}
		if step.NoWait {
			continue
		}
		if err := r.wait(ctx, st); err != nil {
			return nil, fmt.Errorf("scenario %s: steps[%d]: %w", sc.Name, i, err)
		}
	}
	if err := r.wait(ctx, st); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	result := NewResult()
	result.StoreID = st.ID()
	result.Final = st.State()
	result.Stats = st.Stats()
	r.mu.Lock()
	result.Trace = append(result.Trace, r.trace...)
	r.mu.Unlock()

	published, err := r.drain(ctx, sub, int(result.Stats.Publishes))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	result.Published = append(result.Published, published...)

	if sc.Expect != nil {
		check(result, sc.Expect)
	}

	r.logger.Info("scenario finished",
		"scenario", sc.Name,
		"store_id", st.ID(),
		"pass", result.Pass,
		"events", len(result.Trace))
	return result, nil
}

func (r *runner) step(st *store.Store[Counter], step Step, saved **store.Snapshot[Counter]) error {
	if step.Op == "" {
		st.DispatchAll(actions(step)...)
		return nil
	}

	// Operations act on the settled state so the trace shows where they
	// landed.
	switch step.Op {
	case OpUndo:
		return r.navigate(st, step.Op, st.Undo)
	case OpRedo:
		return r.navigate(st, step.Op, st.Redo)
	case OpRevert:
		return r.navigate(st, step.Op, func() error { return st.RevertTo(step.Index) })
	case OpSnapshot:
		snap, err := st.Snapshot()
		if err != nil {
			return err
		}
		*saved = &snap
		r.record(OpSnapshot, OpSnapshot, snap.State, "")
	case OpRestore:
		if *saved == nil {
			return fmt.Errorf("restore without a prior snapshot")
		}
		return r.navigate(st, step.Op, func() error { return st.Restore(**saved, true) })
	}
	return nil
}

func (r *runner) navigate(st *store.Store[Counter], op string, fn func() error) error {
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.settle)
	defer cancel()
	if err := st.Settle(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	r.record(op, op, st.State(), "")
	return nil
}

func (r *runner) wait(ctx context.Context, st *store.Store[Counter]) error {
	ctx, cancel := context.WithTimeout(ctx, r.settle)
	defer cancel()
	if err := st.Settle(ctx); err != nil {
		return fmt.Errorf("store did not settle: %w", err)
	}
	return nil
}

// drain reads the n values already published to sub.
func (r *runner) drain(ctx context.Context, sub *store.Subscription[Counter], n int) ([]int, error) {
	defer sub.Close()
	ctx, cancel := context.WithTimeout(ctx, r.settle)
	defer cancel()

	out := make([]int, 0, n)
	for len(out) < n {
		select {
		case c, ok := <-sub.C():
			if !ok {
				return out, nil
			}
			out = append(out, c.Count)
		case <-ctx.Done():
			return nil, fmt.Errorf("received %d of %d published states: %w", len(out), n, ctx.Err())
		}
	}
	return out, nil
}

// check compares the result against expectations.
func check(result *Result, e *Expect) {
	if e.Count != nil && result.Final.Count != *e.Count {
		result.AddError(fmt.Sprintf("final count: expected %d, got %d", *e.Count, result.Final.Count))
	}
	if e.Label != nil && result.Final.Label != *e.Label {
		result.AddError(fmt.Sprintf("final label: expected %q, got %q", *e.Label, result.Final.Label))
	}
	if e.Order != nil {
		if got := result.Order(); !slices.Equal(got, e.Order) {
			result.AddError(fmt.Sprintf("commit order: expected %v, got %v", e.Order, got))
		}
	}
	if e.Failures != nil {
		if got := result.FailureCodes(); !slices.Equal(got, e.Failures) {
			result.AddError(fmt.Sprintf("failures: expected %v, got %v", e.Failures, got))
		}
	}
	if e.Published != nil && !slices.Equal(result.Published, e.Published) {
		result.AddError(fmt.Sprintf("published: expected %v, got %v", e.Published, result.Published))
	}
}
