package scenario

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/statestore/internal/action"
)

// Counter is the state every scenario drives.
type Counter struct {
	Count int    `json:"count" yaml:"count" toml:"count"`
	Label string `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
}

// Built-in actions.
const (
	ActionIncrement = "increment"
	ActionSet       = "set"
	ActionFail      = "fail"
	ActionSlow      = "slow"
)

// DefaultFailMessage is the error text of a fail step without a message.
const DefaultFailMessage = "scenario failure"

func knownAction(name string) bool {
	switch name {
	case ActionIncrement, ActionSet, ActionFail, ActionSlow:
		return true
	}
	return false
}

// build turns an action step into a store action.
func build(st Step) action.Action[Counter] {
	by := st.By
	if by == 0 {
		by = 1
	}

	var t action.Transition[Counter]
	switch st.Action {
	case ActionIncrement:
		t = action.Sync(func(c Counter) Counter {
			c.Count += by
			return c
		})
	case ActionSet:
		value, label := st.Value, st.Label
		t = action.Sync(func(c Counter) Counter {
			c.Count = value
			if label != "" {
				c.Label = label
			}
			return c
		})
	case ActionFail:
		msg := st.Message
		if msg == "" {
			msg = DefaultFailMessage
		}
		t = action.SyncE(func(c Counter) (Counter, error) {
			return c, errors.New(msg)
		})
	case ActionSlow:
		delay := time.Duration(st.Delay)
		t = action.Async(func(ctx context.Context, c Counter) (Counter, error) {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
				c.Count += by
				return c, nil
			case <-ctx.Done():
				return c, ctx.Err()
			}
		})
	}

	name := st.Name
	if name == "" {
		name = st.Action
	}
	a := action.New(name, t).WithPriority(st.Priority)
	if st.Timeout != 0 {
		var fallback func(Counter, time.Duration) Counter
		if st.OnTimeout != nil {
			value := *st.OnTimeout
			fallback = func(c Counter, _ time.Duration) Counter {
				c.Count = value
				return c
			}
		}
		a = a.WithTimeout(time.Duration(st.Timeout), fallback)
	}
	if st.Debounce != 0 {
		a = a.WithDebounce(time.Duration(st.Debounce))
	}
	if st.Throttle != 0 {
		a = a.WithThrottle(time.Duration(st.Throttle))
	}
	if st.Key != "" {
		a = a.WithKey(st.Key)
	}
	return a
}

// actions expands a step into the actions submitted together.
func actions(st Step) []action.Action[Counter] {
	if len(st.Group) > 0 {
		var out []action.Action[Counter]
		for _, inner := range st.Group {
			out = append(out, actions(inner)...)
		}
		return out
	}

	n := max(st.Repeat, 1)
	a := build(st)
	out := make([]action.Action[Counter], n)
	for i := range out {
		out[i] = a
	}
	return out
}
