package scenario

import (
	"github.com/roach88/statestore/internal/store"
)

// Trace event types.
const (
	EventCommit    = "commit"
	EventUnchanged = "unchanged"
	EventFailure   = "failure"
)

// Event is one entry in a scenario trace. Store operations (undo, redo,
// revert, snapshot, restore) use the op name as Type.
type Event struct {
	Seq    int    `json:"seq"`
	Type   string `json:"type"`
	Action string `json:"action"`
	Count  int    `json:"count"`
	Code   string `json:"code,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// StoreID identifies the store the scenario ran against.
	StoreID string `json:"store_id"`

	// Trace lists commits, failures and store operations in order.
	Trace []Event `json:"trace"`

	// Published lists the counts subscribers received.
	Published []int `json:"published"`

	// Final is the committed state after the last step.
	Final Counter `json:"final"`

	// Stats are the store counters after the last step.
	Stats store.Stats `json:"stats"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []Event{},
		Published: []int{},
		Errors:    []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Order returns the action names of commit events in order.
func (r *Result) Order() []string {
	var out []string
	for _, e := range r.Trace {
		if e.Type == EventCommit {
			out = append(out, e.Action)
		}
	}
	return out
}

// FailureCodes returns the codes of failure events in order.
func (r *Result) FailureCodes() []string {
	var out []string
	for _, e := range r.Trace {
		if e.Type == EventFailure {
			out = append(out, e.Code)
		}
	}
	return out
}
