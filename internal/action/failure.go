package action

import "time"

// Failure is the structured record published on a store's error channel.
type Failure[S any] struct {
	// ID uniquely identifies this failure (UUIDv7, time-sortable).
	ID string

	// StoreID is the ID of the store the action ran on.
	StoreID string

	// Action is the failed action's Kind().
	Action string

	// Seq is the action's queue sequence number.
	Seq int64

	// Err is the failure itself.
	Err error

	// State is the committed state at the time of failure.
	State S

	// Time is when the failure was recorded.
	Time time.Time
}

// Code classifies the failure.
func (f Failure[S]) Code() Code {
	return CodeOf(f.Err)
}
