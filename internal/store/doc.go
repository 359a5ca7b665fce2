// Package store implements the dispatch engine: a single-writer state
// container that orders submitted actions by priority, runs them through
// the middleware chains, and publishes changed states to subscribers.
//
// # Processing
//
// Dispatch gates the action (throttle, then debounce) and queues it. The
// queue orders by priority, highest first, and by submission order within a
// priority. When the store is idle the dispatching call dequeues the head
// and starts the loop goroutine; the loop then drains the queue one action
// at a time. A transition always sees the state committed by the one
// before it.
//
// # Emission
//
// In simple mode (no batch delay) every state-changing action publishes as
// soon as it commits. In batched mode commits are held as one pending
// emission, published when no further commit arrives within the adaptive
// delay, and never held longer than MaxAdaptiveDelay. State() always
// returns the latest commit.
//
// # Failures
//
// A failed transition leaves the committed state unchanged. The failure is
// published on Errors(), passed to the global hooks and the store's error
// handler, and logged. With ClearQueueOnError (the default) the queue is
// cleared as well.
//
// # Logging
//
// Uses log/slog with snake_case keys (store_id, action, seq, priority).
package store
