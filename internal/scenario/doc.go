// Package scenario runs scripted workloads against a counter store.
//
// A scenario file (YAML, or TOML when the extension is .toml) configures a
// store, lists steps and states expectations:
//
//	name: priority
//	description: a queued high-priority action overtakes a low one
//	config:
//	  history_limit: 10
//	steps:
//	  - {action: slow, delay: 30ms, nowait: true}
//	  - group:
//	      - {action: increment, name: low, by: 10}
//	      - {action: increment, name: high, by: 100, priority: 5}
//	expect:
//	  order: [slow, high, low]
//
// # Steps
//
// An action step dispatches one of increment, set, fail or slow with the
// scheduling fields priority, timeout, on_timeout, debounce, throttle and
// key. repeat and group submit several actions at once, so none starts
// before all are queued. An op step calls undo, redo, revert, snapshot or
// restore on the store.
//
// After each step the runner waits for the store to settle: no running
// loop, no queued actions, no pending debounce timers and no pending
// emission. nowait skips the wait.
//
// # Trace
//
// The runner installs a result link that records every produced state as a
// commit or unchanged event, and an error handler that records failures
// with their code. Ops are recorded with the state they landed on. The
// trace, the published counts and the final state form the golden output.
package scenario
