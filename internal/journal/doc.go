// Package journal provides a SQLite-backed, append-only audit trail of
// store commits and failures.
//
// A Recorder is a result link: it observes the state the rest of the
// pipeline produced and, when that state differs from the committed one,
// appends a commit row holding the canonical JSON and fingerprint of the
// new state. FailureHook records failures from a store's error path.
//
// # Ordering
//
// Each journal keeps a per-store sequence. All reads use
//
//	ORDER BY seq ASC, id ASC COLLATE BINARY
//
// so results are identical across runs.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait on lock contention
//   - one open connection: SQLite has a single writer
package journal
