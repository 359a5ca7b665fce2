// Package equality decides whether a state transition actually changed
// anything, as cheaply as possible.
//
// Three strategies escalate in cost:
//
//   - Equal: identity short-circuit, then the value's own Equal method, then
//     the == operator for comparable values. Values that are neither
//     comparable nor carry an Equal method compare by identity only.
//   - ShallowEqual: identity, then a structural hash cached per object
//     identity. Differing hashes reject without calling Equal; matching
//     hashes fall through to Equal so collisions are harmless.
//   - DeepEqual: recursive structural comparison with a sampling fast path
//     for large collections.
//
// The hash cache is bounded (FIFO eviction) and may clear itself on a timer.
// SetCacheEnabled(false) turns it off process-wide, reducing ShallowEqual to
// Equal.
//
// Memo wraps pure derivation functions in a bounded LRU keyed by the same
// hashes so repeated calls with an identical or equal input reuse the
// previous result.
//
// # Identity and the hash cache
//
// Identity exists only for pointers, maps and slices. Cached hashes assume
// the referenced data is not mutated in place; state values are treated as
// immutable throughout the store. A stale entry can only produce a false
// "unequal", which costs one redundant publish, never a missed change.
//
// Types whose Equal method is looser than field-wise equality should also
// implement Hasher, otherwise the hash fast path is skipped for them.
package equality
