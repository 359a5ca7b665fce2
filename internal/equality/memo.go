package equality

import (
	"container/list"
	"sync"
)

const (
	// DefaultMemoCapacity is the initial LRU size of a Memo.
	DefaultMemoCapacity = 16

	// adaptWindow is the number of lookups between capacity adjustments.
	adaptWindow = 64

	growBelowRatio   = 0.5
	shrinkAboveRatio = 0.9
)

// MemoStats reports memoizer effectiveness.
type MemoStats struct {
	Hits     uint64
	Misses   uint64
	Size     int
	Capacity int
}

// HitRatio returns hits / lookups, or 0 before the first lookup.
func (s MemoStats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Memo caches the results of a pure function in a bounded LRU.
//
// Inputs are bucketed by structural hash and matched with ShallowEqual, so an
// identical input always hits and an Equal input hits when its type defines
// equality. Safe for concurrent use; fn runs outside the lock and may be
// called more than once for the same input under contention.
type Memo[In, Out any] struct {
	mu  sync.Mutex
	fn  func(In) Out
	cmp *Comparator

	capacity int
	minCap   int
	maxCap   int
	adaptive bool

	lru     *list.List // of *memoEntry; front is most recent
	buckets map[uint64][]*list.Element

	hits, misses             uint64
	windowHits, windowLookup int
}

type memoEntry[In, Out any] struct {
	hash uint64
	in   In
	out  Out
}

// MemoOption configures a Memo.
type MemoOption func(*memoConfig)

type memoConfig struct {
	capacity int
	minCap   int
	maxCap   int
	adaptive bool
	cmp      *Comparator
}

// WithMemoCapacity sets a fixed LRU capacity.
func WithMemoCapacity(n int) MemoOption {
	return func(c *memoConfig) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithAdaptiveCapacity lets the LRU grow while the hit ratio is poor and
// shrink while it is very high, staying within [min, max].
func WithAdaptiveCapacity(lo, hi int) MemoOption {
	return func(c *memoConfig) {
		if lo < 1 {
			lo = 1
		}
		if hi < lo {
			hi = lo
		}
		c.adaptive = true
		c.minCap = lo
		c.maxCap = hi
	}
}

// WithMemoComparator overrides the comparator used for hashing and matching.
func WithMemoComparator(cmp *Comparator) MemoOption {
	return func(c *memoConfig) {
		if cmp != nil {
			c.cmp = cmp
		}
	}
}

// Memoize wraps fn in a Memo.
func Memoize[In, Out any](fn func(In) Out, opts ...MemoOption) *Memo[In, Out] {
	cfg := memoConfig{
		capacity: DefaultMemoCapacity,
		cmp:      defaultComparator,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.adaptive {
		cfg.capacity = min(max(cfg.capacity, cfg.minCap), cfg.maxCap)
	}
	return &Memo[In, Out]{
		fn:       fn,
		cmp:      cfg.cmp,
		capacity: cfg.capacity,
		minCap:   cfg.minCap,
		maxCap:   cfg.maxCap,
		adaptive: cfg.adaptive,
		lru:      list.New(),
		buckets:  make(map[uint64][]*list.Element),
	}
}

// Get returns fn(in), reusing a cached result when one matches.
func (m *Memo[In, Out]) Get(in In) Out {
	h := m.cmp.cache.hashFor(in)

	m.mu.Lock()
	for _, elem := range m.buckets[h] {
		e := elem.Value.(*memoEntry[In, Out])
		if m.cmp.ShallowEqual(e.in, in) {
			m.lru.MoveToFront(elem)
			m.hits++
			m.recordLocked(true)
			out := e.out
			m.mu.Unlock()
			return out
		}
	}
	m.misses++
	m.recordLocked(false)
	m.mu.Unlock()

	out := m.fn(in)

	m.mu.Lock()
	defer m.mu.Unlock()
	elem := m.lru.PushFront(&memoEntry[In, Out]{hash: h, in: in, out: out})
	m.buckets[h] = append(m.buckets[h], elem)
	m.evictLocked()
	return out
}

// Clear drops all cached results; statistics are kept.
func (m *Memo[In, Out]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Init()
	clear(m.buckets)
}

// Stats returns a snapshot of the memo's counters.
func (m *Memo[In, Out]) Stats() MemoStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MemoStats{
		Hits:     m.hits,
		Misses:   m.misses,
		Size:     m.lru.Len(),
		Capacity: m.capacity,
	}
}

func (m *Memo[In, Out]) recordLocked(hit bool) {
	if !m.adaptive {
		return
	}
	m.windowLookup++
	if hit {
		m.windowHits++
	}
	if m.windowLookup < adaptWindow {
		return
	}

	ratio := float64(m.windowHits) / float64(m.windowLookup)
	m.windowHits, m.windowLookup = 0, 0

	switch {
	case ratio < growBelowRatio && m.capacity < m.maxCap:
		m.capacity = min(m.capacity*2, m.maxCap)
	case ratio > shrinkAboveRatio && m.capacity > m.minCap:
		m.capacity = max(m.capacity/2, m.minCap)
		m.evictLocked()
	}
}

func (m *Memo[In, Out]) evictLocked() {
	for m.lru.Len() > m.capacity {
		back := m.lru.Back()
		e := back.Value.(*memoEntry[In, Out])
		m.lru.Remove(back)
		m.removeFromBucketLocked(e.hash, back)
	}
}

func (m *Memo[In, Out]) removeFromBucketLocked(h uint64, target *list.Element) {
	bucket := m.buckets[h]
	for i, elem := range bucket {
		if elem == target {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(m.buckets, h)
		return
	}
	m.buckets[h] = bucket
}
