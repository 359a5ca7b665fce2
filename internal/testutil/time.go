package testutil

import (
	"sync"
	"time"
)

// ManualTime is a wall-clock source that only moves when told to.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualTime struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualTime creates a source reading start. A zero start uses
// 2025-01-01T00:00:00Z.
func NewManualTime(start time.Time) *ManualTime {
	if start.IsZero() {
		start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &ManualTime{now: start}
}

// Now returns the current reading.
func (m *ManualTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the reading forward by d.
func (m *ManualTime) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
