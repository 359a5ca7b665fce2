package store

import "time"

// Adaptive delay tuning.
const (
	// RapidThreshold is the commit interval below which updates count as
	// rapid.
	RapidThreshold = 16 * time.Millisecond

	// SparseThreshold is the commit interval above which the delay relaxes
	// toward its base.
	SparseThreshold = 100 * time.Millisecond

	// RapidStreak is the number of consecutive rapid intervals that scale
	// the delay up.
	RapidStreak = 3

	// MinAdaptiveDelay and MaxAdaptiveDelay bound the adaptive delay. The
	// maximum also caps how long a pending emission may be held back.
	MinAdaptiveDelay = time.Millisecond
	MaxAdaptiveDelay = 250 * time.Millisecond

	growFactor   = 1.5
	shrinkFactor = 0.75
)

// adaptiveDelay tracks commit frequency in batched mode and widens the
// coalescing window under bursts.
type adaptiveDelay struct {
	base    time.Duration
	current time.Duration
	last    time.Time
	streak  int
}

func newAdaptiveDelay(base time.Duration) *adaptiveDelay {
	a := &adaptiveDelay{}
	a.reset(base)
	return a
}

func (a *adaptiveDelay) reset(base time.Duration) {
	a.base = clampDelay(base)
	a.current = a.base
	a.last = time.Time{}
	a.streak = 0
}

// observe records a commit at now.
func (a *adaptiveDelay) observe(now time.Time) {
	if a.last.IsZero() {
		a.last = now
		return
	}
	interval := now.Sub(a.last)
	a.last = now

	switch {
	case interval < RapidThreshold:
		a.streak++
		if a.streak >= RapidStreak {
			a.current = clampDelay(time.Duration(float64(a.current) * growFactor))
			a.streak = 0
		}
	case interval > SparseThreshold:
		a.streak = 0
		a.current = max(clampDelay(time.Duration(float64(a.current)*shrinkFactor)), a.base)
	default:
		a.streak = 0
	}
}

// effective returns the delay to use: the mean of the adaptive and base
// delays.
func (a *adaptiveDelay) effective() time.Duration {
	return clampDelay((a.current + a.base) / 2)
}

func clampDelay(d time.Duration) time.Duration {
	return min(max(d, MinAdaptiveDelay), MaxAdaptiveDelay)
}
