package store

import (
	"time"

	"github.com/roach88/statestore/internal/action"
)

// SweepInterval is how often stale throttle records are discarded.
const SweepInterval = 30 * time.Second

// gate applies debounce and throttle before actions reach the queue.
// It is guarded by the store mutex.
type gate[S any] struct {
	throttled map[string]time.Time
	debounced map[string]*debounceRecord
	lastSweep time.Time
	gen       uint64

	// fire is called from the debounce timer goroutine.
	fire func(key string, gen uint64, a action.Action[S])
}

type debounceRecord struct {
	timer *time.Timer
	gen   uint64
}

func newGate[S any](fire func(string, uint64, action.Action[S])) *gate[S] {
	return &gate[S]{
		throttled: make(map[string]time.Time),
		debounced: make(map[string]*debounceRecord),
		fire:      fire,
	}
}

type verdict int

const (
	admitted verdict = iota
	throttled
	debounced
)

// admit decides what happens to a gated submission. Throttle is checked
// first: a submission inside an open throttle window is dropped. Debounce
// then defers the submission, replacing any pending one with the same key.
func (g *gate[S]) admit(a action.Action[S], now time.Time) verdict {
	g.sweep(now)
	key := a.GateKey()

	if a.Throttle > 0 {
		if until, ok := g.throttled[key]; ok && now.Before(until) {
			return throttled
		}
		g.throttled[key] = now.Add(a.Throttle)
	}

	if a.Debounce > 0 {
		if rec, ok := g.debounced[key]; ok {
			rec.timer.Stop()
		}
		g.gen++
		gen := g.gen
		g.debounced[key] = &debounceRecord{
			gen:   gen,
			timer: time.AfterFunc(a.Debounce, func() { g.fire(key, gen, a) }),
		}
		return debounced
	}
	return admitted
}

// claim removes the debounce record for key when gen is still current.
// A stale timer that lost the race with a reschedule gets false.
func (g *gate[S]) claim(key string, gen uint64) bool {
	rec, ok := g.debounced[key]
	if !ok || rec.gen != gen {
		return false
	}
	delete(g.debounced, key)
	return true
}

func (g *gate[S]) pending() int {
	return len(g.debounced)
}

func (g *gate[S]) sweep(now time.Time) {
	if now.Sub(g.lastSweep) < SweepInterval {
		return
	}
	g.lastSweep = now
	for key, until := range g.throttled {
		if !now.Before(until) {
			delete(g.throttled, key)
		}
	}
}

func (g *gate[S]) stop() {
	for key, rec := range g.debounced {
		rec.timer.Stop()
		delete(g.debounced, key)
	}
	clear(g.throttled)
}
