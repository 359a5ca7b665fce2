package middleware

import (
	"sync"

	"github.com/roach88/statestore/internal/action"
)

// ErrorHook observes failures from every store sharing a Globals.
type ErrorHook[S any] func(f action.Failure[S])

// Globals is the process-wide tier: links that run before every store's local
// links, and error hooks called for every store's failures. Stores receive
// it explicitly at construction, so tests can isolate instances by injecting
// their own.
type Globals[S any] struct {
	chain Chain[S]

	mu    sync.RWMutex
	hooks []ErrorHook[S]
}

// NewGlobals creates an empty global tier.
func NewGlobals[S any]() *Globals[S] {
	return &Globals[S]{}
}

// Use appends global fire-and-forget links.
func (g *Globals[S]) Use(links ...Link[S]) { g.chain.Use(links...) }

// UseResult appends global result links.
func (g *Globals[S]) UseResult(links ...ResultLink[S]) { g.chain.UseResult(links...) }

// OnError registers a hook called for every failure.
func (g *Globals[S]) OnError(h ErrorHook[S]) {
	if h == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hooks = append(g.hooks, h)
}

// Chain exposes the global tier for Execute. A nil Globals yields nil.
func (g *Globals[S]) Chain() *Chain[S] {
	if g == nil {
		return nil
	}
	return &g.chain
}

// Notify calls every error hook in registration order.
func (g *Globals[S]) Notify(f action.Failure[S]) {
	if g == nil {
		return
	}
	g.mu.RLock()
	hooks := append([]ErrorHook[S](nil), g.hooks...)
	g.mu.RUnlock()

	for _, h := range hooks {
		h(f)
	}
}

// Reset removes all links and hooks.
func (g *Globals[S]) Reset() {
	g.chain.Reset()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hooks = nil
}
