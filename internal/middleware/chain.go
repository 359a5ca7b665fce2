package middleware

import (
	"context"
	"sync"

	"github.com/roach88/statestore/internal/action"
	"github.com/roach88/statestore/internal/registry"
)

// Host is the view of a store that links receive.
type Host[S any] interface {
	ID() string
	State() S
	Dispatch(a action.Action[S])
	Registry() *registry.Registry
}

// Next continues a fire-and-forget chain.
type Next[S any] func(ctx context.Context, a action.Action[S]) error

// Link is a fire-and-forget interceptor.
type Link[S any] func(ctx context.Context, h Host[S], a action.Action[S], next Next[S]) error

// ResultNext continues a result chain and returns the produced state.
type ResultNext[S any] func(ctx context.Context, a action.Action[S]) (S, error)

// ResultLink is a result-transforming interceptor.
type ResultLink[S any] func(ctx context.Context, h Host[S], a action.Action[S], next ResultNext[S]) (S, error)

// Chain holds one tier of links. The zero value is empty and ready to use.
// Links may be added while actions are executing; an execution uses the
// links registered when it started.
type Chain[S any] struct {
	mu      sync.RWMutex
	links   []Link[S]
	results []ResultLink[S]
}

// NewChain creates a chain with the given fire-and-forget links.
func NewChain[S any](links ...Link[S]) *Chain[S] {
	c := &Chain[S]{}
	c.Use(links...)
	return c
}

// Use appends fire-and-forget links.
func (c *Chain[S]) Use(links ...Link[S]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range links {
		if l != nil {
			c.links = append(c.links, l)
		}
	}
}

// UseResult appends result links.
func (c *Chain[S]) UseResult(links ...ResultLink[S]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range links {
		if l != nil {
			c.results = append(c.results, l)
		}
	}
}

// Len returns the number of fire-and-forget and result links.
func (c *Chain[S]) Len() (links, results int) {
	if c == nil {
		return 0, 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.links), len(c.results)
}

// Reset removes every link.
func (c *Chain[S]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links = nil
	c.results = nil
}

func (c *Chain[S]) snapshot() ([]Link[S], []ResultLink[S]) {
	if c == nil {
		return nil, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Link[S](nil), c.links...), append([]ResultLink[S](nil), c.results...)
}

// Execute runs a through the given tiers (outermost first, nil tiers are
// skipped) and finally through terminal.
//
// ran reports whether terminal was reached; false with a nil error means a
// fire-and-forget link dropped the action. When a link calls next more than
// once the last produced state wins.
func Execute[S any](ctx context.Context, h Host[S], a action.Action[S], terminal ResultNext[S], tiers ...*Chain[S]) (state S, ran bool, err error) {
	var links []Link[S]
	var results []ResultLink[S]
	for _, tier := range tiers {
		l, r := tier.snapshot()
		links = append(links, l...)
		results = append(results, r...)
	}

	inner := composeResults(h, results, func(ctx context.Context, a action.Action[S]) (S, error) {
		ran = true
		return terminal(ctx, a)
	})

	outer := composeLinks(h, links, func(ctx context.Context, a action.Action[S]) error {
		s, err := inner(ctx, a)
		state = s
		return err
	})

	err = outer(ctx, a)
	return state, ran, err
}

func composeLinks[S any](h Host[S], links []Link[S], terminal Next[S]) Next[S] {
	next := terminal
	for i := len(links) - 1; i >= 0; i-- {
		link, rest := links[i], next
		next = func(ctx context.Context, a action.Action[S]) error {
			return link(ctx, h, a, rest)
		}
	}
	return next
}

func composeResults[S any](h Host[S], links []ResultLink[S], terminal ResultNext[S]) ResultNext[S] {
	next := terminal
	for i := len(links) - 1; i >= 0; i-- {
		link, rest := links[i], next
		next = func(ctx context.Context, a action.Action[S]) (S, error) {
			return link(ctx, h, a, rest)
		}
	}
	return next
}
