// Package registry provides a typed dependency registry that stores pass
// through to middleware and transitions.
//
// A Registry replaces ambient type-to-instance lookup with explicit keys:
//
//	var Users = registry.NewKey[*store.Store[UserState]]("users")
//
//	reg := registry.New()
//	registry.Provide(reg, Users, users)
//	u, ok := registry.Resolve(reg, Users)
//
// Keys carry their value type, so a lookup never needs a type assertion at
// the call site. A Registry is safe for concurrent use.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotProvided is returned when a key has no value.
var ErrNotProvided = errors.New("registry: key not provided")

// Key identifies a value of type T. Two keys with the same name and type
// address the same slot.
type Key[T any] struct {
	name string
}

// NewKey creates a key. The name must be unique per value type.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the key's name.
func (k Key[T]) Name() string { return k.name }

func (k Key[T]) slot() slot {
	var zero *T
	return slot{name: k.name, typ: fmt.Sprintf("%T", zero)}
}

type slot struct {
	name string
	typ  string
}

// Registry maps keys to values.
type Registry struct {
	mu     sync.RWMutex
	values map[slot]any
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{values: make(map[slot]any)}
}

// Provide binds value to key, replacing any earlier binding.
func Provide[T any](r *Registry, key Key[T], value T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key.slot()] = value
}

// Resolve returns the value bound to key.
func Resolve[T any](r *Registry, key Key[T]) (T, bool) {
	var zero T
	if r == nil {
		return zero, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.values[key.slot()]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// Lookup is Resolve returning an error wrapping ErrNotProvided.
func Lookup[T any](r *Registry, key Key[T]) (T, error) {
	v, ok := Resolve(r, key)
	if !ok {
		return v, fmt.Errorf("%w: %s", ErrNotProvided, key.name)
	}
	return v, nil
}

// MustResolve is Resolve that panics on a missing key. Use during wiring,
// not from transitions.
func MustResolve[T any](r *Registry, key Key[T]) T {
	v, err := Lookup(r, key)
	if err != nil {
		panic(err)
	}
	return v
}

// Remove unbinds key and reports whether it was bound.
func Remove[T any](r *Registry, key Key[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := key.slot()
	_, ok := r.values[s]
	delete(r.values, s)
	return ok
}

// Names returns the bound key names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.values))
	for s := range r.values {
		names = append(names, s.name)
	}
	sort.Strings(names)
	return names
}
