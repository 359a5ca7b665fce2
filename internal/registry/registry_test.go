package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type config struct{ Name string }

func TestProvideResolve(t *testing.T) {
	reg := New()
	key := NewKey[*config]("config")

	_, ok := Resolve(reg, key)
	assert.False(t, ok)

	cfg := &config{Name: "prod"}
	Provide(reg, key, cfg)

	got, ok := Resolve(reg, key)
	require.True(t, ok)
	assert.Same(t, cfg, got)
}

func TestSameNameDifferentType(t *testing.T) {
	reg := New()
	Provide(reg, NewKey[int]("limit"), 10)
	Provide(reg, NewKey[string]("limit"), "ten")

	n, ok := Resolve(reg, NewKey[int]("limit"))
	require.True(t, ok)
	assert.Equal(t, 10, n)

	s, ok := Resolve(reg, NewKey[string]("limit"))
	require.True(t, ok)
	assert.Equal(t, "ten", s)
}

func TestLookupMissing(t *testing.T) {
	_, err := Lookup(New(), NewKey[int]("missing"))
	assert.ErrorIs(t, err, ErrNotProvided)
	assert.Contains(t, err.Error(), "missing")

	assert.Panics(t, func() { MustResolve(New(), NewKey[int]("missing")) })
}

func TestNilRegistry(t *testing.T) {
	_, ok := Resolve[int](nil, NewKey[int]("x"))
	assert.False(t, ok)
}

func TestRemoveAndNames(t *testing.T) {
	reg := New()
	Provide(reg, NewKey[int]("b"), 1)
	Provide(reg, NewKey[int]("a"), 2)
	assert.Equal(t, []string{"a", "b"}, reg.Names())

	assert.True(t, Remove(reg, NewKey[int]("a")))
	assert.False(t, Remove(reg, NewKey[int]("a")))
	assert.Equal(t, []string{"b"}, reg.Names())
}
