package equality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type point struct{ X, Y int }

type tagged struct {
	ID   int
	Note string // ignored by Equal
}

func (t tagged) Equal(o tagged) bool { return t.ID == o.ID }

type bag struct {
	Items []int
}

func (b *bag) Equal(o *bag) bool {
	if b == nil || o == nil {
		return b == o
	}
	return DeepEqual(b.Items, o.Items)
}

func TestEqual_Comparable(t *testing.T) {
	assert.True(t, Equal(point{1, 2}, point{1, 2}))
	assert.False(t, Equal(point{1, 2}, point{2, 1}))
	assert.True(t, Equal(3, 3))
	assert.False(t, Equal(3, "3"), "different types are never equal")
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, 1))
}

func TestEqual_UsesEqualMethod(t *testing.T) {
	assert.True(t, Equal(tagged{ID: 1, Note: "a"}, tagged{ID: 1, Note: "b"}))
	assert.False(t, Equal(tagged{ID: 1}, tagged{ID: 2}))

	a := &bag{Items: []int{1, 2}}
	b := &bag{Items: []int{1, 2}}
	assert.True(t, Equal(a, b))
}

func TestEqual_NonComparableFallsBackToIdentity(t *testing.T) {
	s1 := []int{1, 2, 3}
	s2 := []int{1, 2, 3}

	assert.True(t, Equal(s1, s1))
	assert.False(t, Equal(s1, s2), "distinct slices have no operator equality")
	assert.False(t, Equal(s1, s1[:2]), "same backing array with different length is not identical")

	m1 := map[string]int{"a": 1}
	m2 := map[string]int{"a": 1}
	assert.True(t, Equal(m1, m1))
	assert.False(t, Equal(m1, m2))
}

func TestEqual_Pointers(t *testing.T) {
	p := &point{1, 2}
	q := &point{1, 2}

	assert.True(t, Equal(p, p))
	assert.False(t, Equal(p, q), "pointers compare by address without an Equal method")
}

func TestEqual_InterfaceHoldingSliceDoesNotPanic(t *testing.T) {
	type holder struct{ V any }
	a := holder{V: []int{1}}
	b := holder{V: []int{1}}

	assert.NotPanics(t, func() {
		assert.False(t, Equal(a, b))
	})
}
