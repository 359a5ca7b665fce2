package equality

import (
	"math"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hashedBag struct {
	Items []int
	calls *int
}

func (h *hashedBag) Equal(o *hashedBag) bool {
	*h.calls++
	return DeepEqual(h.Items, o.Items)
}

func (h *hashedBag) Hash() uint64 {
	var sum uint64
	for _, v := range h.Items {
		sum = sum*31 + uint64(v)
	}
	return sum
}

func TestShallowEqual_HashRejectSkipsEqualMethod(t *testing.T) {
	cmp := NewComparator(NewCache())
	calls := 0
	a := &hashedBag{Items: []int{1, 2, 3}, calls: &calls}
	b := &hashedBag{Items: []int{1, 2, 4}, calls: &calls}

	assert.False(t, cmp.ShallowEqual(a, b))
	assert.Equal(t, 0, calls, "differing hashes must reject without Equal")
}

func TestShallowEqual_MatchingHashFallsBackToEqual(t *testing.T) {
	cmp := NewComparator(NewCache())
	calls := 0
	a := &hashedBag{Items: []int{1, 2, 3}, calls: &calls}
	b := &hashedBag{Items: []int{1, 2, 3}, calls: &calls}

	assert.True(t, cmp.ShallowEqual(a, b))
	assert.Equal(t, 1, calls)
}

func TestShallowEqual_CachesHashesByIdentity(t *testing.T) {
	cache := NewCache()
	cmp := NewComparator(cache)
	a := []int{1, 2, 3}
	b := []int{4, 5, 6}

	assert.False(t, cmp.ShallowEqual(a, b))
	assert.False(t, cmp.ShallowEqual(a, b))

	hits, misses := cache.Stats()
	assert.Equal(t, uint64(2), misses)
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, 2, cache.Len())
}

func TestShallowEqual_DisabledCacheIsBareOperatorEquality(t *testing.T) {
	cache := NewCache(WithEnabled(false))
	cmp := NewComparator(cache)

	s1 := []int{1, 2, 3}
	s2 := []int{1, 2, 3}
	assert.False(t, cmp.ShallowEqual(s1, s2), "structurally equal but distinct slices")
	assert.True(t, cmp.ShallowEqual(s1, s1))
	assert.Equal(t, 0, cache.Len())

	calls := 0
	a := &hashedBag{Items: []int{1}, calls: &calls}
	b := &hashedBag{Items: []int{2}, calls: &calls}
	assert.False(t, cmp.ShallowEqual(a, b))
	assert.Equal(t, 1, calls, "without the cache the operator is always consulted")
}

func TestSetCacheEnabled_GlobalSwitch(t *testing.T) {
	t.Cleanup(func() { SetCacheEnabled(true) })

	SetCacheEnabled(false)
	assert.False(t, CacheEnabled())

	s1 := []string{"x"}
	s2 := []string{"x"}
	assert.False(t, ShallowEqual(s1, s2))
	assert.Equal(t, 0, Default().Cache().Len())

	SetCacheEnabled(true)
	assert.True(t, CacheEnabled())
}

func TestCache_FIFOEviction(t *testing.T) {
	cache := NewCache(WithCapacity(2))
	a, b, c := &point{1, 1}, &point{2, 2}, &point{3, 3}

	cache.hashFor(a)
	cache.hashFor(b)
	cache.hashFor(c) // evicts a

	assert.Equal(t, 2, cache.Len())

	_, missesBefore := cache.Stats()
	cache.hashFor(b)
	_, missesAfter := cache.Stats()
	assert.Equal(t, missesBefore, missesAfter, "b should still be cached")

	cache.hashFor(a)
	_, missesFinal := cache.Stats()
	assert.Equal(t, missesAfter+1, missesFinal, "a should have been evicted first")
}

type labelled struct {
	Name  string
	Items []int
}

func TestCache_EntryKeepsValueAlive(t *testing.T) {
	cache := NewCache()
	var collected atomic.Bool

	v := &labelled{Name: "a", Items: []int{1, 2}}
	runtime.SetFinalizer(v, func(*labelled) { collected.Store(true) })
	cache.hashFor(v)
	v = nil

	// While cached, the address cannot be handed to a new object.
	for range 3 {
		runtime.GC()
	}
	time.Sleep(20 * time.Millisecond)
	assert.False(t, collected.Load())

	cache.Clear()
	assert.Eventually(t, func() bool {
		runtime.GC()
		return collected.Load()
	}, time.Second, 10*time.Millisecond)
}

func TestCache_AutoClear(t *testing.T) {
	cache := NewCache(WithAutoClear(20 * time.Millisecond))
	t.Cleanup(cache.Stop)

	cache.hashFor(&point{1, 2})
	require.Equal(t, 1, cache.Len())

	assert.Eventually(t, func() bool { return cache.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHash_StableAndOrderIndependentForMaps(t *testing.T) {
	m1 := map[string]int{"a": 1, "b": 2, "c": 3}
	m2 := map[string]int{"c": 3, "b": 2, "a": 1}

	assert.Equal(t, Hash(m1), Hash(m2))
	assert.NotEqual(t, Hash(map[string]int{"a": 1}), Hash(map[string]int{"a": 2}))
	assert.Equal(t, Hash(point{1, 2}), Hash(point{1, 2}))
	assert.Equal(t, Hash(0.0), Hash(math.Copysign(0, -1)))
}
