package pqueue

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intLess(a, b int) bool { return a < b }

type entry struct {
	priority int
	seq      int
}

func entryLess(a, b entry) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq > b.seq
}

func TestQueue_RemoveHighest_Empty(t *testing.T) {
	q := New(intLess)

	_, err := q.RemoveHighest()
	assert.ErrorIs(t, err, ErrEmpty)
	assert.True(t, q.IsEmpty())
}

func TestQueue_PeekHighest(t *testing.T) {
	q := New(intLess)

	_, ok := q.PeekHighest()
	assert.False(t, ok)

	q.Insert(3)
	q.Insert(9)
	q.Insert(1)

	top, ok := q.PeekHighest()
	require.True(t, ok)
	assert.Equal(t, 9, top)
	assert.Equal(t, 3, q.Len(), "peek must not remove")
}

func TestQueue_OrdersDescending(t *testing.T) {
	q := New(intLess)
	for _, v := range []int{5, 1, 8, 3, 9, 2, 7} {
		q.Insert(v)
	}

	var got []int
	for !q.IsEmpty() {
		v, err := q.RemoveHighest()
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []int{9, 8, 7, 5, 3, 2, 1}, got)
}

func TestQueue_MatchesSortedReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		q := New(intLess)
		perm := rng.Perm(200)
		for _, v := range perm {
			q.Insert(v)
		}

		want := append([]int(nil), perm...)
		sort.Sort(sort.Reverse(sort.IntSlice(want)))

		assert.Equal(t, want, q.Drain())
	}
}

func TestQueue_SequenceTieBreakIsFIFO(t *testing.T) {
	q := New(entryLess)
	for i := 0; i < 10; i++ {
		q.Insert(entry{priority: 0, seq: i})
	}
	q.Insert(entry{priority: 1, seq: 10})

	got := q.Drain()
	require.Len(t, got, 11)
	assert.Equal(t, 10, got[0].seq)
	for i := 1; i < len(got); i++ {
		assert.Equal(t, i-1, got[i].seq)
	}
}

func TestQueue_Clear(t *testing.T) {
	q := New(intLess)
	q.Insert(1)
	q.Insert(2)

	q.Clear()

	assert.True(t, q.IsEmpty())
	assert.Equal(t, 0, q.Len())

	q.Insert(4)
	v, err := q.RemoveHighest()
	require.NoError(t, err)
	assert.Equal(t, 4, v)
}
