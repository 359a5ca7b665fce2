package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator(t *testing.T) {
	gen := NewFixedIDGenerator("store-1")
	assert.Equal(t, "store-1", gen.Generate())
	assert.Equal(t, "store-1", gen.Generate())

	assert.Equal(t, "test-id", NewFixedIDGenerator("").Generate())
}

func TestManualTime(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewManualTime(start)
	assert.Equal(t, start, m.Now())

	m.Advance(time.Minute)
	assert.Equal(t, start.Add(time.Minute), m.Now())

	assert.Equal(t, 2025, NewManualTime(time.Time{}).Now().Year())
}

func TestManualTime_ThreadSafe(t *testing.T) {
	m := NewManualTime(time.Time{})
	start := m.Now()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Advance(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, time.Second, m.Now().Sub(start))
}

func TestCollector(t *testing.T) {
	ch := make(chan int)
	c := Collect(ch)

	go func() {
		for i := 1; i <= 3; i++ {
			ch <- i
		}
		close(ch)
	}()

	assert.True(t, c.WaitFor(3, time.Second))
	assert.True(t, c.Closed(time.Second))
	assert.Equal(t, []int{1, 2, 3}, c.Values())
	assert.False(t, c.WaitFor(4, 10*time.Millisecond))
}
