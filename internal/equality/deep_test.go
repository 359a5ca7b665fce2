package equality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type tree struct {
	Name     string
	Children []*tree
	Attrs    map[string]any
}

func TestDeepEqual_Collections(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"equal slices", []int{1, 2, 3}, []int{1, 2, 3}, true},
		{"different length", []int{1, 2}, []int{1, 2, 3}, false},
		{"different element", []int{1, 2, 3}, []int{1, 9, 3}, false},
		{"nil vs empty slice", []int(nil), []int{}, false},
		{"equal maps", map[string]int{"a": 1}, map[string]int{"a": 1}, true},
		{"missing key", map[string]int{"a": 1}, map[string]int{"b": 1}, false},
		{"set-shaped maps", map[int]struct{}{1: {}, 2: {}}, map[int]struct{}{2: {}, 1: {}}, true},
		{"nested", []map[string][]int{{"x": {1}}}, []map[string][]int{{"x": {1}}}, true},
		{"nested differs", []map[string][]int{{"x": {1}}}, []map[string][]int{{"x": {2}}}, false},
		{"different types", []int{1}, []int64{1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeepEqual(tt.a, tt.b))
		})
	}
}

func TestDeepEqual_Structs(t *testing.T) {
	a := &tree{Name: "root", Children: []*tree{{Name: "leaf"}}, Attrs: map[string]any{"k": []int{1}}}
	b := &tree{Name: "root", Children: []*tree{{Name: "leaf"}}, Attrs: map[string]any{"k": []int{1}}}

	assert.True(t, DeepEqual(a, b))

	b.Children[0].Name = "other"
	assert.False(t, DeepEqual(a, b))
}

func TestDeepEqual_NestedEqualMethod(t *testing.T) {
	a := []tagged{{ID: 1, Note: "x"}}
	b := []tagged{{ID: 1, Note: "y"}}

	assert.True(t, DeepEqual(a, b))
}

func TestDeepEqual_Cycles(t *testing.T) {
	a := &tree{Name: "n"}
	a.Children = []*tree{a}
	b := &tree{Name: "n"}
	b.Children = []*tree{b}

	assert.True(t, DeepEqual(a, b))
}

type window struct {
	Head []int
	Full []int
}

func TestDeepEqual_SharedBackingArrays(t *testing.T) {
	x := []int{1, 2, 3}
	y := []int{1, 2, 99}

	assert.False(t, DeepEqual(window{x[:2], x}, window{y[:2], y}))
	assert.True(t, DeepEqual(window{x[:2], x}, window{[]int{1, 2}, []int{1, 2, 3}}))
}

func TestDeepEqual_LargeCollectionSampling(t *testing.T) {
	n := 10_000
	a := make([]int, n)
	b := make([]int, n)
	for i := range a {
		a[i] = i
		b[i] = i
	}
	assert.True(t, DeepEqual(a, b))

	// Differs at a sampled index.
	b[n-1] = -1
	assert.False(t, DeepEqual(a, b))

	// Differs at an unsampled index.
	b[n-1] = n - 1
	b[17] = -1
	assert.False(t, DeepEqual(a, b))
}

func TestDeepEqual_LargeMap(t *testing.T) {
	a := make(map[int]string, 500)
	b := make(map[int]string, 500)
	for i := 0; i < 500; i++ {
		a[i] = "v"
		b[i] = "v"
	}
	assert.True(t, DeepEqual(a, b))

	b[250] = "changed"
	assert.False(t, DeepEqual(a, b))
}

func TestSampleIndices_SpreadAcrossRange(t *testing.T) {
	idx := sampleIndices(100)

	assert.Len(t, idx, SampleSize)
	assert.Equal(t, 0, idx[0])
	assert.Equal(t, 99, idx[len(idx)-1])
	for i := 1; i < len(idx); i++ {
		assert.Greater(t, idx[i], idx[i-1])
	}
}
