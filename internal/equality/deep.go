package equality

import (
	"reflect"
	"unsafe"
)

const (
	// SampleThreshold is the collection size above which DeepEqual checks a
	// spread sample before walking every element.
	SampleThreshold = 64

	// SampleSize is the number of elements or keys probed by the sample.
	SampleSize = 8
)

// visit keys a compared pair. Slices sharing a base pointer differ by
// length, so the length is part of the key.
type visit struct {
	a1  unsafe.Pointer
	a2  unsafe.Pointer
	len int
	typ reflect.Type
}

// DeepEqual reports whether a and b are structurally equal. Slices, arrays,
// maps, structs, pointers and interfaces are compared recursively; nested
// values with an Equal method use it. Large collections are sampled first so
// mostly-unchanged big states that differ somewhere obvious fail fast.
func DeepEqual(a, b any) bool {
	if identical(a, b) {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	va := reflect.ValueOf(a)
	vb := reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	d := &deep{visited: make(map[visit]bool)}
	return d.equal(va, vb, 0)
}

type deep struct {
	visited map[visit]bool
}

func (d *deep) equal(v1, v2 reflect.Value, depth int) bool {
	if !v1.IsValid() || !v2.IsValid() {
		return v1.IsValid() == v2.IsValid()
	}
	if v1.Type() != v2.Type() {
		return false
	}

	if depth > 0 && v1.CanInterface() && v2.CanInterface() {
		if m := equalMethod(v1, v2.Type()); m.IsValid() {
			return m.Call([]reflect.Value{v2})[0].Bool()
		}
	}

	switch v1.Kind() {
	case reflect.Array:
		return d.sequence(v1, v2, depth)
	case reflect.Slice:
		if v1.IsNil() != v2.IsNil() {
			return false
		}
		if v1.Len() != v2.Len() {
			return false
		}
		if v1.Pointer() == v2.Pointer() {
			return true
		}
		if d.seen(v1, v2) {
			return true
		}
		return d.sequence(v1, v2, depth)
	case reflect.Map:
		if d.seen(v1, v2) {
			return true
		}
		return d.mapping(v1, v2, depth)
	case reflect.Pointer:
		if v1.Pointer() == v2.Pointer() {
			return true
		}
		if v1.IsNil() || v2.IsNil() {
			return false
		}
		if d.seen(v1, v2) {
			return true
		}
		return d.equal(v1.Elem(), v2.Elem(), depth+1)
	case reflect.Interface:
		if v1.IsNil() || v2.IsNil() {
			return v1.IsNil() == v2.IsNil()
		}
		return d.equal(v1.Elem(), v2.Elem(), depth+1)
	case reflect.Struct:
		for i := 0; i < v1.NumField(); i++ {
			if !d.equal(v1.Field(i), v2.Field(i), depth+1) {
				return false
			}
		}
		return true
	case reflect.Func:
		return v1.IsNil() && v2.IsNil()
	case reflect.Chan, reflect.UnsafePointer:
		return v1.Pointer() == v2.Pointer()
	case reflect.Bool:
		return v1.Bool() == v2.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v1.Int() == v2.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v1.Uint() == v2.Uint()
	case reflect.Float32, reflect.Float64:
		return v1.Float() == v2.Float()
	case reflect.Complex64, reflect.Complex128:
		return v1.Complex() == v2.Complex()
	case reflect.String:
		return v1.String() == v2.String()
	default:
		return false
	}
}

// seen records reference-kind pairs so cyclic structures terminate.
func (d *deep) seen(v1, v2 reflect.Value) bool {
	switch v1.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer:
	default:
		return false
	}
	if v1.IsNil() || v2.IsNil() {
		return false
	}
	p1, p2 := v1.UnsafePointer(), v2.UnsafePointer()
	if uintptr(p1) > uintptr(p2) {
		p1, p2 = p2, p1
	}
	key := visit{a1: p1, a2: p2, typ: v1.Type()}
	if v1.Kind() == reflect.Slice {
		key.len = v1.Len()
	}
	if d.visited[key] {
		return true
	}
	d.visited[key] = true
	return false
}

func (d *deep) sequence(v1, v2 reflect.Value, depth int) bool {
	n := v1.Len()
	if n != v2.Len() {
		return false
	}
	if n > SampleThreshold {
		for _, i := range sampleIndices(n) {
			if !d.equal(v1.Index(i), v2.Index(i), depth+1) {
				return false
			}
		}
	}
	for i := 0; i < n; i++ {
		if !d.equal(v1.Index(i), v2.Index(i), depth+1) {
			return false
		}
	}
	return true
}

func (d *deep) mapping(v1, v2 reflect.Value, depth int) bool {
	if v1.IsNil() != v2.IsNil() {
		return false
	}
	if v1.Len() != v2.Len() {
		return false
	}
	if v1.Pointer() == v2.Pointer() {
		return true
	}
	if v1.Len() > SampleThreshold {
		probed := 0
		iter := v1.MapRange()
		for probed < SampleSize && iter.Next() {
			other := v2.MapIndex(iter.Key())
			if !other.IsValid() || !d.equal(iter.Value(), other, depth+1) {
				return false
			}
			probed++
		}
	}
	iter := v1.MapRange()
	for iter.Next() {
		other := v2.MapIndex(iter.Key())
		if !other.IsValid() || !d.equal(iter.Value(), other, depth+1) {
			return false
		}
	}
	return true
}

// sampleIndices spreads SampleSize probes evenly over [0, n).
func sampleIndices(n int) []int {
	out := make([]int, SampleSize)
	for k := 0; k < SampleSize; k++ {
		out[k] = k * (n - 1) / (SampleSize - 1)
	}
	return out
}
