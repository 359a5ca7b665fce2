package equality

import (
	"encoding/binary"
	"hash"
	"math"
	"reflect"

	"github.com/twmb/murmur3"
)

// identity is the cache key for values that have one.
type identity struct {
	typ reflect.Type
	ptr uintptr
	n   int
}

// identityOf returns the identity key for pointers, maps and slices.
func identityOf(v any) (identity, bool) {
	if v == nil {
		return identity{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map:
		if rv.IsNil() {
			return identity{}, false
		}
		return identity{typ: rv.Type(), ptr: rv.Pointer()}, true
	case reflect.Slice:
		if rv.IsNil() {
			return identity{}, false
		}
		return identity{typ: rv.Type(), ptr: rv.Pointer(), n: rv.Len()}, true
	default:
		return identity{}, false
	}
}

// hashable reports whether the structural hash agrees with Equal for v.
func hashable(v any) bool {
	if _, ok := v.(Hasher); ok {
		return true
	}
	return !hasEqualMethod(v)
}

// Hash computes the combined hash of v: one level of structure (fields,
// elements or entries) with nested references hashed by identity.
func Hash(v any) uint64 {
	if h, ok := v.(Hasher); ok {
		return h.Hash()
	}
	w := &hashWriter{h: murmur3.New64()}
	w.top(reflect.ValueOf(v))
	return w.h.Sum64()
}

type hashWriter struct {
	h   hash.Hash64
	buf [8]byte
}

func (w *hashWriter) u64(x uint64) {
	binary.LittleEndian.PutUint64(w.buf[:], x)
	_, _ = w.h.Write(w.buf[:])
}

func (w *hashWriter) str(s string) {
	w.u64(uint64(len(s)))
	_, _ = w.h.Write([]byte(s))
}

func (w *hashWriter) float(f float64) {
	// -0 == +0 must hash alike.
	if f == 0 {
		f = 0
	}
	w.u64(math.Float64bits(f))
}

func (w *hashWriter) top(v reflect.Value) {
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		w.u64(uint64(v.Len()))
		for i := 0; i < v.Len(); i++ {
			w.leaf(v.Index(i))
		}
	case reflect.Map:
		w.u64(uint64(v.Len()))
		// Entry hashes are summed so iteration order does not matter.
		var sum uint64
		iter := v.MapRange()
		for iter.Next() {
			sub := &hashWriter{h: murmur3.New64()}
			sub.leaf(iter.Key())
			sub.leaf(iter.Value())
			sum += sub.h.Sum64()
		}
		w.u64(sum)
	default:
		w.leaf(v)
	}
}

func (w *hashWriter) leaf(v reflect.Value) {
	w.u64(uint64(v.Kind()))
	switch v.Kind() {
	case reflect.Invalid:
	case reflect.Bool:
		if v.Bool() {
			w.u64(1)
		} else {
			w.u64(0)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		w.u64(uint64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		w.u64(v.Uint())
	case reflect.Float32, reflect.Float64:
		w.float(v.Float())
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		w.float(real(c))
		w.float(imag(c))
	case reflect.String:
		w.str(v.String())
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		w.u64(uint64(v.Pointer()))
	case reflect.Slice:
		w.u64(uint64(v.Pointer()))
		w.u64(uint64(v.Len()))
	case reflect.Interface:
		if v.IsNil() {
			return
		}
		w.leaf(v.Elem())
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			w.leaf(v.Field(i))
		}
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			w.leaf(v.Index(i))
		}
	}
}
