package equality

import (
	"reflect"
)

// Hasher lets a type supply its own hash. Types that implement a custom
// Equal method should implement Hasher consistently with it.
type Hasher interface {
	Hash() uint64
}

var boolType = reflect.TypeOf(false)

// Equal reports whether a and b are equal using identity, the value's own
// Equal method, or ==, in that order.
//
// A type participates through a method of the form
//
//	func (T) Equal(T) bool
//
// where the parameter may be any type b is assignable to.
func Equal(a, b any) bool {
	if identical(a, b) {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if eq, ok := callEqual(a, b); ok {
		return eq
	}

	va := reflect.ValueOf(a)
	vb := reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	if va.Comparable() && vb.Comparable() {
		return a == b
	}
	// Non-comparable without an Equal method: identity was the only option.
	return false
}

// identical reports whether a and b are the same object. Only pointers,
// maps, slices and channels carry identity; nil interfaces are identical to
// each other.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va := reflect.ValueOf(a)
	vb := reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	default:
		return false
	}
}

// callEqual invokes a's Equal method with b when such a method exists.
func callEqual(a, b any) (result, ok bool) {
	m := equalMethod(reflect.ValueOf(a), reflect.TypeOf(b))
	if !m.IsValid() {
		return false, false
	}
	out := m.Call([]reflect.Value{reflect.ValueOf(b)})
	return out[0].Bool(), true
}

// equalMethod returns v's Equal method if it accepts arg and returns bool.
func equalMethod(v reflect.Value, arg reflect.Type) reflect.Value {
	if !v.IsValid() || !v.CanInterface() {
		return reflect.Value{}
	}
	m := v.MethodByName("Equal")
	if !m.IsValid() {
		return reflect.Value{}
	}
	mt := m.Type()
	if mt.NumIn() != 1 || mt.NumOut() != 1 || mt.Out(0) != boolType {
		return reflect.Value{}
	}
	if arg == nil || !arg.AssignableTo(mt.In(0)) {
		return reflect.Value{}
	}
	return m
}

// hasEqualMethod reports whether v defines an Equal method over its own type.
func hasEqualMethod(v any) bool {
	if v == nil {
		return false
	}
	return equalMethod(reflect.ValueOf(v), reflect.TypeOf(v)).IsValid()
}
