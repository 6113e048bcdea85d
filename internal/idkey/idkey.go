// Package idkey classifies arbitrary Go values as reference or value terms
// and derives a key suitable for identity-keyed lookup, per the Term Model's
// node-identity rule: pointer identity for allocated/reference terms,
// structural equality for value terms.
package idkey

import "reflect"

// sliceID identifies a slice by its backing array address, length and
// capacity, so two slices that happen to share a backing array but differ
// in length (e.g. s and s[:len(s)-1]) are not confused for the same node.
type sliceID struct {
	ptr uintptr
	len int
	cap int
}

type nilID struct {
	typ reflect.Type
}

// IsReference reports whether v's kind is treated as an allocated/reference
// term: identity compares the underlying data pointer rather than value
// contents. Pointers, maps, channels, funcs, unsafe pointers and slices are
// reference kinds; everything else (numbers, strings, bools, structs,
// arrays, interfaces) is a value kind.
func IsReference(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Slice:
		return true
	default:
		return false
	}
}

// Comparable reports whether v's dynamic type can be safely used as a Go
// map key (i.e. hashed and compared with ==) without panicking.
func Comparable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}

// Of derives a hashable identity key for v. For reference kinds the key is
// derived from the underlying data pointer (so distinct allocations never
// collide, and the same allocation always maps to the same key regardless
// of how many interface values wrap it). For value kinds whose type is
// Comparable, v itself is returned and is safe to use directly as a map
// key. For non-comparable value kinds, ok is false: callers must fall back
// to a linear scan using Same (see internal/idtable).
func Of(v any) (key any, ok bool) {
	if v == nil {
		return nilID{nil}, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		if rv.IsNil() {
			return nilID{rv.Type()}, true
		}
		return rv.Pointer(), true
	case reflect.Func:
		if rv.IsNil() {
			return nilID{rv.Type()}, true
		}
		// Funcs are only pointer-comparable to nil in Go; use the code
		// pointer as a best-effort identity. Value.Pointer() does not
		// include the closure environment, so two distinct closures over
		// the same function body get the same key.
		return rv.Pointer(), true
	case reflect.Slice:
		if rv.IsNil() {
			return nilID{rv.Type()}, true
		}
		return sliceID{rv.Pointer(), rv.Len(), rv.Cap()}, true
	default:
		if !rv.Comparable() {
			return nil, false
		}
		return v, true
	}
}

// Same implements the Term Model's same predicate: reference equality for
// reference terms, structural (deep) equality for value terms. Comparing a
// reference term to a value term is always false.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	refA, refB := IsReference(a), IsReference(b)
	if refA != refB {
		return false
	}
	if refA {
		ka, okA := Of(a)
		kb, okB := Of(b)
		if !okA || !okB {
			return false
		}
		ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
		return ta == tb && ka == kb
	}
	return reflect.DeepEqual(a, b)
}
