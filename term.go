// Copyright 2024 The Kiama Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license that can be
// found in the LICENSE file.

// Package kiama provides two coupled engines for tree-shaped data: a
// strategy-based term rewriting engine and an attribute evaluation engine,
// on top of a shared Term Model describing how arbitrary values decompose
// into ordered children and reconstruct from replacements.
package kiama

import (
	"github.com/kiamalang/kiama/internal/idkey"
	"github.com/kiamalang/kiama/internal/slicesutil"
)

// Term is any value usable as a tree node: a Rewritable, one of the
// built-in container shapes below, or an opaque leaf with arity 0.
type Term = any

// Rewritable is the capability a user type implements to make values of
// that type traversable by the rewriting and attribute engines (spec.md
// §6, §9). Fixed-arity record types (Num, Add, ...) are the common case;
// the built-in container types below implement it too, so the engine never
// special-cases them.
type Rewritable interface {
	// Arity is the number of immediate children.
	Arity() int
	// Deconstruct returns the ordered children.
	Deconstruct() []any
	// Reconstruct builds a term of the same shape/constructor from a
	// like-ordered, like-length slice of replacement children, or reports
	// an [IllegalArgsError] on arity or per-position mismatch.
	Reconstruct(children []any) (any, error)
}

// Arity returns t's number of immediate children. Non-Rewritable values
// (opaque leaves) have arity 0.
func Arity(t any) int {
	if r, ok := t.(Rewritable); ok {
		return r.Arity()
	}
	return 0
}

// Deconstruct returns t's ordered children. ok is false for opaque leaves
// (values that do not implement [Rewritable]); such a term has no children
// and reconstructs as itself.
func Deconstruct(t any) (children []any, ok bool) {
	if r, isRewritable := t.(Rewritable); isRewritable {
		return r.Deconstruct(), true
	}
	return nil, false
}

// Reconstruct builds a term of the same shape as t from children, or
// returns an [IllegalArgsError]. For an opaque leaf t, Reconstruct succeeds
// only when children is empty, returning t unchanged.
func Reconstruct(t any, children []any) (any, error) {
	r, ok := t.(Rewritable)
	if !ok {
		if len(children) == 0 {
			return t, nil
		}
		return nil, &IllegalArgsError{Shape: t, Expected: 0, Supplied: len(children)}
	}
	return r.Reconstruct(children)
}

// Duplicate constructs a like-shaped node from children, identical to
// [Reconstruct]. It exists as the free-function form of the Term Model's
// "duplicate" operation named in spec.md §3.
func Duplicate(t any, children []any) (any, error) {
	return Reconstruct(t, children)
}

// Same is the Term Model's identity predicate (spec.md §3, §4.1): reference
// equality for allocated/boxed terms (pointers, slices, maps, channels,
// funcs), structural equality for value terms (numbers, strings, structs
// not behind a pointer). Comparing a reference term to a value term is
// always false. Same(x, x) is always true.
func Same(a, b any) bool {
	return idkey.Same(a, b)
}

// sameChildren reports whether every element of b is Same as the
// corresponding element of a. Reconstruct implementations use this to
// satisfy spec.md §8 property 1 (identity preservation): rebuilding a node
// from children that are all Same as the ones it already has must return
// the original term, not a fresh allocation, the same copy-on-write
// shortcut fox's node.go uses to avoid reallocating an unchanged radix
// node on every write.
func sameChildren(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Same(a[i], b[i]) {
			return false
		}
	}
	return true
}

// equaler is implemented by container shapes whose natural equality is not
// Go's structural/DeepEqual notion (Set's element order is insignificant).
// The circular attribute engine prefers Equal over reflect.DeepEqual when a
// stored value implements this.
type equaler interface {
	Equal(other any) bool
}

// --- Seq: the ordered-sequence container shape -----------------------

// Seq is the ordered-sequence container (spec.md §3): children are the
// elements, in order.
type Seq[T any] []T

func (s Seq[T]) Arity() int { return len(s) }

func (s Seq[T]) Deconstruct() []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func (s Seq[T]) Reconstruct(children []any) (any, error) {
	if sameChildren(s.Deconstruct(), children) {
		return s, nil
	}
	if len(children) != len(s) {
		return nil, &IllegalArgsError{Shape: s, Expected: len(s), Supplied: len(children)}
	}
	out := make(Seq[T], len(children))
	for i, c := range children {
		v, ok := c.(T)
		if !ok {
			return nil, &IllegalArgsError{Shape: s, Expected: len(s), Supplied: len(children)}
		}
		out[i] = v
	}
	return out, nil
}

// --- Set: the unordered-set container shape ---------------------------

// Set is the unordered-set container (spec.md §3): children are the
// elements in the set's (implementation-chosen, but stable within a tree's
// lifetime) iteration order. NewSet deduplicates its arguments, preserving
// first occurrence.
type Set[T comparable] []T

// NewSet builds a Set from elems, keeping only the first occurrence of
// each distinct value and preserving that first-seen order.
func NewSet[T comparable](elems ...T) Set[T] {
	out := make(Set[T], 0, len(elems))
	seen := make(map[T]struct{}, len(elems))
	for _, e := range elems {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func (s Set[T]) Arity() int { return len(s) }

func (s Set[T]) Deconstruct() []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// Reconstruct rebuilds a Set from children, deduplicating as a genuine set
// would: if a rewrite maps two distinct elements to the same new value,
// the set shrinks.
func (s Set[T]) Reconstruct(children []any) (any, error) {
	if sameChildren(s.Deconstruct(), children) {
		return s, nil
	}
	if len(children) != len(s) {
		return nil, &IllegalArgsError{Shape: s, Expected: len(s), Supplied: len(children)}
	}
	out := make(Set[T], 0, len(children))
	seen := make(map[T]struct{}, len(children))
	for _, c := range children {
		v, ok := c.(T)
		if !ok {
			return nil, &IllegalArgsError{Shape: s, Expected: len(s), Supplied: len(children)}
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// Equal reports whether s and other contain the same elements, ignoring
// order. It backs the default circular-attribute value-equality check for
// Set-valued attributes (e.g. the dataflow liveness example's in/out).
func (s Set[T]) Equal(other any) bool {
	o, ok := other.(Set[T])
	if !ok {
		return false
	}
	return slicesutil.EqualUnsorted(s, o)
}

// --- Pair: the map-entry / 2-tuple container shape ---------------------

// Pair is a fixed-arity-2 term: the map-entry shape required by spec.md's
// "children are pairs" rule for maps, and the general 2-tuple shape.
type Pair[A, B any] struct {
	First  A
	Second B
}

func (p Pair[A, B]) Arity() int { return 2 }

func (p Pair[A, B]) Deconstruct() []any { return []any{p.First, p.Second} }

func (p Pair[A, B]) Reconstruct(children []any) (any, error) {
	if len(children) != 2 {
		return nil, &IllegalArgsError{Shape: p, Expected: 2, Supplied: len(children)}
	}
	a, ok1 := children[0].(A)
	b, ok2 := children[1].(B)
	if !ok1 || !ok2 {
		return nil, &IllegalArgsError{Shape: p, Expected: 2, Supplied: 2}
	}
	return Pair[A, B]{First: a, Second: b}, nil
}

// --- OrderedMap: the map container shape --------------------------------

// OrderedMap is the map container (spec.md §3): children are the
// key-value [Pair]s, in order. Plain Go maps are not usable as a term
// shape because map iteration order is randomized per-run, which would
// violate the stable-iteration-order requirement on container shapes
// (spec.md §5); OrderedMap is the term model's map.
type OrderedMap[K comparable, V any] []Pair[K, V]

// NewOrderedMap builds an OrderedMap from pairs, keeping the last value
// supplied for any repeated key but the first-seen position, matching
// ordinary map-assignment semantics.
func NewOrderedMap[K comparable, V any](pairs ...Pair[K, V]) OrderedMap[K, V] {
	out := make(OrderedMap[K, V], 0, len(pairs))
	index := make(map[K]int, len(pairs))
	for _, p := range pairs {
		if i, dup := index[p.First]; dup {
			out[i] = p
			continue
		}
		index[p.First] = len(out)
		out = append(out, p)
	}
	return out
}

// Get returns the value associated with k, if present.
func (m OrderedMap[K, V]) Get(k K) (V, bool) {
	for _, p := range m {
		if p.First == k {
			return p.Second, true
		}
	}
	var zero V
	return zero, false
}

func (m OrderedMap[K, V]) Arity() int { return len(m) }

func (m OrderedMap[K, V]) Deconstruct() []any {
	out := make([]any, len(m))
	for i, p := range m {
		out[i] = p
	}
	return out
}

func (m OrderedMap[K, V]) Reconstruct(children []any) (any, error) {
	if sameChildren(m.Deconstruct(), children) {
		return m, nil
	}
	if len(children) != len(m) {
		return nil, &IllegalArgsError{Shape: m, Expected: len(m), Supplied: len(children)}
	}
	out := make(OrderedMap[K, V], 0, len(children))
	index := make(map[K]int, len(children))
	for _, c := range children {
		p, ok := c.(Pair[K, V])
		if !ok {
			return nil, &IllegalArgsError{Shape: m, Expected: len(m), Supplied: len(children)}
		}
		if i, dup := index[p.First]; dup {
			out[i] = p
			continue
		}
		index[p.First] = len(out)
		out = append(out, p)
	}
	return out, nil
}

// --- Option: the optional-value container shape -------------------------

// Option is the optional-value container (spec.md §3): arity 1 wrapping a
// value, or arity 0 when empty.
type Option[T any] struct {
	present bool
	value   T
}

// SomeOf wraps v as a present Option.
func SomeOf[T any](v T) Option[T] { return Option[T]{present: true, value: v} }

// NoneOf returns an empty Option[T].
func NoneOf[T any]() Option[T] { return Option[T]{} }

// Get returns the wrapped value and true, or the zero value and false.
func (o Option[T]) Get() (T, bool) { return o.value, o.present }

// IsSome reports whether o wraps a value.
func (o Option[T]) IsSome() bool { return o.present }

func (o Option[T]) Arity() int {
	if o.present {
		return 1
	}
	return 0
}

func (o Option[T]) Deconstruct() []any {
	if o.present {
		return []any{o.value}
	}
	return nil
}

func (o Option[T]) Reconstruct(children []any) (any, error) {
	if len(children) != o.Arity() {
		return nil, &IllegalArgsError{Shape: o, Expected: o.Arity(), Supplied: len(children)}
	}
	switch len(children) {
	case 0:
		return Option[T]{}, nil
	case 1:
		v, ok := children[0].(T)
		if !ok {
			return nil, &IllegalArgsError{Shape: o, Expected: 1, Supplied: 1}
		}
		return Option[T]{present: true, value: v}, nil
	default:
		return nil, &IllegalArgsError{Shape: o, Expected: o.Arity(), Supplied: len(children)}
	}
}

// --- Either: the tagged-union container shape ---------------------------

type eitherSide uint8

const (
	eitherLeft eitherSide = iota
	eitherRight
)

// Either is the tagged-union container (spec.md §3): arity 1, wrapping
// either a left or a right value, the wrapped value "tagged with side".
type Either[L, R any] struct {
	side  eitherSide
	left  L
	right R
}

// LeftOf builds an Either holding a left value.
func LeftOf[L, R any](v L) Either[L, R] { return Either[L, R]{side: eitherLeft, left: v} }

// RightOf builds an Either holding a right value.
func RightOf[L, R any](v R) Either[L, R] { return Either[L, R]{side: eitherRight, right: v} }

// IsLeft reports whether e holds a left value.
func (e Either[L, R]) IsLeft() bool { return e.side == eitherLeft }

// Left returns the left value and true, if e holds one.
func (e Either[L, R]) Left() (L, bool) {
	if e.side == eitherLeft {
		return e.left, true
	}
	var zero L
	return zero, false
}

// Right returns the right value and true, if e holds one.
func (e Either[L, R]) Right() (R, bool) {
	if e.side == eitherRight {
		return e.right, true
	}
	var zero R
	return zero, false
}

func (e Either[L, R]) Arity() int { return 1 }

func (e Either[L, R]) Deconstruct() []any {
	if e.side == eitherLeft {
		return []any{e.left}
	}
	return []any{e.right}
}

func (e Either[L, R]) Reconstruct(children []any) (any, error) {
	if len(children) != 1 {
		return nil, &IllegalArgsError{Shape: e, Expected: 1, Supplied: len(children)}
	}
	if e.side == eitherLeft {
		v, ok := children[0].(L)
		if !ok {
			return nil, &IllegalArgsError{Shape: e, Expected: 1, Supplied: 1}
		}
		return Either[L, R]{side: eitherLeft, left: v}, nil
	}
	v, ok := children[0].(R)
	if !ok {
		return nil, &IllegalArgsError{Shape: e, Expected: 1, Supplied: 1}
	}
	return Either[L, R]{side: eitherRight, right: v}, nil
}

// --- Triple: fixed tuple container shape --------------------------------

// Triple is the 3-tuple container shape, supplementing Pair for the
// arity-3 case (spec.md §3's "tuples" container).
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

func (t Triple[A, B, C]) Arity() int { return 3 }

func (t Triple[A, B, C]) Deconstruct() []any { return []any{t.First, t.Second, t.Third} }

func (t Triple[A, B, C]) Reconstruct(children []any) (any, error) {
	if len(children) != 3 {
		return nil, &IllegalArgsError{Shape: t, Expected: 3, Supplied: len(children)}
	}
	a, ok1 := children[0].(A)
	b, ok2 := children[1].(B)
	c, ok3 := children[2].(C)
	if !ok1 || !ok2 || !ok3 {
		return nil, &IllegalArgsError{Shape: t, Expected: 3, Supplied: 3}
	}
	return Triple[A, B, C]{First: a, Second: b, Third: c}, nil
}
