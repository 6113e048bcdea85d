// Copyright 2024 The Kiama Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license that can be
// found in the LICENSE file.

package kiama

import "github.com/kiamalang/kiama/internal/idtable"

// Attribute is a cached, total function from a node to a value of type T
// (spec.md §4.3.1): the first Get at a node computes and memoises the
// result; every later Get at the *same* node occurrence (by identity, not
// value) returns the cached value without recomputation.
//
// A cached attribute's defining function must not transitively call Get
// on the same attribute at the same node while that evaluation is still
// in progress; doing so panics with a *CycleError, since a well-formed
// (non-circular) attribute grammar should never need it. Attributes that
// legitimately recurse through themselves belong in CircularAttribute
// instead.
type Attribute[T any] struct {
	name string
	fn   func(n any) T
	memo *idtable.Table[T]
}

// NewAttribute builds a cached attribute named name from its defining
// equation f. The name is used only for diagnostics (CycleError.Error).
func NewAttribute[T any](name string, f func(n any) T) *Attribute[T] {
	return &Attribute[T]{name: name, fn: f, memo: idtable.New[T]()}
}

// Name returns the attribute's diagnostic name.
func (a *Attribute[T]) Name() string { return a.name }

// Get evaluates a at n, consulting and populating the memo table. If a
// CycleError (or any other panic from fn) escapes, the in-progress marker
// set for n is removed first, per spec.md §7's "user function raised"
// policy: a caller that recovers must be able to retry n, or query other
// nodes sharing this attribute instance, without every later Get on n
// wrongly reporting a cycle that is no longer in progress.
func (a *Attribute[T]) Get(n any) T {
	if e, ok := a.memo.Get(n); ok {
		switch e.State {
		case idtable.Computed:
			return e.Value
		case idtable.InProgress:
			panic(&CycleError{AttributeName: a.name, Node: n})
		}
	}
	a.memo.Set(n, idtable.Entry[T]{State: idtable.InProgress})
	computed := false
	defer func() {
		if !computed {
			a.memo.Delete(n)
		}
	}()
	v := a.fn(n)
	a.memo.Set(n, idtable.Entry[T]{State: idtable.Computed, Value: v})
	computed = true
	return v
}

// Reset empties a's memo table, forcing every node to be recomputed on
// its next Get.
func (a *Attribute[T]) Reset() { a.memo.Reset() }

// HasBeenComputedAt reports whether a already holds a fully computed
// value for n, without triggering evaluation.
func (a *Attribute[T]) HasBeenComputedAt(n any) bool {
	e, ok := a.memo.Get(n)
	return ok && e.State == idtable.Computed
}

// paramKey is the memo-table key for a ParamAttribute: combining the
// subject node with a comparable parameter value. Embedding n directly
// (rather than pre-deriving its identity key) is safe because idtable
// re-derives identity for whatever key it is given, and a struct composed
// of an interface field and a comparable P is itself classified correctly
// by internal/idkey — comparable when n's dynamic value is, value-equal
// (via DeepEqual) otherwise.
type paramKey[P comparable] struct {
	node  any
	param P
}

// ParamAttribute is a cached attribute parameterised by an extra,
// comparable argument (spec.md §4.3.1's parameterised attributes): Get(n,
// p) is memoised per (node, p) pair independently.
type ParamAttribute[P comparable, T any] struct {
	name string
	fn   func(n any, p P) T
	memo *idtable.Table[T]
}

// NewParamAttribute builds a parameterised cached attribute.
func NewParamAttribute[P comparable, T any](name string, f func(n any, p P) T) *ParamAttribute[P, T] {
	return &ParamAttribute[P, T]{name: name, fn: f, memo: idtable.New[T]()}
}

// Name returns the attribute's diagnostic name.
func (a *ParamAttribute[P, T]) Name() string { return a.name }

// Get evaluates a at (n, p), consulting and populating the memo table.
// See [Attribute.Get] on why a panic removes the in-progress marker
// instead of leaving it set.
func (a *ParamAttribute[P, T]) Get(n any, p P) T {
	key := paramKey[P]{node: n, param: p}
	if e, ok := a.memo.Get(key); ok {
		switch e.State {
		case idtable.Computed:
			return e.Value
		case idtable.InProgress:
			panic(&CycleError{AttributeName: a.name, Node: n})
		}
	}
	a.memo.Set(key, idtable.Entry[T]{State: idtable.InProgress})
	computed := false
	defer func() {
		if !computed {
			a.memo.Delete(key)
		}
	}()
	v := a.fn(n, p)
	a.memo.Set(key, idtable.Entry[T]{State: idtable.Computed, Value: v})
	computed = true
	return v
}

// Reset empties a's memo table.
func (a *ParamAttribute[P, T]) Reset() { a.memo.Reset() }

// HasBeenComputedAt reports whether a already holds a fully computed
// value for (n, p).
func (a *ParamAttribute[P, T]) HasBeenComputedAt(n any, p P) bool {
	e, ok := a.memo.Get(paramKey[P]{node: n, param: p})
	return ok && e.State == idtable.Computed
}
