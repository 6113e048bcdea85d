// Copyright 2024 The Kiama Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license that can be
// found in the LICENSE file.

package kiama

import "github.com/kiamalang/kiama/internal/idtable"

// DynamicAttribute is a cached attribute whose defining equation can be
// overridden at runtime by a stack of caller-installed partial functions
// (spec.md §4.3.2): Get consults the override stack from most to least
// recently installed, falling back to the base equation when none
// matches the node.
//
// This is the analysis-tool idiom of temporarily rebinding an attribute's
// meaning within a lexical scope — e.g. to answer "what would this
// node's type be if variable x were declared Int here" without mutating
// the tree.
type DynamicAttribute[T any] struct {
	name      string
	base      func(n any) T
	overrides []func(n any) (T, bool)
	memo      *idtable.Table[T]
}

// NewDynamicAttribute builds a dynamic attribute from its base equation.
func NewDynamicAttribute[T any](name string, base func(n any) T) *DynamicAttribute[T] {
	return &DynamicAttribute[T]{name: name, base: base, memo: idtable.New[T]()}
}

// Name returns the attribute's diagnostic name.
func (a *DynamicAttribute[T]) Name() string { return a.name }

// Prepend installs f as the new most-recently-tried override and
// invalidates every cached value, since an override can change what Get
// returns at any node. It returns a token that Remove uses to pop exactly
// this override; overrides must be removed in stack (LIFO) order.
func (a *DynamicAttribute[T]) Prepend(f func(n any) (T, bool)) int {
	a.overrides = append(a.overrides, f)
	a.memo.Reset()
	return len(a.overrides) - 1
}

// Remove removes the override installed at token, which must be the
// top of the override stack.
func (a *DynamicAttribute[T]) Remove(token int) {
	if token != len(a.overrides)-1 {
		panic("kiama: DynamicAttribute.Remove called out of stack order")
	}
	a.overrides = a.overrides[:token]
	a.memo.Reset()
}

// Block installs f for the duration of body, removing it again
// unconditionally afterward (even if body panics), implementing the
// scoped dynamic-attribute idiom from spec.md §4.3.2.
func (a *DynamicAttribute[T]) Block(f func(n any) (T, bool), body func()) {
	token := a.Prepend(f)
	defer a.Remove(token)
	body()
}

// Get evaluates a at n: the most recently installed override that
// matches n, or the base equation if none does. Like [Attribute.Get], a
// base or override function that transitively calls back into a.Get(n)
// for the same n panics with a *CycleError instead of recursing forever
// (spec.md §4.3.3), and a panic deletes the in-progress marker first so a
// caller that recovers can retry n or query other nodes cleanly.
func (a *DynamicAttribute[T]) Get(n any) T {
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
	for i := len(a.overrides) - 1; i >= 0; i-- {
		if v, ok := a.overrides[i](n); ok {
			a.memo.Set(n, idtable.Entry[T]{State: idtable.Computed, Value: v})
			computed = true
			return v
		}
	}
	v := a.base(n)
	a.memo.Set(n, idtable.Entry[T]{State: idtable.Computed, Value: v})
	computed = true
	return v
}

// Reset empties a's memo table, independent of the override stack.
func (a *DynamicAttribute[T]) Reset() { a.memo.Reset() }
