// Copyright 2024 The Kiama Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license that can be
// found in the LICENSE file.

package kiama

import (
	"reflect"

	"github.com/kiamalang/kiama/internal/idtable"
)

// circularGroup coordinates the Magnusson-Hedin fixed-point rounds shared
// by one or more mutually-recursive circular attributes (spec.md §4.3.3's
// in/out dataflow example): every attribute in a group runs its round in
// the same outer iteration, since a value change in one can require
// re-evaluating the other. Resolved per DESIGN.md's Open Question
// decision: circular-attribute state is instance-local, with explicit
// grouping via Circularly for attributes that must converge together.
type circularGroup struct {
	active  bool
	changed bool
	runners []func()
}

// CircularAttribute is an attribute whose defining equation may call Get
// on itself (directly, or transitively through another attribute in its
// group) at the same or a different node, without causing infinite
// recursion (spec.md §4.3.3). A nested call made while a round is already
// in progress returns the current best approximation — bottom the first
// time a node is visited — rather than recursing; Get drives repeated
// rounds over every node visited this way until no attribute in the group
// changes, then returns the now-stable value.
type CircularAttribute[T any] struct {
	name   string
	eq     func(n any) T
	bottom T
	equal  func(x, y T) bool
	memo   *idtable.Table[T]
	order  []any
	group  *circularGroup
}

// NewCircularAttribute builds a circular attribute: bottom is the value
// used for a node before any round has computed one (e.g. the empty set
// for a liveness analysis), and eq is the (possibly mutually recursive)
// defining equation. The attribute starts in a singleton group of its
// own; use Circularly to group it with others that must converge
// together.
func NewCircularAttribute[T any](name string, bottom T, eq func(n any) T) *CircularAttribute[T] {
	a := &CircularAttribute[T]{name: name, eq: eq, bottom: bottom, memo: idtable.New[T]()}
	Circularly(a)
	return a
}

// Name returns the attribute's diagnostic name.
func (a *CircularAttribute[T]) Name() string { return a.name }

// WithEqual overrides the value-equality test used to detect that the
// fixed point has stabilised (default: T's Equal method if it implements
// one, else reflect.DeepEqual). It returns a for chaining.
func (a *CircularAttribute[T]) WithEqual(eq func(x, y T) bool) *CircularAttribute[T] {
	a.equal = eq
	return a
}

func (a *CircularAttribute[T]) valueEqual(x, y T) bool {
	if a.equal != nil {
		return a.equal(x, y)
	}
	if e, ok := any(x).(equaler); ok {
		return e.Equal(y)
	}
	return reflect.DeepEqual(x, y)
}

// Circularly groups attrs so that a single Magnusson-Hedin session
// iterates all of them together until none changes, rather than each
// converging independently. Passing a single attribute puts it in a
// singleton group (its default state); NewCircularAttribute does this
// automatically.
func Circularly[T any](attrs ...*CircularAttribute[T]) {
	g := &circularGroup{}
	for _, a := range attrs {
		g.runners = append(g.runners, a.runRound)
	}
	for _, a := range attrs {
		a.group = g
	}
}

// Get evaluates a at n, driving a shared fixed-point computation across
// a's group if one is not already in progress.
func (a *CircularAttribute[T]) Get(n any) T {
	if !a.group.active {
		if e, ok := a.memo.Get(n); ok && e.State == idtable.Computed {
			return e.Value
		}
		return a.drive(n)
	}
	if e, ok := a.memo.Get(n); ok {
		return e.Value
	}
	a.visit(n)
	return a.bottom
}

// visit records a node as newly part of this fixed-point session. It
// always flags the group as changed: a node discovered mid-round has
// only ever been assigned bottom, never run through eq, so the round
// that discovers it cannot be the last one even if every *value*
// comparison that round happens to report no change.
func (a *CircularAttribute[T]) visit(n any) {
	a.memo.Set(n, idtable.Entry[T]{State: idtable.InProgress, Value: a.bottom})
	a.order = append(a.order, n)
	a.group.changed = true
}

// drive runs rounds until the group stabilises. The deferred reset covers
// spec.md §7's "user function raised" policy: if a's eq (or another
// attribute's, via the shared group) panics, the active flag must not be
// left set, or every later top-level Get on this group would wrongly
// believe a round is already in progress and return bottom forever.
func (a *CircularAttribute[T]) drive(n any) T {
	a.group.active = true
	defer func() { a.group.active = false }()
	if _, ok := a.memo.Get(n); !ok {
		a.visit(n)
	}
	for {
		a.group.changed = false
		for _, run := range a.group.runners {
			run()
		}
		if !a.group.changed {
			break
		}
	}
	e, _ := a.memo.Get(n)
	return e.Value
}

// runRound recomputes eq at every node this attribute has visited so far
// this session, recording whether any of them changed.
func (a *CircularAttribute[T]) runRound() {
	for _, node := range a.order {
		old, _ := a.memo.Get(node)
		newVal := a.eq(node)
		if !a.valueEqual(old.Value, newVal) {
			a.group.changed = true
		}
		a.memo.Set(node, idtable.Entry[T]{State: idtable.Computed, Value: newVal})
	}
}

// Reset empties a's memo table and visitation history, forcing the next
// Get to recompute the fixed point from bottom.
func (a *CircularAttribute[T]) Reset() {
	a.memo.Reset()
	a.order = nil
}

// HasBeenComputedAt reports whether a already holds a fully computed
// (stable, post-fixed-point) value for n.
func (a *CircularAttribute[T]) HasBeenComputedAt(n any) bool {
	e, ok := a.memo.Get(n)
	return ok && e.State == idtable.Computed && !a.group.active
}
