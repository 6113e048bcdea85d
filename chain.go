// Copyright 2024 The Kiama Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license that can be
// found in the LICENSE file.

package kiama

// ChainUpdate is a user-supplied partial override for a chain decorator's
// in or out value (spec.md §4.3.6): given the chain itself (so it can
// consult in/out at other nodes) and the node in question, it either
// returns the overriding value with ok true, or ok false to fall through
// to the chain's default top-down/bottom-up propagation rule.
type ChainUpdate[T any] func(c *Chain[T], n any) (T, bool)

// Chain is the "chain" decorator (spec.md §4.3.6): two mutually defined
// tree attributes, in and out, that propagate a value top-down then
// bottom-up around a Tree — the basis of classical data-flow attributes
// (reaching definitions, liveness, and similar). Default propagation:
//
//	in(n)  = out(previous sibling of n), or in(parent(n)) if n is first
//	out(n) = out(last child of n), or in(n) if n is a leaf
//
// An installed ChainUpdate may override either rule at specific nodes,
// which is how a chain expresses data flow that doesn't simply follow tree
// structure (e.g. a goto target, or an exception handler's edge).
// Querying in or out at the root with no overriding update raises
// ChainRootReachedError, since the default rule for in(root) has nothing
// to propagate from.
//
// in and out are built on CircularAttribute (circular_attribute.go) rather
// than plain cached attributes: a ChainUpdate is free to consult the
// chain's own in/out at an unrelated node, so the dependency graph is not
// guaranteed to be a strict structural decrease, and the Magnusson-Hedin
// fixed-point machinery is what makes that safe.
type Chain[T any] struct {
	name string
	tree *Tree

	in  *CircularAttribute[T]
	out *CircularAttribute[T]

	inUpdate  ChainUpdate[T]
	outUpdate ChainUpdate[T]
}

// NewChain builds a chain decorator over tree. zero is the bottom value
// used for a node before the fixed point has produced a real one.
// inUpdate and outUpdate may be nil to use only the default propagation
// rule.
func NewChain[T any](name string, tree *Tree, zero T, inUpdate, outUpdate ChainUpdate[T]) *Chain[T] {
	c := &Chain[T]{name: name, tree: tree, inUpdate: inUpdate, outUpdate: outUpdate}
	c.in = NewCircularAttribute(name+".in", zero, c.defaultIn)
	c.out = NewCircularAttribute(name+".out", zero, c.defaultOut)
	Circularly(c.in, c.out)
	return c
}

// Name returns the chain's diagnostic name.
func (c *Chain[T]) Name() string { return c.name }

// In returns the chain's in value at n.
func (c *Chain[T]) In(n any) T { return c.in.Get(n) }

// Out returns the chain's out value at n.
func (c *Chain[T]) Out(n any) T { return c.out.Get(n) }

// Reset empties both of the chain's attribute memo tables, forcing the
// next In/Out to recompute the fixed point from bottom.
func (c *Chain[T]) Reset() {
	c.in.Reset()
	c.out.Reset()
}

// ResetIn empties only the chain's in memo table; Out values already
// computed are left in place (a later In query still visits Out through
// the shared fixed-point group, so it stays correct, just re-derived).
func (c *Chain[T]) ResetIn() { c.in.Reset() }

// ResetOut empties only the chain's out memo table.
func (c *Chain[T]) ResetOut() { c.out.Reset() }

// InHasBeenComputedAt reports whether In already holds a stable value at n.
func (c *Chain[T]) InHasBeenComputedAt(n any) bool { return c.in.HasBeenComputedAt(n) }

// OutHasBeenComputedAt reports whether Out already holds a stable value
// at n.
func (c *Chain[T]) OutHasBeenComputedAt(n any) bool { return c.out.HasBeenComputedAt(n) }

func (c *Chain[T]) defaultIn(n any) T {
	if c.inUpdate != nil {
		if v, ok := c.inUpdate(c, n); ok {
			return v
		}
	}
	isRoot, err := c.tree.IsRoot(n)
	if err != nil {
		panic(err)
	}
	if isRoot {
		panic(&ChainRootReachedError{Chain: c.name, Node: n})
	}
	if prev, hasPrev, err := c.tree.Prev(n); err != nil {
		panic(err)
	} else if hasPrev {
		return c.out.Get(prev)
	}
	parent, _, err := c.tree.Parent(n)
	if err != nil {
		panic(err)
	}
	return c.in.Get(parent)
}

func (c *Chain[T]) defaultOut(n any) T {
	if c.outUpdate != nil {
		if v, ok := c.outUpdate(c, n); ok {
			return v
		}
	}
	last, hasChildren, err := c.tree.LastChild(n)
	if err != nil {
		panic(err)
	}
	if hasChildren {
		return c.out.Get(last)
	}
	return c.in.Get(n)
}
