// Copyright 2024 The Kiama Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license that can be
// found in the LICENSE file.

package kiama

import (
	"iter"

	"github.com/kiamalang/kiama/internal/idtable"
	"github.com/kiamalang/kiama/internal/iterutil"
)

// RootIndex is the out-of-band index Tree.Index reports for the root,
// which has no position among siblings (spec.md §4.3.5).
const RootIndex = -1

type treeInfo struct {
	parent   any
	hasParent bool
	index    int
	siblings []any
}

// Tree is a precomputed structural index over a Rewritable term, built
// once by NewTree's initialise pass (spec.md §4.3.5): it answers
// parent/child/sibling/index queries without re-walking the term on every
// call. Like fox's own Tree (a precomputed radix index over a mutable byte
// structure), a Tree is a snapshot — mutating the underlying term shapes
// after construction does not update it; build a new Tree instead.
//
// A Tree is not safe for concurrent use (spec.md §5).
type Tree struct {
	root  any
	nodes *idtable.Table[treeInfo]
}

// NewTree builds a Tree by visiting every node reachable from root via
// Deconstruct. Two occurrences of a Same-identical reference node are
// recorded as one occurrence: only the first-visited parent/index is kept,
// per DESIGN.md's Open Question 1 resolution. A second, Same-distinct (but
// value-equal) node at another position is its own occurrence.
func NewTree(root any) *Tree {
	tr := &Tree{root: root, nodes: idtable.New[treeInfo]()}
	tr.visit(root, nil, false, RootIndex, []any{root})
	return tr
}

func (tr *Tree) visit(n, parent any, hasParent bool, index int, siblings []any) {
	if _, already := tr.nodes.Get(n); already {
		return
	}
	tr.nodes.Set(n, idtable.Entry[treeInfo]{
		State: idtable.Computed,
		Value: treeInfo{parent: parent, hasParent: hasParent, index: index, siblings: siblings},
	})
	children, ok := Deconstruct(n)
	if !ok {
		return
	}
	for i, c := range children {
		tr.visit(c, n, true, i, children)
	}
}

func (tr *Tree) info(n any) (treeInfo, error) {
	e, ok := tr.nodes.Get(n)
	if !ok {
		return treeInfo{}, &NodeNotInTreeError{Node: n}
	}
	return e.Value, nil
}

// Root returns the node NewTree was built from.
func (tr *Tree) Root() any { return tr.root }

// IsRoot reports whether n is this tree's root.
func (tr *Tree) IsRoot(n any) (bool, error) {
	info, err := tr.info(n)
	if err != nil {
		return false, err
	}
	return !info.hasParent, nil
}

// IsLeaf reports whether n has no children (arity(n) == 0).
func (tr *Tree) IsLeaf(n any) (bool, error) {
	if _, err := tr.info(n); err != nil {
		return false, err
	}
	return Arity(n) == 0, nil
}

// Parent returns n's parent, and false if n is the root.
func (tr *Tree) Parent(n any) (any, bool, error) {
	info, err := tr.info(n)
	if err != nil {
		return nil, false, err
	}
	return info.parent, info.hasParent, nil
}

// Index returns n's position among its siblings, or the out-of-band
// sentinel RootIndex (-1) if n is the root.
func (tr *Tree) Index(n any) (int, error) {
	info, err := tr.info(n)
	if err != nil {
		return 0, err
	}
	return info.index, nil
}

// Siblings returns the ordered list of n's siblings, including n itself.
// The root's siblings is the single-element slice containing only the
// root.
func (tr *Tree) Siblings(n any) ([]any, error) {
	info, err := tr.info(n)
	if err != nil {
		return nil, err
	}
	return info.siblings, nil
}

// SiblingsSeq is the iterator form of Siblings.
func (tr *Tree) SiblingsSeq(n any) (iter.Seq[any], error) {
	siblings, err := tr.Siblings(n)
	if err != nil {
		return nil, err
	}
	return iterutil.SeqOf(siblings...), nil
}

// IsFirst reports whether n is the first of its siblings. The root is
// neither first nor last: it has no siblings other than itself.
func (tr *Tree) IsFirst(n any) (bool, error) {
	info, err := tr.info(n)
	if err != nil {
		return false, err
	}
	return info.hasParent && info.index == 0, nil
}

// IsLast reports whether n is the last of its siblings.
func (tr *Tree) IsLast(n any) (bool, error) {
	info, err := tr.info(n)
	if err != nil {
		return false, err
	}
	return info.hasParent && info.index == len(info.siblings)-1, nil
}

// Next returns the sibling immediately after n, and false if n is last (or
// is the root, which has no siblings other than itself).
func (tr *Tree) Next(n any) (any, bool, error) {
	info, err := tr.info(n)
	if err != nil {
		return nil, false, err
	}
	if !info.hasParent || info.index+1 >= len(info.siblings) {
		return nil, false, nil
	}
	return info.siblings[info.index+1], true, nil
}

// Prev returns the sibling immediately before n, and false if n is first
// (or is the root).
func (tr *Tree) Prev(n any) (any, bool, error) {
	info, err := tr.info(n)
	if err != nil {
		return nil, false, err
	}
	if !info.hasParent || info.index == 0 {
		return nil, false, nil
	}
	return info.siblings[info.index-1], true, nil
}

// Children returns n's ordered children, which is empty for a leaf.
func (tr *Tree) Children(n any) ([]any, error) {
	if _, err := tr.info(n); err != nil {
		return nil, err
	}
	children, _ := Deconstruct(n)
	return children, nil
}

// ChildrenSeq is the iterator form of Children.
func (tr *Tree) ChildrenSeq(n any) (iter.Seq[any], error) {
	children, err := tr.Children(n)
	if err != nil {
		return nil, err
	}
	return iterutil.SeqOf(children...), nil
}

// Child returns n's i'th child (0-based).
func (tr *Tree) Child(n any, i int) (any, bool, error) {
	children, err := tr.Children(n)
	if err != nil {
		return nil, false, err
	}
	if i < 0 || i >= len(children) {
		return nil, false, nil
	}
	return children[i], true, nil
}

// FirstChild returns n's first child, and false if n is a leaf.
func (tr *Tree) FirstChild(n any) (any, bool, error) {
	return tr.Child(n, 0)
}

// LastChild returns n's last child, and false if n is a leaf.
func (tr *Tree) LastChild(n any) (any, bool, error) {
	children, err := tr.Children(n)
	if err != nil {
		return nil, false, err
	}
	if len(children) == 0 {
		return nil, false, nil
	}
	return children[len(children)-1], true, nil
}
