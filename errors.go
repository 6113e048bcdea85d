// Copyright 2024 The Kiama Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license that can be
// found in the LICENSE file.

package kiama

import (
	"fmt"
	"log/slog"
)

// Sentinel errors for errors.Is matching, per the error kinds in spec.md §7.
var (
	ErrCycle            = fmt.Errorf("cycle detected")
	ErrNodeNotInTree    = fmt.Errorf("node not in tree")
	ErrIllegalArgs      = fmt.Errorf("illegal reconstruction arguments")
	ErrChainRootReached = fmt.Errorf("chain root reached")
)

// CycleError is raised when an attribute's defining function transitively
// requests the same attribute at the same node (spec.md §4.3.1, §7).
type CycleError struct {
	AttributeName string
	Node          any
}

func (e *CycleError) Error() string {
	name := e.AttributeName
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("cycle detected in attribute %s at node %#v", name, e.Node)
}

// Unwrap returns the sentinel value [ErrCycle].
func (e *CycleError) Unwrap() error { return ErrCycle }

// LogValue renders the error as a structured slog group.
func (e *CycleError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("attribute", e.AttributeName),
		slog.Any("node", e.Node),
	)
}

// NodeNotInTreeError is raised when a structural attribute is queried on a
// node that was not reachable from the tree's root during initialise
// (spec.md §3, §4.3.5, §7).
type NodeNotInTreeError struct {
	Node any
}

func (e *NodeNotInTreeError) Error() string {
	return fmt.Sprintf("node not in tree: %#v", e.Node)
}

// Unwrap returns the sentinel value [ErrNodeNotInTree].
func (e *NodeNotInTreeError) Unwrap() error { return ErrNodeNotInTree }

func (e *NodeNotInTreeError) LogValue() slog.Value {
	return slog.GroupValue(slog.Any("node", e.Node))
}

// IllegalArgsError is raised when children supplied to Reconstruct violate
// arity or per-position compatibility (spec.md §4.1, §7).
type IllegalArgsError struct {
	// Shape is the term whose Reconstruct rejected the children (carries
	// the expected constructor/shape).
	Shape any
	// Expected and Supplied are the arities involved in the mismatch. When
	// the failure is a per-position type mismatch rather than a raw count
	// mismatch, Expected == Supplied and the message says so.
	Expected, Supplied int
}

func (e *IllegalArgsError) Error() string {
	if e.Expected != e.Supplied {
		return fmt.Sprintf("illegal reconstruction of %#v: expected %d children, got %d", e.Shape, e.Expected, e.Supplied)
	}
	return fmt.Sprintf("illegal reconstruction of %#v: child has incompatible type", e.Shape)
}

// Unwrap returns the sentinel value [ErrIllegalArgs].
func (e *IllegalArgsError) Unwrap() error { return ErrIllegalArgs }

// ChainRootReachedError is raised when a chain decorator's in/out is
// evaluated at the tree root without an overriding update function
// (spec.md §4.3.6, §7).
type ChainRootReachedError struct {
	Chain string
	Node  any
}

func (e *ChainRootReachedError) Error() string {
	return fmt.Sprintf("chain %s reached root at node %#v with no override", e.Chain, e.Node)
}

// Unwrap returns the sentinel value [ErrChainRootReached].
func (e *ChainRootReachedError) Unwrap() error { return ErrChainRootReached }

func (e *ChainRootReachedError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("chain", e.Chain),
		slog.Any("node", e.Node),
	)
}
