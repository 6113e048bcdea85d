// Copyright 2024 The Kiama Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license that can be
// found in the LICENSE file.

package kiama

import (
	"fmt"
	"log/slog"
)

// Engine hosts the configuration shared by the one-level traversal
// primitives (All, One, Some, Child, Congruence) and everything built on
// top of them: an optional rewriting(old, new) callback fired on every
// successful node reconstruction (spec.md §6's "observability hook for
// tooling that wants to trace every rewrite"), and a logger returned by
// [Engine.Logger]. Log/LogFail/Debug do not read the engine's logger.
//
// The zero value is a usable Engine with no callback and slog.Default()
// as its logger; defaultEngine is exactly that, and every package-level
// traversal function below is a thin wrapper around a defaultEngine
// method.
type Engine struct {
	rewriting func(old, rewritten any)
	logger    *slog.Logger
}

// EngineOption configures an Engine built by NewEngine.
type EngineOption func(*Engine)

// WithRewriteCallback installs a callback invoked with (old, new) every
// time a traversal primitive successfully reconstructs a node.
func WithRewriteCallback(f func(old, rewritten any)) EngineOption {
	return func(e *Engine) { e.rewriting = f }
}

// WithLogger sets the logger returned by [Engine.Logger]. It is not a
// fallback for Log/LogFail/Debug: a nil logger passed to them uses
// slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine builds an Engine from the given options.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) notify(old, rewritten any) {
	if e != nil && e.rewriting != nil {
		e.rewriting(old, rewritten)
	}
}

// Logger returns e's configured logger, or slog.Default() if e is nil or
// has none configured.
func (e *Engine) Logger() *slog.Logger {
	if e != nil && e.logger != nil {
		return e.logger
	}
	return slog.Default()
}

var defaultEngine = NewEngine()

// --- one-level traversal primitives (spec.md §4.2) ----------------------

// All succeeds iff s succeeds at every immediate child of the input,
// rebuilding the node from the results. A 0-arity node trivially succeeds,
// returning itself unchanged.
func (e *Engine) All(s Strategy) Strategy {
	return named(fmt.Sprintf("all(%s)", s), func(t any) (any, bool) {
		children, ok := Deconstruct(t)
		if !ok || len(children) == 0 {
			return t, true
		}
		rebuilt := make([]any, len(children))
		for i, c := range children {
			r, ok := s.Apply(c)
			if !ok {
				return nil, false
			}
			rebuilt[i] = r
		}
		newTerm, err := Reconstruct(t, rebuilt)
		if err != nil {
			return nil, false
		}
		e.notify(t, newTerm)
		return newTerm, true
	})
}

// One succeeds iff s succeeds at some immediate child, trying children
// left to right and rebuilding with the first success in place (later
// children are not tried); it fails if s fails at every child (or the
// node has none).
func (e *Engine) One(s Strategy) Strategy {
	return named(fmt.Sprintf("one(%s)", s), func(t any) (any, bool) {
		children, ok := Deconstruct(t)
		if !ok || len(children) == 0 {
			return nil, false
		}
		for i, c := range children {
			r, ok := s.Apply(c)
			if !ok {
				continue
			}
			rebuilt := append([]any(nil), children...)
			rebuilt[i] = r
			newTerm, err := Reconstruct(t, rebuilt)
			if err != nil {
				return nil, false
			}
			e.notify(t, newTerm)
			return newTerm, true
		}
		return nil, false
	})
}

// Some succeeds iff s succeeds at one or more immediate children,
// rebuilding with s's results where it succeeded and the original
// children where it did not; it fails only if s fails at every child.
func (e *Engine) Some(s Strategy) Strategy {
	return named(fmt.Sprintf("some(%s)", s), func(t any) (any, bool) {
		children, ok := Deconstruct(t)
		if !ok || len(children) == 0 {
			return nil, false
		}
		rebuilt := make([]any, len(children))
		succeeded := false
		for i, c := range children {
			if r, ok := s.Apply(c); ok {
				rebuilt[i] = r
				succeeded = true
			} else {
				rebuilt[i] = c
			}
		}
		if !succeeded {
			return nil, false
		}
		newTerm, err := Reconstruct(t, rebuilt)
		if err != nil {
			return nil, false
		}
		e.notify(t, newTerm)
		return newTerm, true
	})
}

// Child applies s only to the i-th immediate child (0-based), rebuilding
// the node with that child replaced. It fails if i is out of range or s
// fails.
func (e *Engine) Child(i int, s Strategy) Strategy {
	return named(fmt.Sprintf("child(%d,%s)", i, s), func(t any) (any, bool) {
		children, ok := Deconstruct(t)
		if !ok || i < 0 || i >= len(children) {
			return nil, false
		}
		r, ok := s.Apply(children[i])
		if !ok {
			return nil, false
		}
		rebuilt := append([]any(nil), children...)
		rebuilt[i] = r
		newTerm, err := Reconstruct(t, rebuilt)
		if err != nil {
			return nil, false
		}
		e.notify(t, newTerm)
		return newTerm, true
	})
}

// Congruence applies ss[i] to child i positionally; it succeeds only if
// the node's arity matches len(ss) and every positional strategy
// succeeds.
func (e *Engine) Congruence(ss ...Strategy) Strategy {
	return named("congruence", func(t any) (any, bool) {
		children, ok := Deconstruct(t)
		if !ok || len(children) != len(ss) {
			return nil, false
		}
		rebuilt := make([]any, len(children))
		for i, c := range children {
			r, ok := ss[i].Apply(c)
			if !ok {
				return nil, false
			}
			rebuilt[i] = r
		}
		newTerm, err := Reconstruct(t, rebuilt)
		if err != nil {
			return nil, false
		}
		e.notify(t, newTerm)
		return newTerm, true
	})
}

// Package-level wrappers over defaultEngine, for callers who don't need a
// custom rewriting callback or logger.
func All(s Strategy) Strategy                { return defaultEngine.All(s) }
func One(s Strategy) Strategy                { return defaultEngine.One(s) }
func Some(s Strategy) Strategy               { return defaultEngine.Some(s) }
func Child(i int, s Strategy) Strategy       { return defaultEngine.Child(i, s) }
func Congruence(ss ...Strategy) Strategy     { return defaultEngine.Congruence(ss...) }

// --- stoppable recursion (the *S variants, spec.md §4.2) ----------------

// stoppable builds an S-variant of a recursive single-argument tree
// traversal: at any node where stop succeeds, recursion halts and base is
// applied there instead of descending via unstoppable. Every *S combinator
// below is this shape with a different base/unstoppable pairing.
func stoppable(name string, base Strategy, unstoppable func(self Strategy) Strategy, stop Strategy) Strategy {
	var self Strategy
	self = named(name, func(t any) (any, bool) {
		if _, halt := stop.Apply(t); halt {
			return base.Apply(t)
		}
		return unstoppable(self).Apply(t)
	})
	return self
}

// --- derived full-tree traversals (spec.md §4.2) ------------------------

// TopDown applies s at a node, then recurses into all of its children.
// It fails as soon as s fails anywhere it is tried.
func (e *Engine) TopDown(s Strategy) Strategy {
	var self Strategy
	self = named(fmt.Sprintf("topdown(%s)", s), func(t any) (any, bool) {
		return Then(s, e.All(self)).Apply(t)
	})
	return self
}

// TopDownS is TopDown, except recursion halts beneath any node where stop
// succeeds: s still runs at that node, but its children are left alone.
func (e *Engine) TopDownS(s, stop Strategy) Strategy {
	return stoppable(fmt.Sprintf("topdownS(%s)", s), s, func(self Strategy) Strategy {
		return Then(s, e.All(self))
	}, stop)
}

// BottomUp recurses into all of a node's children first, then applies s.
func (e *Engine) BottomUp(s Strategy) Strategy {
	var self Strategy
	self = named(fmt.Sprintf("bottomup(%s)", s), func(t any) (any, bool) {
		return Then(e.All(self), s).Apply(t)
	})
	return self
}

// BottomUpS is BottomUp, except recursion halts beneath any node where
// stop succeeds: its children are left alone and s runs directly on it.
func (e *Engine) BottomUpS(s, stop Strategy) Strategy {
	return stoppable(fmt.Sprintf("bottomupS(%s)", s), s, func(self Strategy) Strategy {
		return Then(e.All(self), s)
	}, stop)
}

// OnceTD applies s at the first node (in pre-order) where it succeeds,
// searching top-down; it fails if s fails everywhere.
func (e *Engine) OnceTD(s Strategy) Strategy {
	var self Strategy
	self = named(fmt.Sprintf("oncetd(%s)", s), func(t any) (any, bool) {
		return Or(s, e.One(self)).Apply(t)
	})
	return self
}

// OnceTDS is OnceTD, not descending beneath any node where stop succeeds.
func (e *Engine) OnceTDS(s, stop Strategy) Strategy {
	return stoppable(fmt.Sprintf("oncetdS(%s)", s), s, func(self Strategy) Strategy {
		return Or(s, e.One(self))
	}, stop)
}

// OnceBU is OnceTD searching bottom-up instead.
func (e *Engine) OnceBU(s Strategy) Strategy {
	var self Strategy
	self = named(fmt.Sprintf("oncebu(%s)", s), func(t any) (any, bool) {
		return Or(e.One(self), s).Apply(t)
	})
	return self
}

// OnceBUS is OnceBU, not descending beneath any node where stop succeeds.
func (e *Engine) OnceBUS(s, stop Strategy) Strategy {
	return stoppable(fmt.Sprintf("oncebuS(%s)", s), s, func(self Strategy) Strategy {
		return Or(e.One(self), s)
	}, stop)
}

// SomeTD applies s at every node (pre-order) where it succeeds, not
// recursing into the children of a node where s already succeeded; it
// fails if s fails everywhere in the tree.
func (e *Engine) SomeTD(s Strategy) Strategy {
	var self Strategy
	self = named(fmt.Sprintf("sometd(%s)", s), func(t any) (any, bool) {
		return Or(s, e.Some(self)).Apply(t)
	})
	return self
}

// SomeTDS is SomeTD, not descending beneath any node where stop succeeds.
func (e *Engine) SomeTDS(s, stop Strategy) Strategy {
	return stoppable(fmt.Sprintf("sometdS(%s)", s), s, func(self Strategy) Strategy {
		return Or(s, e.Some(self))
	}, stop)
}

// SomeBU is SomeTD searching bottom-up instead.
func (e *Engine) SomeBU(s Strategy) Strategy {
	var self Strategy
	self = named(fmt.Sprintf("somebu(%s)", s), func(t any) (any, bool) {
		return Or(e.Some(self), s).Apply(t)
	})
	return self
}

// SomeBUS is SomeBU, not descending beneath any node where stop succeeds.
func (e *Engine) SomeBUS(s, stop Strategy) Strategy {
	return stoppable(fmt.Sprintf("somebuS(%s)", s), s, func(self Strategy) Strategy {
		return Or(e.Some(self), s)
	}, stop)
}

// AllTD applies s at a node if it succeeds there, otherwise recurses into
// every child independently looking for more places to apply s; unlike
// TopDown it does not fail because s fails somewhere: a 0-arity node where
// s fails is returned unchanged, since All trivially succeeds there.
func (e *Engine) AllTD(s Strategy) Strategy {
	var self Strategy
	self = named(fmt.Sprintf("alltd(%s)", s), func(t any) (any, bool) {
		return Or(s, e.All(self)).Apply(t)
	})
	return self
}

// AllTDS is AllTD, not descending beneath any node where stop succeeds.
func (e *Engine) AllTDS(s, stop Strategy) Strategy {
	return stoppable(fmt.Sprintf("alltdS(%s)", s), s, func(self Strategy) Strategy {
		return Or(s, e.All(self))
	}, stop)
}

// AllBU searches bottom-up, recursing into every child first and then
// applying s to the node itself. Unlike AllTD's early stop on success,
// there is no sound way to skip s at an interior node here: its result
// isn't known until its children have already been processed, so full
// coverage (s must succeed everywhere it is reached, like BottomUp) is
// the only coherent reading of "apply s at all nodes, bottom-up". As with
// BottomUp/Everywhere, a caller whose s only matches some node shapes
// should pass Attempt(s), not s, so the mismatch doesn't fail the whole
// traversal.
func (e *Engine) AllBU(s Strategy) Strategy {
	var self Strategy
	self = named(fmt.Sprintf("allbu(%s)", s), func(t any) (any, bool) {
		return Then(e.All(self), s).Apply(t)
	})
	return self
}

// AllBUS is AllBU, not descending beneath any node where stop succeeds.
func (e *Engine) AllBUS(s, stop Strategy) Strategy {
	return stoppable(fmt.Sprintf("allbuS(%s)", s), s, func(self Strategy) Strategy {
		return Then(e.All(self), s)
	}, stop)
}

// ManyTD applies s at least once somewhere in the tree, searched
// top-down: at each node it tries s and, whether or not that succeeds,
// keeps looking in the children (tolerating failure there via Attempt),
// succeeding overall as long as s fired at least once anywhere.
func (e *Engine) ManyTD(s Strategy) Strategy {
	var self Strategy
	self = named(fmt.Sprintf("manytd(%s)", s), func(t any) (any, bool) {
		return GuardedChoice(s, Plus(e.All(Attempt(self)), e.Some(self))).Apply(t)
	})
	return self
}

// ManyTDS is ManyTD, not descending beneath any node where stop succeeds.
func (e *Engine) ManyTDS(s, stop Strategy) Strategy {
	return stoppable(fmt.Sprintf("manytdS(%s)", s), s, func(self Strategy) Strategy {
		return GuardedChoice(s, Plus(e.All(Attempt(self)), e.Some(self)))
	}, stop)
}

// ManyBU is ManyTD searched bottom-up instead.
func (e *Engine) ManyBU(s Strategy) Strategy {
	var self Strategy
	self = named(fmt.Sprintf("manybu(%s)", s), func(t any) (any, bool) {
		r, ok := e.Some(self).Apply(t)
		if ok {
			return Attempt(s).Apply(r)
		}
		return s.Apply(t)
	})
	return self
}

// ManyBUS is ManyBU, not descending beneath any node where stop succeeds.
func (e *Engine) ManyBUS(s, stop Strategy) Strategy {
	return stoppable(fmt.Sprintf("manybuS(%s)", s), s, func(self Strategy) Strategy {
		return named("manybuS-step", func(t any) (any, bool) {
			r, ok := e.Some(self).Apply(t)
			if ok {
				return Attempt(s).Apply(r)
			}
			return s.Apply(t)
		})
	}, stop)
}

// Innermost repeatedly rewrites from the bottom up until s no longer
// applies anywhere, implementing normalisation to a fixed point.
func (e *Engine) Innermost(s Strategy) Strategy {
	var self Strategy
	self = named(fmt.Sprintf("innermost(%s)", s), func(t any) (any, bool) {
		return e.BottomUp(Attempt(Then(s, self))).Apply(t)
	})
	return self
}

// Outermost repeatedly rewrites the first (outermost, leftmost) redex
// until s no longer applies anywhere.
func (e *Engine) Outermost(s Strategy) Strategy {
	return Repeat(e.OnceTD(s))
}

// Everywhere applies s at every node of the tree, top-down, tolerating
// failure at any individual node; it never fails.
func (e *Engine) Everywhere(s Strategy) Strategy {
	return e.TopDown(Attempt(s))
}

// EverywhereS is Everywhere, not descending beneath any node where stop
// succeeds.
func (e *Engine) EverywhereS(s, stop Strategy) Strategy {
	return e.TopDownS(Attempt(s), stop)
}

// Leaves applies s at every node the tree considers a leaf, as determined
// by isLeaf, descending top-down through non-leaf nodes; it never fails.
func (e *Engine) Leaves(s, isLeaf Strategy) Strategy {
	var self Strategy
	self = named("leaves", func(t any) (any, bool) {
		if _, ok := isLeaf.Apply(t); ok {
			return Attempt(s).Apply(t)
		}
		return e.All(self).Apply(t)
	})
	return self
}

// DownUp applies s1 to a node before descending into its children and s2
// to it after, a combined pre/post-order traversal useful for scoped
// rewrites that need to set up state on the way down and tear it down on
// the way up.
func (e *Engine) DownUp(s1, s2 Strategy) Strategy {
	var self Strategy
	self = named("downup", func(t any) (any, bool) {
		return Then(s1, Then(e.All(self), s2)).Apply(t)
	})
	return self
}

// BreadthFirst visits every node of the tree in breadth-first order,
// applying s at each purely for effect: unlike the top-down/bottom-up
// traversals, BreadthFirst always returns the original root term
// unchanged, since a BFS visit order has no well-defined notion of
// rebuilding ancestors as children are replaced. It is intended for use
// with Query/Queryf-style side-effecting strategies.
func (e *Engine) BreadthFirst(s Strategy) Strategy {
	return named(fmt.Sprintf("breadthfirst(%s)", s), func(t any) (any, bool) {
		queue := []any{t}
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			s.Apply(n)
			children, _ := Deconstruct(n)
			queue = append(queue, children...)
		}
		return t, true
	})
}

// BreadthFirstS is BreadthFirst, not descending beneath any node where
// stop succeeds: s still runs at that node, but its children are never
// enqueued.
func (e *Engine) BreadthFirstS(s, stop Strategy) Strategy {
	return named(fmt.Sprintf("breadthfirstS(%s)", s), func(t any) (any, bool) {
		queue := []any{t}
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			s.Apply(n)
			if _, halt := stop.Apply(n); halt {
				continue
			}
			children, _ := Deconstruct(n)
			queue = append(queue, children...)
		}
		return t, true
	})
}

func TopDown(s Strategy) Strategy               { return defaultEngine.TopDown(s) }
func TopDownS(s, stop Strategy) Strategy        { return defaultEngine.TopDownS(s, stop) }
func BottomUp(s Strategy) Strategy              { return defaultEngine.BottomUp(s) }
func BottomUpS(s, stop Strategy) Strategy       { return defaultEngine.BottomUpS(s, stop) }
func OnceTD(s Strategy) Strategy                { return defaultEngine.OnceTD(s) }
func OnceTDS(s, stop Strategy) Strategy         { return defaultEngine.OnceTDS(s, stop) }
func OnceBU(s Strategy) Strategy                { return defaultEngine.OnceBU(s) }
func OnceBUS(s, stop Strategy) Strategy         { return defaultEngine.OnceBUS(s, stop) }
func SomeTD(s Strategy) Strategy                { return defaultEngine.SomeTD(s) }
func SomeTDS(s, stop Strategy) Strategy         { return defaultEngine.SomeTDS(s, stop) }
func SomeBU(s Strategy) Strategy                { return defaultEngine.SomeBU(s) }
func SomeBUS(s, stop Strategy) Strategy         { return defaultEngine.SomeBUS(s, stop) }
func AllTD(s Strategy) Strategy                 { return defaultEngine.AllTD(s) }
func AllTDS(s, stop Strategy) Strategy          { return defaultEngine.AllTDS(s, stop) }
func AllBU(s Strategy) Strategy                 { return defaultEngine.AllBU(s) }
func AllBUS(s, stop Strategy) Strategy          { return defaultEngine.AllBUS(s, stop) }
func ManyTD(s Strategy) Strategy                { return defaultEngine.ManyTD(s) }
func ManyTDS(s, stop Strategy) Strategy         { return defaultEngine.ManyTDS(s, stop) }
func ManyBU(s Strategy) Strategy                { return defaultEngine.ManyBU(s) }
func ManyBUS(s, stop Strategy) Strategy         { return defaultEngine.ManyBUS(s, stop) }
func Innermost(s Strategy) Strategy             { return defaultEngine.Innermost(s) }
func Outermost(s Strategy) Strategy             { return defaultEngine.Outermost(s) }
func Everywhere(s Strategy) Strategy            { return defaultEngine.Everywhere(s) }
func EverywhereS(s, stop Strategy) Strategy     { return defaultEngine.EverywhereS(s, stop) }
func Leaves(s, isLeaf Strategy) Strategy        { return defaultEngine.Leaves(s, isLeaf) }
func DownUp(s1, s2 Strategy) Strategy           { return defaultEngine.DownUp(s1, s2) }
func BreadthFirst(s Strategy) Strategy          { return defaultEngine.BreadthFirst(s) }
func BreadthFirstS(s, stop Strategy) Strategy   { return defaultEngine.BreadthFirstS(s, stop) }

// --- paramorphism and collection strategies (spec.md §4.2) --------------

// Para computes a paramorphism over the term tree: f receives a node and
// the Para results already computed for its children (in order), and
// returns this node's result. Unlike the Strategy combinators, Para's
// result type is arbitrary (not restricted to Term), since it is meant
// for extracting information from a tree rather than rewriting it.
func Para[A any](f func(t any, childResults []A) A) func(t any) A {
	var self func(t any) A
	self = func(t any) A {
		children, ok := Deconstruct(t)
		if !ok || len(children) == 0 {
			return f(t, nil)
		}
		results := make([]A, len(children))
		for i, c := range children {
			results[i] = self(c)
		}
		return f(t, results)
	}
	return self
}

// Collect visits every node of the tree in pre-order and gathers f's
// result wherever f is defined (returns ok == true).
func Collect[A any](f func(t any) (A, bool)) func(t any) []A {
	var walk func(t any, out *[]A)
	walk = func(t any, out *[]A) {
		if v, ok := f(t); ok {
			*out = append(*out, v)
		}
		children, _ := Deconstruct(t)
		for _, c := range children {
			walk(c, out)
		}
	}
	return func(t any) []A {
		var out []A
		walk(t, &out)
		return out
	}
}

// CollectL is Collect under a different name, matching spec.md's
// collect/collectl/collects naming triple: Collect and CollectL both
// return results in left-to-right pre-order.
func CollectL[A any](f func(t any) (A, bool)) func(t any) []A {
	return Collect(f)
}

// CollectS is Collect into a Set, deduplicating results.
func CollectS[A comparable](f func(t any) (A, bool)) func(t any) Set[A] {
	c := Collect(f)
	return func(t any) Set[A] {
		return NewSet(c(t)...)
	}
}

// Count sums f's integer contribution over every node in the tree.
func Count(f func(t any) int) func(t any) int {
	var walk func(t any) int
	walk = func(t any) int {
		total := f(t)
		children, _ := Deconstruct(t)
		for _, c := range children {
			total += walk(c)
		}
		return total
	}
	return walk
}

// Everything folds query's result at every node of the tree (pre-order)
// using combine, mirroring Kiama's everything(combine)(query) idiom.
func Everything[A any](combine func(a, b A) A, query func(t any) A) func(t any) A {
	var walk func(t any) A
	walk = func(t any) A {
		acc := query(t)
		children, _ := Deconstruct(t)
		for _, c := range children {
			acc = combine(acc, walk(c))
		}
		return acc
	}
	return walk
}
