// Copyright 2024 The Kiama Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license that can be
// found in the LICENSE file.

package kiama

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/kiamalang/kiama/internal/idtable"
)

// Strategy is a total function Term -> Option<Term> (spec.md §3/§4.2) that
// either succeeds with a replacement term or fails, plus a display name
// used in log/debug output. The Go idiom for Option<Term> is the ordinary
// (value, ok bool) result pair, matching map lookups and type assertions
// elsewhere in the standard library.
//
// The zero Strategy is not meaningful; always build one with a constructor
// or combinator below.
type Strategy struct {
	name string
	fn   func(t any) (any, bool)
}

// Apply runs the strategy against t.
func (s Strategy) Apply(t any) (result any, ok bool) {
	return s.fn(t)
}

// String renders the strategy's display name, used by Log/LogFail/Debug.
func (s Strategy) String() string {
	if s.name == "" {
		return "<strategy>"
	}
	return s.name
}

func named(name string, fn func(t any) (any, bool)) Strategy {
	return Strategy{name: name, fn: fn}
}

// --- base constructors (spec.md §4.2, §6) -------------------------------

// Id always succeeds, returning its input unchanged (by reference, not
// merely by value: Id(t).Apply returns the exact t passed in).
func Id() Strategy {
	return named("id", func(t any) (any, bool) { return t, true })
}

// Fail always fails.
func Fail() Strategy {
	return named("fail", func(any) (any, bool) { return nil, false })
}

// Rule builds a strategy from a partial function: p returns (result, true)
// when it is defined at t, else (_, false).
func Rule(p func(t any) (any, bool)) Strategy {
	return named("rule", p)
}

// Rulef builds an always-succeeding strategy from a total function.
func Rulef(f func(t any) any) Strategy {
	return named("rulef", func(t any) (any, bool) { return f(t), true })
}

// Rulefs is like Rule, but p returns a Strategy to re-apply to t rather
// than a final term directly.
func Rulefs(p func(t any) (Strategy, bool)) Strategy {
	return named("rulefs", func(t any) (any, bool) {
		s, ok := p(t)
		if !ok {
			return nil, false
		}
		return s.Apply(t)
	})
}

// StrategyOf lifts an arbitrary Term -> Option<Term> function to a
// Strategy. It is identical in shape to Rule; Kiama provides both names
// because spec.md's surface lists rule(p) and strategy(p) separately, even
// though Go's lack of a distinct partial-function type collapses them to
// the same constructor.
func StrategyOf(f func(t any) (any, bool)) Strategy {
	return named("strategy", f)
}

// StrategyFunc lifts a total Term -> Term function to an always-succeeding
// Strategy. It is identical to Rulef; see StrategyOf.
func StrategyFunc(f func(t any) any) Strategy {
	return named("strategyf", func(t any) (any, bool) { return f(t), true })
}

// Build always succeeds with result, regardless of the input term.
func Build(result any) Strategy {
	return named("build", func(any) (any, bool) { return result, true })
}

// OptionOf succeeds with o's wrapped value if present, else fails,
// ignoring the strategy's input term entirely.
func OptionOf[T any](o Option[T]) Strategy {
	return named("option", func(any) (any, bool) {
		v, ok := o.Get()
		if !ok {
			return nil, false
		}
		return v, true
	})
}

// Query runs p against t for effect, discarding its result, and always
// succeeds with t unchanged.
func Query(p func(t any) (any, bool)) Strategy {
	return named("query", func(t any) (any, bool) {
		p(t)
		return t, true
	})
}

// Queryf is Query for a total effect function.
func Queryf(f func(t any)) Strategy {
	return named("queryf", func(t any) (any, bool) {
		f(t)
		return t, true
	})
}

// TermEq succeeds iff the input equals v by value equality (reflect.DeepEqual),
// implementing spec.md's term(t) constructor (named TermEq because Term is
// already the package's node-value alias).
func TermEq(v any) Strategy {
	return named("term", func(t any) (any, bool) {
		if reflect.DeepEqual(t, v) {
			return t, true
		}
		return nil, false
	})
}

// --- combinators (spec.md §4.2) -----------------------------------------

// Then is sequential composition (s <* q): run s; if it succeeds with t',
// run q(t'); else fail.
func Then(s, q Strategy) Strategy {
	return named(fmt.Sprintf("(%s <* %s)", s, q), func(t any) (any, bool) {
		r, ok := s.Apply(t)
		if !ok {
			return nil, false
		}
		return q.Apply(r)
	})
}

// Or is deterministic choice (s <+ q): run s; if it fails, run q on the
// original input.
func Or(s, q Strategy) Strategy {
	return named(fmt.Sprintf("(%s <+ %s)", s, q), func(t any) (any, bool) {
		if r, ok := s.Apply(t); ok {
			return r, true
		}
		return q.Apply(t)
	})
}

// Choice is the result of non-deterministic choice (s + q): on its own it
// behaves like Or(s, q), but it exists to be consumed by GuardedChoice.
type Choice struct {
	Left, Right Strategy
}

// Plus builds a Choice (s + q).
func Plus(s, q Strategy) Choice {
	return Choice{Left: s, Right: q}
}

// Strategy converts c to its default Or(Left, Right) semantics.
func (c Choice) Strategy() Strategy {
	return Or(c.Left, c.Right)
}

// GuardedChoice is conditional choice (c < l + r): if c succeeds with t',
// apply l(t'); if c fails, apply r to the original input.
func GuardedChoice(c Strategy, choice Choice) Strategy {
	return named("guarded-choice", func(t any) (any, bool) {
		if t2, ok := c.Apply(t); ok {
			return choice.Left.Apply(t2)
		}
		return choice.Right.Apply(t)
	})
}

// Not succeeds with the input iff s fails, else fails.
func Not(s Strategy) Strategy {
	return named(fmt.Sprintf("not(%s)", s), func(t any) (any, bool) {
		if _, ok := s.Apply(t); ok {
			return nil, false
		}
		return t, true
	})
}

// Where (= Test) succeeds with the original input iff s succeeds,
// discarding s's result term.
func Where(s Strategy) Strategy {
	return named(fmt.Sprintf("where(%s)", s), func(t any) (any, bool) {
		if _, ok := s.Apply(t); ok {
			return t, true
		}
		return nil, false
	})
}

// Test is an alias for Where.
func Test(s Strategy) Strategy { return Where(s) }

// Attempt is s <+ id: s, falling back to success-with-input-unchanged.
// Attempt never fails.
func Attempt(s Strategy) Strategy {
	return Or(s, Id())
}

// Repeat applies s repeatedly until it fails, returning the last
// successful result (or the original input if s never succeeds). Repeat
// never fails; Repeat(Fail()) is equivalent to Id().
func Repeat(s Strategy) Strategy {
	var self Strategy
	self = named(fmt.Sprintf("repeat(%s)", s), func(t any) (any, bool) {
		return Or(Then(s, self), Id()).Apply(t)
	})
	return self
}

// Repeat1 is like Repeat but requires at least one successful application
// of s, failing if the very first application fails.
func Repeat1(s Strategy) Strategy {
	return named(fmt.Sprintf("repeat1(%s)", s), func(t any) (any, bool) {
		return Then(s, Repeat(s)).Apply(t)
	})
}

// RepeatN applies s up to n times, stopping early the first time it
// fails. RepeatN never fails.
func RepeatN(s Strategy, n int) Strategy {
	return named(fmt.Sprintf("repeat(%s,%d)", s, n), func(t any) (any, bool) {
		cur := t
		for i := 0; i < n; i++ {
			next, ok := s.Apply(cur)
			if !ok {
				break
			}
			cur = next
		}
		return cur, true
	})
}

// RepeatUntil applies s repeatedly, checking c against each result, until
// c succeeds; it fails as soon as s fails.
func RepeatUntil(s, c Strategy) Strategy {
	var self Strategy
	self = named("repeatuntil", func(t any) (any, bool) {
		r, ok := s.Apply(t)
		if !ok {
			return nil, false
		}
		if _, done := c.Apply(r); done {
			return r, true
		}
		return self.Apply(r)
	})
	return self
}

// Loop applies s repeatedly while c succeeds at the current term,
// returning the term unchanged once c fails. Loop fails only if s fails
// partway through.
func Loop(c, s Strategy) Strategy {
	var self Strategy
	self = named("loop", func(t any) (any, bool) {
		if _, ok := c.Apply(t); !ok {
			return t, true
		}
		r, ok := s.Apply(t)
		if !ok {
			return nil, false
		}
		return self.Apply(r)
	})
	return self
}

// LoopNot applies s repeatedly while c fails at the current term
// (equivalently, Loop(Not(c), s)).
func LoopNot(c, s Strategy) Strategy {
	return Loop(Not(c), s)
}

// DoLoop applies s once, then Loop(c, s): a do-while loop.
func DoLoop(s, c Strategy) Strategy {
	return Then(s, Loop(c, s))
}

// LoopIter applies a freshly built strategy for each i in [low, high) in
// order, threading the result of one application into the next, matching
// Stratego's indexed loopiter(i, low, high, s) primitive.
func LoopIter(low, high int, mk func(i int) Strategy) Strategy {
	return named("loopiter", func(t any) (any, bool) {
		cur := t
		for i := low; i < high; i++ {
			r, ok := mk(i).Apply(cur)
			if !ok {
				return nil, false
			}
			cur = r
		}
		return cur, true
	})
}

// Restore runs s; if it fails, it runs restore against the original input
// for effect (e.g. rolling back external state) and still fails.
func Restore(s, restore Strategy) Strategy {
	return named("restore", func(t any) (any, bool) {
		r, ok := s.Apply(t)
		if ok {
			return r, true
		}
		restore.Apply(t)
		return nil, false
	})
}

// RestoreAlways runs s, then always runs restore against the original
// input for effect, preserving s's outcome either way.
func RestoreAlways(s, restore Strategy) Strategy {
	return named("restorealways", func(t any) (any, bool) {
		r, ok := s.Apply(t)
		restore.Apply(t)
		return r, ok
	})
}

// Lastly runs s, then always calls f(t) for effect (a "finally" clause),
// preserving s's outcome.
func Lastly(s Strategy, f func(t any)) Strategy {
	return named("lastly", func(t any) (any, bool) {
		r, ok := s.Apply(t)
		f(t)
		return r, ok
	})
}

// Ior is the inclusive-or combinator: try s, else q, identical to Or. It
// is named separately to match spec.md's surface and is typically paired
// with And.
func Ior(s, q Strategy) Strategy {
	return Or(s, q)
}

// And succeeds with the original input iff both s and q succeed at it
// (each applied independently to t, neither result kept).
func And(s, q Strategy) Strategy {
	return named("and", func(t any) (any, bool) {
		if _, ok := s.Apply(t); !ok {
			return nil, false
		}
		if _, ok := q.Apply(t); !ok {
			return nil, false
		}
		return t, true
	})
}

// --- logging combinators (SPEC_FULL.md §1) ------------------------------

func effectiveLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// Log applies s, logging the input and the outcome at LevelDebug. A nil
// logger uses slog.Default().
func Log(s Strategy, logger *slog.Logger) Strategy {
	return named(fmt.Sprintf("log(%s)", s), func(t any) (any, bool) {
		l := effectiveLogger(logger)
		l.Debug("strategy apply", LogStrategyKey, s.String(), LogNodeKey, fmt.Sprintf("%v", t))
		r, ok := s.Apply(t)
		if ok {
			l.Debug("strategy success", LogStrategyKey, s.String(), "output", fmt.Sprintf("%v", r))
		} else {
			l.Debug("strategy failure", LogStrategyKey, s.String())
		}
		return r, ok
	})
}

// LogFail applies s, logging only on failure.
func LogFail(s Strategy, logger *slog.Logger) Strategy {
	return named(fmt.Sprintf("logfail(%s)", s), func(t any) (any, bool) {
		r, ok := s.Apply(t)
		if !ok {
			effectiveLogger(logger).Debug("strategy failure", LogStrategyKey, s.String(), LogNodeKey, fmt.Sprintf("%v", t))
		}
		return r, ok
	})
}

// Debug logs msg and the current term at LevelDebug, always succeeding
// with the term unchanged.
func Debug(msg string, logger *slog.Logger) Strategy {
	return named("debug", func(t any) (any, bool) {
		effectiveLogger(logger).Debug(msg, LogNodeKey, fmt.Sprintf("%v", t))
		return t, true
	})
}

// --- memo (spec.md §4.2) -------------------------------------------------

type memoResult struct {
	value any
	ok    bool
}

// Memo wraps s with a per-strategy cache keyed by term identity (spec.md
// §3's "memoised strategies hold a per-strategy cache keyed by term
// identity"). Calling Memo twice on the same underlying s builds two
// independent caches.
func Memo(s Strategy) Strategy {
	cache := idtable.New[memoResult]()
	return named(fmt.Sprintf("memo(%s)", s), func(t any) (any, bool) {
		if e, ok := cache.Get(t); ok {
			return e.Value.value, e.Value.ok
		}
		v, ok := s.Apply(t)
		cache.Set(t, idtable.Entry[memoResult]{State: idtable.Computed, Value: memoResult{value: v, ok: ok}})
		return v, ok
	})
}
