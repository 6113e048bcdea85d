package kiama

// Test fixtures shared across term_test.go, strategy_test.go,
// traversal_test.go, attribute_test.go, tree_test.go, chain_test.go and
// examples_test.go: a small arithmetic expression tree and a statement
// tree loosely modeled on the dataflow example in spec.md §8.

// Num is an integer literal leaf.
type Num struct{ Value int }

func (n *Num) Arity() int          { return 0 }
func (n *Num) Deconstruct() []any  { return nil }
func (n *Num) Reconstruct(c []any) (any, error) {
	if len(c) != 0 {
		return nil, &IllegalArgsError{Shape: n, Expected: 0, Supplied: len(c)}
	}
	return n, nil
}

// binary is the shared shape for the four arithmetic operators: a
// fixed-arity-2 record with Left/Right children.
type binary struct {
	Left, Right any
}

func (b *binary) Arity() int         { return 2 }
func (b *binary) Deconstruct() []any { return []any{b.Left, b.Right} }

// Add, Sub, Mul, Div are arithmetic operators over the arithmetic
// expression tree used in spec.md §8's evaluation example.
type (
	Add struct{ binary }
	Sub struct{ binary }
	Mul struct{ binary }
	Div struct{ binary }
)

func NewAdd(l, r any) *Add { return &Add{binary{l, r}} }
func NewSub(l, r any) *Sub { return &Sub{binary{l, r}} }
func NewMul(l, r any) *Mul { return &Mul{binary{l, r}} }
func NewDiv(l, r any) *Div { return &Div{binary{l, r}} }

func (a *Add) Reconstruct(c []any) (any, error) { return rebuildBinary(a, c, NewAdd) }
func (s *Sub) Reconstruct(c []any) (any, error) { return rebuildBinary(s, c, NewSub) }
func (m *Mul) Reconstruct(c []any) (any, error) { return rebuildBinary(m, c, NewMul) }
func (d *Div) Reconstruct(c []any) (any, error) { return rebuildBinary(d, c, NewDiv) }

// rebuildBinary implements the identity-preservation shortcut (spec.md §8
// property 1): when both replacement children are Same as shape's current
// ones, it returns shape itself rather than allocating a fresh node.
func rebuildBinary[T any](shape Rewritable, c []any, build func(l, r any) T) (any, error) {
	if len(c) != 2 {
		return nil, &IllegalArgsError{Shape: shape, Expected: 2, Supplied: len(c)}
	}
	if sameChildren(shape.Deconstruct(), c) {
		return shape, nil
	}
	return build(c[0], c[1]), nil
}

// Var is a named variable reference leaf, used by the dataflow example.
type Var struct{ Name string }

func (v *Var) Arity() int         { return 0 }
func (v *Var) Deconstruct() []any { return nil }
func (v *Var) Reconstruct(c []any) (any, error) {
	if len(c) != 0 {
		return nil, &IllegalArgsError{Shape: v, Expected: 0, Supplied: len(c)}
	}
	return v, nil
}

// Leaf is a generic 0-arity Rewritable wrapping an opaque payload, used
// where tests need a distinct reference-identity leaf without a named
// field (e.g. the "Pair tree" of the maximum example, and the tree and
// chain tests).
type Leaf struct{ Payload any }

func (l *Leaf) Arity() int         { return 0 }
func (l *Leaf) Deconstruct() []any { return nil }
func (l *Leaf) Reconstruct(c []any) (any, error) {
	if len(c) != 0 {
		return nil, &IllegalArgsError{Shape: l, Expected: 0, Supplied: len(c)}
	}
	return l, nil
}

// Branch is a generic fixed-arity-N record used by the tree, chain, fuzz
// and dataflow tests that need an arbitrary branching factor.
type Branch struct{ Children []any }

func NewBranch(children ...any) *Branch { return &Branch{Children: children} }

func (b *Branch) Arity() int         { return len(b.Children) }
func (b *Branch) Deconstruct() []any { return append([]any(nil), b.Children...) }
func (b *Branch) Reconstruct(c []any) (any, error) {
	if len(c) != len(b.Children) {
		return nil, &IllegalArgsError{Shape: b, Expected: len(b.Children), Supplied: len(c)}
	}
	if sameChildren(b.Children, c) {
		return b, nil
	}
	return NewBranch(c...), nil
}

// Assign, While and Return are the statement shapes for the dataflow
// liveness example in examples_test.go: a straight-line sequence of
// variable assignments plus a single while loop, the minimum needed for a
// control-flow graph with a back edge.

// Assign is "Def := Use", a single-variable assignment statement.
type Assign struct{ Def, Use string }

func (a *Assign) Arity() int         { return 0 }
func (a *Assign) Deconstruct() []any { return nil }
func (a *Assign) Reconstruct(c []any) (any, error) {
	if len(c) != 0 {
		return nil, &IllegalArgsError{Shape: a, Expected: 0, Supplied: len(c)}
	}
	return a, nil
}

// While is "while CondVar { Body }", a loop guarded by a single variable.
type While struct {
	CondVar string
	Body    []any
}

func (w *While) Arity() int         { return len(w.Body) }
func (w *While) Deconstruct() []any { return append([]any(nil), w.Body...) }
func (w *While) Reconstruct(c []any) (any, error) {
	if len(c) != len(w.Body) {
		return nil, &IllegalArgsError{Shape: w, Expected: len(w.Body), Supplied: len(c)}
	}
	if sameChildren(w.Body, c) {
		return w, nil
	}
	return &While{CondVar: w.CondVar, Body: c}, nil
}

// Return is "return Use", the single exit statement of the fixture
// program: it has no control-flow successor.
type Return struct{ Use string }

func (r *Return) Arity() int         { return 0 }
func (r *Return) Deconstruct() []any { return nil }
func (r *Return) Reconstruct(c []any) (any, error) {
	if len(c) != 0 {
		return nil, &IllegalArgsError{Shape: r, Expected: 0, Supplied: len(c)}
	}
	return r, nil
}
