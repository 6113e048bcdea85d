package kiama

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalRule is the arithmetic evaluation rule from spec.md §8's worked
// example: Add/Sub/Mul reduce two Num operands to their sum/difference/
// product, and Div by zero reduces to Num(0) rather than failing.
func evalRule() Strategy {
	return Rule(func(t any) (any, bool) {
		switch n := t.(type) {
		case *Add:
			l, lok := n.Left.(*Num)
			r, rok := n.Right.(*Num)
			if !lok || !rok {
				return nil, false
			}
			return &Num{l.Value + r.Value}, true
		case *Sub:
			l, lok := n.Left.(*Num)
			r, rok := n.Right.(*Num)
			if !lok || !rok {
				return nil, false
			}
			return &Num{l.Value - r.Value}, true
		case *Mul:
			l, lok := n.Left.(*Num)
			r, rok := n.Right.(*Num)
			if !lok || !rok {
				return nil, false
			}
			return &Num{l.Value * r.Value}, true
		case *Div:
			l, lok := n.Left.(*Num)
			r, rok := n.Right.(*Num)
			if !lok || !rok {
				return nil, false
			}
			if r.Value == 0 {
				return &Num{0}, true
			}
			return &Num{l.Value / r.Value}, true
		}
		return nil, false
	})
}

func TestExample_ArithmeticEvalEverywhereBU(t *testing.T) {
	// Mul(Add(Add(1,2),3), Sub(4,5)) = ((1+2)+3) * (4-5) = 6 * -1 = -6.
	expr := NewMul(
		NewAdd(NewAdd(&Num{1}, &Num{2}), &Num{3}),
		NewSub(&Num{4}, &Num{5}),
	)

	everywherebu := BottomUp(Attempt(evalRule()))
	result, ok := everywherebu.Apply(expr)
	require.True(t, ok)
	assert.Equal(t, &Num{-6}, result)
}

func TestExample_ArithmeticEvalDivisionByZero(t *testing.T) {
	expr := NewDiv(&Num{7}, &Num{0})
	result, ok := BottomUp(Attempt(evalRule())).Apply(expr)
	require.True(t, ok)
	assert.Equal(t, &Num{0}, result)
}

func TestExample_SetDoublingAllTDAndAllBU(t *testing.T) {
	set := NewSet(1, 5, 8, 9)
	double := Rule(func(t any) (any, bool) {
		n, ok := t.(int)
		if !ok {
			return nil, false
		}
		return n * 2, true
	})

	// AllTD relies on Or's own short-circuit tolerance: the raw rule is
	// enough, since it never reaches the 0-arity element's vacuous-success
	// branch when the rule itself matches there first.
	tdResult, ok := AllTD(double).Apply(set)
	require.True(t, ok)
	assert.ElementsMatch(t, []int{2, 10, 16, 18}, []int(tdResult.(Set[int])))

	// AllBU requires full coverage (Then, not Or, per DESIGN.md's Open
	// Question decision 3), so a rule that only matches some node shapes
	// must be Attempt-wrapped, exactly like Everywhere wraps TopDown.
	buResult, ok := AllBU(Attempt(double)).Apply(set)
	require.True(t, ok)
	assert.ElementsMatch(t, []int{2, 10, 16, 18}, []int(buResult.(Set[int])))

	assert.False(t, Same(set, tdResult), "alltd must produce a structurally fresh set")
	assert.False(t, Same(set, buResult), "allbu must produce a structurally fresh set")
}

// --- dataflow liveness (spec.md §8) -------------------------------------

func varSet(names ...string) Set[string] { return NewSet(names...) }

func setMinus(a Set[string], remove string) Set[string] {
	out := make([]string, 0, len(a))
	for _, v := range a {
		if v != remove {
			out = append(out, v)
		}
	}
	return NewSet(out...)
}

func stmtDefs(n any) (string, bool) {
	switch v := n.(type) {
	case *Assign:
		return v.Def, true
	}
	return "", false
}

func stmtUses(n any) []string {
	switch v := n.(type) {
	case *Assign:
		return []string{v.Use}
	case *While:
		return []string{v.CondVar}
	case *Return:
		return []string{v.Use}
	}
	return nil
}

// stmtSucc computes n's control-flow successors from tr's tree structure:
// the next statement in the same block, or (for the last statement of a
// while body) the loop back to the While node, or (for a While) both the
// loop entry and the statement following the loop.
func stmtSucc(tr *Tree, n any) []any {
	switch v := n.(type) {
	case *While:
		var out []any
		if first, ok, _ := tr.FirstChild(v); ok {
			out = append(out, first)
		}
		if next, ok, _ := tr.Next(v); ok {
			out = append(out, next)
		}
		return out
	case *Return:
		return nil
	default:
		if next, ok, _ := tr.Next(n); ok {
			return []any{next}
		}
		if parent, hasParent, _ := tr.Parent(n); hasParent {
			if w, isWhile := parent.(*While); isWhile {
				return []any{w}
			}
		}
		return nil
	}
}

func TestExample_DataflowLiveness(t *testing.T) {
	s1 := &Assign{Def: "y", Use: "v"}
	s2 := &Assign{Def: "z", Use: "y"}
	s3 := &Assign{Def: "x", Use: "v"}
	s411 := &Assign{Def: "x", Use: "w"}
	s412 := &Assign{Def: "x", Use: "v"}
	s4 := &While{CondVar: "x", Body: []any{s411, s412}}
	s5 := &Return{Use: "x"}
	program := NewBranch(s1, s2, s3, s4, s5)
	tr := NewTree(program)

	var live *Chain[Set[string]]
	inUpdate := func(c *Chain[Set[string]], n any) (Set[string], bool) {
		out := c.Out(n)
		result := out
		if def, ok := stmtDefs(n); ok {
			result = setMinus(result, def)
		}
		result = setUnion(varSet(stmtUses(n)...), result)
		return result, true
	}
	outUpdate := func(c *Chain[Set[string]], n any) (Set[string], bool) {
		result := varSet()
		for _, succ := range stmtSucc(tr, n) {
			result = setUnion(result, c.In(succ))
		}
		return result, true
	}
	live = NewChain[Set[string]]("live", tr, varSet(), inUpdate, outUpdate)

	assert.ElementsMatch(t, []string{"w", "v"}, []string(live.In(s1)))
	assert.ElementsMatch(t, []string{"y", "w", "v"}, []string(live.Out(s1)))
	assert.ElementsMatch(t, []string{"x", "w", "v"}, []string(live.In(s4)))
	assert.ElementsMatch(t, []string{"x", "w", "v"}, []string(live.Out(s412)))
	assert.ElementsMatch(t, []string{"x"}, []string(live.In(s5)))
	assert.Empty(t, []string(live.Out(s5)))

	live.ResetOut()
	assert.False(t, live.OutHasBeenComputedAt(s412))
	assert.ElementsMatch(t, []string{"x", "w", "v"}, []string(live.Out(s412)))
	assert.True(t, live.OutHasBeenComputedAt(s412))
}

// --- maximum over a Pair tree, invoked exactly twice (spec.md §8) -------

func TestExample_MaximumOverPairTreeInvokedOncePerPair(t *testing.T) {
	leaf := func(v int) *Leaf { return &Leaf{Payload: v} }
	root := Pair[any, any]{First: leaf(3), Second: Pair[any, any]{First: leaf(1), Second: leaf(10)}}

	calls := 0
	var maximum *Attribute[int]
	maximum = NewAttribute("maximum", func(n any) int {
		switch v := n.(type) {
		case *Leaf:
			return v.Payload.(int)
		case Pair[any, any]:
			calls++
			l := maximum.Get(v.First)
			r := maximum.Get(v.Second)
			if l > r {
				return l
			}
			return r
		default:
			panic(fmt.Sprintf("unexpected node %#v", n))
		}
	})

	assert.Equal(t, 10, maximum.Get(root))
	assert.Equal(t, 2, calls, "one invocation per Pair node")

	assert.Equal(t, 10, maximum.Get(root))
	assert.Equal(t, 2, calls, "a second query from the same state must not recompute")
}

// --- PicoJava-style cyclic inheritance detection (spec.md §8) -----------

// Class is a minimal class declaration: a name and the class it extends,
// nil for none.
type Class struct {
	Name    string
	Extends *Class
}

func detectCyclicInheritance(classes []*Class) []string {
	var acyclicFrom *Attribute[bool]
	acyclicFrom = NewAttribute("ancestor-chain", func(n any) bool {
		c := n.(*Class)
		if c.Extends == nil {
			return true
		}
		return acyclicFrom.Get(c.Extends)
	})

	var errs []string
	for _, c := range classes {
		func() {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if _, ok := r.(*CycleError); ok {
					errs = append(errs, fmt.Sprintf("Cyclic inheritance chain for class %s", c.Name))
					return
				}
				panic(r)
			}()
			acyclicFrom.Get(c)
		}()
	}
	return errs
}

func TestExample_CyclicInheritanceDetection(t *testing.T) {
	classA := &Class{Name: "A"}
	classB := &Class{Name: "B"}
	classA.Extends = classB
	classB.Extends = classA

	errs := detectCyclicInheritance([]*Class{classA, classB})

	// Each class's own Get fully unwinds (attribute.go's panic-cleanup
	// fix deletes both classes' in-progress markers), so the second
	// class's query starts from a clean memo table instead of immediately
	// misfiring against a stale entry left by the first.
	assert.Equal(t, []string{
		"Cyclic inheritance chain for class A",
		"Cyclic inheritance chain for class B",
	}, errs)
}

func TestExample_AcyclicInheritanceReportsNoErrors(t *testing.T) {
	object := &Class{Name: "Object"}
	a := &Class{Name: "A", Extends: object}
	b := &Class{Name: "B", Extends: a}

	errs := detectCyclicInheritance([]*Class{object, a, b})
	assert.Empty(t, errs)
}

// --- shared-subterm deep clone (spec.md §8) ------------------------------

func TestExample_DeepCloneBreaksSharedIdentity(t *testing.T) {
	shared := NewAdd(&Num{1}, &Num{2})
	root := NewAdd(shared, shared)
	require.Same(t, root.Left, root.Right, "fixture must share one Add instance at both positions")

	cloneLeaf := Rule(func(t any) (any, bool) {
		n, ok := t.(*Num)
		if !ok {
			return nil, false
		}
		return &Num{Value: n.Value}, true
	})
	deepClone := BottomUp(Attempt(cloneLeaf))

	result, ok := deepClone.Apply(root)
	require.True(t, ok)
	assert.Equal(t, root, result)

	cloned := result.(*Add)
	assert.False(t, Same(cloned.Left, cloned.Right), "the two cloned positions must not be identity-equal to each other")
	assert.False(t, Same(cloned.Left, shared), "a cloned position must not be identity-equal to the original")
	assert.False(t, Same(cloned.Right, shared), "a cloned position must not be identity-equal to the original")
}
