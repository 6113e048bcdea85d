package kiama

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttribute_CachesByIdentity(t *testing.T) {
	calls := 0
	size := NewAttribute("size", func(n any) int {
		calls++
		children, _ := Deconstruct(n)
		total := 1
		for _, c := range children {
			total += size.Get(c)
		}
		return total
	})

	tree := NewAdd(&Num{1}, NewAdd(&Num{2}, &Num{3}))
	assert.Equal(t, 5, size.Get(tree))
	callsAfterFirst := calls
	assert.Equal(t, 5, size.Get(tree))
	assert.Equal(t, callsAfterFirst, calls, "second Get at the same node must not recompute")
	assert.True(t, size.HasBeenComputedAt(tree))
}

func TestAttribute_DistinctOccurrencesRecomputeIndependently(t *testing.T) {
	calls := 0
	double := NewAttribute("double", func(n any) int {
		calls++
		return n.(*Num).Value * 2
	})
	a := &Num{1}
	b := &Num{1}
	assert.Equal(t, 2, double.Get(a))
	assert.Equal(t, 2, double.Get(b))
	assert.Equal(t, 2, calls)
}

func TestAttribute_ReentrantCycleRaisesCycleError(t *testing.T) {
	var self *Attribute[int]
	self = NewAttribute("cyclic", func(n any) int {
		return self.Get(n) + 1
	})

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(*CycleError)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ErrCycle))
		assert.Equal(t, "cyclic", err.AttributeName)
	}()
	self.Get(&Num{1})
	t.Fatal("expected a panic before reaching this point")
}

func TestAttribute_Reset(t *testing.T) {
	calls := 0
	a := NewAttribute("a", func(n any) int {
		calls++
		return n.(*Num).Value
	})
	n := &Num{7}
	a.Get(n)
	a.Get(n)
	assert.Equal(t, 1, calls)
	a.Reset()
	a.Get(n)
	assert.Equal(t, 2, calls)
}

func TestParamAttribute_CachesByNodeAndParam(t *testing.T) {
	calls := 0
	scaled := NewParamAttribute[int, int]("scaled", func(n any, factor int) int {
		calls++
		return n.(*Num).Value * factor
	})
	n := &Num{3}
	assert.Equal(t, 6, scaled.Get(n, 2))
	assert.Equal(t, 9, scaled.Get(n, 3))
	assert.Equal(t, 6, scaled.Get(n, 2))
	assert.Equal(t, 2, calls, "only the two distinct (node, factor) pairs should recompute")
	assert.True(t, scaled.HasBeenComputedAt(n, 2))
	assert.False(t, scaled.HasBeenComputedAt(n, 99))
}
