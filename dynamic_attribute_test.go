package kiama

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseType(n any) string {
	switch n.(type) {
	case *Num:
		return "int"
	case *Var:
		return "unknown"
	default:
		return "?"
	}
}

func TestDynamicAttribute_FallsBackToBase(t *testing.T) {
	typ := NewDynamicAttribute("type", baseType)
	assert.Equal(t, "int", typ.Get(&Num{1}))
	assert.Equal(t, "unknown", typ.Get(&Var{"x"}))
}

func TestDynamicAttribute_PrependOverridesBase(t *testing.T) {
	typ := NewDynamicAttribute("type", baseType)
	x := &Var{"x"}

	token := typ.Prepend(func(n any) (string, bool) {
		if v, ok := n.(*Var); ok && v.Name == "x" {
			return "int", true
		}
		return "", false
	})
	assert.Equal(t, "int", typ.Get(x))
	assert.Equal(t, "unknown", typ.Get(&Var{"y"}))

	typ.Remove(token)
	assert.Equal(t, "unknown", typ.Get(x))
}

func TestDynamicAttribute_MostRecentOverrideWins(t *testing.T) {
	typ := NewDynamicAttribute("type", baseType)
	x := &Var{"x"}

	t1 := typ.Prepend(func(n any) (string, bool) {
		if v, ok := n.(*Var); ok && v.Name == "x" {
			return "int", true
		}
		return "", false
	})
	t2 := typ.Prepend(func(n any) (string, bool) {
		if v, ok := n.(*Var); ok && v.Name == "x" {
			return "string", true
		}
		return "", false
	})
	assert.Equal(t, "string", typ.Get(x))
	typ.Remove(t2)
	assert.Equal(t, "int", typ.Get(x))
	typ.Remove(t1)
	assert.Equal(t, "unknown", typ.Get(x))
}

func TestDynamicAttribute_Block_RemovesEvenAfterPanic(t *testing.T) {
	typ := NewDynamicAttribute("type", baseType)
	x := &Var{"x"}

	func() {
		defer func() { recover() }()
		typ.Block(func(n any) (string, bool) {
			if v, ok := n.(*Var); ok && v.Name == "x" {
				return "bool", true
			}
			return "", false
		}, func() {
			assert.Equal(t, "bool", typ.Get(x))
			panic("boom")
		})
	}()

	assert.Equal(t, "unknown", typ.Get(x), "override must be gone after Block returns, even via panic")
}

func TestDynamicAttribute_ReentrantCycleRaisesCycleError(t *testing.T) {
	var self *DynamicAttribute[int]
	self = NewDynamicAttribute("cyclic", func(n any) int {
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

func TestDynamicAttribute_OverrideReentrantCycleRaisesCycleError(t *testing.T) {
	var self *DynamicAttribute[int]
	self = NewDynamicAttribute("cyclic-override", func(n any) int { return 0 })
	self.Prepend(func(n any) (int, bool) {
		return self.Get(n), true
	})

	defer func() {
		r := recover()
		require.NotNil(t, r)
		_, ok := r.(*CycleError)
		require.True(t, ok)
	}()
	self.Get(&Num{1})
	t.Fatal("expected a panic before reaching this point")
}

func TestDynamicAttribute_Reset(t *testing.T) {
	calls := 0
	typ := NewDynamicAttribute("type", func(n any) string {
		calls++
		return baseType(n)
	})
	n := &Num{1}
	typ.Get(n)
	typ.Get(n)
	assert.Equal(t, 1, calls)
	typ.Reset()
	typ.Get(n)
	assert.Equal(t, 2, calls)
}
