// Package idtable implements an identity-keyed table used by Kiama's
// attribute memo tables, the rewriting engine's memo(s) strategy cache, and
// tree-structural parent/index maps. Lookup is O(1) for node types whose
// dynamic type is a safe Go map key (every reference kind, and any
// comparable value kind); it degrades to a linear scan, compared with
// reflect.DeepEqual, for the rare value-kind node whose type is not
// comparable (e.g. a bare struct embedding a slice used directly as an
// attribute's subject). This mirrors the teacher's node-pointer-keyed cache
// in tree.go, generalized from "*node" to "any node identity".
package idtable

import "github.com/kiamalang/kiama/internal/idkey"

// State is the memoisation state of an entry, matching the tri-state memo
// table described by the attribute engine: unevaluated, in-progress (used
// to detect cycles), or computed.
type State int

const (
	Unevaluated State = iota
	InProgress
	Computed
)

// Entry is one memo-table slot.
type Entry[V any] struct {
	State State
	Value V
}

type slowEntry[V any] struct {
	node  any
	entry Entry[V]
}

// Table is an identity-keyed map from an arbitrary node value to Entry[V].
type Table[V any] struct {
	fast map[any]*Entry[V]
	slow []*slowEntry[V]
}

// New returns an empty Table.
func New[V any]() *Table[V] {
	return &Table[V]{fast: make(map[any]*Entry[V])}
}

// Get returns the entry stored for node, and whether one exists.
func (t *Table[V]) Get(node any) (*Entry[V], bool) {
	if key, ok := idkey.Of(node); ok {
		e, found := t.fast[key]
		return e, found
	}
	for _, se := range t.slow {
		if idkey.Same(se.node, node) {
			return &se.entry, true
		}
	}
	return nil, false
}

// Set stores (or overwrites) the entry for node.
func (t *Table[V]) Set(node any, e Entry[V]) {
	if key, ok := idkey.Of(node); ok {
		ev := e
		t.fast[key] = &ev
		return
	}
	for _, se := range t.slow {
		if idkey.Same(se.node, node) {
			se.entry = e
			return
		}
	}
	t.slow = append(t.slow, &slowEntry[V]{node: node, entry: e})
}

// Delete removes the entry for node, if any.
func (t *Table[V]) Delete(node any) {
	if key, ok := idkey.Of(node); ok {
		delete(t.fast, key)
		return
	}
	for i, se := range t.slow {
		if idkey.Same(se.node, node) {
			t.slow = append(t.slow[:i], t.slow[i+1:]...)
			return
		}
	}
}

// Reset empties the table.
func (t *Table[V]) Reset() {
	t.fast = make(map[any]*Entry[V])
	t.slow = nil
}

// Len returns the number of stored entries.
func (t *Table[V]) Len() int {
	return len(t.fast) + len(t.slow)
}
