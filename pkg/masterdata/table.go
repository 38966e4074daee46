package masterdata

import (
	"fmt"
	"slices"
)

// Table is an immutable set of rows with a unique primary key.
type Table[K comparable, V any] struct {
	name  string
	rows  []V
	byKey map[K]int
}

// NewTable indexes rows by key. Duplicate keys are rejected.
func NewTable[K comparable, V any](name string, rows []V, key func(V) K) (*Table[K, V], error) {
	t := &Table[K, V]{
		name:  name,
		rows:  slices.Clone(rows),
		byKey: make(map[K]int, len(rows)),
	}
	for i, row := range t.rows {
		k := key(row)
		if _, dup := t.byKey[k]; dup {
			return nil, fmt.Errorf("table %s: duplicate primary key %v", name, k)
		}
		t.byKey[k] = i
	}
	return t, nil
}

// Find returns the row with primary key k.
func (t *Table[K, V]) Find(k K) (V, bool) {
	i, ok := t.byKey[k]
	if !ok {
		var zero V
		return zero, false
	}
	return t.rows[i], true
}

// All returns a copy of every row in load order.
func (t *Table[K, V]) All() []V {
	return slices.Clone(t.rows)
}

// Len returns the row count.
func (t *Table[K, V]) Len() int { return len(t.rows) }

// Name returns the table name.
func (t *Table[K, V]) Name() string { return t.name }

// Index is a non-unique secondary index over a table's rows.
type Index[K comparable, V any] struct {
	groups map[K][]V
}

// NewIndex groups rows by key, preserving load order within each group.
func NewIndex[K comparable, V any](rows []V, key func(V) K) *Index[K, V] {
	idx := &Index[K, V]{groups: make(map[K][]V)}
	for _, row := range rows {
		k := key(row)
		idx.groups[k] = append(idx.groups[k], row)
	}
	return idx
}

// Find returns a copy of the rows grouped under k.
func (i *Index[K, V]) Find(k K) []V {
	return slices.Clone(i.groups[k])
}
