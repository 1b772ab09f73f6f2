// Package table orders chart-of-accounts and ledger rows by column key.
//
// Sorting is ascending only: sorting twice by the same key yields the same
// order rather than flipping direction. Ties keep their prior relative order.
package table

import (
	"fmt"
	"slices"
	"sort"
)

// Key names a sortable column.
type Key string

// CompareFunc returns a negative number when a sorts before b, zero when they tie.
type CompareFunc[T any] func(a, b T) int

// Sorter knows how to compare records of type T by each of its keys.
type Sorter[T any] struct {
	columns map[Key]CompareFunc[T]
}

func NewSorter[T any](columns map[Key]CompareFunc[T]) *Sorter[T] {
	return &Sorter[T]{columns: columns}
}

// Sort returns a sorted copy of records; the input slice is left untouched.
func (s *Sorter[T]) Sort(records []T, key Key) ([]T, error) {
	compare, ok := s.columns[key]
	if !ok {
		return nil, fmt.Errorf("unknown sort key %q", key)
	}
	out := slices.Clone(records)
	slices.SortStableFunc(out, compare)
	return out, nil
}

// Keys lists the supported keys in lexical order.
func (s *Sorter[T]) Keys() []Key {
	keys := make([]Key, 0, len(s.columns))
	for k := range s.columns {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Has reports whether key is a supported column.
func (s *Sorter[T]) Has(key Key) bool {
	_, ok := s.columns[key]
	return ok
}
