// Package selection tracks which table rows the user has ticked.
package selection

import "slices"

// Set is an insertion-ordered set of row identifiers. Values are immutable:
// every operation returns a new Set.
type Set[K comparable] struct {
	items []K
}

// Toggle adds item when included is true and removes it otherwise. Adding
// an item that is already present is a no-op.
func (s Set[K]) Toggle(item K, included bool) Set[K] {
	if included {
		if s.Contains(item) {
			return s
		}
		items := make([]K, len(s.items), len(s.items)+1)
		copy(items, s.items)
		return Set[K]{items: append(items, item)}
	}
	items := make([]K, 0, len(s.items))
	for _, it := range s.items {
		if it != item {
			items = append(items, it)
		}
	}
	return Set[K]{items: items}
}

// Retain drops every item for which visible returns false.
func (s Set[K]) Retain(visible func(K) bool) Set[K] {
	items := make([]K, 0, len(s.items))
	for _, it := range s.items {
		if visible(it) {
			items = append(items, it)
		}
	}
	return Set[K]{items: items}
}

func (s Set[K]) Contains(item K) bool {
	return slices.Contains(s.items, item)
}

func (s Set[K]) Len() int {
	return len(s.items)
}

func (s Set[K]) Empty() bool {
	return len(s.items) == 0
}

// Items returns a copy of the selected identifiers in selection order.
func (s Set[K]) Items() []K {
	return slices.Clone(s.items)
}
