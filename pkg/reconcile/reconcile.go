// Package reconcile compares the identifiers a batch command submitted with
// the collection the service returns afterwards.
package reconcile

// Status is the reconciliation result for one submitted identifier.
//
//   - Removed:   the service no longer returns it.
//   - Lingering: the service confirmed the command but still returns it.
type Status int

const (
	Removed Status = iota
	Lingering
)

func (s Status) String() string {
	if s == Lingering {
		return "lingering"
	}
	return "removed"
}

// Entry links a submitted identifier with its reconciliation status.
type Entry[K comparable] struct {
	ID     K
	Status Status
}

// Report is the result of Build.
type Report[K comparable] struct {
	Items     []Entry[K]
	lingering []K
}

// Build walks the submitted identifiers and checks each against the
// refreshed collection, using key to extract identifiers from records.
func Build[K comparable, T any](submitted []K, refreshed []T, key func(T) K) *Report[K] {
	idx := make(map[K]struct{}, len(refreshed))
	for _, r := range refreshed {
		idx[key(r)] = struct{}{}
	}

	items := make([]Entry[K], 0, len(submitted))
	lingering := make([]K, 0)
	for _, id := range submitted {
		status := Removed
		if _, ok := idx[id]; ok {
			status = Lingering
			lingering = append(lingering, id)
		}
		items = append(items, Entry[K]{ID: id, Status: status})
	}

	return &Report[K]{Items: items, lingering: lingering}
}

// RemovedCount returns how many submitted identifiers are gone remotely.
func (r *Report[K]) RemovedCount() int {
	return len(r.Items) - len(r.lingering)
}

// LingeringCount returns how many submitted identifiers the service still returns.
func (r *Report[K]) LingeringCount() int {
	return len(r.lingering)
}

// Lingering returns the identifiers the service still returns.
func (r *Report[K]) Lingering() []K {
	return r.lingering
}
