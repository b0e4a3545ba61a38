package library

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/chromox/api/internal/model"
)

// RefreshFunc pulls a fresh collection snapshot from the item store.
type RefreshFunc[T any] func(ctx context.Context) ([]T, error)

// Projection is the read-only output handed to the presentation layer.
type Projection[T any] struct {
	Groups []Group[T] `json:"groups"`
	Total  int        `json:"total"`
}

// View owns one collection's snapshot and presentation state. The
// snapshot is an immutable value: Refresh substitutes it as a whole,
// so a projection always computes over a consistent collection.
// Collapsed-group state is a plain set keyed by group label and never
// feeds back into the query/sort/group pipeline.
type View[T any] struct {
	desc    Descriptor[T]
	refresh RefreshFunc[T]
	now     func() time.Time

	mu        sync.RWMutex
	items     []T
	collapsed map[string]struct{}
}

// NewView creates a view over an empty snapshot. Call Refresh to load.
func NewView[T any](d Descriptor[T], refresh RefreshFunc[T]) *View[T] {
	return &View[T]{
		desc:      d,
		refresh:   refresh,
		now:       time.Now,
		collapsed: make(map[string]struct{}),
	}
}

// Refresh pulls a new snapshot and swaps it in whole. On error the
// previous snapshot stays in place.
func (v *View[T]) Refresh(ctx context.Context) error {
	items, err := v.refresh(ctx)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.items = items
	v.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current collection.
func (v *View[T]) Snapshot() []T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.items)
}

// Find looks up an item by identifier in the current snapshot.
func (v *View[T]) Find(id string) (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, item := range v.items {
		if v.desc.ID(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Project runs the read pipeline — query, sort, group — over the
// current snapshot and decorates each group with its collapsed state.
func (v *View[T]) Project(c Criteria, sortKey model.SortKey, groupKey model.GroupKey) Projection[T] {
	v.mu.RLock()
	items := v.items
	v.mu.RUnlock()

	matched := Query(items, v.desc, c)
	ordered := Sort(matched, v.desc, sortKey)
	groups := GroupBy(ordered, v.desc, groupKey, v.now())

	v.mu.RLock()
	for i := range groups {
		_, groups[i].Collapsed = v.collapsed[groups[i].Label]
	}
	v.mu.RUnlock()

	return Projection[T]{Groups: groups, Total: len(ordered)}
}

// ToggleGroup flips a group's collapsed state and returns the new one.
func (v *View[T]) ToggleGroup(label string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.collapsed[label]; ok {
		delete(v.collapsed, label)
		return false
	}
	v.collapsed[label] = struct{}{}
	return true
}

// Collapsed reports whether a group is currently collapsed.
func (v *View[T]) Collapsed(label string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.collapsed[label]
	return ok
}
