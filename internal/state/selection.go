package state

import (
	"slices"
	"sync"
)

// SelectionKey holds the ids of the groups chosen for aggregation
const SelectionKey = "gitlab-group-selection"

// GroupSelection is the persisted set of groups to aggregate. An empty
// selection means every group.
type GroupSelection struct {
	mu      sync.Mutex
	storage Storage
	ids     []int64
}

// NewGroupSelection loads the stored selection
func NewGroupSelection(storage Storage) *GroupSelection {
	s := &GroupSelection{storage: storage}
	if stored, ok := load[[]int64](storage, SelectionKey); ok {
		s.ids = stored
	}
	return s
}

// IDs returns the selected group ids in ascending order
func (s *GroupSelection) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids)
}

// HasSelection reports whether any group is selected
func (s *GroupSelection) HasSelection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids) > 0
}

// Set replaces the selection
func (s *GroupSelection) Set(ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids = slices.Clone(ids)
	slices.Sort(ids)
	s.ids = slices.Compact(ids)
	save(s.storage, SelectionKey, s.ids)
}

// Clear drops the selection
func (s *GroupSelection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	remove(s.storage, SelectionKey)
}
