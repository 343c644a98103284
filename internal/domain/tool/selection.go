package tool

import "sort"

// Selection is the multi-select set backing bulk actions.
// Not thread-safe; the owning view mutates it from a single goroutine.
// It may reference ids no longer present in the current tool collection;
// stale ids are tolerated and simply act on nothing.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Toggle adds the id when absent and removes it when present.
func (s *Selection) Toggle(id string) {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

// Contains reports whether the id is selected.
func (s *Selection) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// IDs returns the selected ids in sorted order for deterministic iteration.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	return len(s.ids)
}

// Clear removes every selected id. The filter model never clears the
// selection on its own; the caller decides when, typically after a bulk
// action is confirmed.
func (s *Selection) Clear() {
	s.ids = make(map[string]struct{})
}
