// Package orderedset provides a string set that remembers insertion order.
package orderedset

// Set is a deduplicating collection that iterates in first-insertion order.
// The zero value is ready to use. It is not safe for concurrent use.
type Set struct {
	index map[string]struct{}
	items []string
}

// New returns a Set holding items in first-seen order.
func New(items ...string) *Set {
	s := &Set{}
	s.AddAll(items...)
	return s
}

// Add inserts item and reports whether it was not already present.
func (s *Set) Add(item string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[item]; ok {
		return false
	}
	s.index[item] = struct{}{}
	s.items = append(s.items, item)
	return true
}

// AddAll inserts every item in order.
func (s *Set) AddAll(items ...string) {
	for _, item := range items {
		s.Add(item)
	}
}

// Contains reports whether item is in the set.
func (s *Set) Contains(item string) bool {
	_, ok := s.index[item]
	return ok
}

// Len returns the number of distinct items.
func (s *Set) Len() int {
	return len(s.items)
}

// Items returns a copy of the items in insertion order.
func (s *Set) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}
