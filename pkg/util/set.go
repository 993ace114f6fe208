package util

// Set is an unordered collection of comparable values. The status
// transition tables and event subscription filters are built on it
type Set[K comparable] map[K]struct{}

// SetOf builds a set from the given elements
func SetOf[K comparable](elements ...K) Set[K] {
	s := make(Set[K], len(elements))
	for _, elem := range elements {
		s[elem] = struct{}{}
	}
	return s
}

// Add inserts key into the set
func (s Set[K]) Add(key K) {
	s[key] = struct{}{}
}

// Remove deletes key from the set. Missing keys are a no-op
func (s Set[K]) Remove(key K) {
	delete(s, key)
}

// Contains reports whether key is present
func (s Set[K]) Contains(key K) bool {
	_, exists := s[key]
	return exists
}

// Len returns the number of elements in the set
func (s Set[K]) Len() int {
	return len(s)
}

// IsEmpty reports whether the set has no elements
func (s Set[K]) IsEmpty() bool {
	return len(s) == 0
}
