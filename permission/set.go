package permission

// Set is an insertion-ordered, de-duplicated collection of names. It is used
// both for effective permission sets and for role name lists.
type Set struct {
	order []string
	index map[string]struct{}
}

// NewSet builds a set from names, dropping duplicates and empty strings.
func NewSet(names ...string) *Set {
	s := &Set{index: make(map[string]struct{}, len(names))}
	s.Add(names...)
	return s
}

// Add inserts names not yet present.
func (s *Set) Add(names ...string) {
	if s.index == nil {
		s.index = make(map[string]struct{}, len(names))
	}
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := s.index[n]; ok {
			continue
		}
		s.index[n] = struct{}{}
		s.order = append(s.order, n)
	}
}

// Has reports whether name is present.
func (s *Set) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[name]
	return ok
}

// HasAll all-of: true when every required name is present. An empty
// requirement is always satisfied.
func (s *Set) HasAll(required ...string) bool {
	for _, r := range required {
		if !s.Has(r) {
			return false
		}
	}
	return true
}

// HasAny any-of: true when at least one name is present. An empty
// requirement is never satisfied.
func (s *Set) HasAny(candidates ...string) bool {
	for _, c := range candidates {
		if s.Has(c) {
			return true
		}
	}
	return false
}

// Missing returns the required names that are absent, in argument order.
func (s *Set) Missing(required ...string) []string {
	var out []string
	for _, r := range required {
		if !s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Len number of names
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Slice returns a copy of the names in first-seen order.
func (s *Set) Slice() []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
