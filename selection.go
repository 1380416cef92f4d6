package ustar

// Selection tracks which requested entry names have been seen.
// An empty Selection selects every entry.
type Selection struct {
	slots []slot
}

type slot struct {
	name  string
	found bool
}

// NewSelection builds a Selection from names, preserving their order.
// Duplicate names are kept as separate slots.
func NewSelection(names []string) *Selection {
	s := &Selection{slots: make([]slot, len(names))}
	for i, name := range names {
		s.slots[i].name = name
	}
	return s
}

// Empty reports whether no names were requested.
func (s *Selection) Empty() bool {
	return len(s.slots) == 0
}

// Match reports whether an entry named name should be processed. With
// requested names, it consumes the first unmatched slot equal to name, so
// each slot matches at most one entry.
func (s *Selection) Match(name string) bool {
	if s.Empty() {
		return true
	}
	for i := range s.slots {
		if !s.slots[i].found && s.slots[i].name == name {
			s.slots[i].found = true
			return true
		}
	}
	return false
}

// Missing returns every requested name that has not been matched, in request order.
func (s *Selection) Missing() []string {
	var missing []string
	for _, sl := range s.slots {
		if !sl.found {
			missing = append(missing, sl.name)
		}
	}
	return missing
}
