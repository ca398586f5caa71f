package query

// Set is an ordered collection of criteria. It is immutable: With and Append
// return a new Set and never modify the receiver, so a Set can be shared by
// forked builders.
type Set struct {
	items []Criterion
}

// With adds c, replacing a criterion on the same field in place. Two size
// bounds share the size field, so the later call wins for those as well.
func (s Set) With(c Criterion) Set {
	out := make([]Criterion, len(s.items), len(s.items)+1)
	copy(out, s.items)
	for i := range out {
		if out[i].Field == c.Field {
			out[i] = c
			return Set{items: out}
		}
	}
	return Set{items: append(out, c)}
}

// Append adds c without replacing. Used for fields that accumulate values,
// such as labels or any-of parent folders. Exact duplicates are dropped.
func (s Set) Append(c Criterion) Set {
	for _, existing := range s.items {
		if existing == c {
			return s
		}
	}
	out := make([]Criterion, len(s.items), len(s.items)+1)
	copy(out, s.items)
	return Set{items: append(out, c)}
}

// Without removes every criterion on field.
func (s Set) Without(field string) Set {
	out := make([]Criterion, 0, len(s.items))
	for _, c := range s.items {
		if c.Field != field {
			out = append(out, c)
		}
	}
	return Set{items: out}
}

// Items returns a copy of the criteria in insertion order.
func (s Set) Items() []Criterion {
	out := make([]Criterion, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the first criterion on field.
func (s Set) Get(field string) (Criterion, bool) {
	for _, c := range s.items {
		if c.Field == field {
			return c, true
		}
	}
	return Criterion{}, false
}

// All returns every criterion on field, in order.
func (s Set) All(field string) []Criterion {
	var out []Criterion
	for _, c := range s.items {
		if c.Field == field {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of criteria.
func (s Set) Len() int { return len(s.items) }

// Validate checks every criterion.
func (s Set) Validate() error {
	for _, c := range s.items {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}
