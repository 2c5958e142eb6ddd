package model

// Filter selects which positions of a promotion list are displayed.
//
// A nil index set means no filtering is active and everything is shown.
// A non-nil empty set means a search ran and matched nothing.
type Filter struct {
	indices []int
}

// NoFilter returns the unfiltered state.
func NoFilter() Filter {
	return Filter{}
}

// Indices returns a filter over the given positions. Order and duplicates
// are preserved.
func Indices(indices ...int) Filter {
	out := make([]int, len(indices))
	copy(out, indices)
	return Filter{indices: out}
}

// IsActive reports whether a filter has been applied.
func (f Filter) IsActive() bool {
	return f.indices != nil
}

// IsEmptyMatch reports whether a search ran and matched nothing.
func (f Filter) IsEmptyMatch() bool {
	return f.indices != nil && len(f.indices) == 0
}

// Positions returns a copy of the selected positions, or nil when inactive.
func (f Filter) Positions() []int {
	if f.indices == nil {
		return nil
	}
	out := make([]int, len(f.indices))
	copy(out, f.indices)
	return out
}

// Apply returns the promotions the filter selects, in filter order.
// An inactive filter returns the whole list. Positions outside the list
// are skipped.
func (f Filter) Apply(promotions []Promotion) []Promotion {
	if !f.IsActive() {
		return promotions
	}
	out := make([]Promotion, 0, len(f.indices))
	for _, i := range f.indices {
		if i < 0 || i >= len(promotions) {
			continue
		}
		out = append(out, promotions[i])
	}
	return out
}
