package model

// RelevanceResult is the validated answer to a relevance query.
type RelevanceResult struct {
	Explanation string `json:"explanation"`
	// Indices point into the promotion list the query was built from.
	// Duplicates are kept.
	Indices []int `json:"relevant_indices"`
	// Dropped counts answer entries discarded as out of range or non-integer.
	Dropped int `json:"-"`
}

// Filter converts the result into a display filter.
func (r RelevanceResult) Filter() Filter {
	if r.Indices == nil {
		return Indices()
	}
	return Indices(r.Indices...)
}
