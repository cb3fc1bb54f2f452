package domain

// Page is the pagination result shape shared by every listing operation.
// A page may carry fewer than the requested number of items while HasMore
// is still true: identifiers whose records were deleted out from under an
// index are dropped during resolution. Callers must follow NextCursor, not
// the item count, to detect the end of the listing.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
	// Total is the raw index cardinality where cheap to compute, zero
	// otherwise.
	Total int64 `json:"total,omitempty"`
}
