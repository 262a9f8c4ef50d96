package types

import "math"

// DefaultPageSize is the number of items on one page of any listing.
const DefaultPageSize = 10

// MaxPage is the largest page number whose offset fits in an int.
const MaxPage = math.MaxInt/DefaultPageSize + 1

// Page is a bounded, ordered slice of a larger result set.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPage assembles a page from its items and the size of the full result set.
func NewPage[T any](items []T, page, limit, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Page[T]{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Offset converts a 1-based page number into a row offset.
func Offset(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}
