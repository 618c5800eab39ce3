package store

import "math"

// Page is a normalized page request. Page starts at 1.
type Page struct {
	Page  int
	Limit int
}

// NewPage clamps page and limit: page < 1 becomes 1, limit < 1 becomes def and
// limit > max becomes max.
func NewPage(page, limit, def, max int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// Paginated is the list payload returned by every paginated endpoint.
type Paginated[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func NewPaginated[T any](items []T, total int64, p Page) Paginated[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	return Paginated[T]{Data: items, Total: total, Page: p.Page, Limit: p.Limit, TotalPages: pages}
}
