package models

// Pagination is the paging block returned with every collection.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	TotalPages  int `json:"total_pages"`
}

// Clamp bounds page into [1, TotalPages]. With no known pages only page 1 is valid.
func (p Pagination) Clamp(page int) int {
	last := p.TotalPages
	if last < 1 {
		last = 1
	}
	if page < 1 {
		return 1
	}
	if page > last {
		return last
	}
	return page
}

// HasNext reports whether a page after CurrentPage exists.
func (p Pagination) HasNext() bool {
	return p.CurrentPage < p.TotalPages
}

// HasPrev reports whether a page before CurrentPage exists.
func (p Pagination) HasPrev() bool {
	return p.CurrentPage > 1
}

// Page is one page of a remote collection.
type Page[T any] struct {
	Items []T `json:"items"`
	Pagination
}
