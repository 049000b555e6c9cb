// Package pagination partitions ordered result sets into fixed-size pages.
package pagination

import (
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is used when no positive size is configured.
	DefaultPageSize = 10

	onEachSide = 3
	onEnds     = 2
)

// Link is one entry of the page selector rendered under a listing.
type Link struct {
	Number     int  `json:"number,omitempty"`
	IsCurrent  bool `json:"is_current,omitempty"`
	IsEllipsis bool `json:"is_ellipsis,omitempty"`
}

// Meta describes where a page sits in the full result set.
type Meta struct {
	Page         int    `json:"page"`
	PageSize     int    `json:"page_size"`
	TotalItems   int64  `json:"total_items"`
	TotalPages   int    `json:"total_pages"`
	HasNext      bool   `json:"has_next"`
	HasPrevious  bool   `json:"has_previous"`
	NextPage     int    `json:"next_page,omitempty"`
	PreviousPage int    `json:"previous_page,omitempty"`
	Links        []Link `json:"links"`
}

// Result is a page of items plus its paging metadata.
type Result[T any] struct {
	Items []T `json:"items"`
	Meta  `json:"pagination"`
}

// ParsePage reads a page number from a query value.
// Missing or non-numeric input yields page 1; range clamping happens in Compute.
func ParsePage(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return n
}

// Compute clamps page into [1, TotalPages] and fills in the metadata.
// An empty set still has one (empty) page.
func Compute(page, pageSize int, total int64) Meta {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if total < 0 {
		total = 0
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}

	switch {
	case page < 1:
		page = 1
	case page > totalPages:
		page = totalPages
	}

	m := Meta{
		Page:        page,
		PageSize:    pageSize,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
	if m.HasNext {
		m.NextPage = page + 1
	}
	if m.HasPrevious {
		m.PreviousPage = page - 1
	}
	m.Links = elidedRange(page, totalPages)
	return m
}

// Offset returns the number of rows preceding the page.
func (m Meta) Offset() int {
	return (m.Page - 1) * m.PageSize
}

// Limit returns the page size.
func (m Meta) Limit() int {
	return m.PageSize
}

// elidedRange lists the page numbers around current, collapsing long runs into ellipses.
func elidedRange(current, total int) []Link {
	if total <= (onEachSide+onEnds)*2 {
		return span(1, total, current)
	}

	var links []Link
	if current > 1+onEachSide+onEnds+1 {
		links = append(links, span(1, onEnds, current)...)
		links = append(links, Link{IsEllipsis: true})
		links = append(links, span(current-onEachSide, current, current)...)
	} else {
		links = append(links, span(1, current, current)...)
	}

	if current < total-onEachSide-onEnds-1 {
		links = append(links, span(current+1, current+onEachSide, current)...)
		links = append(links, Link{IsEllipsis: true})
		links = append(links, span(total-onEnds+1, total, current)...)
	} else {
		links = append(links, span(current+1, total, current)...)
	}
	return links
}

func span(from, to, current int) []Link {
	if to < from {
		return nil
	}
	out := make([]Link, 0, to-from+1)
	for n := from; n <= to; n++ {
		out = append(out, Link{Number: n, IsCurrent: n == current})
	}
	return out
}
