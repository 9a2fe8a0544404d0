// Package query holds the declarative filter/sort/page request for task
// listings and the pagination math. It is storage-agnostic; the repository
// translates a Filter into the actual lookup.
package query

import (
	"fmt"
	"time"
)

const (
	SortByCreatedAt       = "created_at"
	SortByUpdatedAt       = "updated_at"
	SortByDueDate         = "due_date"
	SortByPriority        = "priority"
	SortByEstimateMinutes = "estimate_minutes"
	SortByTitle           = "title"

	OrderAsc  = "asc"
	OrderDesc = "desc"

	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter is a conjunctive filter over one owner's tasks. Zero-valued fields
// are omitted from matching entirely, with one exception: a nil ParentID
// means "root tasks only", not "any parent".
type Filter struct {
	// Search matches case-insensitively as a literal substring against
	// title or description.
	Search    string
	Completed *bool
	Priority  *int
	// DueBefore and DueAfter are inclusive bounds on due_date, in the
	// normalized UTC form produced by NormalizeTime.
	DueBefore string
	DueAfter  string
	ParentID  *string
}

type Sort struct {
	By    string
	Order string
}

// ListQuery is a full listing request as received from the caller.
type ListQuery struct {
	Filter   Filter
	Sort     Sort
	Page     int
	PageSize int
}

// ApplyDefaults fills in the documented defaults for anything the caller
// left unset: sort by created_at descending, page 1, page size 20. The page
// size is clamped to MaxPageSize.
func (q *ListQuery) ApplyDefaults() {
	if q.Sort.By == "" {
		q.Sort.By = SortByCreatedAt
	}
	if q.Sort.Order == "" {
		q.Sort.Order = OrderDesc
	}
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
}

// ValidSortBy reports whether s names a sortable task attribute.
func ValidSortBy(s string) bool {
	switch s {
	case SortByCreatedAt, SortByUpdatedAt, SortByDueDate,
		SortByPriority, SortByEstimateMinutes, SortByTitle:
		return true
	}
	return false
}

// Pagination describes the page actually served. Page is the requested page
// clamped into [1, TotalPages]; PreviousPage and NextPage are nil at the
// respective edges.
type Pagination struct {
	Total        int
	TotalPages   int
	FirstPage    int
	LastPage     int
	Page         int
	PreviousPage *int
	NextPage     *int
}

// NewPagination computes pagination metadata for total matching items and a
// requested page. An empty result set still counts as one page.
func NewPagination(total, page, pageSize int) Pagination {
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	p := Pagination{
		Total:      total,
		TotalPages: totalPages,
		FirstPage:  1,
		LastPage:   totalPages,
		Page:       page,
	}
	if page > 1 {
		prev := page - 1
		p.PreviousPage = &prev
	}
	if page < totalPages {
		next := page + 1
		p.NextPage = &next
	}
	return p
}

// Offset returns the number of items to skip for the served page.
func (p Pagination) Offset(pageSize int) int {
	return (p.Page - 1) * pageSize
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// NormalizeTime parses an ISO-8601 timestamp, accepting a trailing "Z" as
// UTC as well as forms without an offset, and returns it in UTC RFC 3339
// form. Normalizing every stored and compared value to the same form keeps
// due-date range bounds a plain string comparison.
func NormalizeTime(s string) (string, error) {
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}
	return "", fmt.Errorf("invalid ISO-8601 timestamp: %q", s)
}
