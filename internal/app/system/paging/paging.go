// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the number of rows shown per page in admin and result lists.
const PageSize = 20

// MaxRows caps how many rows a paged list loads from the backend.
const MaxRows = 500

// ParseStart extracts the human-friendly "start" query parameter (1-based index).
// Returns 1 if not present or invalid.
func ParseStart(r *http.Request) int {
	s := query.Get(r, "start")
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Range holds computed display range values for a paginated list.
type Range struct {
	Start     int // 1-based start index (0 if no results)
	End       int // 1-based end index (0 if no results)
	Total     int
	HasPrev   bool
	HasNext   bool
	PrevStart int // start value for previous page link
	NextStart int // start value for next page link
}

// Page returns the window of rows beginning at the 1-based start and the
// range describing it. A start past the end yields the last page.
func Page[T any](rows []T, start int) ([]T, Range) {
	total := len(rows)
	if total == 0 {
		return rows, Range{PrevStart: 1, NextStart: 1}
	}
	if start < 1 {
		start = 1
	}
	if start > total {
		start = ((total-1)/PageSize)*PageSize + 1
	}
	end := start - 1 + PageSize
	if end > total {
		end = total
	}

	prev := start - PageSize
	if prev < 1 {
		prev = 1
	}
	return rows[start-1 : end], Range{
		Start:     start,
		End:       end,
		Total:     total,
		HasPrev:   start > 1,
		HasNext:   end < total,
		PrevStart: prev,
		NextStart: end + 1,
	}
}
