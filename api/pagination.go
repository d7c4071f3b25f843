package api

import (
	"fmt"
	"net/http"
	"strconv"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 200
)

// parsePagination reads the "limit" query parameter and the body cursor.
// A missing or invalid limit falls back to defaultPageLimit and is capped
// at maxPageLimit. The cursor is the decimal offset of the first item; a
// cursor that is not a non-negative integer is a bad request.
func parsePagination(r *http.Request, cursor *string) (limit, offset int, err error) {
	limit = defaultPageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	if cursor == nil || *cursor == "" {
		return limit, 0, nil
	}
	offset, err = strconv.Atoi(*cursor)
	if err != nil || offset < 0 {
		return 0, 0, fmt.Errorf("%w: invalid cursor %q", errBadRequest, *cursor)
	}
	return limit, offset, nil
}

// paginateSlice returns (start, end) indices for slicing a collection of
// totalCount items, and the cursor of the following page, which is nil on
// the last page. If offset exceeds totalCount, start == end (empty page).
func paginateSlice(totalCount, limit, offset int) (start, end int, next *string) {
	start = offset
	if start > totalCount {
		start = totalCount
	}
	end = start + limit
	if end > totalCount {
		end = totalCount
	}
	if end < totalCount {
		c := strconv.Itoa(end)
		next = &c
	}
	return start, end, next
}
