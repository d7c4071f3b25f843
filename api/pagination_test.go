package api

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		cursor     *string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", nil, defaultPageLimit, 0},
		{"custom limit", "limit=50", nil, 50, 0},
		{"cursor", "", strPtr("10"), defaultPageLimit, 10},
		{"both", "limit=25", strPtr("5"), 25, 5},
		{"empty cursor", "", strPtr(""), defaultPageLimit, 0},
		{"limit exceeds max", "limit=500", nil, maxPageLimit, 0},
		{"limit at max", "limit=200", nil, maxPageLimit, 0},
		{"negative limit uses default", "limit=-1", nil, defaultPageLimit, 0},
		{"non-numeric limit", "limit=abc", nil, defaultPageLimit, 0},
		{"zero limit uses default", "limit=0", nil, defaultPageLimit, 0},
		{"limit one", "limit=1", nil, 1, 0},
		{"large cursor", "", strPtr("999999"), defaultPageLimit, 999999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/test"
			if tt.query != "" {
				url += "?" + tt.query
			}
			r := httptest.NewRequest("POST", url, nil)
			limit, offset, err := parsePagination(r, tt.cursor)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, limit, "limit")
			assert.Equal(t, tt.wantOffset, offset, "offset")
		})
	}
}

func TestParsePaginationRejectsBadCursor(t *testing.T) {
	r := httptest.NewRequest("POST", "/test", nil)
	for _, c := range []string{"abc", "-1", "1.5"} {
		_, _, err := parsePagination(r, strPtr(c))
		assert.ErrorIs(t, err, errBadRequest, c)
	}
}

func TestPaginateSlice(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		limit     int
		offset    int
		wantStart int
		wantEnd   int
		wantNext  *string
	}{
		{name: "first page", total: 50, limit: 10, offset: 0, wantStart: 0, wantEnd: 10, wantNext: strPtr("10")},
		{name: "middle page", total: 50, limit: 10, offset: 20, wantStart: 20, wantEnd: 30, wantNext: strPtr("30")},
		{name: "last page exact", total: 50, limit: 10, offset: 40, wantStart: 40, wantEnd: 50},
		{name: "last page partial", total: 45, limit: 10, offset: 40, wantStart: 40, wantEnd: 45},
		{name: "offset beyond total", total: 5, limit: 10, offset: 100, wantStart: 5, wantEnd: 5},
		{name: "empty collection", total: 0, limit: 10, offset: 0, wantStart: 0, wantEnd: 0},
		{name: "single page", total: 3, limit: 100, offset: 0, wantStart: 0, wantEnd: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, next := paginateSlice(tt.total, tt.limit, tt.offset)
			assert.Equal(t, tt.wantStart, start, "start")
			assert.Equal(t, tt.wantEnd, end, "end")
			assert.Equal(t, tt.wantNext, next, "next cursor")
		})
	}
}
