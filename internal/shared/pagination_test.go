package shared

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	require.Equal(t, 2, p.Page)
	require.Equal(t, 20, p.PerPage)
	require.Equal(t, 45, p.Total)
	require.Equal(t, 3, p.TotalPages)
	require.Equal(t, 20, p.Offset())

	p = NewPagination(0, 0, 0)
	require.Equal(t, 1, p.Page)
	require.Equal(t, defaultPerPage, p.PerPage)
	require.Equal(t, 0, p.TotalPages)
}

func TestPageFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/sales?page=3&limit=50", nil)
	page, perPage := PageFromRequest(r, 100)
	require.Equal(t, 3, page)
	require.Equal(t, 50, perPage)

	r = httptest.NewRequest("GET", "/sales?limit=500", nil)
	page, perPage = PageFromRequest(r, 100)
	require.Equal(t, 1, page)
	require.Equal(t, 100, perPage, "limit is clamped to the maximum")

	r = httptest.NewRequest("GET", "/sales?page=-1&limit=abc", nil)
	page, perPage = PageFromRequest(r, 100)
	require.Equal(t, 1, page)
	require.Equal(t, defaultPerPage, perPage)
}
