package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	var q ListQuery
	q.ApplyDefaults()

	assert.Equal(t, SortByCreatedAt, q.Sort.By)
	assert.Equal(t, OrderDesc, q.Sort.Order)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.PageSize)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	q := ListQuery{
		Sort:     Sort{By: SortByTitle, Order: OrderAsc},
		Page:     3,
		PageSize: 50,
	}
	q.ApplyDefaults()

	assert.Equal(t, SortByTitle, q.Sort.By)
	assert.Equal(t, OrderAsc, q.Sort.Order)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 50, q.PageSize)
}

func TestApplyDefaultsClampsPageSize(t *testing.T) {
	q := ListQuery{PageSize: 500}
	q.ApplyDefaults()
	assert.Equal(t, MaxPageSize, q.PageSize)
}

func TestNewPagination(t *testing.T) {
	t.Run("45 items at page size 20 make 3 pages", func(t *testing.T) {
		p := NewPagination(45, 1, 20)
		assert.Equal(t, 45, p.Total)
		assert.Equal(t, 3, p.TotalPages)
		assert.Equal(t, 1, p.FirstPage)
		assert.Equal(t, 3, p.LastPage)
		assert.Equal(t, 1, p.Page)
		assert.Nil(t, p.PreviousPage)
		require.NotNil(t, p.NextPage)
		assert.Equal(t, 2, *p.NextPage)
	})

	t.Run("page clamps to last page", func(t *testing.T) {
		p := NewPagination(45, 10, 20)
		assert.Equal(t, 3, p.Page)
		assert.Nil(t, p.NextPage)
		require.NotNil(t, p.PreviousPage)
		assert.Equal(t, 2, *p.PreviousPage)
	})

	t.Run("empty result set still has one page", func(t *testing.T) {
		p := NewPagination(0, 1, 20)
		assert.Equal(t, 0, p.Total)
		assert.Equal(t, 1, p.TotalPages)
		assert.Equal(t, 1, p.Page)
		assert.Nil(t, p.PreviousPage)
		assert.Nil(t, p.NextPage)
	})

	t.Run("middle page has both neighbors", func(t *testing.T) {
		p := NewPagination(45, 2, 20)
		require.NotNil(t, p.PreviousPage)
		require.NotNil(t, p.NextPage)
		assert.Equal(t, 1, *p.PreviousPage)
		assert.Equal(t, 3, *p.NextPage)
		assert.Equal(t, 20, p.Offset(20))
	})
}

func TestNormalizeTime(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2024-12-31T23:59:59Z", "2024-12-31T23:59:59Z"},
		{"2024-12-31T23:59:59+02:00", "2024-12-31T21:59:59Z"},
		{"2024-12-31T23:59:59", "2024-12-31T23:59:59Z"},
		{"2024-12-31", "2024-12-31T00:00:00Z"},
	}
	for _, tc := range cases {
		got, err := NormalizeTime(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := NormalizeTime("next tuesday")
	assert.Error(t, err)
}

func TestValidSortBy(t *testing.T) {
	assert.True(t, ValidSortBy(SortByDueDate))
	assert.True(t, ValidSortBy(SortByEstimateMinutes))
	assert.False(t, ValidSortBy("secret_column; DROP TABLE tasks"))
}
