package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		size     int
		want     Pagination
		wantFlds []string
	}{
		{name: "defaults", want: Pagination{Page: 1, PageSize: DefaultPageSize}},
		{name: "explicit", page: 3, size: 50, want: Pagination{Page: 3, PageSize: 50}},
		{name: "max size", page: 1, size: MaxPageSize, want: Pagination{Page: 1, PageSize: MaxPageSize}},
		{name: "negative page", page: -1, size: 10, wantFlds: []string{"page"}},
		{name: "size too big", page: 1, size: MaxPageSize + 1, wantFlds: []string{"page_size"}},
		{name: "negative size", page: 1, size: -5, wantFlds: []string{"page_size"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewPagination(tt.page, tt.size)
			if tt.wantFlds == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			vErr, ok := err.(*ValidationError)
			require.True(t, ok, "got %T", err)
			flds := make([]string, 0, len(vErr.Fields))
			for _, f := range vErr.Fields {
				flds = append(flds, f.Field)
			}
			assert.Equal(t, tt.wantFlds, flds)
		})
	}
}

func TestPagination_Bounds(t *testing.T) {
	p := Pagination{Page: 2, PageSize: 10}
	assert.Equal(t, uint64(10), p.Offset())
	assert.Equal(t, uint64(10), p.Limit())

	start, end := p.Bounds(25)
	assert.Equal(t, [2]int{10, 20}, [2]int{start, end})
	start, end = p.Bounds(15)
	assert.Equal(t, [2]int{10, 15}, [2]int{start, end})
	start, end = p.Bounds(5)
	assert.Equal(t, [2]int{5, 5}, [2]int{start, end})
}

func TestTotalPages(t *testing.T) {
	tests := []struct{ count, size, want int }{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{45, 20, 3},
		{5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.count, tt.size), "TotalPages(%d, %d)", tt.count, tt.size)
	}
}

func TestNewPage(t *testing.T) {
	p := NewPage[string](nil, 0)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)

	p = NewPage([]string{"a"}, 12)
	assert.Equal(t, 12, p.Count)
}

func TestPageState(t *testing.T) {
	ps := NewPageState(10)
	ps.SetCount(45) // 5 pages

	assert.Equal(t, 5, ps.TotalPages())
	assert.False(t, ps.HasPrev())
	assert.False(t, ps.Prev())
	assert.Equal(t, 1, ps.Page())

	for i := 2; i <= 5; i++ {
		assert.True(t, ps.Next())
		assert.Equal(t, i, ps.Page())
	}
	assert.False(t, ps.HasNext(), "last page")
	assert.False(t, ps.Next())
	assert.Equal(t, 5, ps.Page())

	ps.Goto(99)
	assert.Equal(t, 5, ps.Page())
	ps.Goto(-3)
	assert.Equal(t, 1, ps.Page())
	ps.Goto(3)
	assert.Equal(t, Pagination{Page: 3, PageSize: 10}, ps.Pagination())

	ps.SetFilter("status", "active")
	assert.Equal(t, 1, ps.Page(), "filter change resets the page")
	assert.Equal(t, map[string]string{"status": "active"}, ps.Filters())

	ps.Goto(4)
	ps.SetPageSize(20)
	assert.Equal(t, 1, ps.Page(), "page size change resets the page")
	assert.Equal(t, 3, ps.TotalPages())

	ps.Goto(3)
	ps.SetCount(25)
	assert.Equal(t, 2, ps.Page(), "shrinking count pulls the page back in range")

	ps.SetFilter("status", "")
	assert.Empty(t, ps.Filters())
}

func TestPageState_empty(t *testing.T) {
	ps := NewPageState(0)
	assert.Equal(t, DefaultPageSize, ps.PageSize())
	assert.Equal(t, 0, ps.TotalPages())
	assert.False(t, ps.HasNext())
	assert.False(t, ps.Next())
	assert.Equal(t, 1, ps.Page())
}
