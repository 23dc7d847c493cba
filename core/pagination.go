package core

import "github.com/pkg/errors"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var (
	errInvalidPage     = errors.New("page must be greater than or equal to 1")
	errInvalidPageSize = errors.Errorf("page_size must be between 1 and %d", MaxPageSize)
)

// Pagination selects one page of a filtered list.
type Pagination struct {
	Page     int
	PageSize int
}

// NewPagination validates page >= 1 and 0 < pageSize <= MaxPageSize.
// A zero page or pageSize means "use the default".
func NewPagination(page, pageSize int) (Pagination, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		return Pagination{}, NewValidationError(errInvalidPage, FieldError{Field: "page", Error: errInvalidPage.Error()})
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return Pagination{}, NewValidationError(
			errInvalidPageSize, FieldError{Field: "page_size", Error: errInvalidPageSize.Error()},
		)
	}
	return Pagination{Page: page, PageSize: pageSize}, nil
}

func (p Pagination) Limit() uint64  { return uint64(p.PageSize) }
func (p Pagination) Offset() uint64 { return uint64((p.Page - 1) * p.PageSize) }

// Bounds returns the [start, end) slice indexes of the page within n items.
func (p Pagination) Bounds(n int) (int, int) {
	start := int(p.Offset())
	if start > n {
		start = n
	}
	end := start + p.PageSize
	if end > n {
		end = n
	}
	return start, end
}

// Page is the list envelope returned by every paginated endpoint.
// Count is the number of objects matching the filters, not len(Items).
type Page[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func NewPage[T any](items []T, count int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Count: count}
}

// TotalPages is ceil(count / pageSize).
func TotalPages(count, pageSize int) int {
	if count <= 0 || pageSize <= 0 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}

// PageState walks a paginated list the way a portal screen does:
// navigation is clamped to [1, TotalPages] and any filter or page size change goes back to page 1.
type PageState struct {
	page     int
	pageSize int
	count    int
	filters  map[string]string
}

func NewPageState(pageSize int) *PageState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &PageState{page: 1, pageSize: pageSize, filters: make(map[string]string)}
}

func (ps *PageState) Page() int       { return ps.page }
func (ps *PageState) PageSize() int   { return ps.pageSize }
func (ps *PageState) Count() int      { return ps.count }
func (ps *PageState) TotalPages() int { return TotalPages(ps.count, ps.pageSize) }

func (ps *PageState) Pagination() Pagination {
	return Pagination{Page: ps.page, PageSize: ps.pageSize}
}

// SetCount records the total returned by the last fetch and pulls the page back in range.
func (ps *PageState) SetCount(count int) {
	if count < 0 {
		count = 0
	}
	ps.count = count
	ps.page = ps.clamp(ps.page)
}

func (ps *PageState) SetPageSize(size int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	ps.pageSize = size
	ps.page = 1
}

// SetFilter sets (or, with an empty value, removes) a filter.
func (ps *PageState) SetFilter(key, value string) {
	if value == "" {
		delete(ps.filters, key)
	} else {
		ps.filters[key] = value
	}
	ps.page = 1
}

// Filters returns a copy of the active filters.
func (ps *PageState) Filters() map[string]string {
	cp := make(map[string]string, len(ps.filters))
	for k, v := range ps.filters {
		cp[k] = v
	}
	return cp
}

func (ps *PageState) HasNext() bool { return ps.page < ps.TotalPages() }
func (ps *PageState) HasPrev() bool { return ps.page > 1 }

// Next moves forward one page. It reports false, without moving, on the last page.
func (ps *PageState) Next() bool {
	if !ps.HasNext() {
		return false
	}
	ps.page++
	return true
}

func (ps *PageState) Prev() bool {
	if !ps.HasPrev() {
		return false
	}
	ps.page--
	return true
}

func (ps *PageState) Goto(page int) {
	ps.page = ps.clamp(page)
}

func (ps *PageState) clamp(page int) int {
	if total := ps.TotalPages(); page > total {
		page = total
	}
	if page < 1 {
		page = 1
	}
	return page
}
