package domain

// PaginationParams holds page-based pagination for list endpoints.
// A zero PageSize means "everything".
type PaginationParams struct {
	Page     int
	PageSize int
}

// Offset returns the 0-based index of the first item on the page.
func (p PaginationParams) Offset() int {
	if p.Page < 1 || p.PageSize < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Bounds returns the [start, end) slice indexes of the page within total items.
func (p PaginationParams) Bounds(total int) (int, int) {
	if p.PageSize < 1 {
		return 0, total
	}
	start := min(p.Offset(), total)
	end := min(start+p.PageSize, total)
	return start, end
}
