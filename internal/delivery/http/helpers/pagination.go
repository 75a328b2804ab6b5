package helpers

import (
	"net/http"
	"net/url"
	"strconv"

	"talkregistration/internal/domain"
)

// Talk listings fit on one page by default; the seeded agenda has 36 talks.
const (
	DefaultPage     = 1
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// ParsePagination reads ?page= and ?page_size=. Missing, malformed or
// non-positive values fall back to the defaults; page_size is capped.
func ParsePagination(r *http.Request) domain.PaginationParams {
	q := r.URL.Query()
	return domain.PaginationParams{
		Page:     positiveParam(q, "page", DefaultPage),
		PageSize: min(positiveParam(q, "page_size", DefaultPageSize), MaxPageSize),
	}
}

func positiveParam(q url.Values, key string, def int) int {
	v, err := strconv.Atoi(q.Get(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}

// PaginationMeta describes the page returned in a list response.
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPaginationMeta reports where p sits within total items.
func NewPaginationMeta(p domain.PaginationParams, total int) PaginationMeta {
	meta := PaginationMeta{Page: p.Page, PageSize: p.PageSize, Total: total}
	if p.PageSize > 0 {
		meta.TotalPages = (total + p.PageSize - 1) / p.PageSize
	}
	return meta
}
