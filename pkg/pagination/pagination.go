// Package pagination implements page-number pagination with the
// {links, count, total_pages, current_page, page_size, results} envelope.
package pagination

import (
	"errors"
	"net/url"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	PageParam     = "page"
	PageSizeParam = "page_size"
)

// ErrInvalidPage is returned for a malformed or out of range page number.
var ErrInvalidPage = errors.New("invalid page")

// Params is a resolved page request.
type Params struct {
	Page     int
	PageSize int
}

// Offset is the number of rows before the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ParseParams reads page and page_size. Anonymous callers always get the
// default page size; authenticated callers may ask for up to MaxPageSize.
func ParseParams(query url.Values, authenticated bool) (Params, error) {
	params := Params{Page: 1, PageSize: DefaultPageSize}

	if raw := query.Get(PageParam); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return params, ErrInvalidPage
		}
		params.Page = page
	}

	if authenticated {
		if size, err := strconv.Atoi(query.Get(PageSizeParam)); err == nil && size > 0 {
			params.PageSize = min(size, MaxPageSize)
		}
	}

	return params, nil
}

type Links struct {
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

type Page[T any] struct {
	Links       Links `json:"links"`
	Count       int64 `json:"count"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
	Results     []T   `json:"results"`
}

// TotalPages is never below one so that an empty first page stays valid.
func TotalPages(count int64, pageSize int) int {
	if count <= 0 || pageSize <= 0 {
		return 1
	}
	return int((count + int64(pageSize) - 1) / int64(pageSize))
}

// NewPage wraps results. requestURL must be absolute; links keep its query
// and only swap the page parameter.
func NewPage[T any](results []T, count int64, params Params, requestURL *url.URL) (Page[T], error) {
	total := TotalPages(count, params.PageSize)
	if params.Page > total {
		return Page[T]{}, ErrInvalidPage
	}
	if results == nil {
		results = []T{}
	}

	page := Page[T]{
		Count:       count,
		TotalPages:  total,
		CurrentPage: params.Page,
		PageSize:    params.PageSize,
		Results:     results,
	}
	if params.Page < total {
		next := withPage(requestURL, params.Page+1)
		page.Links.Next = &next
	}
	if params.Page > 1 {
		prev := withPage(requestURL, params.Page-1)
		page.Links.Previous = &prev
	}
	return page, nil
}

func withPage(u *url.URL, page int) string {
	copied := *u
	query := copied.Query()
	if page == 1 {
		query.Del(PageParam)
	} else {
		query.Set(PageParam, strconv.Itoa(page))
	}
	copied.RawQuery = query.Encode()
	return copied.String()
}
