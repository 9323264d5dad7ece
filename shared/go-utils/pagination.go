package utils

import (
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest is a 1-based page selection parsed from ?page=&page_size=.
type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is the paginated list envelope.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// ParsePageRequest reads paging query parameters. Missing values fall back to
// defaults; malformed or out-of-range values produce an error.
func ParsePageRequest(r *http.Request) (PageRequest, error) {
	pr := PageRequest{Page: 1, PageSize: DefaultPageSize}
	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return pr, &AppError{StatusCode: http.StatusNotFound, Code: ErrCodeNotFound, Message: "Invalid page."}
		}
		pr.Page = n
	}
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return pr, &AppError{StatusCode: http.StatusBadRequest, Code: ErrCodeValidation, Message: "Invalid page_size."}
		}
		if n > MaxPageSize {
			n = MaxPageSize
		}
		pr.PageSize = n
	}
	return pr, nil
}

// BuildPage assembles the envelope, deriving next/previous links from the
// request URL.
func BuildPage[T any](r *http.Request, pr PageRequest, total int, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	page := Page[T]{Count: total, Results: results}
	if pr.Page*pr.PageSize < total {
		page.Next = pageLink(r, pr.Page+1)
	}
	if pr.Page > 1 {
		page.Previous = pageLink(r, pr.Page-1)
	}
	return page
}

func pageLink(r *http.Request, page int) *string {
	u := url.URL{Path: r.URL.Path}
	if r.Host != "" {
		u.Host = r.Host
		u.Scheme = "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			u.Scheme = "https"
		}
	}
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}
