package service

import (
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/packing-audit/internal/errors"
	"github.com/packing-audit/internal/storage"
	"github.com/packing-audit/internal/types"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// sortAllower reports whether a key may be used for sorting
type sortAllower interface {
	Allows(key string) bool
}

// PageRequest is a validated page, sort and search request
type PageRequest struct {
	Page    int
	Limit   int
	SortBy  string
	SortDir types.SortDirection
	Search  string
}

// ParsePageRequest reads page, limit, sortBy, sortDir and search from a
// query string. Limits above MaxPageSize are clamped; non-numeric or
// non-positive values, unknown sort keys and unknown directions are rejected.
func ParsePageRequest(q url.Values, sortable sortAllower) (PageRequest, error) {
	req := PageRequest{Page: 1, Limit: DefaultPageSize}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return req, apperrors.NewInvalidParameterError("page", "must be a positive integer")
		}
		req.Page = page
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return req, apperrors.NewInvalidParameterError("limit", "must be a positive integer")
		}
		if limit > MaxPageSize {
			limit = MaxPageSize
		}
		req.Limit = limit
	}

	if sortBy := q.Get("sortBy"); sortBy != "" {
		if sortable == nil || !sortable.Allows(sortBy) {
			return req, apperrors.NewInvalidParameterError("sortBy", "unsupported sort column")
		}
		req.SortBy = sortBy
	}

	if dir := strings.ToLower(q.Get("sortDir")); dir != "" {
		switch types.SortDirection(dir) {
		case types.SortAsc, types.SortDesc:
			req.SortDir = types.SortDirection(dir)
		default:
			return req, apperrors.NewInvalidParameterError("sortDir", "must be asc or desc")
		}
	}

	req.Search = strings.TrimSpace(q.Get("search"))
	return req, nil
}

// Offset returns the number of rows skipped before the page
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ListOptions converts the request into repository list options
func (p PageRequest) ListOptions() storage.ListOptions {
	return storage.ListOptions{
		Limit:   p.Limit,
		Offset:  p.Offset(),
		SortBy:  p.SortBy,
		SortDir: p.SortDir,
		Search:  p.Search,
	}
}

// Meta describes a page of results. Absent neighbour pages are 0.
type Meta struct {
	CurrentPage int  `json:"current_page"`
	PerPage     int  `json:"per_page"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
	NextPage    int  `json:"next_page"`
	PrevPage    int  `json:"prev_page"`
}

// Page is a slice of results together with its metadata
type Page[T any] struct {
	Data []T  `json:"data"`
	Meta Meta `json:"meta"`
}

// BuildMeta computes page metadata for total matching rows
func BuildMeta(req PageRequest, total int) Meta {
	perPage := req.Limit
	if perPage < 1 {
		perPage = DefaultPageSize
	}
	current := req.Page
	if current < 1 {
		current = 1
	}

	totalPages := (total + perPage - 1) / perPage
	meta := Meta{
		CurrentPage: current,
		PerPage:     perPage,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasNext:     current < totalPages,
		HasPrev:     current > 1,
	}
	if meta.HasNext {
		meta.NextPage = current + 1
	}
	if meta.HasPrev {
		meta.PrevPage = current - 1
	}
	return meta
}

// NewPage wraps items with metadata. A nil slice is rendered as [].
func NewPage[T any](items []T, req PageRequest, total int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Data: items, Meta: BuildMeta(req, total)}
}
