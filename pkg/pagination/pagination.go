package pagination

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/JaimeStill/concord/pkg/query"
)

// SortFields decodes from either "Label,-ClassifiedAt" or a JSON array of
// {"Field","Descending"} objects.
type SortFields []query.SortField

func (s *SortFields) UnmarshalJSON(data []byte) error {
	var spec string
	if json.Unmarshal(data, &spec) == nil {
		*s = query.ParseSortFields(spec)
		return nil
	}

	var fields []query.SortField
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("sort must be a string or a list of fields: %w", err)
	}
	*s = fields
	return nil
}

// PageRequest is a one-based page of a listing, with optional free-text
// search and ordering.
type PageRequest struct {
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Search   *string    `json:"search,omitempty"`
	Sort     SortFields `json:"sort,omitempty"`
}

// Normalize clamps Page to at least 1 and PageSize into
// [1, cfg.MaxPageSize], substituting the default for an unset size.
func (r *PageRequest) Normalize(cfg Config) {
	r.Page = max(r.Page, 1)
	if r.PageSize < 1 {
		r.PageSize = cfg.DefaultPageSize
	}
	r.PageSize = min(r.PageSize, cfg.MaxPageSize)
}

// PageRequestFromQuery reads page, page_size, search and sort. Malformed
// numbers fall back to the defaults.
func PageRequestFromQuery(values url.Values, cfg Config) PageRequest {
	var req PageRequest
	req.Page, _ = strconv.Atoi(values.Get("page"))
	req.PageSize, _ = strconv.Atoi(values.Get("page_size"))
	if s := values.Get("search"); s != "" {
		req.Search = &s
	}
	req.Sort = query.ParseSortFields(values.Get("sort"))

	req.Normalize(cfg)
	return req
}

// PageResult is one page of T plus the totals a client needs to page on.
type PageResult[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewPageResult reports at least one page, even when total is zero, and
// never encodes Data as null.
func NewPageResult[T any](data []T, total, page, pageSize int) PageResult[T] {
	if data == nil {
		data = []T{}
	}
	pages := 1
	if pageSize > 0 {
		pages = max((total+pageSize-1)/pageSize, 1)
	}
	return PageResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: pages,
	}
}
