// Package ops implements the reader's operations: entity managers, the
// sync engine, and export/import. Every mutation runs as one dataset
// transaction and reports whether it reached durable storage.
package ops

import (
	"sort"
	"strings"
	"time"

	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

// Pagination limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// paginate slices items by limit/offset. A limit of 0 means DefaultListLimit;
// a negative limit returns everything.
func paginate[T any](items []T, limit, offset int) ([]T, Pagination) {
	total := len(items)
	if offset < 0 {
		offset = 0
	}
	switch {
	case limit == 0:
		limit = DefaultListLimit
	case limit < 0:
		limit = total
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return items[offset:end], Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
		Total:   total,
	}
}

// requireID trims id and rejects it when empty.
func requireID(field, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest(field + " is required")
	}
	return id, nil
}

// replaceAt returns a copy of items with index i set to v.
func replaceAt[T any](items []T, i int, v T) []T {
	out := make([]T, len(items))
	copy(out, items)
	out[i] = v
	return out
}

// appendCopy returns a new slice holding items followed by v.
func appendCopy[T any](items []T, v ...T) []T {
	out := make([]T, 0, len(items)+len(v))
	out = append(out, items...)
	return append(out, v...)
}

// removeWhere returns a new slice without the items drop matches, and how
// many were removed.
func removeWhere[T any](items []T, drop func(*T) bool) ([]T, int) {
	out := make([]T, 0, len(items))
	for i := range items {
		if !drop(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out, len(items) - len(out)
}

// filter returns a new slice holding the items keep matches.
func filter[T any](items []T, keep func(*T) bool) []T {
	out := make([]T, 0)
	for i := range items {
		if keep(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

// SortArticles orders articles newest first by SortDate.
func SortArticles(articles []model.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].SortDate().After(articles[j].SortDate())
	})
}

// sortByStarredAt orders articles by StarredAt descending, nil last.
func sortByStarredAt(articles []model.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i].StarredAt, articles[j].StarredAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

// timePtr returns a pointer to a copy of t.
func timePtr(t time.Time) *time.Time {
	return &t
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
