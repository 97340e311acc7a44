// Package feed fetches and parses RSS, Atom and JSON feeds.
package feed

import (
	"context"
	"time"
)

// Parsed is a fetched feed reduced to the fields the reader stores.
type Parsed struct {
	Title       string
	Description string
	SiteURL     string
	Items       []Item
}

// Item is one entry of a parsed feed, in document order.
type Item struct {
	Title   string
	URL     string
	Author  string
	Summary string
	Content string

	// PublishedAt is nil when the entry carries no usable date
	PublishedAt *time.Time
}

// Fetcher retrieves and parses the feed at url.
// Failures are *errors.ReaderError values with code FETCH_FAILED.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Parsed, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (*Parsed, error)

// Fetch calls f(ctx, url).
func (f FetcherFunc) Fetch(ctx context.Context, url string) (*Parsed, error) {
	return f(ctx, url)
}
