package ops

import (
	"context"

	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/feed"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

// DiscoverInput contains parameters for the DiscoverFeed operation.
type DiscoverInput struct {
	SiteURL string `json:"site_url"`

	// Subscribe adds the discovered feed, titled from the feed document
	Subscribe bool `json:"subscribe,omitempty"`
}

// DiscoverOutput contains the result of the DiscoverFeed operation.
type DiscoverOutput struct {
	FeedURL   string      `json:"feed_url"`
	Title     string      `json:"title"`
	Items     int         `json:"items"`
	Feed      *model.Feed `json:"feed,omitempty"`
	Persisted bool        `json:"persisted,omitempty"`
}

// DiscoverFeed probes the usual feed locations under a site and optionally
// subscribes to the first one that parses.
func DiscoverFeed(ctx context.Context, ds *dataset.Dataset, fetcher feed.Fetcher, input DiscoverInput) (*DiscoverOutput, error) {
	feedURL, parsed, err := feed.Discover(ctx, fetcher, input.SiteURL)
	if err != nil {
		return nil, err
	}

	out := &DiscoverOutput{FeedURL: feedURL, Title: parsed.Title, Items: len(parsed.Items)}
	if !input.Subscribe {
		return out, nil
	}

	added, err := AddFeed(ctx, ds, AddFeedInput{URL: feedURL, Title: parsed.Title})
	if err != nil {
		return nil, err
	}
	out.Feed = &added.Feed
	out.Persisted = added.Persisted
	return out, nil
}
