package ops

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

// AddFeedInput contains parameters for the AddFeed operation.
type AddFeedInput struct {
	URL      string   `json:"url"`             // required, http or https
	Title    string   `json:"title,omitempty"` // default: URL, filled in by the first refresh
	FolderID string   `json:"folder_id,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// FeedOutput is returned by operations that create or change one feed.
type FeedOutput struct {
	Feed      model.Feed `json:"feed"`
	Persisted bool       `json:"persisted"`
}

// AddFeed subscribes to a feed. The feed is not fetched.
func AddFeed(ctx context.Context, ds *dataset.Dataset, input AddFeedInput) (*FeedOutput, error) {
	feedURL, err := validateFeedURL(input.URL)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = feedURL
	}
	folderID := strings.TrimSpace(input.FolderID)

	var created model.Feed
	persisted, err := ds.Update(ctx, func(tx *dataset.Tx) error {
		data := tx.Data()

		feed := model.Feed{
			ID:        model.NewID(),
			Title:     title,
			URL:       feedURL,
			Tags:      []string{},
			AddedAt:   tx.Now(),
			IsEnabled: true,
		}
		if folderID != "" {
			if data.FindFolder(folderID) < 0 {
				return errors.NewNotFound("folder", folderID)
			}
			feed.FolderIDs = []string{folderID}
		}
		for _, name := range model.CleanSet(input.Tags) {
			feed.Tags = model.AddToSet(feed.Tags, ensureTag(tx, name))
		}

		tx.SetFeeds(appendCopy(data.Feeds, feed))
		created = feed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &FeedOutput{Feed: created, Persisted: persisted}, nil
}

// validateFeedURL trims raw and requires an absolute http(s) URL.
func validateFeedURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.NewInvalidRequest("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.NewInvalidRequest(fmt.Sprintf("url must be an absolute http or https URL: %q", raw))
	}
	return raw, nil
}

// UpdateFeedInput contains parameters for the UpdateFeed operation.
// Nil fields are left unchanged.
type UpdateFeedInput struct {
	ID          string  `json:"id"`
	Title       *string `json:"title,omitempty"`
	URL         *string `json:"url,omitempty"`
	SiteURL     *string `json:"site_url,omitempty"`
	Description *string `json:"description,omitempty"`
	IsEnabled   *bool   `json:"is_enabled,omitempty"`
}

// UpdateFeed patches the user-editable fields of a feed.
func UpdateFeed(ctx context.Context, ds *dataset.Dataset, input UpdateFeedInput) (*FeedOutput, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}

	var newURL string
	if input.URL != nil {
		if newURL, err = validateFeedURL(*input.URL); err != nil {
			return nil, err
		}
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, errors.NewInvalidRequest("title must not be empty")
	}

	return mutateFeed(ctx, ds, id, func(tx *dataset.Tx, f *model.Feed) error {
		if input.Title != nil {
			f.Title = strings.TrimSpace(*input.Title)
		}
		if input.URL != nil {
			f.URL = newURL
		}
		if input.SiteURL != nil {
			f.SiteURL = strings.TrimSpace(*input.SiteURL)
		}
		if input.Description != nil {
			f.Description = *input.Description
		}
		if input.IsEnabled != nil {
			f.IsEnabled = *input.IsEnabled
		}
		return nil
	})
}

// SetFeedEnabled turns refreshing of a feed on or off.
func SetFeedEnabled(ctx context.Context, ds *dataset.Dataset, id string, enabled bool) (*FeedOutput, error) {
	return UpdateFeed(ctx, ds, UpdateFeedInput{ID: id, IsEnabled: &enabled})
}

// DeleteFeedOutput contains the result of the DeleteFeed operation.
type DeleteFeedOutput struct {
	ID              string `json:"id"`
	ArticlesRemoved int    `json:"articles_removed"`
	Persisted       bool   `json:"persisted"`
}

// DeleteFeed removes a feed and every article it owns in one transaction.
// Notes taken on those articles are kept.
func DeleteFeed(ctx context.Context, ds *dataset.Dataset, id string) (*DeleteFeedOutput, error) {
	id, err := requireID("id", id)
	if err != nil {
		return nil, err
	}

	out := &DeleteFeedOutput{ID: id}
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		data := tx.Data()
		feeds, removed := removeWhere(data.Feeds, func(f *model.Feed) bool { return f.ID == id })
		if removed == 0 {
			return errors.NewNotFound("feed", id)
		}
		articles, dropped := removeWhere(data.Articles, func(a *model.Article) bool { return a.FeedID == id })

		tx.SetFeeds(feeds)
		if dropped > 0 {
			tx.SetArticles(articles)
		}
		out.ArticlesRemoved = dropped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetFeed returns a feed by id.
func GetFeed(ds *dataset.Dataset, id string) (*model.Feed, error) {
	id, err := requireID("id", id)
	if err != nil {
		return nil, err
	}
	data := ds.Get()
	i := data.FindFeed(id)
	if i < 0 {
		return nil, errors.NewNotFound("feed", id)
	}
	f := data.Feeds[i]
	return &f, nil
}

// ListFeedsInput contains parameters for the ListFeeds operation.
type ListFeedsInput struct {
	FolderID    string `json:"folder_id,omitempty"`
	Tag         string `json:"tag,omitempty"`
	EnabledOnly bool   `json:"enabled_only,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

// ListFeedsOutput contains the result of the ListFeeds operation.
type ListFeedsOutput struct {
	Items      []model.Feed `json:"items"`
	Pagination Pagination   `json:"pagination"`
}

// ListFeeds returns feeds in subscription order, optionally filtered.
func ListFeeds(ds *dataset.Dataset, input ListFeedsInput) (*ListFeedsOutput, error) {
	folderID := strings.TrimSpace(input.FolderID)
	tag := strings.TrimSpace(input.Tag)

	feeds := filter(ds.Get().Feeds, func(f *model.Feed) bool {
		if folderID != "" && !model.ContainsString(f.FolderIDs, folderID) {
			return false
		}
		if tag != "" && !model.ContainsString(f.Tags, tag) {
			return false
		}
		return !input.EnabledOnly || f.IsEnabled
	})

	items, page := paginate(feeds, input.Limit, input.Offset)
	return &ListFeedsOutput{Items: items, Pagination: page}, nil
}

// AllFeeds returns every feed in subscription order.
func AllFeeds(ds *dataset.Dataset) []model.Feed {
	return filter(ds.Get().Feeds, func(*model.Feed) bool { return true })
}

// FeedsByFolder returns the feeds filed under folderID.
func FeedsByFolder(ds *dataset.Dataset, folderID string) []model.Feed {
	return filter(ds.Get().Feeds, func(f *model.Feed) bool {
		return model.ContainsString(f.FolderIDs, folderID)
	})
}

// FeedsByTag returns the feeds carrying the tag name.
func FeedsByTag(ds *dataset.Dataset, tag string) []model.Feed {
	return filter(ds.Get().Feeds, func(f *model.Feed) bool {
		return model.ContainsString(f.Tags, tag)
	})
}

// FeedFolderInput names a feed and a folder.
type FeedFolderInput struct {
	FeedID   string `json:"feed_id"`
	FolderID string `json:"folder_id"`
}

// AssignFeedFolder files a feed under a folder. A feed may be in several.
func AssignFeedFolder(ctx context.Context, ds *dataset.Dataset, input FeedFolderInput) (*FeedOutput, error) {
	feedID, err := requireID("feed_id", input.FeedID)
	if err != nil {
		return nil, err
	}
	folderID, err := requireID("folder_id", input.FolderID)
	if err != nil {
		return nil, err
	}

	return mutateFeed(ctx, ds, feedID, func(tx *dataset.Tx, f *model.Feed) error {
		if tx.Data().FindFolder(folderID) < 0 {
			return errors.NewNotFound("folder", folderID)
		}
		f.FolderIDs = model.AddToSet(f.FolderIDs, folderID)
		return nil
	})
}

// UnassignFeedFolder removes a feed from a folder. Removing a folder the
// feed is not in is not an error.
func UnassignFeedFolder(ctx context.Context, ds *dataset.Dataset, input FeedFolderInput) (*FeedOutput, error) {
	feedID, err := requireID("feed_id", input.FeedID)
	if err != nil {
		return nil, err
	}
	folderID, err := requireID("folder_id", input.FolderID)
	if err != nil {
		return nil, err
	}

	return mutateFeed(ctx, ds, feedID, func(tx *dataset.Tx, f *model.Feed) error {
		f.FolderIDs = model.RemoveFromSet(f.FolderIDs, folderID)
		return nil
	})
}

// FeedTagInput names a feed and a tag.
type FeedTagInput struct {
	FeedID string `json:"feed_id"`
	Tag    string `json:"tag"`
}

// TagFeed adds a tag to a feed, creating the tag when no tag matches the
// name case-insensitively.
func TagFeed(ctx context.Context, ds *dataset.Dataset, input FeedTagInput) (*FeedOutput, error) {
	feedID, err := requireID("feed_id", input.FeedID)
	if err != nil {
		return nil, err
	}
	name, err := requireID("tag", input.Tag)
	if err != nil {
		return nil, err
	}

	return mutateFeed(ctx, ds, feedID, func(tx *dataset.Tx, f *model.Feed) error {
		f.Tags = model.AddToSet(f.Tags, ensureTag(tx, name))
		return nil
	})
}

// UntagFeed removes a tag name from a feed.
func UntagFeed(ctx context.Context, ds *dataset.Dataset, input FeedTagInput) (*FeedOutput, error) {
	feedID, err := requireID("feed_id", input.FeedID)
	if err != nil {
		return nil, err
	}
	name, err := requireID("tag", input.Tag)
	if err != nil {
		return nil, err
	}

	return mutateFeed(ctx, ds, feedID, func(tx *dataset.Tx, f *model.Feed) error {
		f.Tags = model.RemoveFromSet(f.Tags, name)
		return nil
	})
}

// mutateFeed applies fn to a copy of feed id and stores the result.
// fn must not replace the feeds collection itself.
func mutateFeed(ctx context.Context, ds *dataset.Dataset, id string, fn func(tx *dataset.Tx, f *model.Feed) error) (*FeedOutput, error) {
	var updated model.Feed
	persisted, err := ds.Update(ctx, func(tx *dataset.Tx) error {
		feeds := tx.Data().Feeds
		i := tx.Data().FindFeed(id)
		if i < 0 {
			return errors.NewNotFound("feed", id)
		}
		f := feeds[i]
		if err := fn(tx, &f); err != nil {
			return err
		}
		tx.SetFeeds(replaceAt(feeds, i, f))
		updated = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &FeedOutput{Feed: updated, Persisted: persisted}, nil
}
