package ops

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/hpungsan/fetchnfeed/internal/config"
	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/feed"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

// maxLastErrorLen caps the failure message stored on a feed.
const maxLastErrorLen = 200

// RefreshInput contains parameters for the RefreshFeed operation.
type RefreshInput struct {
	FeedID string `json:"feed_id"`

	// MaxAgeDays is the recency window; <= 0 uses the configured default
	MaxAgeDays int `json:"max_age_days,omitempty"`
}

// RefreshResult is the outcome of refreshing one feed. Failures are
// reported here rather than as errors.
type RefreshResult struct {
	FeedID      string `json:"feed_id"`
	Title       string `json:"title,omitempty"`
	Success     bool   `json:"success"`
	NewArticles int    `json:"new_articles"`
	TotalItems  int    `json:"total_items"`
	Error       string `json:"error,omitempty"`
	Code        string `json:"code,omitempty"`
	Skipped     bool   `json:"skipped,omitempty"`
	Persisted   bool   `json:"persisted"`
}

// RefreshFeed fetches one feed and appends the items it has not stored yet.
//
// The fetch runs outside the dataset transaction. The feed metadata update
// and the article append are then applied together against the latest
// snapshot, so a feed deleted while its fetch was in flight is reported as
// not found instead of being recreated.
func RefreshFeed(ctx context.Context, ds *dataset.Dataset, fetcher feed.Fetcher, cfg *config.Config, input RefreshInput) RefreshResult {
	res := RefreshResult{FeedID: input.FeedID}

	f, err := GetFeed(ds, input.FeedID)
	if err != nil {
		return failed(res, errors.NewFeedNotFound(input.FeedID))
	}
	res.Title = f.Title

	parsed, fetchErr := fetcher.Fetch(ctx, f.URL)
	if errors.Is(fetchErr, errors.ErrCancelled) {
		return failed(res, fetchErr)
	}
	if fetchErr == nil && parsed == nil {
		fetchErr = stderrors.New("fetcher returned no feed")
	}
	var re *errors.ReaderError
	if fetchErr != nil && !stderrors.As(fetchErr, &re) {
		fetchErr = errors.NewFetchFailed(f.URL, fetchErr)
	}

	maxAge := maxAgeDays(cfg, input.MaxAgeDays)
	res.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		data := tx.Data()
		i := data.FindFeed(f.ID)
		if i < 0 {
			return errors.NewFeedNotFound(f.ID)
		}
		current := data.Feeds[i]
		now := tx.Now()
		current.LastFetchedAt = timePtr(now)

		if fetchErr != nil {
			current.ErrorCount++
			current.LastError = truncate(errMessage(fetchErr), maxLastErrorLen)
			tx.SetFeeds(replaceAt(data.Feeds, i, current))
			res.Title = current.Title
			return nil
		}

		if current.Title == current.URL && parsed.Title != "" {
			current.Title = parsed.Title
		}
		current.SiteURL = parsed.SiteURL
		current.Description = parsed.Description
		current.ErrorCount = 0
		current.LastError = ""
		tx.SetFeeds(replaceAt(data.Feeds, i, current))
		res.Title = current.Title

		added := reconcile(data.Articles, current.ID, parsed.Items, now, maxAge)
		if len(added) > 0 {
			tx.SetArticles(appendCopy(data.Articles, added...))
		}
		res.NewArticles = len(added)
		res.TotalItems = len(parsed.Items)
		return nil
	})
	if err != nil {
		return failed(res, err)
	}

	if fetchErr != nil {
		ds.Logger().Warn("refresh failed", "feed_id", f.ID, "url", f.URL, "error", fetchErr)
		return failed(res, fetchErr)
	}

	res.Success = true
	ds.Logger().Debug("refreshed feed", "feed_id", f.ID, "new", res.NewArticles, "total", res.TotalItems)
	return res
}

// reconcile returns the items to store as new articles. An item is skipped
// when the feed already holds its URL, or when its effective date
// (publishedAt, else now) is before now - maxAgeDays. Each accepted URL
// joins the known set so one payload cannot add the same URL twice.
func reconcile(existing []model.Article, feedID string, items []feed.Item, now time.Time, maxAgeDays int) []model.Article {
	known := make(map[string]bool)
	for i := range existing {
		if existing[i].FeedID == feedID {
			known[existing[i].URL] = true
		}
	}
	cutoff := now.AddDate(0, 0, -maxAgeDays)

	var added []model.Article
	for _, it := range items {
		if known[it.URL] {
			continue
		}
		effective := now
		if it.PublishedAt != nil {
			effective = *it.PublishedAt
		}
		if effective.Before(cutoff) {
			continue
		}
		added = append(added, newArticle(feedID, now, it.Title, it.URL, it.Author, it.Summary, it.Content, it.PublishedAt))
		known[it.URL] = true
	}
	return added
}

// maxAgeDays resolves the recency window for one refresh.
func maxAgeDays(cfg *config.Config, requested int) int {
	if requested > 0 {
		return requested
	}
	if cfg != nil && cfg.DefaultMaxAgeDays > 0 {
		return cfg.DefaultMaxAgeDays
	}
	return config.DefaultConfig().DefaultMaxAgeDays
}

// failed tags res with err's message and code.
func failed(res RefreshResult, err error) RefreshResult {
	res.Success = false
	res.Error = errMessage(err)
	res.Code = string(errors.CodeOf(err))
	return res
}

// errMessage returns the human-readable part of err, without the code prefix.
func errMessage(err error) string {
	var re *errors.ReaderError
	if stderrors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}

// RefreshAllInput contains parameters for the RefreshAllFeeds operation.
type RefreshAllInput struct {
	MaxAgeDays int `json:"max_age_days,omitempty"`
}

// RefreshAllOutput contains the result of the RefreshAllFeeds operation.
type RefreshAllOutput struct {
	Results     []RefreshResult `json:"results"`
	Succeeded   int             `json:"succeeded"`
	Failed      int             `json:"failed"`
	NewArticles int             `json:"new_articles"`
}

// RefreshAllFeeds refreshes every enabled feed, one at a time. A failing
// feed does not stop the others. When ctx is cancelled the feeds not yet
// started are reported as skipped.
func RefreshAllFeeds(ctx context.Context, ds *dataset.Dataset, fetcher feed.Fetcher, cfg *config.Config, input RefreshAllInput) *RefreshAllOutput {
	feeds := filter(ds.Get().Feeds, func(f *model.Feed) bool { return f.IsEnabled })

	out := &RefreshAllOutput{Results: make([]RefreshResult, 0, len(feeds))}
	for _, f := range feeds {
		if ctx.Err() != nil {
			res := failed(RefreshResult{FeedID: f.ID, Title: f.Title}, errors.NewCancelled("refresh"))
			res.Skipped = true
			out.Results = append(out.Results, res)
			out.Failed++
			continue
		}

		res := RefreshFeed(ctx, ds, fetcher, cfg, RefreshInput{FeedID: f.ID, MaxAgeDays: input.MaxAgeDays})
		out.Results = append(out.Results, res)
		if res.Success {
			out.Succeeded++
			out.NewArticles += res.NewArticles
		} else {
			out.Failed++
		}
	}
	return out
}
