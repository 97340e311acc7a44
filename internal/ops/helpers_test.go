package ops

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/db"
	"github.com/hpungsan/fetchnfeed/internal/feed"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func daysAgo(n int) *time.Time {
	t := testNow.AddDate(0, 0, -n)
	return &t
}

// newTestDataset returns a loaded dataset backed by SQLite in a temp dir,
// with the clock fixed at testNow.
func newTestDataset(t *testing.T) (*dataset.Dataset, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := db.Open(dir, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ds := dataset.New(store, dataset.WithClock(testClock))
	require.NoError(t, ds.Load(context.Background()))
	return ds, dir
}

// stubFetcher serves canned results per URL and records calls.
type stubFetcher struct {
	mu      sync.Mutex
	results map[string]*feed.Parsed
	errs    map[string]error
	calls   []string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		results: make(map[string]*feed.Parsed),
		errs:    make(map[string]error),
	}
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (*feed.Parsed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, url)
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	if p, ok := s.results[url]; ok {
		return p, nil
	}
	return &feed.Parsed{Title: "Untitled Feed"}, nil
}

func mustAddFeed(t *testing.T, ds *dataset.Dataset, url string) model.Feed {
	t.Helper()
	out, err := AddFeed(context.Background(), ds, AddFeedInput{URL: url})
	require.NoError(t, err)
	return out.Feed
}

func mustAddArticle(t *testing.T, ds *dataset.Dataset, feedID, url string, publishedAt *time.Time) model.Article {
	t.Helper()
	out, err := AddArticle(context.Background(), ds, AddArticleInput{
		FeedID:      feedID,
		Title:       "Article " + url,
		URL:         url,
		PublishedAt: publishedAt,
	})
	require.NoError(t, err)
	return out.Article
}

func articlesOf(ds *dataset.Dataset, feedID string) []model.Article {
	return filter(ds.Get().Articles, func(a *model.Article) bool { return a.FeedID == feedID })
}

func ptr[T any](v T) *T { return &v }

// seedArticles appends articles as-is, bypassing AddArticle defaults.
func seedArticles(t *testing.T, ds *dataset.Dataset, articles ...model.Article) {
	t.Helper()
	_, err := ds.Update(context.Background(), func(tx *dataset.Tx) error {
		tx.SetArticles(appendCopy(tx.Data().Articles, articles...))
		return nil
	})
	require.NoError(t, err)
}
