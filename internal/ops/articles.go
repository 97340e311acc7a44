package ops

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

// AddArticleInput contains parameters for the AddArticle operation.
type AddArticleInput struct {
	FeedID      string     `json:"feed_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Author      string     `json:"author,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Content     string     `json:"content,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// ArticleOutput is returned by operations that create or change one article.
type ArticleOutput struct {
	Article   model.Article `json:"article"`
	Persisted bool          `json:"persisted"`
}

// AddArticle stores an article by hand. The feed must exist and must not
// already hold an article with the same URL.
func AddArticle(ctx context.Context, ds *dataset.Dataset, input AddArticleInput) (*ArticleOutput, error) {
	feedID, err := requireID("feed_id", input.FeedID)
	if err != nil {
		return nil, err
	}
	articleURL := strings.TrimSpace(input.URL)

	out := &ArticleOutput{}
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		data := tx.Data()
		if data.FindFeed(feedID) < 0 {
			return errors.NewNotFound("feed", feedID)
		}
		for i := range data.Articles {
			if data.Articles[i].FeedID == feedID && data.Articles[i].URL == articleURL {
				return errors.NewInvalidRequest("feed already has an article with url " + articleURL)
			}
		}
		out.Article = newArticle(feedID, tx.Now(), input.Title, articleURL, input.Author, input.Summary, input.Content, input.PublishedAt)
		tx.SetArticles(appendCopy(data.Articles, out.Article))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// newArticle builds an unread, unstarred, unarchived article fetched at now.
func newArticle(feedID string, now time.Time, title, url, author, summary, content string, publishedAt *time.Time) model.Article {
	a := model.Article{
		ID:         model.NewID(),
		FeedID:     feedID,
		Title:      title,
		URL:        url,
		Author:     author,
		Summary:    summary,
		Content:    content,
		FetchedAt:  now,
		Highlights: []json.RawMessage{},
		Tags:       []string{},
	}
	if publishedAt != nil {
		a.PublishedAt = timePtr(publishedAt.UTC())
	}
	return a
}

// GetArticle returns an article by id.
func GetArticle(ds *dataset.Dataset, id string) (*model.Article, error) {
	id, err := requireID("id", id)
	if err != nil {
		return nil, err
	}
	data := ds.Get()
	i := data.FindArticle(id)
	if i < 0 {
		return nil, errors.NewNotFound("article", id)
	}
	a := data.Articles[i]
	return &a, nil
}

// ArticleView selects which articles ListArticles returns.
type ArticleView string

const (
	ViewAll      ArticleView = "all" // default: every non-archived article
	ViewUnread   ArticleView = "unread"
	ViewStarred  ArticleView = "starred"
	ViewArchived ArticleView = "archived"
)

// ListArticlesInput contains parameters for the ListArticles operation.
type ListArticlesInput struct {
	FeedID string      `json:"feed_id,omitempty"`
	View   ArticleView `json:"view,omitempty"`
	Tag    string      `json:"tag,omitempty"`
	Limit  int         `json:"limit,omitempty"`
	Offset int         `json:"offset,omitempty"`
}

// ListArticlesOutput contains the result of the ListArticles operation.
type ListArticlesOutput struct {
	Items      []model.Article `json:"items"`
	Pagination Pagination      `json:"pagination"`
}

// ListArticles returns one view of the articles, paginated.
func ListArticles(ds *dataset.Dataset, input ListArticlesInput) (*ListArticlesOutput, error) {
	var articles []model.Article
	switch input.View {
	case "", ViewAll:
		articles = AllArticles(ds)
	case ViewUnread:
		articles = UnreadArticles(ds)
	case ViewStarred:
		articles = StarredArticles(ds)
	case ViewArchived:
		articles = ArchivedArticles(ds)
	default:
		return nil, errors.NewInvalidRequest("view must be one of: all, unread, starred, archived")
	}

	feedID := strings.TrimSpace(input.FeedID)
	tag := strings.TrimSpace(input.Tag)
	if feedID != "" || tag != "" {
		articles = filter(articles, func(a *model.Article) bool {
			return (feedID == "" || a.FeedID == feedID) && (tag == "" || model.ContainsString(a.Tags, tag))
		})
	}

	items, page := paginate(articles, input.Limit, input.Offset)
	return &ListArticlesOutput{Items: items, Pagination: page}, nil
}

// AllArticles returns every non-archived article, newest first.
func AllArticles(ds *dataset.Dataset) []model.Article {
	out := filter(ds.Get().Articles, func(a *model.Article) bool { return !a.IsArchived })
	SortArticles(out)
	return out
}

// ArticlesByFeed returns the non-archived articles of one feed, newest first.
func ArticlesByFeed(ds *dataset.Dataset, feedID string) []model.Article {
	out := filter(ds.Get().Articles, func(a *model.Article) bool {
		return a.FeedID == feedID && !a.IsArchived
	})
	SortArticles(out)
	return out
}

// UnreadArticles returns the unread, non-archived articles, newest first.
func UnreadArticles(ds *dataset.Dataset) []model.Article {
	out := filter(ds.Get().Articles, func(a *model.Article) bool { return !a.IsArchived && !a.IsRead })
	SortArticles(out)
	return out
}

// ArchivedArticles returns the archived articles, newest first.
func ArchivedArticles(ds *dataset.Dataset) []model.Article {
	out := filter(ds.Get().Articles, func(a *model.Article) bool { return a.IsArchived })
	SortArticles(out)
	return out
}

// StarredArticles returns every starred article, most recently starred
// first. Articles without a star time sort last.
func StarredArticles(ds *dataset.Dataset) []model.Article {
	out := filter(ds.Get().Articles, func(a *model.Article) bool { return a.IsStarred })
	sortByStarredAt(out)
	return out
}

// MarkArticleRead marks an article read. readAt is set on the transition
// only, so marking twice keeps the first read time.
func MarkArticleRead(ctx context.Context, ds *dataset.Dataset, id string) (*ArticleOutput, error) {
	return mutateArticle(ctx, ds, id, func(a *model.Article, now time.Time) {
		if !a.IsRead {
			a.IsRead = true
			a.ReadAt = timePtr(now)
		}
	})
}

// MarkArticleUnread clears the read flag and readAt.
func MarkArticleUnread(ctx context.Context, ds *dataset.Dataset, id string) (*ArticleOutput, error) {
	return mutateArticle(ctx, ds, id, func(a *model.Article, _ time.Time) {
		a.IsRead = false
		a.ReadAt = nil
	})
}

// MarkFeedReadOutput contains the result of the MarkFeedRead operation.
type MarkFeedReadOutput struct {
	FeedID    string `json:"feed_id"`
	Marked    int    `json:"marked"`
	Persisted bool   `json:"persisted"`
}

// MarkFeedRead marks every unread article of a feed read.
func MarkFeedRead(ctx context.Context, ds *dataset.Dataset, feedID string) (*MarkFeedReadOutput, error) {
	feedID, err := requireID("feed_id", feedID)
	if err != nil {
		return nil, err
	}

	out := &MarkFeedReadOutput{FeedID: feedID}
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		data := tx.Data()
		if data.FindFeed(feedID) < 0 {
			return errors.NewNotFound("feed", feedID)
		}
		articles := make([]model.Article, len(data.Articles))
		for i, a := range data.Articles {
			if a.FeedID == feedID && !a.IsRead {
				a.IsRead = true
				a.ReadAt = timePtr(tx.Now())
				out.Marked++
			}
			articles[i] = a
		}
		if out.Marked > 0 {
			tx.SetArticles(articles)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ToggleOutput reports the new value of a flipped flag.
type ToggleOutput struct {
	ID        string `json:"id"`
	Value     bool   `json:"value"`
	Persisted bool   `json:"persisted"`
}

// ToggleArticleStar flips the star flag and returns the new state.
// starredAt is set when starring and cleared when unstarring.
func ToggleArticleStar(ctx context.Context, ds *dataset.Dataset, id string) (*ToggleOutput, error) {
	out, err := mutateArticle(ctx, ds, id, func(a *model.Article, now time.Time) {
		a.IsStarred = !a.IsStarred
		if a.IsStarred {
			a.StarredAt = timePtr(now)
		} else {
			a.StarredAt = nil
		}
	})
	if err != nil {
		return nil, err
	}
	return &ToggleOutput{ID: out.Article.ID, Value: out.Article.IsStarred, Persisted: out.Persisted}, nil
}

// ToggleArticleArchive flips the archive flag and returns the new state.
func ToggleArticleArchive(ctx context.Context, ds *dataset.Dataset, id string) (*ToggleOutput, error) {
	out, err := mutateArticle(ctx, ds, id, func(a *model.Article, now time.Time) {
		a.IsArchived = !a.IsArchived
		if a.IsArchived {
			a.ArchivedAt = timePtr(now)
		} else {
			a.ArchivedAt = nil
		}
	})
	if err != nil {
		return nil, err
	}
	return &ToggleOutput{ID: out.Article.ID, Value: out.Article.IsArchived, Persisted: out.Persisted}, nil
}

// ArchiveArticle archives an article; archiving twice keeps the first time.
func ArchiveArticle(ctx context.Context, ds *dataset.Dataset, id string) (*ArticleOutput, error) {
	return mutateArticle(ctx, ds, id, func(a *model.Article, now time.Time) {
		if !a.IsArchived {
			a.IsArchived = true
			a.ArchivedAt = timePtr(now)
		}
	})
}

// ArticleTagInput names an article and a tag.
type ArticleTagInput struct {
	ArticleID string `json:"article_id"`
	Tag       string `json:"tag"`
}

// TagArticle adds a tag to an article, creating the tag when needed.
func TagArticle(ctx context.Context, ds *dataset.Dataset, input ArticleTagInput) (*ArticleOutput, error) {
	id, err := requireID("article_id", input.ArticleID)
	if err != nil {
		return nil, err
	}
	name, err := requireID("tag", input.Tag)
	if err != nil {
		return nil, err
	}
	return mutateArticleTx(ctx, ds, id, func(tx *dataset.Tx, a *model.Article) {
		a.Tags = model.AddToSet(a.Tags, ensureTag(tx, name))
	})
}

// UntagArticle removes a tag name from an article.
func UntagArticle(ctx context.Context, ds *dataset.Dataset, input ArticleTagInput) (*ArticleOutput, error) {
	id, err := requireID("article_id", input.ArticleID)
	if err != nil {
		return nil, err
	}
	name, err := requireID("tag", input.Tag)
	if err != nil {
		return nil, err
	}
	return mutateArticleTx(ctx, ds, id, func(_ *dataset.Tx, a *model.Article) {
		a.Tags = model.RemoveFromSet(a.Tags, name)
	})
}

// DeleteArticlesOutput contains the result of DeleteArticle and DeleteArticles.
type DeleteArticlesOutput struct {
	Deleted   int  `json:"deleted"`
	Persisted bool `json:"persisted"`
}

// DeleteArticle removes one article. Notes taken on it are kept.
func DeleteArticle(ctx context.Context, ds *dataset.Dataset, id string) (*DeleteArticlesOutput, error) {
	id, err := requireID("id", id)
	if err != nil {
		return nil, err
	}
	out, err := DeleteArticles(ctx, ds, []string{id})
	if err != nil {
		return nil, err
	}
	if out.Deleted == 0 {
		return nil, errors.NewNotFound("article", id)
	}
	return out, nil
}

// DeleteArticles removes every listed article in one transaction. Unknown
// ids are ignored.
func DeleteArticles(ctx context.Context, ds *dataset.Dataset, ids []string) (*DeleteArticlesOutput, error) {
	ids = model.CleanSet(ids)
	if len(ids) == 0 {
		return nil, errors.NewInvalidRequest("ids must not be empty")
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	out := &DeleteArticlesOutput{}
	var err error
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		articles, removed := removeWhere(tx.Data().Articles, func(a *model.Article) bool { return drop[a.ID] })
		if removed > 0 {
			tx.SetArticles(articles)
		}
		out.Deleted = removed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func mutateArticle(ctx context.Context, ds *dataset.Dataset, id string, fn func(a *model.Article, now time.Time)) (*ArticleOutput, error) {
	id, err := requireID("id", id)
	if err != nil {
		return nil, err
	}
	return mutateArticleTx(ctx, ds, id, func(tx *dataset.Tx, a *model.Article) {
		fn(a, tx.Now())
	})
}

// mutateArticleTx applies fn to a copy of article id and stores the result.
func mutateArticleTx(ctx context.Context, ds *dataset.Dataset, id string, fn func(tx *dataset.Tx, a *model.Article)) (*ArticleOutput, error) {
	out := &ArticleOutput{}
	var err error
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		articles := tx.Data().Articles
		i := tx.Data().FindArticle(id)
		if i < 0 {
			return errors.NewNotFound("article", id)
		}
		a := articles[i]
		fn(tx, &a)
		tx.SetArticles(replaceAt(articles, i, a))
		out.Article = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
