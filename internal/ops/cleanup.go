package ops

import (
	"context"
	"time"

	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

// CleanupOutput contains the result of the CleanupOldArticles operation.
type CleanupOutput struct {
	Removed       int  `json:"removed"`
	RetentionDays int  `json:"retention_days"`
	Persisted     bool `json:"persisted"`
}

// CleanupOldArticles drops articles older than the retention window.
// An article is kept when it is starred, has a note or a legacy highlight,
// or was fetched after now - articleRetentionDays. A retention of zero or
// less disables the sweep.
func CleanupOldArticles(ctx context.Context, ds *dataset.Dataset) (*CleanupOutput, error) {
	out := &CleanupOutput{}
	var err error
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		data := tx.Data()
		out.RetentionDays = data.Preferences.ArticleRetentionDays
		if out.RetentionDays <= 0 {
			return nil
		}
		cutoff := tx.Now().AddDate(0, 0, -out.RetentionDays)

		noted := make(map[string]bool, len(data.Notes))
		for i := range data.Notes {
			noted[data.Notes[i].ArticleID] = true
		}

		articles, removed := removeWhere(data.Articles, func(a *model.Article) bool {
			return !Retained(a, noted[a.ID], cutoff)
		})
		if removed > 0 {
			tx.SetArticles(articles)
		}
		out.Removed = removed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Retained reports whether the retention sweep keeps a.
func Retained(a *model.Article, hasNote bool, cutoff time.Time) bool {
	return a.IsStarred || hasNote || len(a.Highlights) > 0 || a.FetchedAt.After(cutoff)
}
