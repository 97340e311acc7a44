package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

// Accepted preference values
var (
	validViews  = []string{"list", "card", "magazine"}
	validThemes = []string{"system", "light", "dark"}
)

// PreferencesOutput is returned by the preference operations.
type PreferencesOutput struct {
	Preferences model.Preferences `json:"preferences"`
	Persisted   bool              `json:"persisted"`
}

// GetPreferences returns the current preferences.
func GetPreferences(ds *dataset.Dataset) model.Preferences {
	return ds.Get().Preferences
}

// UpdatePreferencesInput contains parameters for the UpdatePreferences
// operation. Nil fields are left unchanged.
type UpdatePreferencesInput struct {
	GlobalRefreshInterval *int     `json:"global_refresh_interval,omitempty"`
	DefaultView           *string  `json:"default_view,omitempty"`
	Theme                 *string  `json:"theme,omitempty"`
	ArticleRetentionDays  *int     `json:"article_retention_days,omitempty"`
	NotificationsEnabled  *bool    `json:"notifications_enabled,omitempty"`
	TTSSpeed              *float64 `json:"tts_speed,omitempty"`
}

// UpdatePreferences validates and applies a preferences patch.
func UpdatePreferences(ctx context.Context, ds *dataset.Dataset, input UpdatePreferencesInput) (*PreferencesOutput, error) {
	if input.GlobalRefreshInterval != nil && *input.GlobalRefreshInterval <= 0 {
		return nil, errors.NewInvalidRequest("global_refresh_interval must be positive (minutes)")
	}
	if input.ArticleRetentionDays != nil && *input.ArticleRetentionDays < 0 {
		return nil, errors.NewInvalidRequest("article_retention_days must not be negative")
	}
	if input.TTSSpeed != nil && (*input.TTSSpeed < 0.25 || *input.TTSSpeed > 4) {
		return nil, errors.NewInvalidRequest("tts_speed must be between 0.25 and 4")
	}
	if input.DefaultView != nil && !model.ContainsString(validViews, *input.DefaultView) {
		return nil, errors.NewInvalidRequest("default_view must be one of: " + strings.Join(validViews, ", "))
	}
	if input.Theme != nil && !model.ContainsString(validThemes, *input.Theme) {
		return nil, errors.NewInvalidRequest("theme must be one of: " + strings.Join(validThemes, ", "))
	}

	return mutatePreferences(ctx, ds, func(p *model.Preferences) {
		if input.GlobalRefreshInterval != nil {
			p.GlobalRefreshInterval = *input.GlobalRefreshInterval
		}
		if input.DefaultView != nil {
			p.DefaultView = *input.DefaultView
		}
		if input.Theme != nil {
			p.Theme = *input.Theme
		}
		if input.ArticleRetentionDays != nil {
			p.ArticleRetentionDays = *input.ArticleRetentionDays
		}
		if input.NotificationsEnabled != nil {
			p.NotificationsEnabled = *input.NotificationsEnabled
		}
		if input.TTSSpeed != nil {
			p.TTSSpeed = *input.TTSSpeed
		}
	})
}

// SetSyncFolder stores the sync folder path. Nothing syncs against it yet;
// an empty path clears it.
func SetSyncFolder(ctx context.Context, ds *dataset.Dataset, path string) (*PreferencesOutput, error) {
	path = strings.TrimSpace(path)
	if containsTraversal(path) {
		return nil, errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}
	return mutatePreferences(ctx, ds, func(p *model.Preferences) {
		p.SyncFolderPath = path
	})
}

func mutatePreferences(ctx context.Context, ds *dataset.Dataset, fn func(p *model.Preferences)) (*PreferencesOutput, error) {
	out := &PreferencesOutput{}
	var err error
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		prefs := tx.Data().Preferences
		fn(&prefs)
		tx.SetPreferences(prefs)
		out.Preferences = prefs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
