package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fetchnfeed/internal/errors"
)

func TestAddTag_CaseInsensitiveMatch(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()

	first, err := AddTag(ctx, ds, AddTagInput{Name: "Important", Color: "#f00"})
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := AddTag(ctx, ds, AddTagInput{Name: "important", Color: "#00f"})
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.Tag, second.Tag)
	require.Equal(t, "#f00", second.Tag.Color)
	require.Equal(t, "Important", second.Tag.Name)

	require.Len(t, ListTags(ds), 1)
}

func TestAddTag_DefaultColor(t *testing.T) {
	ds, _ := newTestDataset(t)

	out, err := AddTag(context.Background(), ds, AddTagInput{Name: "plain"})
	require.NoError(t, err)
	require.Equal(t, DefaultTagColor, out.Tag.Color)

	_, err = AddTag(context.Background(), ds, AddTagInput{Name: ""})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestDeleteTag_Cascades(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()

	f := mustAddFeed(t, ds, "https://a.example/feed.xml")
	a := mustAddArticle(t, ds, f.ID, "https://a.example/1", nil)

	_, err := TagFeed(ctx, ds, FeedTagInput{FeedID: f.ID, Tag: "Go"})
	require.NoError(t, err)
	_, err = TagArticle(ctx, ds, ArticleTagInput{ArticleID: a.ID, Tag: "go"})
	require.NoError(t, err)
	_, err = TagArticle(ctx, ds, ArticleTagInput{ArticleID: a.ID, Tag: "keep"})
	require.NoError(t, err)

	var goID string
	for _, tag := range ListTags(ds) {
		if tag.Name == "Go" {
			goID = tag.ID
		}
	}
	require.NotEmpty(t, goID)

	out, err := DeleteTag(ctx, ds, goID)
	require.NoError(t, err)
	require.Equal(t, "Go", out.Name)
	require.Equal(t, 1, out.FeedsUpdated)
	require.Equal(t, 1, out.ArticlesUpdated)

	gotFeed, _ := GetFeed(ds, f.ID)
	require.Empty(t, gotFeed.Tags)
	gotArticle, _ := GetArticle(ds, a.ID)
	require.Equal(t, []string{"keep"}, gotArticle.Tags)
	require.Len(t, ListTags(ds), 1)

	_, err = DeleteTag(ctx, ds, goID)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}
