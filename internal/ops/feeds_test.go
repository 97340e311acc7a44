package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fetchnfeed/internal/errors"
)

func TestAddFeed_Defaults(t *testing.T) {
	ds, _ := newTestDataset(t)

	out, err := AddFeed(context.Background(), ds, AddFeedInput{URL: "  https://a.example/feed.xml "})
	require.NoError(t, err)
	require.True(t, out.Persisted)

	f := out.Feed
	require.Len(t, f.ID, 26)
	require.Equal(t, "https://a.example/feed.xml", f.URL)
	require.Equal(t, f.URL, f.Title, "title starts out as the URL")
	require.True(t, f.IsEnabled)
	require.Equal(t, 0, f.ErrorCount)
	require.NotNil(t, f.Tags)
	require.Empty(t, f.Tags)
	require.Equal(t, testNow, f.AddedAt)
	require.Nil(t, f.LastFetchedAt)

	require.Len(t, ds.Get().Feeds, 1)
}

func TestAddFeed_InvalidURL(t *testing.T) {
	ds, _ := newTestDataset(t)

	for _, u := range []string{"", "   ", "not a url", "ftp://a.example/feed", "/relative/feed.xml"} {
		_, err := AddFeed(context.Background(), ds, AddFeedInput{URL: u})
		require.True(t, errors.Is(err, errors.ErrInvalidRequest), "url %q: %v", u, err)
	}
	require.Empty(t, ds.Get().Feeds)
}

func TestAddFeed_WithFolderAndTags(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()

	folder, err := AddFolder(ctx, ds, AddFolderInput{Name: "Tech"})
	require.NoError(t, err)
	_, err = AddTag(ctx, ds, AddTagInput{Name: "Go"})
	require.NoError(t, err)

	out, err := AddFeed(ctx, ds, AddFeedInput{
		URL:      "https://a.example/feed.xml",
		Title:    "A",
		FolderID: folder.Folder.ID,
		Tags:     []string{"go", "news", "news"},
	})
	require.NoError(t, err)
	require.Equal(t, "A", out.Feed.Title)
	require.Equal(t, []string{folder.Folder.ID}, out.Feed.FolderIDs)
	require.Equal(t, []string{"Go", "news"}, out.Feed.Tags, "existing tag spelling wins")
	require.Len(t, ListTags(ds), 2, "missing tag is created")

	_, err = AddFeed(ctx, ds, AddFeedInput{URL: "https://b.example/feed.xml", FolderID: "missing"})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestUpdateFeed_Patch(t *testing.T) {
	ds, _ := newTestDataset(t)
	f := mustAddFeed(t, ds, "https://a.example/feed.xml")

	out, err := UpdateFeed(context.Background(), ds, UpdateFeedInput{
		ID:    f.ID,
		Title: ptr("Renamed"),
	})
	require.NoError(t, err)
	require.Equal(t, "Renamed", out.Feed.Title)
	require.Equal(t, f.URL, out.Feed.URL, "unset fields are unchanged")
	require.True(t, out.Feed.IsEnabled)

	_, err = UpdateFeed(context.Background(), ds, UpdateFeedInput{ID: f.ID, Title: ptr("  ")})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = UpdateFeed(context.Background(), ds, UpdateFeedInput{ID: "nope", Title: ptr("x")})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSetFeedEnabled(t *testing.T) {
	ds, _ := newTestDataset(t)
	f := mustAddFeed(t, ds, "https://a.example/feed.xml")

	out, err := SetFeedEnabled(context.Background(), ds, f.ID, false)
	require.NoError(t, err)
	require.False(t, out.Feed.IsEnabled)

	list, err := ListFeeds(ds, ListFeedsInput{EnabledOnly: true})
	require.NoError(t, err)
	require.Empty(t, list.Items)
}

func TestDeleteFeed_CascadesArticles(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()

	a := mustAddFeed(t, ds, "https://a.example/feed.xml")
	b := mustAddFeed(t, ds, "https://b.example/feed.xml")
	kept := mustAddArticle(t, ds, b.ID, "https://b.example/1", nil)
	doomed := mustAddArticle(t, ds, a.ID, "https://a.example/1", nil)
	mustAddArticle(t, ds, a.ID, "https://a.example/2", nil)

	note, err := AddNote(ctx, ds, AddNoteInput{ArticleID: doomed.ID, Annotation: "keep me"})
	require.NoError(t, err)

	out, err := DeleteFeed(ctx, ds, a.ID)
	require.NoError(t, err)
	require.Equal(t, 2, out.ArticlesRemoved)
	require.True(t, out.Persisted)

	data := ds.Get()
	require.Equal(t, -1, data.FindFeed(a.ID))
	for _, art := range data.Articles {
		require.NotEqual(t, a.ID, art.FeedID, "no article of a deleted feed may remain")
	}
	require.GreaterOrEqual(t, data.FindArticle(kept.ID), 0)

	got, err := GetNote(ds, note.Note.ID)
	require.NoError(t, err, "notes survive article deletion")
	require.Equal(t, doomed.ID, got.ArticleID)

	_, err = DeleteFeed(ctx, ds, a.ID)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestGetFeed(t *testing.T) {
	ds, _ := newTestDataset(t)
	f := mustAddFeed(t, ds, "https://a.example/feed.xml")

	got, err := GetFeed(ds, f.ID)
	require.NoError(t, err)
	require.Equal(t, f, *got)

	_, err = GetFeed(ds, "missing")
	require.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = GetFeed(ds, "")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestListFeeds_Filters(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()

	folder, err := AddFolder(ctx, ds, AddFolderInput{Name: "News"})
	require.NoError(t, err)

	a := mustAddFeed(t, ds, "https://a.example/feed.xml")
	b := mustAddFeed(t, ds, "https://b.example/feed.xml")
	mustAddFeed(t, ds, "https://c.example/feed.xml")

	_, err = AssignFeedFolder(ctx, ds, FeedFolderInput{FeedID: a.ID, FolderID: folder.Folder.ID})
	require.NoError(t, err)
	_, err = TagFeed(ctx, ds, FeedTagInput{FeedID: b.ID, Tag: "daily"})
	require.NoError(t, err)

	all, err := ListFeeds(ds, ListFeedsInput{})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)
	require.Equal(t, a.ID, all.Items[0].ID, "subscription order")

	byFolder := FeedsByFolder(ds, folder.Folder.ID)
	require.Len(t, byFolder, 1)
	require.Equal(t, a.ID, byFolder[0].ID)

	byTag := FeedsByTag(ds, "daily")
	require.Len(t, byTag, 1)
	require.Equal(t, b.ID, byTag[0].ID)

	page, err := ListFeeds(ds, ListFeedsInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.True(t, page.Pagination.HasMore)
	require.Equal(t, 3, page.Pagination.Total)

	require.Len(t, AllFeeds(ds), 3)
}

func TestAssignFeedFolder_Set(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()

	f := mustAddFeed(t, ds, "https://a.example/feed.xml")
	one, err := AddFolder(ctx, ds, AddFolderInput{Name: "One"})
	require.NoError(t, err)
	two, err := AddFolder(ctx, ds, AddFolderInput{Name: "Two"})
	require.NoError(t, err)

	for _, id := range []string{one.Folder.ID, two.Folder.ID, one.Folder.ID} {
		_, err = AssignFeedFolder(ctx, ds, FeedFolderInput{FeedID: f.ID, FolderID: id})
		require.NoError(t, err)
	}
	got, _ := GetFeed(ds, f.ID)
	require.Equal(t, []string{one.Folder.ID, two.Folder.ID}, got.FolderIDs)

	out, err := UnassignFeedFolder(ctx, ds, FeedFolderInput{FeedID: f.ID, FolderID: one.Folder.ID})
	require.NoError(t, err)
	require.Equal(t, []string{two.Folder.ID}, out.Feed.FolderIDs)

	_, err = AssignFeedFolder(ctx, ds, FeedFolderInput{FeedID: f.ID, FolderID: "missing"})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestTagFeed_UntagFeed(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()
	f := mustAddFeed(t, ds, "https://a.example/feed.xml")

	_, err := TagFeed(ctx, ds, FeedTagInput{FeedID: f.ID, Tag: "Tech"})
	require.NoError(t, err)
	out, err := TagFeed(ctx, ds, FeedTagInput{FeedID: f.ID, Tag: "tech"})
	require.NoError(t, err)
	require.Equal(t, []string{"Tech"}, out.Feed.Tags)
	require.Len(t, ListTags(ds), 1)

	out, err = UntagFeed(ctx, ds, FeedTagInput{FeedID: f.ID, Tag: "Tech"})
	require.NoError(t, err)
	require.Empty(t, out.Feed.Tags)
	require.Len(t, ListTags(ds), 1, "untagging keeps the tag itself")
}
