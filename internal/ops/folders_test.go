package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fetchnfeed/internal/errors"
)

func TestAddFolder_SortOrder(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()

	for i, name := range []string{"Tech", "News", "Blogs"} {
		out, err := AddFolder(ctx, ds, AddFolderInput{Name: name})
		require.NoError(t, err)
		require.Equal(t, i, out.Folder.SortOrder)
		require.Empty(t, out.Folder.ParentID)
	}

	folders := ListFolders(ds)
	require.Len(t, folders, 3)
	require.Equal(t, "Tech", folders[0].Name)
	require.Equal(t, "Blogs", folders[2].Name)

	_, err := AddFolder(ctx, ds, AddFolderInput{Name: " "})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = AddFolder(ctx, ds, AddFolderInput{Name: "Child", ParentID: "missing"})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRenameFolder(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()

	f, err := AddFolder(ctx, ds, AddFolderInput{Name: "Tech"})
	require.NoError(t, err)

	out, err := RenameFolder(ctx, ds, RenameFolderInput{ID: f.Folder.ID, Name: "Technology"})
	require.NoError(t, err)
	require.Equal(t, "Technology", out.Folder.Name)
	require.Equal(t, f.Folder.SortOrder, out.Folder.SortOrder)

	got, err := GetFolder(ds, f.Folder.ID)
	require.NoError(t, err)
	require.Equal(t, "Technology", got.Name)

	_, err = RenameFolder(ctx, ds, RenameFolderInput{ID: "missing", Name: "x"})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDeleteFolder_KeepsFeeds(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()

	folder, err := AddFolder(ctx, ds, AddFolderInput{Name: "Tech"})
	require.NoError(t, err)
	a := mustAddFeed(t, ds, "https://a.example/feed.xml")
	b := mustAddFeed(t, ds, "https://b.example/feed.xml")
	for _, f := range []string{a.ID, b.ID} {
		_, err = AssignFeedFolder(ctx, ds, FeedFolderInput{FeedID: f, FolderID: folder.Folder.ID})
		require.NoError(t, err)
	}

	out, err := DeleteFolder(ctx, ds, folder.Folder.ID)
	require.NoError(t, err)
	require.Equal(t, 2, out.FeedsUnassigned)

	feeds := AllFeeds(ds)
	require.Len(t, feeds, 2)
	for _, f := range feeds {
		require.Empty(t, f.FolderIDs)
	}
	require.Empty(t, ListFolders(ds))

	_, err = GetFolder(ds, folder.Folder.ID)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDeleteFolder_PromotesChildren(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()

	parent, err := AddFolder(ctx, ds, AddFolderInput{Name: "Parent"})
	require.NoError(t, err)
	child, err := AddFolder(ctx, ds, AddFolderInput{Name: "Child", ParentID: parent.Folder.ID})
	require.NoError(t, err)
	require.Equal(t, parent.Folder.ID, child.Folder.ParentID)

	_, err = DeleteFolder(ctx, ds, parent.Folder.ID)
	require.NoError(t, err)

	got, err := GetFolder(ds, child.Folder.ID)
	require.NoError(t, err)
	require.Empty(t, got.ParentID)
}
