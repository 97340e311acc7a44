package ops

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/feed"
	"github.com/hpungsan/fetchnfeed/internal/model"
	"github.com/hpungsan/fetchnfeed/internal/opml"
)

const sampleOPML = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head><title>Mine</title></head>
  <body>
    <outline text="Loose" type="rss" xmlurl="https://loose.example/feed"/>
    <outline text="Tech">
      <outline text="Go Blog" type="rss" XMLURL="https://go.example/feed.atom" htmlUrl="https://go.example/"/>
      <outline text="Deep">
        <outline text="Nested" xmlUrl="https://nested.example/rss"/>
      </outline>
    </outline>
    <outline text="tech">
      <outline text="Again" xmlUrl="https://again.example/rss"/>
      <outline text="Dupe" xmlUrl="https://go.example/feed.atom"/>
    </outline>
    <outline text="Bad" xmlUrl="mailto:nobody@example.com"/>
  </body>
</opml>`

func TestImportOPML(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()
	existing := mustAddFeed(t, ds, "https://loose.example/feed")

	out, err := ImportOPML(ctx, ds, []byte(sampleOPML))
	require.NoError(t, err)
	require.Equal(t, 3, out.Added)
	require.Equal(t, 2, out.Skipped)
	require.Equal(t, 1, out.Invalid)
	require.Equal(t, 2, out.FoldersCreated)

	folders := ListFolders(ds)
	require.Len(t, folders, 2)
	require.Equal(t, "Tech", folders[0].Name)
	require.Equal(t, "Deep", folders[1].Name)
	require.Equal(t, folders[0].ID, folders[1].ParentID)

	byURL := make(map[string][]string)
	for _, f := range AllFeeds(ds) {
		byURL[f.URL] = f.FolderIDs
	}
	require.Len(t, byURL, 4)
	require.Equal(t, []string{folders[0].ID}, byURL["https://go.example/feed.atom"])
	require.Equal(t, []string{folders[1].ID}, byURL["https://nested.example/rss"])
	require.Equal(t, []string{folders[0].ID}, byURL["https://again.example/rss"], "folder names match ignoring case")
	require.Empty(t, byURL[existing.URL])

	goFeed := FeedsByFolder(ds, folders[0].ID)[0]
	require.Equal(t, "Go Blog", goFeed.Title)
	require.Equal(t, "https://go.example/", goFeed.SiteURL)
	require.True(t, goFeed.IsEnabled)

	again, err := ImportOPML(ctx, ds, []byte(sampleOPML))
	require.NoError(t, err)
	require.Equal(t, 0, again.Added)
	require.Equal(t, 0, again.FoldersCreated)
}

func TestImportOPML_Malformed(t *testing.T) {
	ds, _ := newTestDataset(t)

	_, err := ImportOPML(context.Background(), ds, []byte(`<opml><body><outline`))
	require.True(t, errors.Is(err, errors.ErrImportRejected))
	require.Empty(t, ds.Get().Feeds)
}

func TestExportOPML_RoundTrip(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()

	_, err := ImportOPML(ctx, ds, []byte(sampleOPML))
	require.NoError(t, err)
	_, err = AddFolder(ctx, ds, AddFolderInput{Name: "Empty"})
	require.NoError(t, err)

	raw, err := ExportOPML(ds)
	require.NoError(t, err)
	require.Contains(t, string(raw), opml.DefaultTitle)
	require.NotContains(t, string(raw), `text="Empty"`)

	entries, err := opml.Parse(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, entries, 4)
	require.Equal(t, "https://loose.example/feed", entries[0].URL)
	require.Empty(t, entries[0].FolderPath)
	require.Equal(t, []string{"Tech"}, entries[1].FolderPath)
	require.Equal(t, []string{"Tech", "Deep"}, entries[3].FolderPath)

	fresh, _ := newTestDataset(t)
	out, err := ImportOPML(ctx, fresh, raw)
	require.NoError(t, err)
	require.Equal(t, 4, out.Added)

	folders := ListFolders(fresh)
	require.Len(t, folders, 2)
	require.Equal(t, "Deep", folders[1].Name)
	require.Equal(t, folders[0].ID, folders[1].ParentID, "nesting survives export and import")
}

func TestExportOPML_FeedWithMissingFolderIsUnfiled(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()
	f := mustAddFeed(t, ds, "https://orphan.example/feed.xml")

	_, err := ds.Update(ctx, func(tx *dataset.Tx) error {
		feeds := append([]model.Feed(nil), tx.Data().Feeds...)
		feeds[0].FolderIDs = []string{"gone"}
		tx.SetFeeds(feeds)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"gone"}, AllFeeds(ds)[0].FolderIDs)

	raw, err := ExportOPML(ds)
	require.NoError(t, err)

	entries, err := opml.Parse(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, f.URL, entries[0].URL)
	require.Empty(t, entries[0].FolderPath)
}

func TestOPMLFiles(t *testing.T) {
	ds, dir := newTestDataset(t)
	ctx := context.Background()
	mustAddFeed(t, ds, "https://a.example/feed.xml")

	exported, err := ExportOPMLFile(ctx, ds, dir, nil, ExportFileInput{})
	require.NoError(t, err)
	require.Equal(t, "subscriptions-2024-06-10T120000.opml", filepath.Base(exported.Path))

	path := filepath.Join(ExportsDir(dir), "other.opml")
	require.NoError(t, os.WriteFile(path, []byte(sampleOPML), 0600))

	out, err := ImportOPMLFile(ctx, ds, dir, nil, ImportFileInput{Path: path})
	require.NoError(t, err)
	require.Equal(t, 4, out.Added)

	_, err = ImportOPMLFile(ctx, ds, dir, nil, ImportFileInput{Path: filepath.Join(ExportsDir(dir), "x.json")})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestDiscoverFeed(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()

	fetcher := newStubFetcher()
	fetcher.errs["https://site.example/feed"] = fmt.Errorf("404")
	fetcher.results["https://site.example/feed.xml"] = &feed.Parsed{
		Title: "Site",
		Items: []feed.Item{{URL: "https://site.example/1"}},
	}

	out, err := DiscoverFeed(ctx, ds, fetcher, DiscoverInput{SiteURL: "https://site.example/"})
	require.NoError(t, err)
	require.Equal(t, "https://site.example/feed.xml", out.FeedURL)
	require.Equal(t, 1, out.Items)
	require.Nil(t, out.Feed)
	require.Empty(t, ds.Get().Feeds)

	out, err = DiscoverFeed(ctx, ds, fetcher, DiscoverInput{SiteURL: "https://site.example", Subscribe: true})
	require.NoError(t, err)
	require.NotNil(t, out.Feed)
	require.Equal(t, "Site", out.Feed.Title)
	require.Len(t, ds.Get().Feeds, 1)
	require.Empty(t, ds.Get().Articles, "discovering does not store articles")
}
