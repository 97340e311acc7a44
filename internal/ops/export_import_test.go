package ops

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fetchnfeed/internal/config"
	"github.com/hpungsan/fetchnfeed/internal/errors"
)

func TestExportImport_RoundTrip(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()

	folder, err := AddFolder(ctx, ds, AddFolderInput{Name: "Tech"})
	require.NoError(t, err)
	f, err := AddFeed(ctx, ds, AddFeedInput{URL: "https://a.example/feed.xml", FolderID: folder.Folder.ID, Tags: []string{"go"}})
	require.NoError(t, err)
	a := mustAddArticle(t, ds, f.Feed.ID, "https://a.example/1", daysAgo(1))
	_, err = ToggleArticleStar(ctx, ds, a.ID)
	require.NoError(t, err)
	_, err = AddNote(ctx, ds, AddNoteInput{ArticleID: a.ID, Annotation: "note", Tags: []string{"idea"}})
	require.NoError(t, err)
	_, err = UpdatePreferences(ctx, ds, UpdatePreferencesInput{Theme: ptr("dark")})
	require.NoError(t, err)

	before, err := ExportData(ds)
	require.NoError(t, err)

	_, err = ClearData(ctx, ds)
	require.NoError(t, err)
	require.Empty(t, ds.Get().Feeds)
	require.Equal(t, "system", ds.Get().Preferences.Theme)

	out, err := ImportData(ctx, ds, before)
	require.NoError(t, err)
	require.Equal(t, 1, out.Feeds)
	require.Equal(t, 1, out.Articles)
	require.Equal(t, 1, out.Folders)
	require.Equal(t, 1, out.Tags)
	require.Equal(t, 1, out.Notes)
	require.True(t, out.Persisted)

	after, err := ExportData(ds)
	require.NoError(t, err)
	require.JSONEq(t, string(before), string(after))
}

func TestExportData_Shape(t *testing.T) {
	ds, _ := newTestDataset(t)

	raw, err := ExportData(ds)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(raw), "\n"))

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, key := range []string{"version", "feeds", "articles", "folders", "tags", "notes", "noteTags", "preferences"} {
		require.Contains(t, doc, key)
	}
}

func TestImportData_Rejected(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()
	f := mustAddFeed(t, ds, "https://a.example/feed.xml")

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"version":`},
		{"not an object", `[1,2,3]`},
		{"missing version", `{"feeds":[],"articles":[]}`},
		{"missing feeds", `{"version":1,"articles":[]}`},
		{"null articles", `{"version":1,"feeds":[],"articles":null}`},
		{"zero version", `{"version":0,"feeds":[],"articles":[]}`},
		{"wrong type", `{"version":1,"feeds":"nope","articles":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportData(ctx, ds, []byte(tt.raw))
			require.True(t, errors.Is(err, errors.ErrImportRejected), "got %v", err)
		})
	}

	require.Len(t, ds.Get().Feeds, 1)
	require.Equal(t, f.ID, ds.Get().Feeds[0].ID)
}

func TestImportData_FillsDefaults(t *testing.T) {
	ds, _ := newTestDataset(t)

	raw := `{"version":1,"feeds":[],"articles":[],"preferences":{"theme":"dark"}}`
	_, err := ImportData(context.Background(), ds, []byte(raw))
	require.NoError(t, err)

	prefs := GetPreferences(ds)
	require.Equal(t, "dark", prefs.Theme)
	require.Equal(t, 30, prefs.ArticleRetentionDays)
	require.NotNil(t, ds.Get().Notes)
}

func TestExportImportFile(t *testing.T) {
	ds, dir := newTestDataset(t)
	ctx := context.Background()
	mustAddFeed(t, ds, "https://a.example/feed.xml")

	exported, err := ExportDataFile(ctx, ds, dir, nil, ExportFileInput{})
	require.NoError(t, err)
	require.Equal(t, ExportsDir(dir), filepath.Dir(exported.Path))
	require.Equal(t, "fetchnfeed-2024-06-10T120000.json", filepath.Base(exported.Path))
	require.Equal(t, 1, exported.Feeds)

	info, err := os.Stat(exported.Path)
	require.NoError(t, err)
	require.Equal(t, int64(exported.Bytes), info.Size())

	_, err = ClearData(ctx, ds)
	require.NoError(t, err)

	imported, err := ImportDataFile(ctx, ds, dir, nil, ImportFileInput{Path: exported.Path})
	require.NoError(t, err)
	require.Equal(t, 1, imported.Feeds)
	require.Len(t, ds.Get().Feeds, 1)
}

func TestExportDataFile_RejectsOutsidePath(t *testing.T) {
	ds, dir := newTestDataset(t)

	_, err := ExportDataFile(context.Background(), ds, dir, nil, ExportFileInput{Path: filepath.Join(dir, "out.json")})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	out, err := ExportDataFile(context.Background(), ds, dir, cfg, ExportFileInput{Path: filepath.Join(dir, "out.json")})
	require.NoError(t, err)
	require.FileExists(t, out.Path)
}

func TestImportDataFile_Missing(t *testing.T) {
	ds, dir := newTestDataset(t)

	_, err := ImportDataFile(context.Background(), ds, dir, nil, ImportFileInput{Path: filepath.Join(ExportsDir(dir), "nope.json")})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}
