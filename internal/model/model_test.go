package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple lowercase", input: "Hello World", want: "hello world"},
		{name: "trim whitespace", input: "  hello  ", want: "hello"},
		{name: "collapse internal whitespace", input: "hello    world", want: "hello world"},
		{name: "tabs and newlines", input: "hello\t\n  world", want: "hello world"},
		{name: "empty string", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()
	if len(a) != 26 {
		t.Errorf("ID length = %d, want 26 (ULID)", len(a))
	}
	if a == b {
		t.Error("NewID returned the same id twice")
	}
}

func TestSetHelpers(t *testing.T) {
	base := []string{"a", "b"}

	added := AddToSet(base, "c")
	require.Equal(t, []string{"a", "b", "c"}, added)
	require.Equal(t, []string{"a", "b"}, base, "input must not be modified")

	require.Equal(t, base, AddToSet(base, "a"))

	removed := RemoveFromSet(added, "b")
	require.Equal(t, []string{"a", "c"}, removed)
	require.Equal(t, []string{"a", "b", "c"}, added)

	require.Equal(t, []string{"x", "y"}, CleanSet([]string{" x ", "", "y", "x"}))
}

func TestDecodeData_MergesDefaults(t *testing.T) {
	raw := `{
		"version": 1,
		"feeds": [{"id": "f1", "title": "T", "url": "https://a.example/feed.xml", "tags": [], "isEnabled": true, "addedAt": "2024-01-01T00:00:00.000Z", "errorCount": 0}],
		"preferences": {"articleRetentionDays": 90}
	}`

	d, err := DecodeData([]byte(raw))
	require.NoError(t, err)

	require.Len(t, d.Feeds, 1)
	require.NotNil(t, d.Articles, "missing collections default to empty")
	require.Empty(t, d.Articles)
	require.NotNil(t, d.SavedSearches)

	require.Equal(t, 90, d.Preferences.ArticleRetentionDays)
	require.Equal(t, "system", d.Preferences.Theme, "missing preference keeps default")
	require.Equal(t, 10080, d.Preferences.GlobalRefreshInterval)
	require.True(t, d.Preferences.NotificationsEnabled)
}

func TestDecodeData_NullCollections(t *testing.T) {
	d, err := DecodeData([]byte(`{"version": 1, "feeds": null, "articles": null}`))
	require.NoError(t, err)
	require.NotNil(t, d.Feeds)
	require.NotNil(t, d.Articles)
}

func TestFeed_UnmarshalLegacyFolderID(t *testing.T) {
	var f Feed
	err := json.Unmarshal([]byte(`{"id":"f1","url":"u","title":"u","tags":[],"folderId":"fold1","addedAt":"2024-01-01T00:00:00Z","isEnabled":true}`), &f)
	require.NoError(t, err)
	require.Equal(t, []string{"fold1"}, f.FolderIDs)
	require.True(t, f.IsEnabled)

	out, err := json.Marshal(f)
	require.NoError(t, err)
	require.Contains(t, string(out), `"folderIds":["fold1"]`)
	require.NotContains(t, string(out), `"folderId"`)
}

func TestArticle_SortDate(t *testing.T) {
	d, err := DecodeData([]byte(`{"version":1,"feeds":[],"articles":[
		{"id":"a1","feedId":"f","fetchedAt":"2024-02-01T00:00:00Z","tags":[],"highlights":[]},
		{"id":"a2","feedId":"f","publishedAt":"2024-01-01T00:00:00Z","fetchedAt":"2024-02-01T00:00:00Z","tags":[],"highlights":[]}
	]}`))
	require.NoError(t, err)

	require.Equal(t, d.Articles[0].FetchedAt, d.Articles[0].SortDate())
	require.Equal(t, *d.Articles[1].PublishedAt, d.Articles[1].SortDate())
}

func TestShallowCopy(t *testing.T) {
	d := DefaultData()
	cp := d.ShallowCopy()
	cp.Feeds = append(cp.Feeds, Feed{ID: "x"})
	require.Empty(t, d.Feeds)
	require.Equal(t, -1, d.FindFeed("x"))
	require.Equal(t, 0, cp.FindFeed("x"))
}
