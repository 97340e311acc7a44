package ops

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

func TestAddNote_SnapshotsArticle(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()

	f, err := AddFeed(ctx, ds, AddFeedInput{URL: "https://a.example/feed.xml", Title: "Site A"})
	require.NoError(t, err)
	out, err := AddArticle(ctx, ds, AddArticleInput{
		FeedID:      f.Feed.ID,
		Title:       "Original Title",
		URL:         "https://a.example/1",
		Author:      "Ada",
		PublishedAt: daysAgo(2),
	})
	require.NoError(t, err)
	a := out.Article

	note, err := AddNote(ctx, ds, AddNoteInput{
		ArticleID:       a.ID,
		HighlightedText: "a quote",
		Annotation:      "my thought",
		Tags:            []string{"Ideas", "ideas"},
	})
	require.NoError(t, err)

	n := note.Note
	require.Equal(t, a.ID, n.ArticleID)
	require.Equal(t, "Original Title", n.ArticleTitle)
	require.Equal(t, "https://a.example/1", n.ArticleURL)
	require.Equal(t, "Ada", n.ArticleAuthor)
	require.Equal(t, "Site A", n.FeedTitle)
	require.Equal(t, testNow, n.CreatedAt)
	require.Equal(t, []string{"Ideas"}, n.Tags)
	require.Equal(t, model.Citation{
		Author: "Ada",
		Title:  "Original Title",
		Source: "Site A",
		URL:    "https://a.example/1",
		Date:   daysAgo(2).Format("2006-01-02"),
	}, n.Citation)
	require.Len(t, ListNoteTags(ds), 1)

	// Later article changes do not reach the note.
	_, err = DeleteArticle(ctx, ds, a.ID)
	require.NoError(t, err)
	got, err := GetNote(ds, n.ID)
	require.NoError(t, err)
	require.Equal(t, "Original Title", got.ArticleTitle)
	require.Len(t, NotesByArticle(ds, a.ID), 1)
}

func TestAddNote_Validation(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()
	f := mustAddFeed(t, ds, "https://a.example/feed.xml")
	a := mustAddArticle(t, ds, f.ID, "https://a.example/1", nil)

	_, err := AddNote(ctx, ds, AddNoteInput{ArticleID: a.ID, HighlightedText: "  "})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = AddNote(ctx, ds, AddNoteInput{ArticleID: "missing", Annotation: "x"})
	require.True(t, errors.Is(err, errors.ErrNotFound))

	custom := &model.Citation{Title: "Custom"}
	out, err := AddNote(ctx, ds, AddNoteInput{ArticleID: a.ID, Annotation: "x", Citation: custom})
	require.NoError(t, err)
	require.Equal(t, *custom, out.Note.Citation)
}

func TestUpdateNote(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()
	f := mustAddFeed(t, ds, "https://a.example/feed.xml")
	a := mustAddArticle(t, ds, f.ID, "https://a.example/1", nil)
	note, err := AddNote(ctx, ds, AddNoteInput{ArticleID: a.ID, HighlightedText: "quote"})
	require.NoError(t, err)

	out, err := UpdateNote(ctx, ds, UpdateNoteInput{
		ID:         note.Note.ID,
		Annotation: ptr("added later"),
		Tags:       &[]string{"todo"},
	})
	require.NoError(t, err)
	require.Equal(t, "quote", out.Note.HighlightedText)
	require.Equal(t, "added later", out.Note.Annotation)
	require.Equal(t, []string{"todo"}, out.Note.Tags)

	_, err = UpdateNote(ctx, ds, UpdateNoteInput{
		ID:              note.Note.ID,
		HighlightedText: ptr(""),
		Annotation:      ptr(""),
	})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = UpdateNote(ctx, ds, UpdateNoteInput{ID: "missing"})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDeleteNotes(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()
	f := mustAddFeed(t, ds, "https://a.example/feed.xml")
	a := mustAddArticle(t, ds, f.ID, "https://a.example/1", nil)

	var ids []string
	for _, text := range []string{"one", "two", "three"} {
		out, err := AddNote(ctx, ds, AddNoteInput{ArticleID: a.ID, Annotation: text})
		require.NoError(t, err)
		ids = append(ids, out.Note.ID)
	}

	out, err := DeleteNotes(ctx, ds, ids[:2])
	require.NoError(t, err)
	require.Equal(t, 2, out.Deleted)

	_, err = DeleteNote(ctx, ds, ids[2])
	require.NoError(t, err)
	require.Empty(t, ds.Get().Notes)

	_, err = DeleteNote(ctx, ds, ids[2])
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func seedNotes(t *testing.T, ds *dataset.Dataset, notes ...model.Note) {
	t.Helper()
	_, err := ds.Update(context.Background(), func(tx *dataset.Tx) error {
		tx.SetNotes(appendCopy(tx.Data().Notes, notes...))
		return nil
	})
	require.NoError(t, err)
}

func TestListNotes_NewestFirst(t *testing.T) {
	ds, _ := newTestDataset(t)
	seedNotes(t, ds,
		model.Note{ID: "old", ArticleID: "a1", Annotation: "old", Tags: []string{"x"}, CreatedAt: testNow.Add(-2 * time.Hour)},
		model.Note{ID: "new", ArticleID: "a2", Annotation: "new", Tags: []string{}, CreatedAt: testNow},
		model.Note{ID: "mid", ArticleID: "a1", Annotation: "mid", Tags: []string{"x"}, CreatedAt: testNow.Add(-time.Hour)},
	)

	all, err := ListNotes(ds, ListNotesInput{})
	require.NoError(t, err)
	require.Equal(t, []string{"new", "mid", "old"}, noteIDs(all.Items))

	byArticle, err := ListNotes(ds, ListNotesInput{ArticleID: "a1"})
	require.NoError(t, err)
	require.Equal(t, []string{"mid", "old"}, noteIDs(byArticle.Items))

	byTag, err := ListNotes(ds, ListNotesInput{Tag: "x", Limit: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"mid"}, noteIDs(byTag.Items))
	require.True(t, byTag.Pagination.HasMore)
}

func TestNoteTags(t *testing.T) {
	ds, _ := newTestDataset(t)
	ctx := context.Background()

	first, err := AddNoteTag(ctx, ds, "Quotes")
	require.NoError(t, err)
	require.True(t, first.Created)

	again, err := AddNoteTag(ctx, ds, "quotes")
	require.NoError(t, err)
	require.False(t, again.Created)
	require.Equal(t, first.NoteTag, again.NoteTag)

	f := mustAddFeed(t, ds, "https://a.example/feed.xml")
	a := mustAddArticle(t, ds, f.ID, "https://a.example/1", nil)
	note, err := AddNote(ctx, ds, AddNoteInput{ArticleID: a.ID, Annotation: "x", Tags: []string{"QUOTES", "other"}})
	require.NoError(t, err)
	require.Equal(t, []string{"Quotes", "other"}, note.Note.Tags)
	require.Len(t, ListNoteTags(ds), 2)
	require.Empty(t, ListTags(ds), "note tags are separate from feed tags")

	out, err := DeleteNoteTag(ctx, ds, first.NoteTag.ID)
	require.NoError(t, err)
	require.Equal(t, 1, out.NotesUpdated)

	got, _ := GetNote(ds, note.Note.ID)
	require.Equal(t, []string{"other"}, got.Tags)

	_, err = DeleteNoteTag(ctx, ds, first.NoteTag.ID)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestExportNotes(t *testing.T) {
	ds, _ := newTestDataset(t)
	seedNotes(t, ds, model.Note{
		ID:              "n1",
		ArticleID:       "a1",
		ArticleTitle:    "On Gophers",
		ArticleURL:      "https://a.example/gophers",
		HighlightedText: "Gophers dig.\nThey dig a lot.",
		Annotation:      "True.",
		Tags:            []string{"animals"},
		Citation:        model.Citation{Author: "Ada", Source: "Site A", Date: "2024-06-01"},
		CreatedAt:       testNow,
	})

	md, err := ExportNotes(ds, ExportNotesInput{})
	require.NoError(t, err)
	require.Equal(t, NotesFormatMarkdown, md.Format)
	require.Equal(t, 1, md.Count)
	require.True(t, strings.HasPrefix(md.Content, "# Notes\n"))
	require.Contains(t, md.Content, "## On Gophers")
	require.Contains(t, md.Content, "Ada · Site A · 2024-06-01 · <https://a.example/gophers>")
	require.Contains(t, md.Content, "> Gophers dig.\n> They dig a lot.\n")
	require.Contains(t, md.Content, "Tags: animals")
	require.Contains(t, md.Content, "_Noted 2024-06-10 12:00_")

	html, err := ExportNotes(ds, ExportNotesInput{Format: "HTML"})
	require.NoError(t, err)
	require.Equal(t, NotesFormatHTML, html.Format)
	require.Contains(t, html.Content, "<h1>Notes</h1>")
	require.Contains(t, html.Content, "<h2>On Gophers</h2>")
	require.Contains(t, html.Content, "<blockquote>")

	_, err = ExportNotes(ds, ExportNotesInput{Format: "pdf"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func noteIDs(notes []model.Note) []string {
	ids := make([]string, len(notes))
	for i := range notes {
		ids[i] = notes[i].ID
	}
	return ids
}
