package ops

import (
	"context"
	"sort"
	"strings"

	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

// AddNoteInput contains parameters for the AddNote operation.
type AddNoteInput struct {
	ArticleID       string   `json:"article_id"`
	HighlightedText string   `json:"highlighted_text,omitempty"`
	Annotation      string   `json:"annotation,omitempty"`
	Tags            []string `json:"tags,omitempty"`

	// Citation defaults to fields taken from the article and its feed
	Citation *model.Citation `json:"citation,omitempty"`
}

// NoteOutput is returned by operations that create or change a note.
type NoteOutput struct {
	Note      model.Note `json:"note"`
	Persisted bool       `json:"persisted"`
}

// AddNote records a highlight or annotation on an article. Article and feed
// fields are copied into the note and are not kept in sync afterwards.
func AddNote(ctx context.Context, ds *dataset.Dataset, input AddNoteInput) (*NoteOutput, error) {
	articleID, err := requireID("article_id", input.ArticleID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.HighlightedText) == "" && strings.TrimSpace(input.Annotation) == "" {
		return nil, errors.NewInvalidRequest("highlighted_text or annotation is required")
	}

	out := &NoteOutput{}
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		data := tx.Data()
		i := data.FindArticle(articleID)
		if i < 0 {
			return errors.NewNotFound("article", articleID)
		}
		a := data.Articles[i]
		feedTitle := ""
		if fi := data.FindFeed(a.FeedID); fi >= 0 {
			feedTitle = data.Feeds[fi].Title
		}

		note := model.Note{
			ID:                 model.NewID(),
			ArticleID:          a.ID,
			ArticleTitle:       a.Title,
			ArticleURL:         a.URL,
			ArticleAuthor:      a.Author,
			ArticlePublishedAt: a.PublishedAt,
			FeedTitle:          feedTitle,
			HighlightedText:    input.HighlightedText,
			Annotation:         input.Annotation,
			Tags:               ensureNoteTags(tx, input.Tags),
			Citation:           defaultCitation(a, feedTitle),
			CreatedAt:          tx.Now(),
		}
		if input.Citation != nil {
			note.Citation = *input.Citation
		}

		tx.SetNotes(appendCopy(data.Notes, note))
		out.Note = note
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func defaultCitation(a model.Article, feedTitle string) model.Citation {
	c := model.Citation{
		Author: a.Author,
		Title:  a.Title,
		Source: feedTitle,
		URL:    a.URL,
	}
	if a.PublishedAt != nil {
		c.Date = a.PublishedAt.Format("2006-01-02")
	}
	return c
}

// UpdateNoteInput contains parameters for the UpdateNote operation.
// Nil fields are left unchanged.
type UpdateNoteInput struct {
	ID              string          `json:"id"`
	HighlightedText *string         `json:"highlighted_text,omitempty"`
	Annotation      *string         `json:"annotation,omitempty"`
	Tags            *[]string       `json:"tags,omitempty"`
	Citation        *model.Citation `json:"citation,omitempty"`
}

// UpdateNote patches a note's own fields. The article snapshot is never changed.
func UpdateNote(ctx context.Context, ds *dataset.Dataset, input UpdateNoteInput) (*NoteOutput, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}

	out := &NoteOutput{}
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		data := tx.Data()
		i := data.FindNote(id)
		if i < 0 {
			return errors.NewNotFound("note", id)
		}
		n := data.Notes[i]
		if input.HighlightedText != nil {
			n.HighlightedText = *input.HighlightedText
		}
		if input.Annotation != nil {
			n.Annotation = *input.Annotation
		}
		if strings.TrimSpace(n.HighlightedText) == "" && strings.TrimSpace(n.Annotation) == "" {
			return errors.NewInvalidRequest("note must keep highlighted_text or annotation")
		}
		if input.Tags != nil {
			n.Tags = ensureNoteTags(tx, *input.Tags)
		}
		if input.Citation != nil {
			n.Citation = *input.Citation
		}
		tx.SetNotes(replaceAt(data.Notes, i, n))
		out.Note = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteNotesOutput contains the result of DeleteNote and DeleteNotes.
type DeleteNotesOutput struct {
	Deleted   int  `json:"deleted"`
	Persisted bool `json:"persisted"`
}

// DeleteNote removes one note.
func DeleteNote(ctx context.Context, ds *dataset.Dataset, id string) (*DeleteNotesOutput, error) {
	id, err := requireID("id", id)
	if err != nil {
		return nil, err
	}
	out, err := DeleteNotes(ctx, ds, []string{id})
	if err != nil {
		return nil, err
	}
	if out.Deleted == 0 {
		return nil, errors.NewNotFound("note", id)
	}
	return out, nil
}

// DeleteNotes removes every listed note in one transaction. Unknown ids
// are ignored.
func DeleteNotes(ctx context.Context, ds *dataset.Dataset, ids []string) (*DeleteNotesOutput, error) {
	ids = model.CleanSet(ids)
	if len(ids) == 0 {
		return nil, errors.NewInvalidRequest("ids must not be empty")
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	out := &DeleteNotesOutput{}
	var err error
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		notes, removed := removeWhere(tx.Data().Notes, func(n *model.Note) bool { return drop[n.ID] })
		if removed > 0 {
			tx.SetNotes(notes)
		}
		out.Deleted = removed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetNote returns a note by id.
func GetNote(ds *dataset.Dataset, id string) (*model.Note, error) {
	id, err := requireID("id", id)
	if err != nil {
		return nil, err
	}
	data := ds.Get()
	i := data.FindNote(id)
	if i < 0 {
		return nil, errors.NewNotFound("note", id)
	}
	n := data.Notes[i]
	return &n, nil
}

// ListNotesInput contains parameters for the ListNotes operation.
type ListNotesInput struct {
	ArticleID string `json:"article_id,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// ListNotesOutput contains the result of the ListNotes operation.
type ListNotesOutput struct {
	Items      []model.Note `json:"items"`
	Pagination Pagination   `json:"pagination"`
}

// ListNotes returns notes newest first, optionally filtered.
func ListNotes(ds *dataset.Dataset, input ListNotesInput) (*ListNotesOutput, error) {
	items, page := paginate(selectNotes(ds, input.ArticleID, input.Tag), input.Limit, input.Offset)
	return &ListNotesOutput{Items: items, Pagination: page}, nil
}

// NotesByArticle returns the notes taken on one article, newest first.
// The article itself may no longer exist.
func NotesByArticle(ds *dataset.Dataset, articleID string) []model.Note {
	return selectNotes(ds, articleID, "")
}

func selectNotes(ds *dataset.Dataset, articleID, tag string) []model.Note {
	articleID = strings.TrimSpace(articleID)
	tag = strings.TrimSpace(tag)
	notes := filter(ds.Get().Notes, func(n *model.Note) bool {
		return (articleID == "" || n.ArticleID == articleID) && (tag == "" || model.ContainsString(n.Tags, tag))
	})
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
	return notes
}
