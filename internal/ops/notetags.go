package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

// NoteTagOutput contains the result of the AddNoteTag operation.
type NoteTagOutput struct {
	NoteTag   model.NoteTag `json:"note_tag"`
	Created   bool          `json:"created"`
	Persisted bool          `json:"persisted"`
}

// AddNoteTag creates a note tag, or returns the one whose name matches
// ignoring case. Note tags are separate from feed and article tags.
func AddNoteTag(ctx context.Context, ds *dataset.Dataset, name string) (*NoteTagOutput, error) {
	name, err := requireID("name", name)
	if err != nil {
		return nil, err
	}

	out := &NoteTagOutput{}
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		tags := tx.Data().NoteTags
		if i := findNoteTagByName(tags, name); i >= 0 {
			out.NoteTag = tags[i]
			return nil
		}
		out.NoteTag = model.NoteTag{ID: model.NewID(), Name: name}
		out.Created = true
		tx.SetNoteTags(appendCopy(tags, out.NoteTag))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteNoteTagOutput contains the result of the DeleteNoteTag operation.
type DeleteNoteTagOutput struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	NotesUpdated int    `json:"notes_updated"`
	Persisted    bool   `json:"persisted"`
}

// DeleteNoteTag removes a note tag and strips its name from every note.
func DeleteNoteTag(ctx context.Context, ds *dataset.Dataset, id string) (*DeleteNoteTagOutput, error) {
	id, err := requireID("id", id)
	if err != nil {
		return nil, err
	}

	out := &DeleteNoteTagOutput{ID: id}
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		data := tx.Data()
		var removedTag *model.NoteTag
		tags, _ := removeWhere(data.NoteTags, func(t *model.NoteTag) bool {
			if t.ID == id {
				removedTag = t
				return true
			}
			return false
		})
		if removedTag == nil {
			return errors.NewNotFound("note tag", id)
		}
		out.Name = removedTag.Name
		tx.SetNoteTags(tags)

		notes := make([]model.Note, len(data.Notes))
		for i, n := range data.Notes {
			if model.ContainsString(n.Tags, out.Name) {
				n.Tags = model.RemoveFromSet(n.Tags, out.Name)
				out.NotesUpdated++
			}
			notes[i] = n
		}
		if out.NotesUpdated > 0 {
			tx.SetNotes(notes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListNoteTags returns every note tag in creation order.
func ListNoteTags(ds *dataset.Dataset) []model.NoteTag {
	return filter(ds.Get().NoteTags, func(*model.NoteTag) bool { return true })
}

func findNoteTagByName(tags []model.NoteTag, name string) int {
	for i := range tags {
		if strings.EqualFold(tags[i].Name, name) {
			return i
		}
	}
	return -1
}

// ensureNoteTags cleans names and maps each onto an existing note tag,
// creating the missing ones inside tx.
func ensureNoteTags(tx *dataset.Tx, names []string) []string {
	out := []string{}
	for _, name := range model.CleanSet(names) {
		tags := tx.Data().NoteTags
		if i := findNoteTagByName(tags, name); i >= 0 {
			name = tags[i].Name
		} else {
			tx.SetNoteTags(appendCopy(tags, model.NoteTag{ID: model.NewID(), Name: name}))
		}
		out = model.AddToSet(out, name)
	}
	return out
}
