package dataset

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hpungsan/fetchnfeed/internal/model"
)

// Tx is the working copy handed to an Update callback.
//
// Collections are replaced whole through the Set methods, which also mark
// them for persistence. Slices read from Data are shared with the published
// snapshot and must never be modified in place: build a new slice and Set it.
type Tx struct {
	data  *model.Data
	dirty map[model.Collection]bool
	now   time.Time
}

// Data returns the working copy, including replacements made so far.
func (tx *Tx) Data() *model.Data { return tx.data }

// Now is the transaction timestamp, fixed for the whole callback.
func (tx *Tx) Now() time.Time { return tx.now }

// Changed reports whether any collection has been replaced.
func (tx *Tx) Changed() bool { return len(tx.dirty) > 0 }

func (tx *Tx) SetFeeds(feeds []model.Feed) {
	tx.data.Feeds = feeds
	tx.dirty[model.CollectionFeeds] = true
}

func (tx *Tx) SetArticles(articles []model.Article) {
	tx.data.Articles = articles
	tx.dirty[model.CollectionArticles] = true
}

func (tx *Tx) SetFolders(folders []model.Folder) {
	tx.data.Folders = folders
	tx.dirty[model.CollectionFolders] = true
}

func (tx *Tx) SetTags(tags []model.Tag) {
	tx.data.Tags = tags
	tx.dirty[model.CollectionTags] = true
}

func (tx *Tx) SetNotes(notes []model.Note) {
	tx.data.Notes = notes
	tx.dirty[model.CollectionNotes] = true
}

func (tx *Tx) SetNoteTags(noteTags []model.NoteTag) {
	tx.data.NoteTags = noteTags
	tx.dirty[model.CollectionNoteTags] = true
}

func (tx *Tx) SetFilterRules(records []json.RawMessage) {
	tx.data.FilterRules = records
	tx.dirty[model.CollectionFilterRules] = true
}

func (tx *Tx) SetTrainingSignals(records []json.RawMessage) {
	tx.data.TrainingSignals = records
	tx.dirty[model.CollectionTrainingSignals] = true
}

func (tx *Tx) SetSavedSearches(records []json.RawMessage) {
	tx.data.SavedSearches = records
	tx.dirty[model.CollectionSavedSearches] = true
}

func (tx *Tx) SetPreferences(prefs model.Preferences) {
	tx.data.Preferences = prefs
	tx.dirty[model.CollectionPreferences] = true
}

// collections lists the replaced collections in persistence order.
func (tx *Tx) collections() []model.Collection {
	out := make([]model.Collection, 0, len(tx.dirty))
	for _, col := range model.AllCollections {
		if tx.dirty[col] {
			out = append(out, col)
		}
	}
	return out
}

// Partial names whole collections to replace; nil fields are left alone.
type Partial struct {
	Feeds           *[]model.Feed
	Articles        *[]model.Article
	Folders         *[]model.Folder
	Tags            *[]model.Tag
	Notes           *[]model.Note
	NoteTags        *[]model.NoteTag
	FilterRules     *[]json.RawMessage
	TrainingSignals *[]json.RawMessage
	SavedSearches   *[]json.RawMessage
	Preferences     *model.Preferences
}

// UpdateData shallow-merges the non-nil fields of p into the dataset.
// It does not read the current state, so it is only safe for callers that
// computed p under their own serialization; prefer Update.
func (d *Dataset) UpdateData(ctx context.Context, p Partial) (bool, error) {
	return d.Update(ctx, func(tx *Tx) error {
		if p.Feeds != nil {
			tx.SetFeeds(*p.Feeds)
		}
		if p.Articles != nil {
			tx.SetArticles(*p.Articles)
		}
		if p.Folders != nil {
			tx.SetFolders(*p.Folders)
		}
		if p.Tags != nil {
			tx.SetTags(*p.Tags)
		}
		if p.Notes != nil {
			tx.SetNotes(*p.Notes)
		}
		if p.NoteTags != nil {
			tx.SetNoteTags(*p.NoteTags)
		}
		if p.FilterRules != nil {
			tx.SetFilterRules(*p.FilterRules)
		}
		if p.TrainingSignals != nil {
			tx.SetTrainingSignals(*p.TrainingSignals)
		}
		if p.SavedSearches != nil {
			tx.SetSavedSearches(*p.SavedSearches)
		}
		if p.Preferences != nil {
			tx.SetPreferences(*p.Preferences)
		}
		return nil
	})
}
