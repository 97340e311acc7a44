package model

import (
	"encoding/json"
	"time"
)

// SchemaVersion is the dataset document version written to meta and exports.
const SchemaVersion = 1

// Collection names one persisted entity collection.
type Collection string

const (
	CollectionFeeds           Collection = "feeds"
	CollectionArticles        Collection = "articles"
	CollectionFolders         Collection = "folders"
	CollectionTags            Collection = "tags"
	CollectionNotes           Collection = "notes"
	CollectionNoteTags        Collection = "noteTags"
	CollectionFilterRules     Collection = "filterRules"
	CollectionTrainingSignals Collection = "trainingSignals"
	CollectionSavedSearches   Collection = "savedSearches"
	CollectionPreferences     Collection = "preferences"
)

// AllCollections lists every collection in persistence order.
var AllCollections = []Collection{
	CollectionFeeds,
	CollectionArticles,
	CollectionFolders,
	CollectionTags,
	CollectionNotes,
	CollectionNoteTags,
	CollectionFilterRules,
	CollectionTrainingSignals,
	CollectionSavedSearches,
	CollectionPreferences,
}

// Data is the whole dataset: every entity plus bookkeeping.
// The JSON shape is shared by manual exports and the legacy single-document format.
type Data struct {
	Version      int        `json:"version"`
	LastSyncedAt *time.Time `json:"lastSyncedAt"`

	Feeds    []Feed    `json:"feeds"`
	Articles []Article `json:"articles"`
	Folders  []Folder  `json:"folders"`
	Tags     []Tag     `json:"tags"`
	Notes    []Note    `json:"notes"`
	NoteTags []NoteTag `json:"noteTags"`

	// Reserved collections, carried opaquely
	FilterRules     []json.RawMessage `json:"filterRules"`
	TrainingSignals []json.RawMessage `json:"trainingSignals"`
	SavedSearches   []json.RawMessage `json:"savedSearches"`

	Preferences Preferences `json:"preferences"`
}

// DefaultPreferences returns the preferences used when none are stored.
func DefaultPreferences() Preferences {
	return Preferences{
		GlobalRefreshInterval: 10080, // weekly
		DefaultView:           "list",
		Theme:                 "system",
		ArticleRetentionDays:  30,
		NotificationsEnabled:  true,
		TTSSpeed:              1.0,
	}
}

// DefaultData returns an empty dataset with default preferences.
func DefaultData() *Data {
	return &Data{
		Version:         SchemaVersion,
		Feeds:           []Feed{},
		Articles:        []Article{},
		Folders:         []Folder{},
		Tags:            []Tag{},
		Notes:           []Note{},
		NoteTags:        []NoteTag{},
		FilterRules:     []json.RawMessage{},
		TrainingSignals: []json.RawMessage{},
		SavedSearches:   []json.RawMessage{},
		Preferences:     DefaultPreferences(),
	}
}

// DecodeData decodes a dataset document over DefaultData, so missing
// top-level fields and missing preference keys keep their defaults.
func DecodeData(raw []byte) (*Data, error) {
	d := DefaultData()
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, err
	}
	d.fillNil()
	return d, nil
}

// ShallowCopy returns a new Data sharing every collection slice with d.
func (d *Data) ShallowCopy() *Data {
	cp := *d
	return &cp
}

// fillNil replaces explicit JSON nulls with empty collections.
func (d *Data) fillNil() {
	if d.Version == 0 {
		d.Version = SchemaVersion
	}
	if d.Feeds == nil {
		d.Feeds = []Feed{}
	}
	if d.Articles == nil {
		d.Articles = []Article{}
	}
	if d.Folders == nil {
		d.Folders = []Folder{}
	}
	if d.Tags == nil {
		d.Tags = []Tag{}
	}
	if d.Notes == nil {
		d.Notes = []Note{}
	}
	if d.NoteTags == nil {
		d.NoteTags = []NoteTag{}
	}
	if d.FilterRules == nil {
		d.FilterRules = []json.RawMessage{}
	}
	if d.TrainingSignals == nil {
		d.TrainingSignals = []json.RawMessage{}
	}
	if d.SavedSearches == nil {
		d.SavedSearches = []json.RawMessage{}
	}
}

// FindFeed returns the index of the feed with the given id, or -1.
func (d *Data) FindFeed(id string) int {
	for i := range d.Feeds {
		if d.Feeds[i].ID == id {
			return i
		}
	}
	return -1
}

// FindArticle returns the index of the article with the given id, or -1.
func (d *Data) FindArticle(id string) int {
	for i := range d.Articles {
		if d.Articles[i].ID == id {
			return i
		}
	}
	return -1
}

// FindFolder returns the index of the folder with the given id, or -1.
func (d *Data) FindFolder(id string) int {
	for i := range d.Folders {
		if d.Folders[i].ID == id {
			return i
		}
	}
	return -1
}

// FindNote returns the index of the note with the given id, or -1.
func (d *Data) FindNote(id string) int {
	for i := range d.Notes {
		if d.Notes[i].ID == id {
			return i
		}
	}
	return -1
}
