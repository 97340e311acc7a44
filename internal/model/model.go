package model

import (
	"encoding/json"
	"time"
)

// Feed is a subscribed RSS/Atom feed.
type Feed struct {
	// ID is a ULID assigned at creation
	ID string `json:"id"`

	// Title starts out equal to URL until the first successful refresh fills it
	Title string `json:"title"`

	// URL is the feed document location (unique by convention, not enforced)
	URL string `json:"url"`

	SiteURL     string `json:"siteUrl,omitempty"`
	Description string `json:"description,omitempty"`

	// Tags holds tag names (not ids)
	Tags []string `json:"tags"`

	// FolderIDs is the set of folders the feed is filed under
	FolderIDs []string `json:"folderIds,omitempty"`

	AddedAt       time.Time  `json:"addedAt"`
	LastFetchedAt *time.Time `json:"lastFetchedAt,omitempty"`

	// ErrorCount counts consecutive failed refreshes; reset to 0 on success
	ErrorCount int `json:"errorCount"`

	// LastError is the message of the most recent failed refresh
	LastError string `json:"lastError,omitempty"`

	IsEnabled bool `json:"isEnabled"`
}

// UnmarshalJSON decodes a feed, folding the single-folder field used by
// older documents into FolderIDs.
func (f *Feed) UnmarshalJSON(data []byte) error {
	type feedAlias Feed
	aux := struct {
		*feedAlias
		FolderID *string `json:"folderId"`
	}{feedAlias: (*feedAlias)(f)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.FolderID != nil && *aux.FolderID != "" {
		f.FolderIDs = AddToSet(f.FolderIDs, *aux.FolderID)
	}
	return nil
}

// Article is a single stored feed entry.
type Article struct {
	ID     string `json:"id"`
	FeedID string `json:"feedId"`

	Title   string `json:"title"`
	URL     string `json:"url"`
	Author  string `json:"author"`
	Summary string `json:"summary"`
	Content string `json:"content"`

	// PublishedAt is source-provided and may be missing
	PublishedAt *time.Time `json:"publishedAt,omitempty"`

	// FetchedAt is the local capture time, always set
	FetchedAt time.Time `json:"fetchedAt"`

	IsRead     bool       `json:"isRead"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	IsStarred  bool       `json:"isStarred"`
	StarredAt  *time.Time `json:"starredAt,omitempty"`
	IsArchived bool       `json:"isArchived"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`

	EngagementScore float64 `json:"engagementScore"`

	// Highlights predates Notes and is only read by the retention sweep
	Highlights []json.RawMessage `json:"highlights"`

	Tags []string `json:"tags"`
}

// SortDate is the date used to order articles: PublishedAt when known,
// otherwise FetchedAt.
func (a *Article) SortDate() time.Time {
	if a.PublishedAt != nil {
		return *a.PublishedAt
	}
	return a.FetchedAt
}

// Folder groups feeds. Only a single level of nesting is used in practice.
type Folder struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ParentID  string `json:"parentId,omitempty"`
	SortOrder int    `json:"sortOrder"`
}

// Tag labels feeds and articles by name.
type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Citation holds bibliographic fields attached to a note.
type Citation struct {
	Author string `json:"author,omitempty"`
	Date   string `json:"date,omitempty"`
	Title  string `json:"title,omitempty"`
	Source string `json:"source,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Note is a highlight/annotation taken on an article. Article and feed
// fields are a snapshot taken at creation and are not kept in sync.
type Note struct {
	ID        string `json:"id"`
	ArticleID string `json:"articleId"`

	ArticleTitle       string     `json:"articleTitle"`
	ArticleURL         string     `json:"articleUrl"`
	ArticleAuthor      string     `json:"articleAuthor"`
	ArticlePublishedAt *time.Time `json:"articlePublishedAt,omitempty"`
	FeedTitle          string     `json:"feedTitle"`

	HighlightedText string   `json:"highlightedText"`
	Annotation      string   `json:"annotation"`
	Tags            []string `json:"tags"`
	Citation        Citation `json:"citation"`

	CreatedAt time.Time `json:"createdAt"`
}

// NoteTag is a label in the note namespace, separate from Tag.
type NoteTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Preferences is the single user preferences record.
type Preferences struct {
	// GlobalRefreshInterval is in minutes
	GlobalRefreshInterval int     `json:"globalRefreshInterval"`
	DefaultView           string  `json:"defaultView"`
	Theme                 string  `json:"theme"`
	ArticleRetentionDays  int     `json:"articleRetentionDays"`
	NotificationsEnabled  bool    `json:"notificationsEnabled"`
	TTSSpeed              float64 `json:"ttsSpeed"`

	// SyncFolderPath is stored only; no sync runs against it
	SyncFolderPath string `json:"syncFolderPath,omitempty"`
}
