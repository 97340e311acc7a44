package ops

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/fetchnfeed/internal/config"
	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/model"
	"github.com/hpungsan/fetchnfeed/internal/opml"
)

// ImportOPMLOutput contains the result of the OPML import operations.
type ImportOPMLOutput struct {
	Added          int  `json:"added"`
	Skipped        int  `json:"skipped"`
	Invalid        int  `json:"invalid"`
	FoldersCreated int  `json:"folders_created"`
	Persisted      bool `json:"persisted"`
}

// ImportOPML subscribes to every feed in an OPML document that is not
// already subscribed by URL. Enclosing outlines become folders, matched by
// name under the same parent or created. Malformed XML is rejected before
// anything changes.
func ImportOPML(ctx context.Context, ds *dataset.Dataset, raw []byte) (*ImportOPMLOutput, error) {
	entries, err := opml.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.NewImportRejected(err.Error())
	}

	out := &ImportOPMLOutput{}
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		data := tx.Data()
		folders := data.Folders
		feeds := data.Feeds

		subscribed := make(map[string]bool, len(feeds))
		for i := range feeds {
			subscribed[feeds[i].URL] = true
		}

		for _, e := range entries {
			feedURL, err := validateFeedURL(e.URL)
			if err != nil {
				out.Invalid++
				continue
			}
			if subscribed[feedURL] {
				out.Skipped++
				continue
			}

			feed := model.Feed{
				ID:        model.NewID(),
				Title:     firstNonEmpty(e.Title, feedURL),
				URL:       feedURL,
				SiteURL:   strings.TrimSpace(e.SiteURL),
				Tags:      []string{},
				AddedAt:   tx.Now(),
				IsEnabled: true,
			}
			if len(e.FolderPath) > 0 {
				var folderID string
				var created int
				folders, folderID, created = folderForPath(folders, e.FolderPath)
				out.FoldersCreated += created
				feed.FolderIDs = []string{folderID}
			}

			feeds = appendCopy(feeds, feed)
			subscribed[feedURL] = true
			out.Added++
		}

		if out.FoldersCreated > 0 {
			tx.SetFolders(folders)
		}
		if out.Added > 0 {
			tx.SetFeeds(feeds)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// folderForPath walks path from the top level, reusing folders whose name
// matches (normalized) under the same parent and creating the rest. It
// returns the new folder list, the innermost folder id, and how many
// folders were created.
func folderForPath(folders []model.Folder, path []string) ([]model.Folder, string, int) {
	parentID := ""
	created := 0
	for _, name := range path {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		found := ""
		for i := range folders {
			if folders[i].ParentID == parentID && model.Normalize(folders[i].Name) == model.Normalize(name) {
				found = folders[i].ID
				break
			}
		}
		if found == "" {
			f := model.Folder{
				ID:        model.NewID(),
				Name:      name,
				ParentID:  parentID,
				SortOrder: len(folders),
			}
			folders = appendCopy(folders, f)
			found = f.ID
			created++
		}
		parentID = found
	}
	return folders, parentID, created
}

// ExportOPML renders the subscriptions as OPML 2.0. Unfiled feeds come
// first, then one outline per top-level folder in sort order with child
// folders nested inside. A feed filed under several folders appears under
// each; a feed whose folders no longer exist counts as unfiled.
func ExportOPML(ds *dataset.Dataset) ([]byte, error) {
	data := ds.Get()
	folders := ListFolders(ds)

	known := make(map[string]bool, len(folders))
	for i := range folders {
		known[folders[i].ID] = true
	}

	root := opml.Group{}
	for i := range data.Feeds {
		if !filedUnderAny(data.Feeds[i].FolderIDs, known) {
			root.Entries = append(root.Entries, opmlEntry(data.Feeds[i]))
		}
	}

	children := make(map[string][]model.Folder)
	for _, f := range folders {
		parent := f.ParentID
		if parent == f.ID || !known[parent] {
			parent = ""
		}
		children[parent] = append(children[parent], f)
	}

	visited := make(map[string]bool, len(folders))
	var build func(f model.Folder) (opml.Group, bool)
	build = func(f model.Folder) (opml.Group, bool) {
		visited[f.ID] = true
		g := opml.Group{Name: f.Name}
		for i := range data.Feeds {
			if model.ContainsString(data.Feeds[i].FolderIDs, f.ID) {
				g.Entries = append(g.Entries, opmlEntry(data.Feeds[i]))
			}
		}
		for _, child := range children[f.ID] {
			if visited[child.ID] {
				continue
			}
			if sub, ok := build(child); ok {
				g.Groups = append(g.Groups, sub)
			}
		}
		return g, len(g.Entries) > 0 || len(g.Groups) > 0
	}

	groups := []opml.Group{root}
	for _, f := range children[""] {
		if sub, ok := build(f); ok {
			groups = append(groups, sub)
		}
	}
	// Folders caught in a parent cycle are never reached from the top.
	for _, f := range folders {
		if visited[f.ID] {
			continue
		}
		if sub, ok := build(f); ok {
			groups = append(groups, sub)
		}
	}

	out, err := opml.Export(opml.DefaultTitle, ds.Now(), groups)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("render opml: %w", err))
	}
	return out, nil
}

func filedUnderAny(folderIDs []string, known map[string]bool) bool {
	for _, id := range folderIDs {
		if known[id] {
			return true
		}
	}
	return false
}

func opmlEntry(f model.Feed) opml.Entry {
	return opml.Entry{Title: f.Title, URL: f.URL, SiteURL: f.SiteURL}
}

// ImportOPMLFile reads an .opml file from an allowed directory and imports it.
func ImportOPMLFile(ctx context.Context, ds *dataset.Dataset, baseDir string, cfg *config.Config, input ImportFileInput) (*ImportOPMLOutput, error) {
	raw, err := readExchangeFile(input.Path, baseDir, cfg, ExtOPML)
	if err != nil {
		return nil, err
	}
	return ImportOPML(ctx, ds, raw)
}

// ExportOPMLFile writes ExportOPML to a file inside an allowed directory.
// The default path is <dir>/exports/subscriptions-<timestamp>.opml.
func ExportOPMLFile(ctx context.Context, ds *dataset.Dataset, baseDir string, cfg *config.Config, input ExportFileInput) (*ExportFileOutput, error) {
	if ctx.Err() != nil {
		return nil, errors.NewCancelled("export")
	}
	now := ds.Now()

	path := input.Path
	if path == "" {
		path = defaultExportPath(baseDir, "subscriptions", ExtOPML, now)
	}
	if err := ValidatePath(path, PathCheckWrite, baseDir, cfg, ExtOPML); err != nil {
		return nil, err
	}

	body, err := ExportOPML(ds)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(path, body); err != nil {
		return nil, err
	}
	return &ExportFileOutput{
		Path:       path,
		Feeds:      len(ds.Get().Feeds),
		Bytes:      len(body),
		ExportedAt: now.Unix(),
	}, nil
}
