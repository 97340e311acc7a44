package ops

import (
	"context"
	"sort"
	"strings"

	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

// AddFolderInput contains parameters for the AddFolder operation.
type AddFolderInput struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

// FolderOutput is returned by operations that create or change a folder.
type FolderOutput struct {
	Folder    model.Folder `json:"folder"`
	Persisted bool         `json:"persisted"`
}

// AddFolder creates a folder at the end of the sort order.
func AddFolder(ctx context.Context, ds *dataset.Dataset, input AddFolderInput) (*FolderOutput, error) {
	name, err := requireID("name", input.Name)
	if err != nil {
		return nil, err
	}
	parentID := strings.TrimSpace(input.ParentID)

	out := &FolderOutput{}
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		data := tx.Data()
		if parentID != "" && data.FindFolder(parentID) < 0 {
			return errors.NewNotFound("folder", parentID)
		}
		out.Folder = model.Folder{
			ID:        model.NewID(),
			Name:      name,
			ParentID:  parentID,
			SortOrder: len(data.Folders),
		}
		tx.SetFolders(appendCopy(data.Folders, out.Folder))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RenameFolderInput contains parameters for the RenameFolder operation.
type RenameFolderInput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RenameFolder changes a folder's name.
func RenameFolder(ctx context.Context, ds *dataset.Dataset, input RenameFolderInput) (*FolderOutput, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}
	name, err := requireID("name", input.Name)
	if err != nil {
		return nil, err
	}

	out := &FolderOutput{}
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		data := tx.Data()
		i := data.FindFolder(id)
		if i < 0 {
			return errors.NewNotFound("folder", id)
		}
		f := data.Folders[i]
		f.Name = name
		tx.SetFolders(replaceAt(data.Folders, i, f))
		out.Folder = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteFolderOutput contains the result of the DeleteFolder operation.
type DeleteFolderOutput struct {
	ID              string `json:"id"`
	FeedsUnassigned int    `json:"feeds_unassigned"`
	Persisted       bool   `json:"persisted"`
}

// DeleteFolder removes a folder. Feeds filed under it are kept and lose the
// assignment; child folders move to the top level. Both happen in the same
// transaction.
func DeleteFolder(ctx context.Context, ds *dataset.Dataset, id string) (*DeleteFolderOutput, error) {
	id, err := requireID("id", id)
	if err != nil {
		return nil, err
	}

	out := &DeleteFolderOutput{ID: id}
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		data := tx.Data()
		folders, removed := removeWhere(data.Folders, func(f *model.Folder) bool { return f.ID == id })
		if removed == 0 {
			return errors.NewNotFound("folder", id)
		}
		for i := range folders {
			if folders[i].ParentID == id {
				folders[i].ParentID = ""
			}
		}
		tx.SetFolders(folders)

		feeds := make([]model.Feed, len(data.Feeds))
		for i, f := range data.Feeds {
			if model.ContainsString(f.FolderIDs, id) {
				f.FolderIDs = model.RemoveFromSet(f.FolderIDs, id)
				out.FeedsUnassigned++
			}
			feeds[i] = f
		}
		if out.FeedsUnassigned > 0 {
			tx.SetFeeds(feeds)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetFolder returns a folder by id.
func GetFolder(ds *dataset.Dataset, id string) (*model.Folder, error) {
	id, err := requireID("id", id)
	if err != nil {
		return nil, err
	}
	data := ds.Get()
	i := data.FindFolder(id)
	if i < 0 {
		return nil, errors.NewNotFound("folder", id)
	}
	f := data.Folders[i]
	return &f, nil
}

// ListFolders returns every folder by ascending sort order.
func ListFolders(ds *dataset.Dataset) []model.Folder {
	folders := filter(ds.Get().Folders, func(*model.Folder) bool { return true })
	sort.SliceStable(folders, func(i, j int) bool {
		return folders[i].SortOrder < folders[j].SortOrder
	})
	return folders
}
