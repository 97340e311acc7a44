package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/fetchnfeed/internal/config"
	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/feed"
	"github.com/hpungsan/fetchnfeed/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	ds      *dataset.Dataset
	fetcher feed.Fetcher
	cfg     *config.Config
	baseDir string
}

// NewHandlers creates a new Handlers instance. A nil cfg uses defaults.
func NewHandlers(ds *dataset.Dataset, fetcher feed.Fetcher, cfg *config.Config, baseDir string) *Handlers {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Handlers{ds: ds, fetcher: fetcher, cfg: cfg, baseDir: baseDir}
}

// Request types shared by several tools

// IDRequest addresses one entity by id.
type IDRequest struct {
	ID string `json:"id"`
}

// IDsRequest addresses several entities by id.
type IDsRequest struct {
	IDs []string `json:"ids"`
}

// FeedIDRequest addresses one feed.
type FeedIDRequest struct {
	FeedID string `json:"feed_id"`
}

// NameRequest carries a single name.
type NameRequest struct {
	Name string `json:"name"`
}

// EmptyRequest is used by tools without arguments.
type EmptyRequest struct{}

// PrefsUpdateRequest is a preferences patch plus the sync folder path.
type PrefsUpdateRequest struct {
	ops.UpdatePreferencesInput
	SyncFolderPath *string `json:"sync_folder_path,omitempty"`
}

// ClearRequest represents the arguments for data_clear.
type ClearRequest struct {
	Confirm bool `json:"confirm"`
}

// handle decodes the request into T, runs fn and wraps the outcome.
func handle[T any, R any](req mcp.CallToolRequest, fn func(T) (R, error)) (*mcp.CallToolResult, error) {
	input, err := decode[T](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := fn(input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Feeds

// HandleFeedAdd handles the feed_add tool call.
func (h *Handlers) HandleFeedAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.AddFeedInput) (*ops.FeedOutput, error) {
		return ops.AddFeed(ctx, h.ds, in)
	})
}

// HandleFeedUpdate handles the feed_update tool call.
func (h *Handlers) HandleFeedUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.UpdateFeedInput) (*ops.FeedOutput, error) {
		return ops.UpdateFeed(ctx, h.ds, in)
	})
}

// HandleFeedDelete handles the feed_delete tool call.
func (h *Handlers) HandleFeedDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in IDRequest) (*ops.DeleteFeedOutput, error) {
		return ops.DeleteFeed(ctx, h.ds, in.ID)
	})
}

// HandleFeedGet handles the feed_get tool call.
func (h *Handlers) HandleFeedGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in IDRequest) (*ops.FeedOutput, error) {
		f, err := ops.GetFeed(h.ds, in.ID)
		if err != nil {
			return nil, err
		}
		return &ops.FeedOutput{Feed: *f}, nil
	})
}

// HandleFeedList handles the feed_list tool call.
func (h *Handlers) HandleFeedList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.ListFeedsInput) (*ops.ListFeedsOutput, error) {
		return ops.ListFeeds(h.ds, in)
	})
}

// HandleFeedRefresh handles the feed_refresh tool call. A failed fetch is
// reported in the result body, not as a tool error.
func (h *Handlers) HandleFeedRefresh(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.RefreshInput) (ops.RefreshResult, error) {
		return ops.RefreshFeed(ctx, h.ds, h.fetcher, h.cfg, in), nil
	})
}

// HandleFeedRefreshAll handles the feed_refresh_all tool call.
func (h *Handlers) HandleFeedRefreshAll(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.RefreshAllInput) (*ops.RefreshAllOutput, error) {
		return ops.RefreshAllFeeds(ctx, h.ds, h.fetcher, h.cfg, in), nil
	})
}

// HandleFeedDiscover handles the feed_discover tool call.
func (h *Handlers) HandleFeedDiscover(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.DiscoverInput) (*ops.DiscoverOutput, error) {
		return ops.DiscoverFeed(ctx, h.ds, h.fetcher, in)
	})
}

// HandleFeedAssignFolder handles the feed_assign_folder tool call.
func (h *Handlers) HandleFeedAssignFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.FeedFolderInput) (*ops.FeedOutput, error) {
		return ops.AssignFeedFolder(ctx, h.ds, in)
	})
}

// HandleFeedUnassignFolder handles the feed_unassign_folder tool call.
func (h *Handlers) HandleFeedUnassignFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.FeedFolderInput) (*ops.FeedOutput, error) {
		return ops.UnassignFeedFolder(ctx, h.ds, in)
	})
}

// HandleFeedTag handles the feed_tag tool call.
func (h *Handlers) HandleFeedTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.FeedTagInput) (*ops.FeedOutput, error) {
		return ops.TagFeed(ctx, h.ds, in)
	})
}

// HandleFeedUntag handles the feed_untag tool call.
func (h *Handlers) HandleFeedUntag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.FeedTagInput) (*ops.FeedOutput, error) {
		return ops.UntagFeed(ctx, h.ds, in)
	})
}

// HandleFeedMarkRead handles the feed_mark_read tool call.
func (h *Handlers) HandleFeedMarkRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in FeedIDRequest) (*ops.MarkFeedReadOutput, error) {
		return ops.MarkFeedRead(ctx, h.ds, in.FeedID)
	})
}

// Articles

// HandleArticleAdd handles the article_add tool call.
func (h *Handlers) HandleArticleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.AddArticleInput) (*ops.ArticleOutput, error) {
		return ops.AddArticle(ctx, h.ds, in)
	})
}

// HandleArticleGet handles the article_get tool call.
func (h *Handlers) HandleArticleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in IDRequest) (*ops.ArticleOutput, error) {
		a, err := ops.GetArticle(h.ds, in.ID)
		if err != nil {
			return nil, err
		}
		return &ops.ArticleOutput{Article: *a}, nil
	})
}

// HandleArticleList handles the article_list tool call.
func (h *Handlers) HandleArticleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.ListArticlesInput) (*ops.ListArticlesOutput, error) {
		return ops.ListArticles(h.ds, in)
	})
}

// HandleArticleMarkRead handles the article_mark_read tool call.
func (h *Handlers) HandleArticleMarkRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in IDRequest) (*ops.ArticleOutput, error) {
		return ops.MarkArticleRead(ctx, h.ds, in.ID)
	})
}

// HandleArticleMarkUnread handles the article_mark_unread tool call.
func (h *Handlers) HandleArticleMarkUnread(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in IDRequest) (*ops.ArticleOutput, error) {
		return ops.MarkArticleUnread(ctx, h.ds, in.ID)
	})
}

// HandleArticleToggleStar handles the article_toggle_star tool call.
func (h *Handlers) HandleArticleToggleStar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in IDRequest) (*ops.ToggleOutput, error) {
		return ops.ToggleArticleStar(ctx, h.ds, in.ID)
	})
}

// HandleArticleToggleArchive handles the article_toggle_archive tool call.
func (h *Handlers) HandleArticleToggleArchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in IDRequest) (*ops.ToggleOutput, error) {
		return ops.ToggleArticleArchive(ctx, h.ds, in.ID)
	})
}

// HandleArticleTag handles the article_tag tool call.
func (h *Handlers) HandleArticleTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.ArticleTagInput) (*ops.ArticleOutput, error) {
		return ops.TagArticle(ctx, h.ds, in)
	})
}

// HandleArticleUntag handles the article_untag tool call.
func (h *Handlers) HandleArticleUntag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.ArticleTagInput) (*ops.ArticleOutput, error) {
		return ops.UntagArticle(ctx, h.ds, in)
	})
}

// HandleArticleDelete handles the article_delete tool call.
func (h *Handlers) HandleArticleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in IDsRequest) (*ops.DeleteArticlesOutput, error) {
		return ops.DeleteArticles(ctx, h.ds, in.IDs)
	})
}

// HandleArticleCleanup handles the article_cleanup tool call.
func (h *Handlers) HandleArticleCleanup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(EmptyRequest) (*ops.CleanupOutput, error) {
		return ops.CleanupOldArticles(ctx, h.ds)
	})
}

// Folders

// HandleFolderAdd handles the folder_add tool call.
func (h *Handlers) HandleFolderAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.AddFolderInput) (*ops.FolderOutput, error) {
		return ops.AddFolder(ctx, h.ds, in)
	})
}

// HandleFolderRename handles the folder_rename tool call.
func (h *Handlers) HandleFolderRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.RenameFolderInput) (*ops.FolderOutput, error) {
		return ops.RenameFolder(ctx, h.ds, in)
	})
}

// HandleFolderDelete handles the folder_delete tool call.
func (h *Handlers) HandleFolderDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in IDRequest) (*ops.DeleteFolderOutput, error) {
		return ops.DeleteFolder(ctx, h.ds, in.ID)
	})
}

// HandleFolderList handles the folder_list tool call.
func (h *Handlers) HandleFolderList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(EmptyRequest) (map[string]any, error) {
		return map[string]any{"items": ops.ListFolders(h.ds)}, nil
	})
}

// Tags

// HandleTagAdd handles the tag_add tool call.
func (h *Handlers) HandleTagAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.AddTagInput) (*ops.TagOutput, error) {
		return ops.AddTag(ctx, h.ds, in)
	})
}

// HandleTagDelete handles the tag_delete tool call.
func (h *Handlers) HandleTagDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in IDRequest) (*ops.DeleteTagOutput, error) {
		return ops.DeleteTag(ctx, h.ds, in.ID)
	})
}

// HandleTagList handles the tag_list tool call.
func (h *Handlers) HandleTagList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(EmptyRequest) (map[string]any, error) {
		return map[string]any{"items": ops.ListTags(h.ds)}, nil
	})
}

// Notes

// HandleNoteAdd handles the note_add tool call.
func (h *Handlers) HandleNoteAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.AddNoteInput) (*ops.NoteOutput, error) {
		return ops.AddNote(ctx, h.ds, in)
	})
}

// HandleNoteUpdate handles the note_update tool call.
func (h *Handlers) HandleNoteUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.UpdateNoteInput) (*ops.NoteOutput, error) {
		return ops.UpdateNote(ctx, h.ds, in)
	})
}

// HandleNoteDelete handles the note_delete tool call.
func (h *Handlers) HandleNoteDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in IDsRequest) (*ops.DeleteNotesOutput, error) {
		return ops.DeleteNotes(ctx, h.ds, in.IDs)
	})
}

// HandleNoteGet handles the note_get tool call.
func (h *Handlers) HandleNoteGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in IDRequest) (*ops.NoteOutput, error) {
		n, err := ops.GetNote(h.ds, in.ID)
		if err != nil {
			return nil, err
		}
		return &ops.NoteOutput{Note: *n}, nil
	})
}

// HandleNoteList handles the note_list tool call.
func (h *Handlers) HandleNoteList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.ListNotesInput) (*ops.ListNotesOutput, error) {
		return ops.ListNotes(h.ds, in)
	})
}

// HandleNoteExport handles the note_export tool call.
func (h *Handlers) HandleNoteExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.ExportNotesInput) (*ops.ExportNotesOutput, error) {
		return ops.ExportNotes(h.ds, in)
	})
}

// HandleNoteTagAdd handles the note_tag_add tool call.
func (h *Handlers) HandleNoteTagAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in NameRequest) (*ops.NoteTagOutput, error) {
		return ops.AddNoteTag(ctx, h.ds, in.Name)
	})
}

// HandleNoteTagDelete handles the note_tag_delete tool call.
func (h *Handlers) HandleNoteTagDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in IDRequest) (*ops.DeleteNoteTagOutput, error) {
		return ops.DeleteNoteTag(ctx, h.ds, in.ID)
	})
}

// HandleNoteTagList handles the note_tag_list tool call.
func (h *Handlers) HandleNoteTagList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(EmptyRequest) (map[string]any, error) {
		return map[string]any{"items": ops.ListNoteTags(h.ds)}, nil
	})
}

// Preferences

// HandlePrefsGet handles the prefs_get tool call.
func (h *Handlers) HandlePrefsGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(EmptyRequest) (*ops.PreferencesOutput, error) {
		return &ops.PreferencesOutput{Preferences: ops.GetPreferences(h.ds)}, nil
	})
}

// HandlePrefsUpdate handles the prefs_update tool call. The sync folder is
// applied after the other fields so an invalid patch leaves it untouched.
func (h *Handlers) HandlePrefsUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in PrefsUpdateRequest) (*ops.PreferencesOutput, error) {
		out, err := ops.UpdatePreferences(ctx, h.ds, in.UpdatePreferencesInput)
		if err != nil || in.SyncFolderPath == nil {
			return out, err
		}
		return ops.SetSyncFolder(ctx, h.ds, *in.SyncFolderPath)
	})
}

// Data exchange

// HandleDataExport handles the data_export tool call.
func (h *Handlers) HandleDataExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.ExportFileInput) (*ops.ExportFileOutput, error) {
		return ops.ExportDataFile(ctx, h.ds, h.baseDir, h.cfg, in)
	})
}

// HandleDataImport handles the data_import tool call.
func (h *Handlers) HandleDataImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.ImportFileInput) (*ops.ImportOutput, error) {
		return ops.ImportDataFile(ctx, h.ds, h.baseDir, h.cfg, in)
	})
}

// HandleDataExportOPML handles the data_export_opml tool call.
func (h *Handlers) HandleDataExportOPML(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.ExportFileInput) (*ops.ExportFileOutput, error) {
		return ops.ExportOPMLFile(ctx, h.ds, h.baseDir, h.cfg, in)
	})
}

// HandleDataImportOPML handles the data_import_opml tool call.
func (h *Handlers) HandleDataImportOPML(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ops.ImportFileInput) (*ops.ImportOPMLOutput, error) {
		return ops.ImportOPMLFile(ctx, h.ds, h.baseDir, h.cfg, in)
	})
}

// HandleDataClear handles the data_clear tool call.
func (h *Handlers) HandleDataClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(req, func(in ClearRequest) (*ops.ClearDataOutput, error) {
		if !in.Confirm {
			return nil, errors.NewInvalidRequest("confirm must be true to clear all data")
		}
		return ops.ClearData(ctx, h.ds)
	})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var readerErr *errors.ReaderError
	if stderrors.As(err, &readerErr) {
		// Keep any context added by wrapping, e.g. "feeds[2]: ".
		msg := readerErr.Message
		if prefix, ok := strings.CutSuffix(err.Error(), readerErr.Error()); ok {
			msg = prefix + msg
		}
		errorObj := map[string]any{
			"code":    readerErr.Code,
			"message": msg,
			"status":  readerErr.Status,
		}
		if readerErr.Code != errors.ErrInternal && readerErr.Details != nil {
			errorObj["details"] = readerErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
