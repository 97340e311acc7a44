package mcp

import (
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/fetchnfeed/internal/config"
	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/feed"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"feed", "article", "folder", "tag", "note", "prefs", "data"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	// feeds
	"feed_add":             {feedAddToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFeedAdd }},
	"feed_update":          {feedUpdateToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFeedUpdate }},
	"feed_delete":          {feedDeleteToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFeedDelete }},
	"feed_get":             {feedGetToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFeedGet }},
	"feed_list":            {feedListToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFeedList }},
	"feed_refresh":         {feedRefreshToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFeedRefresh }},
	"feed_refresh_all":     {feedRefreshAllToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFeedRefreshAll }},
	"feed_discover":        {feedDiscoverToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFeedDiscover }},
	"feed_assign_folder":   {feedAssignFolderToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFeedAssignFolder }},
	"feed_unassign_folder": {feedUnassignFolderToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFeedUnassignFolder }},
	"feed_tag":             {feedTagToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFeedTag }},
	"feed_untag":           {feedUntagToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFeedUntag }},
	"feed_mark_read":       {feedMarkReadToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFeedMarkRead }},

	// articles
	"article_add":            {articleAddToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleArticleAdd }},
	"article_get":            {articleGetToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleArticleGet }},
	"article_list":           {articleListToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleArticleList }},
	"article_mark_read":      {articleMarkReadToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleArticleMarkRead }},
	"article_mark_unread":    {articleMarkUnreadToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleArticleMarkUnread }},
	"article_toggle_star":    {articleToggleStarToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleArticleToggleStar }},
	"article_toggle_archive": {articleToggleArchiveToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleArticleToggleArchive }},
	"article_tag":            {articleTagToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleArticleTag }},
	"article_untag":          {articleUntagToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleArticleUntag }},
	"article_delete":         {articleDeleteToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleArticleDelete }},
	"article_cleanup":        {articleCleanupToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleArticleCleanup }},

	// folders
	"folder_add":    {folderAddToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderAdd }},
	"folder_rename": {folderRenameToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderRename }},
	"folder_delete": {folderDeleteToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderDelete }},
	"folder_list":   {folderListToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderList }},

	// tags
	"tag_add":    {tagAddToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleTagAdd }},
	"tag_delete": {tagDeleteToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleTagDelete }},
	"tag_list":   {tagListToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleTagList }},

	// notes
	"note_add":        {noteAddToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleNoteAdd }},
	"note_update":     {noteUpdateToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleNoteUpdate }},
	"note_delete":     {noteDeleteToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleNoteDelete }},
	"note_get":        {noteGetToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleNoteGet }},
	"note_list":       {noteListToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleNoteList }},
	"note_export":     {noteExportToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleNoteExport }},
	"note_tag_add":    {noteTagAddToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleNoteTagAdd }},
	"note_tag_delete": {noteTagDeleteToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleNoteTagDelete }},
	"note_tag_list":   {noteTagListToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleNoteTagList }},

	// preferences
	"prefs_get":    {prefsGetToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandlePrefsGet }},
	"prefs_update": {prefsUpdateToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandlePrefsUpdate }},

	// whole-dataset exchange
	"data_export":      {dataExportToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleDataExport }},
	"data_import":      {dataImportToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleDataImport }},
	"data_export_opml": {dataExportOPMLToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleDataExportOPML }},
	"data_import_opml": {dataImportOPMLToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleDataImportOPML }},
	"data_clear":       {dataClearToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleDataClear }},
}

// AllToolNames returns every valid tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "feed_add" → "feed").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates an MCP server with the reader tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(h *Handlers, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"fetchnfeed",
		version,
		server.WithToolCapabilities(true),
	)

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(h.cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range h.cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves the reader tools over stdio until stdin closes.
func Run(ds *dataset.Dataset, fetcher feed.Fetcher, cfg *config.Config, baseDir, version string) error {
	s := NewServer(NewHandlers(ds, fetcher, cfg, baseDir), version)
	return server.ServeStdio(s)
}
