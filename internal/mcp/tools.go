package mcp

import "github.com/mark3labs/mcp-go/mcp"

var stringItems = mcp.Items(map[string]any{"type": "string"})

func withPaging() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("limit", mcp.Description("Max items to return (default 50, max 500, negative for all)")),
		mcp.WithNumber("offset", mcp.Description("Items to skip")),
	}
}

func tool(name string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, opts...)
}

func idParam(desc string) mcp.ToolOption {
	return mcp.WithString("id", mcp.Required(), mcp.Description(desc))
}

// Feeds

var feedAddToolDef = tool("feed_add",
	mcp.WithDescription("Subscribe to an RSS or Atom feed. The feed is not fetched until refreshed."),
	mcp.WithString("url", mcp.Required(), mcp.Description("Absolute http(s) feed URL")),
	mcp.WithString("title", mcp.Description("Display title; defaults to the URL and is replaced by the feed's own title on first refresh")),
	mcp.WithString("folder_id", mcp.Description("Folder to file the feed under")),
	mcp.WithArray("tags", mcp.Description("Tag names; missing tags are created"), stringItems),
)

var feedUpdateToolDef = tool("feed_update",
	mcp.WithDescription("Change a feed's title, URL, site URL, description or enabled flag. Omitted fields are unchanged."),
	idParam("Feed id"),
	mcp.WithString("title"),
	mcp.WithString("url"),
	mcp.WithString("site_url"),
	mcp.WithString("description"),
	mcp.WithBoolean("is_enabled", mcp.Description("Disabled feeds are skipped by refresh_all")),
)

var feedDeleteToolDef = tool("feed_delete",
	mcp.WithDescription("Unsubscribe from a feed and delete its articles. Notes on those articles are kept."),
	idParam("Feed id"),
	mcp.WithDestructiveHintAnnotation(true),
)

var feedGetToolDef = tool("feed_get",
	mcp.WithDescription("Get one feed by id."),
	idParam("Feed id"),
	mcp.WithReadOnlyHintAnnotation(true),
)

var feedListToolDef = tool("feed_list", append([]mcp.ToolOption{
	mcp.WithDescription("List feeds in subscription order."),
	mcp.WithString("folder_id", mcp.Description("Only feeds in this folder")),
	mcp.WithString("tag", mcp.Description("Only feeds with this tag")),
	mcp.WithBoolean("enabled_only"),
	mcp.WithReadOnlyHintAnnotation(true),
}, withPaging()...)...)

var feedRefreshToolDef = tool("feed_refresh",
	mcp.WithDescription("Fetch one feed now and store items not seen before that fall inside the recency window."),
	mcp.WithString("feed_id", mcp.Required()),
	mcp.WithNumber("max_age_days", mcp.Description("Skip items published longer ago than this (default from config, 7)")),
)

var feedRefreshAllToolDef = tool("feed_refresh_all",
	mcp.WithDescription("Refresh every enabled feed, one at a time. One feed failing does not stop the others."),
	mcp.WithNumber("max_age_days"),
)

var feedDiscoverToolDef = tool("feed_discover",
	mcp.WithDescription("Look for a feed at the usual locations under a website (/feed, /rss.xml, /atom.xml, ...)."),
	mcp.WithString("site_url", mcp.Required()),
	mcp.WithBoolean("subscribe", mcp.Description("Subscribe to the discovered feed")),
)

var feedAssignFolderToolDef = tool("feed_assign_folder",
	mcp.WithDescription("File a feed under a folder. A feed can be in several folders."),
	mcp.WithString("feed_id", mcp.Required()),
	mcp.WithString("folder_id", mcp.Required()),
)

var feedUnassignFolderToolDef = tool("feed_unassign_folder",
	mcp.WithDescription("Remove a feed from a folder."),
	mcp.WithString("feed_id", mcp.Required()),
	mcp.WithString("folder_id", mcp.Required()),
)

var feedTagToolDef = tool("feed_tag",
	mcp.WithDescription("Tag a feed. The tag is created if no tag matches the name ignoring case."),
	mcp.WithString("feed_id", mcp.Required()),
	mcp.WithString("tag", mcp.Required()),
)

var feedUntagToolDef = tool("feed_untag",
	mcp.WithDescription("Remove a tag from a feed."),
	mcp.WithString("feed_id", mcp.Required()),
	mcp.WithString("tag", mcp.Required()),
)

var feedMarkReadToolDef = tool("feed_mark_read",
	mcp.WithDescription("Mark every article of a feed read."),
	mcp.WithString("feed_id", mcp.Required()),
)

// Articles

var articleAddToolDef = tool("article_add",
	mcp.WithDescription("Store an article by hand under an existing feed."),
	mcp.WithString("feed_id", mcp.Required()),
	mcp.WithString("title", mcp.Required()),
	mcp.WithString("url", mcp.Required()),
	mcp.WithString("author"),
	mcp.WithString("summary"),
	mcp.WithString("content"),
	mcp.WithString("published_at", mcp.Description("RFC 3339 timestamp")),
)

var articleGetToolDef = tool("article_get",
	mcp.WithDescription("Get one article by id, including its content."),
	idParam("Article id"),
	mcp.WithReadOnlyHintAnnotation(true),
)

var articleListToolDef = tool("article_list", append([]mcp.ToolOption{
	mcp.WithDescription("List articles newest first. Starred view orders by star time."),
	mcp.WithString("view", mcp.Enum("all", "unread", "starred", "archived"), mcp.Description("Default: all non-archived")),
	mcp.WithString("feed_id"),
	mcp.WithString("tag"),
	mcp.WithReadOnlyHintAnnotation(true),
}, withPaging()...)...)

var articleMarkReadToolDef = tool("article_mark_read",
	mcp.WithDescription("Mark an article read."),
	idParam("Article id"),
)

var articleMarkUnreadToolDef = tool("article_mark_unread",
	mcp.WithDescription("Mark an article unread."),
	idParam("Article id"),
)

var articleToggleStarToolDef = tool("article_toggle_star",
	mcp.WithDescription("Star or unstar an article; returns the new state. Starred articles are never cleaned up."),
	idParam("Article id"),
)

var articleToggleArchiveToolDef = tool("article_toggle_archive",
	mcp.WithDescription("Archive or unarchive an article; returns the new state."),
	idParam("Article id"),
)

var articleTagToolDef = tool("article_tag",
	mcp.WithDescription("Tag an article."),
	mcp.WithString("article_id", mcp.Required()),
	mcp.WithString("tag", mcp.Required()),
)

var articleUntagToolDef = tool("article_untag",
	mcp.WithDescription("Remove a tag from an article."),
	mcp.WithString("article_id", mcp.Required()),
	mcp.WithString("tag", mcp.Required()),
)

var articleDeleteToolDef = tool("article_delete",
	mcp.WithDescription("Delete articles by id. Unknown ids are ignored."),
	mcp.WithArray("ids", mcp.Required(), stringItems),
	mcp.WithDestructiveHintAnnotation(true),
)

var articleCleanupToolDef = tool("article_cleanup",
	mcp.WithDescription("Delete articles fetched before the retention window unless starred or annotated."),
	mcp.WithDestructiveHintAnnotation(true),
)

// Folders

var folderAddToolDef = tool("folder_add",
	mcp.WithDescription("Create a folder."),
	mcp.WithString("name", mcp.Required()),
	mcp.WithString("parent_id", mcp.Description("Parent folder id for nesting")),
)

var folderRenameToolDef = tool("folder_rename",
	mcp.WithDescription("Rename a folder."),
	idParam("Folder id"),
	mcp.WithString("name", mcp.Required()),
)

var folderDeleteToolDef = tool("folder_delete",
	mcp.WithDescription("Delete a folder. Its feeds are kept and unfiled; child folders move to the top level."),
	idParam("Folder id"),
	mcp.WithDestructiveHintAnnotation(true),
)

var folderListToolDef = tool("folder_list",
	mcp.WithDescription("List folders in sort order."),
	mcp.WithReadOnlyHintAnnotation(true),
)

// Tags

var tagAddToolDef = tool("tag_add",
	mcp.WithDescription("Create a tag. An existing tag with the same name (ignoring case) is returned unchanged."),
	mcp.WithString("name", mcp.Required()),
	mcp.WithString("color", mcp.Description("CSS color, default #808080")),
)

var tagDeleteToolDef = tool("tag_delete",
	mcp.WithDescription("Delete a tag and remove it from every feed and article."),
	idParam("Tag id"),
	mcp.WithDestructiveHintAnnotation(true),
)

var tagListToolDef = tool("tag_list",
	mcp.WithDescription("List tags."),
	mcp.WithReadOnlyHintAnnotation(true),
)

// Notes

var noteAddToolDef = tool("note_add",
	mcp.WithDescription("Save a highlight and/or annotation on an article. The article's title, URL and feed are copied into the note."),
	mcp.WithString("article_id", mcp.Required()),
	mcp.WithString("highlighted_text"),
	mcp.WithString("annotation"),
	mcp.WithArray("tags", stringItems),
	mcp.WithObject("citation", mcp.Description("Overrides the citation built from the article"),
		mcp.Properties(map[string]any{
			"author": map[string]any{"type": "string"},
			"date":   map[string]any{"type": "string"},
			"title":  map[string]any{"type": "string"},
			"source": map[string]any{"type": "string"},
			"url":    map[string]any{"type": "string"},
		})),
)

var noteUpdateToolDef = tool("note_update",
	mcp.WithDescription("Change a note's text, annotation, tags or citation. Omitted fields are unchanged."),
	idParam("Note id"),
	mcp.WithString("highlighted_text"),
	mcp.WithString("annotation"),
	mcp.WithArray("tags", stringItems),
	mcp.WithObject("citation"),
)

var noteDeleteToolDef = tool("note_delete",
	mcp.WithDescription("Delete notes by id."),
	mcp.WithArray("ids", mcp.Required(), stringItems),
	mcp.WithDestructiveHintAnnotation(true),
)

var noteGetToolDef = tool("note_get",
	mcp.WithDescription("Get one note by id."),
	idParam("Note id"),
	mcp.WithReadOnlyHintAnnotation(true),
)

var noteListToolDef = tool("note_list", append([]mcp.ToolOption{
	mcp.WithDescription("List notes newest first."),
	mcp.WithString("article_id"),
	mcp.WithString("tag"),
	mcp.WithReadOnlyHintAnnotation(true),
}, withPaging()...)...)

var noteExportToolDef = tool("note_export",
	mcp.WithDescription("Render notes as a markdown or HTML document."),
	mcp.WithString("article_id"),
	mcp.WithString("tag"),
	mcp.WithString("format", mcp.Enum("markdown", "html")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var noteTagAddToolDef = tool("note_tag_add",
	mcp.WithDescription("Create a note tag. Note tags are separate from feed and article tags."),
	mcp.WithString("name", mcp.Required()),
)

var noteTagDeleteToolDef = tool("note_tag_delete",
	mcp.WithDescription("Delete a note tag and remove it from every note."),
	idParam("Note tag id"),
	mcp.WithDestructiveHintAnnotation(true),
)

var noteTagListToolDef = tool("note_tag_list",
	mcp.WithDescription("List note tags."),
	mcp.WithReadOnlyHintAnnotation(true),
)

// Preferences

var prefsGetToolDef = tool("prefs_get",
	mcp.WithDescription("Get reader preferences."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var prefsUpdateToolDef = tool("prefs_update",
	mcp.WithDescription("Change reader preferences. Omitted fields are unchanged."),
	mcp.WithNumber("global_refresh_interval", mcp.Description("Minutes between background refreshes")),
	mcp.WithString("default_view", mcp.Enum("list", "card", "magazine")),
	mcp.WithString("theme", mcp.Enum("system", "light", "dark")),
	mcp.WithNumber("article_retention_days", mcp.Description("0 disables cleanup")),
	mcp.WithBoolean("notifications_enabled"),
	mcp.WithNumber("tts_speed"),
	mcp.WithString("sync_folder_path"),
)

// Data exchange

var dataExportToolDef = tool("data_export",
	mcp.WithDescription("Write the whole dataset to a JSON file that data_import accepts."),
	mcp.WithString("path", mcp.Description("Default: <dir>/exports/fetchnfeed-<timestamp>.json")),
)

var dataImportToolDef = tool("data_import",
	mcp.WithDescription("Replace the whole dataset with an exported JSON file. Rejected files change nothing."),
	mcp.WithString("path", mcp.Required()),
	mcp.WithDestructiveHintAnnotation(true),
)

var dataExportOPMLToolDef = tool("data_export_opml",
	mcp.WithDescription("Write subscriptions to an OPML file."),
	mcp.WithString("path", mcp.Description("Default: <dir>/exports/subscriptions-<timestamp>.opml")),
)

var dataImportOPMLToolDef = tool("data_import_opml",
	mcp.WithDescription("Subscribe to the feeds in an OPML file, skipping ones already subscribed."),
	mcp.WithString("path", mcp.Required()),
)

var dataClearToolDef = tool("data_clear",
	mcp.WithDescription("Delete everything and restore default preferences."),
	mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true")),
	mcp.WithDestructiveHintAnnotation(true),
)
