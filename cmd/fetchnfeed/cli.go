package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/fetchnfeed/internal/config"
	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/feed"
	"github.com/hpungsan/fetchnfeed/internal/ops"
)

// maxStdinBytes caps what the CLI reads from stdin.
const maxStdinBytes = 16 << 20

// appEnv carries the process dependencies into CLI actions.
type appEnv struct {
	ds      *dataset.Dataset
	fetcher feed.Fetcher
	cfg     *config.Config
	baseDir string
	log     *slog.Logger
}

// newCLIApp creates the CLI application with all commands.
// env may be nil when only help or version output is needed.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "fetchnfeed",
		Usage:   "Local RSS/Atom reader store and feed sync",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", EnvVars: []string{dirEnv}, Usage: "Data directory (default ~/.fetchnfeed)"},
		},
		Commands: []*cli.Command{
			feedCmd(env),
			articleCmd(env),
			folderCmd(env),
			tagCmd(env),
			noteCmd(env),
			noteTagCmd(env),
			prefsCmd(env),
			dataCmd(env),
			opmlCmd(env),
			refreshCmd(env),
			cleanupCmd(env),
			watchCmd(env),
			discoverCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// feedCmd creates the feed command group.
func feedCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Manage feed subscriptions",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Subscribe to a feed URL",
				ArgsUsage: "[url]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Feed URL"},
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Display title (defaults to the URL)"},
					&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Folder id"},
					&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
				},
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 1); err != nil {
						return err
					}
					return run(ops.AddFeed(c.Context, env.ds, ops.AddFeedInput{
						URL:      argOrFlag(c, "url"),
						Title:    c.String("title"),
						FolderID: c.String("folder"),
						Tags:     parseTags(c.String("tags")),
					}))
				},
			},
			{
				Name:      "update",
				Usage:     "Change a feed's fields",
				ArgsUsage: "[id]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Feed id"},
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}},
					&cli.StringFlag{Name: "url"},
					&cli.StringFlag{Name: "site-url"},
					&cli.StringFlag{Name: "description"},
					&cli.BoolFlag{Name: "enabled", Usage: "Enable (--enabled) or disable (--enabled=false)"},
				},
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 1); err != nil {
						return err
					}
					input := ops.UpdateFeedInput{ID: argOrFlag(c, "id")}
					input.Title = optString(c, "title")
					input.URL = optString(c, "url")
					input.SiteURL = optString(c, "site-url")
					input.Description = optString(c, "description")
					if c.IsSet("enabled") {
						enabled := c.Bool("enabled")
						input.IsEnabled = &enabled
					}
					return run(ops.UpdateFeed(c.Context, env.ds, input))
				},
			},
			{
				Name:      "delete",
				Usage:     "Unsubscribe and delete the feed's articles",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 1); err != nil {
						return err
					}
					return run(ops.DeleteFeed(c.Context, env.ds, c.Args().First()))
				},
			},
			{
				Name:      "get",
				Usage:     "Show one feed",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 1); err != nil {
						return err
					}
					return run(ops.GetFeed(env.ds, c.Args().First()))
				},
			},
			{
				Name:  "list",
				Usage: "List feeds",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Filter by folder id"},
					&cli.StringFlag{Name: "tag", Usage: "Filter by tag"},
					&cli.BoolFlag{Name: "enabled-only"},
				}, pagingFlags()...),
				Action: func(c *cli.Context) error {
					return run(ops.ListFeeds(env.ds, ops.ListFeedsInput{
						FolderID:    c.String("folder"),
						Tag:         c.String("tag"),
						EnabledOnly: c.Bool("enabled-only"),
						Limit:       c.Int("limit"),
						Offset:      c.Int("offset"),
					}))
				},
			},
			{
				Name:      "assign",
				Usage:     "File a feed under a folder",
				ArgsUsage: "<feed-id> <folder-id>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 2); err != nil {
						return err
					}
					return run(ops.AssignFeedFolder(c.Context, env.ds, ops.FeedFolderInput{
						FeedID: c.Args().Get(0), FolderID: c.Args().Get(1),
					}))
				},
			},
			{
				Name:      "unassign",
				Usage:     "Remove a feed from a folder",
				ArgsUsage: "<feed-id> <folder-id>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 2); err != nil {
						return err
					}
					return run(ops.UnassignFeedFolder(c.Context, env.ds, ops.FeedFolderInput{
						FeedID: c.Args().Get(0), FolderID: c.Args().Get(1),
					}))
				},
			},
			{
				Name:      "tag",
				Usage:     "Tag a feed",
				ArgsUsage: "<feed-id> <tag>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 2); err != nil {
						return err
					}
					return run(ops.TagFeed(c.Context, env.ds, ops.FeedTagInput{
						FeedID: c.Args().Get(0), Tag: c.Args().Get(1),
					}))
				},
			},
			{
				Name:      "untag",
				Usage:     "Remove a tag from a feed",
				ArgsUsage: "<feed-id> <tag>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 2); err != nil {
						return err
					}
					return run(ops.UntagFeed(c.Context, env.ds, ops.FeedTagInput{
						FeedID: c.Args().Get(0), Tag: c.Args().Get(1),
					}))
				},
			},
			{
				Name:      "mark-read",
				Usage:     "Mark every article of a feed read",
				ArgsUsage: "<feed-id>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 1); err != nil {
						return err
					}
					return run(ops.MarkFeedRead(c.Context, env.ds, c.Args().First()))
				},
			},
		},
	}
}

// articleCmd creates the article command group.
func articleCmd(env *appEnv) *cli.Command {
	byID := func(name, usage string, fn func(ctx context.Context, ds *dataset.Dataset, id string) (any, error)) *cli.Command {
		return &cli.Command{
			Name:      name,
			Usage:     usage,
			ArgsUsage: "<id>",
			Action: func(c *cli.Context) error {
				if err := checkArgs(c, 1); err != nil {
					return err
				}
				return run(fn(c.Context, env.ds, c.Args().First()))
			},
		}
	}

	return &cli.Command{
		Name:  "article",
		Usage: "Read, star, archive and tag articles",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Store an article by hand",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "feed", Required: true, Usage: "Feed id"},
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true},
					&cli.StringFlag{Name: "url", Required: true},
					&cli.StringFlag{Name: "author"},
					&cli.StringFlag{Name: "summary"},
					&cli.StringFlag{Name: "content", Usage: "Article content, - to read stdin"},
					&cli.TimestampFlag{Name: "published", Layout: time.RFC3339, Usage: "RFC 3339 publish time"},
				},
				Action: func(c *cli.Context) error {
					input := ops.AddArticleInput{
						FeedID:      c.String("feed"),
						Title:       c.String("title"),
						URL:         c.String("url"),
						Author:      c.String("author"),
						Summary:     c.String("summary"),
						Content:     c.String("content"),
						PublishedAt: c.Timestamp("published"),
					}
					if input.Content == "-" {
						content, err := readStdin(maxStdinBytes)
						if err != nil {
							return outputError(errors.NewInvalidRequest(err.Error()))
						}
						input.Content = content
					}
					return run(ops.AddArticle(c.Context, env.ds, input))
				},
			},
			byID("get", "Show one article", func(_ context.Context, ds *dataset.Dataset, id string) (any, error) {
				return ops.GetArticle(ds, id)
			}),
			{
				Name:  "list",
				Usage: "List articles newest first",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "view", Value: "all", Usage: "all|unread|starred|archived"},
					&cli.StringFlag{Name: "feed", Usage: "Filter by feed id"},
					&cli.StringFlag{Name: "tag", Usage: "Filter by tag"},
				}, pagingFlags()...),
				Action: func(c *cli.Context) error {
					return run(ops.ListArticles(env.ds, ops.ListArticlesInput{
						View:   ops.ArticleView(c.String("view")),
						FeedID: c.String("feed"),
						Tag:    c.String("tag"),
						Limit:  c.Int("limit"),
						Offset: c.Int("offset"),
					}))
				},
			},
			byID("read", "Mark an article read", func(ctx context.Context, ds *dataset.Dataset, id string) (any, error) {
				return ops.MarkArticleRead(ctx, ds, id)
			}),
			byID("unread", "Mark an article unread", func(ctx context.Context, ds *dataset.Dataset, id string) (any, error) {
				return ops.MarkArticleUnread(ctx, ds, id)
			}),
			byID("star", "Toggle the star flag", func(ctx context.Context, ds *dataset.Dataset, id string) (any, error) {
				return ops.ToggleArticleStar(ctx, ds, id)
			}),
			byID("archive", "Toggle the archived flag", func(ctx context.Context, ds *dataset.Dataset, id string) (any, error) {
				return ops.ToggleArticleArchive(ctx, ds, id)
			}),
			{
				Name:      "tag",
				Usage:     "Tag an article",
				ArgsUsage: "<article-id> <tag>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 2); err != nil {
						return err
					}
					return run(ops.TagArticle(c.Context, env.ds, ops.ArticleTagInput{
						ArticleID: c.Args().Get(0), Tag: c.Args().Get(1),
					}))
				},
			},
			{
				Name:      "untag",
				Usage:     "Remove a tag from an article",
				ArgsUsage: "<article-id> <tag>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 2); err != nil {
						return err
					}
					return run(ops.UntagArticle(c.Context, env.ds, ops.ArticleTagInput{
						ArticleID: c.Args().Get(0), Tag: c.Args().Get(1),
					}))
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete articles",
				ArgsUsage: "<id>...",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return outputError(errors.NewInvalidRequest("at least one article id is required"))
					}
					return run(ops.DeleteArticles(c.Context, env.ds, c.Args().Slice()))
				},
			},
		},
	}
}

// folderCmd creates the folder command group.
func folderCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "folder",
		Usage: "Manage folders",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Create a folder",
				ArgsUsage: "[name]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Folder name"},
					&cli.StringFlag{Name: "parent", Usage: "Parent folder id"},
				},
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 1); err != nil {
						return err
					}
					return run(ops.AddFolder(c.Context, env.ds, ops.AddFolderInput{
						Name: argOrFlag(c, "name"), ParentID: c.String("parent"),
					}))
				},
			},
			{
				Name:      "rename",
				Usage:     "Rename a folder",
				ArgsUsage: "<id> <name>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 2); err != nil {
						return err
					}
					return run(ops.RenameFolder(c.Context, env.ds, ops.RenameFolderInput{
						ID: c.Args().Get(0), Name: c.Args().Get(1),
					}))
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a folder; its feeds are unfiled",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 1); err != nil {
						return err
					}
					return run(ops.DeleteFolder(c.Context, env.ds, c.Args().First()))
				},
			},
			{
				Name:  "list",
				Usage: "List folders",
				Action: func(c *cli.Context) error {
					return outputJSON(map[string]any{"items": ops.ListFolders(env.ds)})
				},
			},
		},
	}
}

// tagCmd creates the tag command group.
func tagCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "tag",
		Usage: "Manage feed and article tags",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Create a tag",
				ArgsUsage: "[name]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Tag name"},
					&cli.StringFlag{Name: "color", Usage: "CSS color (default #808080)"},
				},
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 1); err != nil {
						return err
					}
					return run(ops.AddTag(c.Context, env.ds, ops.AddTagInput{
						Name: argOrFlag(c, "name"), Color: c.String("color"),
					}))
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a tag everywhere",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 1); err != nil {
						return err
					}
					return run(ops.DeleteTag(c.Context, env.ds, c.Args().First()))
				},
			},
			{
				Name:  "list",
				Usage: "List tags",
				Action: func(c *cli.Context) error {
					return outputJSON(map[string]any{"items": ops.ListTags(env.ds)})
				},
			},
		},
	}
}

// noteCmd creates the note command group.
func noteCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "note",
		Usage: "Highlights and annotations",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Save a note on an article",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "article", Aliases: []string{"a"}, Required: true, Usage: "Article id"},
					&cli.StringFlag{Name: "text", Usage: "Highlighted text, - to read stdin"},
					&cli.StringFlag{Name: "annotation", Aliases: []string{"n"}},
					&cli.StringFlag{Name: "tags", Usage: "Comma-separated note tags"},
				},
				Action: func(c *cli.Context) error {
					input := ops.AddNoteInput{
						ArticleID:       c.String("article"),
						HighlightedText: c.String("text"),
						Annotation:      c.String("annotation"),
						Tags:            parseTags(c.String("tags")),
					}
					if input.HighlightedText == "-" {
						text, err := readStdin(maxStdinBytes)
						if err != nil {
							return outputError(errors.NewInvalidRequest(err.Error()))
						}
						input.HighlightedText = text
					}
					return run(ops.AddNote(c.Context, env.ds, input))
				},
			},
			{
				Name:      "update",
				Usage:     "Change a note",
				ArgsUsage: "[id]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Note id"},
					&cli.StringFlag{Name: "text"},
					&cli.StringFlag{Name: "annotation", Aliases: []string{"n"}},
					&cli.StringFlag{Name: "tags", Usage: "Replacement comma-separated note tags"},
				},
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 1); err != nil {
						return err
					}
					input := ops.UpdateNoteInput{ID: argOrFlag(c, "id")}
					input.HighlightedText = optString(c, "text")
					input.Annotation = optString(c, "annotation")
					if c.IsSet("tags") {
						tags := parseTags(c.String("tags"))
						input.Tags = &tags
					}
					return run(ops.UpdateNote(c.Context, env.ds, input))
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete notes",
				ArgsUsage: "<id>...",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return outputError(errors.NewInvalidRequest("at least one note id is required"))
					}
					return run(ops.DeleteNotes(c.Context, env.ds, c.Args().Slice()))
				},
			},
			{
				Name:      "get",
				Usage:     "Show one note",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 1); err != nil {
						return err
					}
					return run(ops.GetNote(env.ds, c.Args().First()))
				},
			},
			{
				Name:  "list",
				Usage: "List notes newest first",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "article", Aliases: []string{"a"}, Usage: "Filter by article id"},
					&cli.StringFlag{Name: "tag", Usage: "Filter by note tag"},
				}, pagingFlags()...),
				Action: func(c *cli.Context) error {
					return run(ops.ListNotes(env.ds, ops.ListNotesInput{
						ArticleID: c.String("article"),
						Tag:       c.String("tag"),
						Limit:     c.Int("limit"),
						Offset:    c.Int("offset"),
					}))
				},
			},
			{
				Name:  "export",
				Usage: "Print notes as markdown or HTML",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "article", Aliases: []string{"a"}},
					&cli.StringFlag{Name: "tag"},
					&cli.StringFlag{Name: "format", Value: "markdown", Usage: "markdown|html"},
				},
				Action: func(c *cli.Context) error {
					out, err := ops.ExportNotes(env.ds, ops.ExportNotesInput{
						ArticleID: c.String("article"),
						Tag:       c.String("tag"),
						Format:    c.String("format"),
					})
					if err != nil {
						return outputError(err)
					}
					_, err = io.WriteString(os.Stdout, out.Content)
					return err
				},
			},
		},
	}
}

// noteTagCmd creates the notetag command group.
func noteTagCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "notetag",
		Usage: "Manage note tags",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 1); err != nil {
						return err
					}
					return run(ops.AddNoteTag(c.Context, env.ds, c.Args().First()))
				},
			},
			{
				Name:      "delete",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 1); err != nil {
						return err
					}
					return run(ops.DeleteNoteTag(c.Context, env.ds, c.Args().First()))
				},
			},
			{
				Name: "list",
				Action: func(c *cli.Context) error {
					return outputJSON(map[string]any{"items": ops.ListNoteTags(env.ds)})
				},
			},
		},
	}
}

// prefsCmd creates the prefs command group.
func prefsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "prefs",
		Usage: "Show or change preferences",
		Subcommands: []*cli.Command{
			{
				Name: "get",
				Action: func(c *cli.Context) error {
					return outputJSON(ops.GetPreferences(env.ds))
				},
			},
			{
				Name: "set",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "refresh-interval", Usage: "Minutes between background refreshes"},
					&cli.StringFlag{Name: "view", Usage: "list|card|magazine"},
					&cli.StringFlag{Name: "theme", Usage: "system|light|dark"},
					&cli.IntFlag{Name: "retention-days", Usage: "0 disables cleanup"},
					&cli.BoolFlag{Name: "notifications"},
					&cli.Float64Flag{Name: "tts-speed"},
					&cli.StringFlag{Name: "sync-folder"},
				},
				Action: func(c *cli.Context) error {
					var input ops.UpdatePreferencesInput
					if c.IsSet("refresh-interval") {
						v := c.Int("refresh-interval")
						input.GlobalRefreshInterval = &v
					}
					input.DefaultView = optString(c, "view")
					input.Theme = optString(c, "theme")
					if c.IsSet("retention-days") {
						v := c.Int("retention-days")
						input.ArticleRetentionDays = &v
					}
					if c.IsSet("notifications") {
						v := c.Bool("notifications")
						input.NotificationsEnabled = &v
					}
					if c.IsSet("tts-speed") {
						v := c.Float64("tts-speed")
						input.TTSSpeed = &v
					}

					out, err := ops.UpdatePreferences(c.Context, env.ds, input)
					if err != nil {
						return outputError(err)
					}
					if c.IsSet("sync-folder") {
						out, err = ops.SetSyncFolder(c.Context, env.ds, c.String("sync-folder"))
						if err != nil {
							return outputError(err)
						}
					}
					return outputJSON(out)
				},
			},
		},
	}
}

// dataCmd creates the data command group.
func dataCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "data",
		Usage: "Export, import or clear the whole dataset",
		Subcommands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Write the dataset to a JSON file (or stdout with --path=-)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output path (default: <dir>/exports/fetchnfeed-<timestamp>.json)"},
				},
				Action: func(c *cli.Context) error {
					if c.String("path") == "-" {
						raw, err := ops.ExportData(env.ds)
						if err != nil {
							return outputError(err)
						}
						_, err = os.Stdout.Write(raw)
						return err
					}
					return run(ops.ExportDataFile(c.Context, env.ds, env.baseDir, env.cfg, ops.ExportFileInput{Path: c.String("path")}))
				},
			},
			{
				Name:      "import",
				Usage:     "Replace the dataset with an export (path or - for stdin)",
				ArgsUsage: "<path>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 1); err != nil {
						return err
					}
					if c.Args().First() == "-" {
						raw, err := readStdinBytes(ops.MaxImportBytes)
						if err != nil {
							return outputError(errors.NewImportRejected(err.Error()))
						}
						return run(ops.ImportData(c.Context, env.ds, raw))
					}
					return run(ops.ImportDataFile(c.Context, env.ds, env.baseDir, env.cfg, ops.ImportFileInput{Path: c.Args().First()}))
				},
			},
			{
				Name:  "clear",
				Usage: "Delete everything and restore default preferences",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "Confirm"},
				},
				Action: func(c *cli.Context) error {
					if !c.Bool("yes") {
						return outputError(errors.NewInvalidRequest("pass --yes to clear all data"))
					}
					return run(ops.ClearData(c.Context, env.ds))
				},
			},
		},
	}
}

// opmlCmd creates the opml command group.
func opmlCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "opml",
		Usage: "Import or export subscriptions as OPML",
		Subcommands: []*cli.Command{
			{
				Name: "export",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output path (default: <dir>/exports/subscriptions-<timestamp>.opml, - for stdout)"},
				},
				Action: func(c *cli.Context) error {
					if c.String("path") == "-" {
						raw, err := ops.ExportOPML(env.ds)
						if err != nil {
							return outputError(err)
						}
						_, err = os.Stdout.Write(raw)
						return err
					}
					return run(ops.ExportOPMLFile(c.Context, env.ds, env.baseDir, env.cfg, ops.ExportFileInput{Path: c.String("path")}))
				},
			},
			{
				Name:      "import",
				ArgsUsage: "<path>",
				Action: func(c *cli.Context) error {
					if err := checkArgs(c, 1); err != nil {
						return err
					}
					if c.Args().First() == "-" {
						raw, err := readStdinBytes(ops.MaxImportBytes)
						if err != nil {
							return outputError(errors.NewImportRejected(err.Error()))
						}
						return run(ops.ImportOPML(c.Context, env.ds, raw))
					}
					return run(ops.ImportOPMLFile(c.Context, env.ds, env.baseDir, env.cfg, ops.ImportFileInput{Path: c.Args().First()}))
				},
			},
		},
	}
}

// refreshCmd creates the refresh command.
func refreshCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "refresh",
		Usage:     "Fetch one feed, or every enabled feed when no id is given",
		ArgsUsage: "[feed-id]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "max-age-days", Usage: "Skip items older than this (default from config)"},
		},
		Action: func(c *cli.Context) error {
			if err := checkArgs(c, 1); err != nil {
				return err
			}
			maxAge := c.Int("max-age-days")
			if c.NArg() > 0 {
				res := ops.RefreshFeed(c.Context, env.ds, env.fetcher, env.cfg, ops.RefreshInput{
					FeedID:     c.Args().First(),
					MaxAgeDays: maxAge,
				})
				if err := outputJSON(res); err != nil {
					return err
				}
				if !res.Success {
					return cli.Exit(fmt.Sprintf("[%s] %s", res.Code, res.Error), 1)
				}
				return nil
			}
			return outputJSON(ops.RefreshAllFeeds(c.Context, env.ds, env.fetcher, env.cfg, ops.RefreshAllInput{MaxAgeDays: maxAge}))
		},
	}
}

// cleanupCmd creates the cleanup command.
func cleanupCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Delete articles past the retention window (starred and annotated are kept)",
		Action: func(c *cli.Context) error {
			return run(ops.CleanupOldArticles(c.Context, env.ds))
		},
	}
}

// watchCmd creates the watch command.
func watchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Refresh and clean up on the preferences interval until interrupted",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "Run a single cycle and exit"},
		},
		Action: func(c *cli.Context) error {
			poller := ops.NewPoller(env.ds, env.fetcher, env.cfg, env.log)
			if c.Bool("once") {
				return outputJSON(poller.RunOnce(c.Context))
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			env.log.Info("watching feeds", "interval", poller.Interval())
			poller.Start()
			<-ctx.Done()
			env.log.Info("stopping")
			poller.Stop()
			return nil
		},
	}
}

// discoverCmd creates the discover command.
func discoverCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "discover",
		Usage:     "Find the feed of a website",
		ArgsUsage: "[site-url]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Website URL"},
			&cli.BoolFlag{Name: "subscribe", Aliases: []string{"s"}, Usage: "Subscribe to the discovered feed"},
		},
		Action: func(c *cli.Context) error {
			if err := checkArgs(c, 1); err != nil {
				return err
			}
			return run(ops.DiscoverFeed(c.Context, env.ds, env.fetcher, ops.DiscoverInput{
				SiteURL:   argOrFlag(c, "url"),
				Subscribe: c.Bool("subscribe"),
			}))
		},
	}
}

// Helper functions

// pagingFlags returns the shared --limit/--offset flags.
func pagingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Max items (default 50, negative for all)"},
		&cli.IntFlag{Name: "offset", Aliases: []string{"o"}},
	}
}

// checkArgs rejects positional arguments beyond limit. Flags written after a
// positional argument are not parsed and land here.
func checkArgs(c *cli.Context, limit int) error {
	if c.NArg() <= limit {
		return nil
	}
	extra := strings.Join(c.Args().Slice()[limit:], " ")
	return outputError(errors.NewInvalidRequest(fmt.Sprintf("unexpected arguments %q (flags go before positional arguments)", extra)))
}

// argOrFlag returns the first positional argument, else the named flag.
func argOrFlag(c *cli.Context, name string) string {
	if c.NArg() > 0 {
		return c.Args().First()
	}
	return c.String(name)
}

// optString returns a pointer to the flag value when the flag was given.
func optString(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

// run prints an ops result or its error.
func run[T any](v T, err error) error {
	if err != nil {
		return outputError(err)
	}
	return outputJSON(v)
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var readerErr *errors.ReaderError
	if stderrors.As(err, &readerErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", readerErr.Code, readerErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdinBytes reads stdin up to limit bytes.
func readStdinBytes(limit int64) ([]byte, error) {
	if !stdinHasData() {
		return nil, fmt.Errorf("stdin is a terminal; pipe the input instead")
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return data, nil
}

// readStdin reads stdin up to limit bytes and trims surrounding space.
func readStdin(limit int64) (string, error) {
	data, err := readStdinBytes(limit)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
