package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/fetchnfeed/internal/config"
	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/db"
	"github.com/hpungsan/fetchnfeed/internal/feed"
	"github.com/hpungsan/fetchnfeed/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// dirEnv overrides the data directory.
const dirEnv = "FETCHNFEED_DIR"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"feed": true, "article": true, "folder": true, "tag": true,
	"note": true, "notetag": true, "prefs": true, "data": true,
	"opml": true, "refresh": true, "cleanup": true, "watch": true,
	"discover": true, "help": true,
}

// firstArg returns the first argument after the program name, skipping a
// leading --dir flag and its value.
func firstArg(args []string) string {
	for i := 1; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--dir" || arg == "-dir":
			i++
		case strings.HasPrefix(arg, "--dir=") || strings.HasPrefix(arg, "-dir="):
		default:
			return arg
		}
	}
	return ""
}

// dirFromArgs returns the value of a leading --dir flag, if any.
func dirFromArgs(args []string) string {
	for i := 1; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--dir" || arg == "-dir":
			if i+1 < len(args) {
				return args[i+1]
			}
			return ""
		case strings.HasPrefix(arg, "--dir="):
			return strings.TrimPrefix(arg, "--dir=")
		case strings.HasPrefix(arg, "-dir="):
			return strings.TrimPrefix(arg, "-dir=")
		default:
			return ""
		}
	}
	return ""
}

// resolveBaseDir picks the data directory: --dir, then $FETCHNFEED_DIR,
// then ~/.fetchnfeed.
func resolveBaseDir(args []string) (string, error) {
	if dir := dirFromArgs(args); dir != "" {
		return dir, nil
	}
	if dir := os.Getenv(dirEnv); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".fetchnfeed"), nil
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	arg := firstArg(args)
	if arg == "" {
		return false // No args → MCP server
	}
	if cliCommands[arg] {
		return true
	}
	return isHelpOrVersionArg(arg)
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	arg := firstArg(args)
	return isHelpOrVersionArg(arg) || arg == "help"
}

func isHelpOrVersionArg(arg string) bool {
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   __      _       _                __              _
  / _| ___| |_ ___| |__  _ __      / _| ___  ___  __| |
 | |_ / _ \ __/ __| '_ \| '_ \    | |_ / _ \/ _ \/ _' |
 |  _|  __/ || (__| | | | | | |   |  _|  __/  __/ (_| |
 |_|  \___|\__\___|_| |_|_| |_|   |_|  \___|\___|\__,_|

  Local RSS/Atom reader store and feed sync

  Usage: fetchnfeed <command> [options]
         fetchnfeed --help

  MCP server mode requires piped input.`)
}

// newLogger builds the process logger: text to stderr at the configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// openDataset opens the store under baseDir and loads the dataset. When the
// store cannot be opened the dataset runs in memory and writes report
// persisted=false.
func openDataset(ctx context.Context, baseDir string, cfg *config.Config, logger *slog.Logger) (*dataset.Dataset, func()) {
	opts := []dataset.Option{
		dataset.WithLogger(logger),
		dataset.WithLegacyPath(cfg.LegacyPath(baseDir)),
	}

	closeFn := func() {}
	var ds *dataset.Dataset
	store, err := db.Open(baseDir, cfg, logger)
	if err != nil {
		logger.Warn("running without persistence", "error", err)
		ds = dataset.New(nil, opts...)
	} else {
		ds = dataset.New(store, opts...)
		closeFn = func() {
			if err := store.Close(); err != nil {
				logger.Error("close store", "error", err)
			}
		}
	}

	if err := ds.Load(ctx); err != nil {
		logger.Warn("dataset load failed, starting from defaults", "error", err)
	}
	return ds, closeFn
}

// newFetcher builds the HTTP feed client from config.
func newFetcher(cfg *config.Config, logger *slog.Logger) feed.Fetcher {
	return feed.NewClient(feed.Options{
		Timeout:      cfg.FetchTimeout(),
		UserAgent:    cfg.UserAgent,
		HostInterval: cfg.HostInterval(),
		Logger:       logger,
	})
}

func main() {
	args := os.Args

	// No args + interactive terminal → show banner and exit
	if firstArg(args) == "" && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before opening the store
	if isHelpOrVersion(args) {
		app := newCLIApp(nil)
		if err := app.Run(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	baseDir, err := resolveBaseDir(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		logger.Warn("unknown types in disabled_types", "types", unknown)
	}

	ds, closeStore := openDataset(context.Background(), baseDir, cfg, logger)
	defer closeStore()

	env := &appEnv{
		ds:      ds,
		fetcher: newFetcher(cfg, logger),
		cfg:     cfg,
		baseDir: baseDir,
		log:     logger,
	}

	// CLI mode: known subcommand
	if isCLIMode(args) {
		app := newCLIApp(env)
		if err := app.Run(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			closeStore()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if firstArg(args) != "" && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", firstArg(args))
		fmt.Fprintf(os.Stderr, "Run 'fetchnfeed --help' for usage.\n")
		closeStore()
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(env.ds, env.fetcher, env.cfg, env.baseDir, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		closeStore()
		os.Exit(1)
	}
}
