package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LegacyDataFile is the file name of the single-document data format
// looked for in the data directory when no legacy path is configured.
const LegacyDataFile = "fetch-n-feed-data.json"

// Config holds application configuration.
type Config struct {
	// DefaultMaxAgeDays is the recency window used by refresh when the caller
	// passes no positive maxAgeDays
	DefaultMaxAgeDays int `json:"default_max_age_days"`

	// FetchTimeoutSeconds bounds one feed fetch, including the response body.
	FetchTimeoutSeconds int `json:"fetch_timeout_seconds"`

	// UserAgent is sent with every feed request.
	UserAgent string `json:"user_agent"`

	// HostIntervalMS is the minimum spacing between two requests to the same host.
	HostIntervalMS int `json:"host_interval_ms"`

	// LegacyDataPath points at a single-document JSON export from older versions.
	// Empty means <dir>/fetch-n-feed-data.json. The file is imported once and removed.
	LegacyDataPath string `json:"legacy_data_path,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// AllowedPaths lists extra directories that export/import files may live in,
	// in addition to <dir>/exports. Only absolute paths are honored.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths skips the directory restriction for export/import paths.
	// Symlink checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes disables every MCP tool of a type.
	// Known types: "feed", "article", "folder", "tag", "note", "prefs", "data".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultMaxAgeDays:   7,
		FetchTimeoutSeconds: 30,
		UserAgent:           "fetchnfeed/1.0 (+https://github.com/hpungsan/fetchnfeed)",
		HostIntervalMS:      500,
		LogLevel:            "info",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.fetchnfeed.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		DefaultMaxAgeDays:   firstPositive(overlay.DefaultMaxAgeDays, base.DefaultMaxAgeDays),
		FetchTimeoutSeconds: firstPositive(overlay.FetchTimeoutSeconds, base.FetchTimeoutSeconds),
		UserAgent:           firstNonEmpty(overlay.UserAgent, base.UserAgent),
		HostIntervalMS:      firstPositive(overlay.HostIntervalMS, base.HostIntervalMS),
		LegacyDataPath:      firstNonEmpty(overlay.LegacyDataPath, base.LegacyDataPath),
		LogLevel:            firstNonEmpty(overlay.LogLevel, base.LogLevel),
		DBMaxOpenConns:      firstPositive(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:      firstPositive(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		AllowUnsafePaths:    overlay.AllowUnsafePaths || base.AllowUnsafePaths,
	}

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// FetchTimeout returns the per-fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// HostInterval returns the minimum spacing between requests to one host.
func (c *Config) HostInterval() time.Duration {
	return time.Duration(c.HostIntervalMS) * time.Millisecond
}

// LegacyPath resolves the legacy single-document file for baseDir.
func (c *Config) LegacyPath(baseDir string) string {
	if c.LegacyDataPath != "" {
		return c.LegacyDataPath
	}
	return filepath.Join(baseDir, LegacyDataFile)
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func firstPositive(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
