package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/fetchnfeed/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the database file created inside the data directory.
const FileName = "fetchnfeed.db"

// Init initializes the SQLite database at baseDir/fetchnfeed.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.fetchnfeed.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Pragmas in the DSN apply to every pooled connection
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: one table per collection
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS feeds (
		  pos INTEGER PRIMARY KEY,
		  id  TEXT NOT NULL,
		  doc TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS articles (
		  pos         INTEGER PRIMARY KEY,
		  id          TEXT NOT NULL,
		  feed_id     TEXT NOT NULL,
		  is_read     INTEGER NOT NULL DEFAULT 0,
		  is_starred  INTEGER NOT NULL DEFAULT 0,
		  is_archived INTEGER NOT NULL DEFAULT 0,
		  doc         TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_articles_feed_id ON articles(feed_id);
		CREATE INDEX IF NOT EXISTS idx_articles_is_read ON articles(is_read);
		CREATE INDEX IF NOT EXISTS idx_articles_is_starred ON articles(is_starred);
		CREATE INDEX IF NOT EXISTS idx_articles_is_archived ON articles(is_archived);

		CREATE TABLE IF NOT EXISTS folders (
		  pos INTEGER PRIMARY KEY,
		  id  TEXT NOT NULL,
		  doc TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tags (
		  pos INTEGER PRIMARY KEY,
		  id  TEXT NOT NULL,
		  doc TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS notes (
		  pos        INTEGER PRIMARY KEY,
		  id         TEXT NOT NULL,
		  article_id TEXT NOT NULL,
		  doc        TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_notes_article_id ON notes(article_id);

		CREATE TABLE IF NOT EXISTS note_tags (
		  pos INTEGER PRIMARY KEY,
		  id  TEXT NOT NULL,
		  doc TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS filter_rules (
		  pos INTEGER PRIMARY KEY,
		  id  TEXT NOT NULL,
		  doc TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS training_signals (
		  pos INTEGER PRIMARY KEY,
		  id  TEXT NOT NULL,
		  doc TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS saved_searches (
		  pos INTEGER PRIMARY KEY,
		  id  TEXT NOT NULL,
		  doc TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS preferences (
		  id  TEXT PRIMARY KEY,
		  doc TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS meta (
		  key   TEXT PRIMARY KEY,
		  value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS migrations (
		  name       TEXT PRIMARY KEY,
		  applied_at INTEGER NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
