package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"time"

	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

// LegacyMigration names the one-shot import of the single-document format.
const LegacyMigration = "legacy_blob_v1"

// MigrateLegacy imports the flat JSON document at path, if present, and
// removes it. Missing top-level fields take their defaults and preferences
// are merged key by key.
//
// The migration is recorded by name and runs at most once. When it has already
// been recorded, a leftover file is removed without being imported again.
// Returns true only when data was imported by this call.
func (s *Store) MigrateLegacy(ctx context.Context, path string) (bool, error) {
	if path == "" {
		return false, nil
	}

	applied, err := s.MigrationApplied(ctx, LegacyMigration)
	if err != nil {
		return false, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, errors.NewStoreReadFailed("legacy", err)
	}

	if applied {
		s.log.Warn("removing legacy data file left after migration", "path", path)
		if err := os.Remove(path); err != nil {
			s.log.Warn("failed to remove legacy data file", "path", path, "error", err)
		}
		return false, nil
	}

	data, err := model.DecodeData(raw)
	if err != nil {
		// Leave the file in place so nothing is lost
		return false, errors.NewStoreReadFailed("legacy", err)
	}

	if err := s.ReplaceAll(ctx, data); err != nil {
		return false, err
	}
	if err := s.recordMigration(ctx, LegacyMigration); err != nil {
		return false, err
	}

	if err := os.Remove(path); err != nil {
		s.log.Warn("failed to remove legacy data file", "path", path, "error", err)
	}

	s.log.Info("migrated legacy data",
		"path", path,
		"feeds", len(data.Feeds),
		"articles", len(data.Articles),
		"notes", len(data.Notes),
	)
	return true, nil
}

// MigrationApplied reports whether the named data migration has run.
func (s *Store) MigrationApplied(ctx context.Context, name string) (bool, error) {
	var appliedAt int64
	err := s.db.QueryRowContext(ctx, "SELECT applied_at FROM migrations WHERE name = ?", name).Scan(&appliedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewStoreReadFailed("migrations", err)
	}
	return true, nil
}

func (s *Store) recordMigration(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO migrations (name, applied_at) VALUES (?, ?)",
		name, time.Now().Unix(),
	)
	if err != nil {
		return errors.NewStoreWriteFailed("migrations", err)
	}
	return nil
}
