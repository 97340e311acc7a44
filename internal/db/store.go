package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hpungsan/fetchnfeed/internal/config"
	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

// preferencesRowID is the id of the single synthetic preferences row.
const preferencesRowID = "main"

// Meta keys.
const (
	metaVersion      = "version"
	metaLastSyncedAt = "lastSyncedAt"
)

// tables maps each collection to its table.
var tables = map[model.Collection]string{
	model.CollectionFeeds:           "feeds",
	model.CollectionArticles:        "articles",
	model.CollectionFolders:         "folders",
	model.CollectionTags:            "tags",
	model.CollectionNotes:           "notes",
	model.CollectionNoteTags:        "note_tags",
	model.CollectionFilterRules:     "filter_rules",
	model.CollectionTrainingSignals: "training_signals",
	model.CollectionSavedSearches:   "saved_searches",
	model.CollectionPreferences:     "preferences",
}

// Store is the durable home of the dataset: one table per collection,
// a single preferences row and a meta key/value table.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open initializes the database under baseDir and returns a Store.
// Any failure is reported as STORE_UNAVAILABLE; callers fall back to
// an in-memory dataset.
func Open(baseDir string, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sqlDB, err := Init(baseDir)
	if err != nil {
		logger.Error("store unavailable", "dir", baseDir, "error", err)
		return nil, errors.NewStoreUnavailable(err)
	}
	ConfigurePool(sqlDB, cfg)
	return &Store{db: sqlDB, log: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// row is one collection record ready for insertion.
type row struct {
	id         string
	doc        []byte
	feedID     string
	articleID  string
	isRead     bool
	isStarred  bool
	isArchived bool
}

// LoadAll reads every collection and assembles the dataset.
// Collections without rows load as empty; preferences are decoded over defaults.
func (s *Store) LoadAll(ctx context.Context) (*model.Data, error) {
	data := model.DefaultData()
	var err error

	if data.Feeds, err = loadDocs[model.Feed](ctx, s.db, model.CollectionFeeds); err != nil {
		return nil, err
	}
	if data.Articles, err = loadDocs[model.Article](ctx, s.db, model.CollectionArticles); err != nil {
		return nil, err
	}
	if data.Folders, err = loadDocs[model.Folder](ctx, s.db, model.CollectionFolders); err != nil {
		return nil, err
	}
	if data.Tags, err = loadDocs[model.Tag](ctx, s.db, model.CollectionTags); err != nil {
		return nil, err
	}
	if data.Notes, err = loadDocs[model.Note](ctx, s.db, model.CollectionNotes); err != nil {
		return nil, err
	}
	if data.NoteTags, err = loadDocs[model.NoteTag](ctx, s.db, model.CollectionNoteTags); err != nil {
		return nil, err
	}
	if data.FilterRules, err = loadDocs[json.RawMessage](ctx, s.db, model.CollectionFilterRules); err != nil {
		return nil, err
	}
	if data.TrainingSignals, err = loadDocs[json.RawMessage](ctx, s.db, model.CollectionTrainingSignals); err != nil {
		return nil, err
	}
	if data.SavedSearches, err = loadDocs[json.RawMessage](ctx, s.db, model.CollectionSavedSearches); err != nil {
		return nil, err
	}

	if err := s.loadPreferences(ctx, &data.Preferences); err != nil {
		return nil, err
	}
	if err := s.loadMeta(ctx, data); err != nil {
		return nil, err
	}

	return data, nil
}

// loadDocs reads one collection in stored order.
func loadDocs[T any](ctx context.Context, db *sql.DB, col model.Collection) ([]T, error) {
	query := fmt.Sprintf("SELECT doc FROM %s ORDER BY pos", tables[col])
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewStoreReadFailed(string(col), err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, errors.NewStoreReadFailed(string(col), err)
		}
		var v T
		if err := json.Unmarshal([]byte(doc), &v); err != nil {
			return nil, errors.NewStoreReadFailed(string(col), err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreReadFailed(string(col), err)
	}
	return out, nil
}

func (s *Store) loadPreferences(ctx context.Context, prefs *model.Preferences) error {
	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM preferences WHERE id = ?", preferencesRowID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return errors.NewStoreReadFailed(string(model.CollectionPreferences), err)
	}
	// Decoding over the defaults keeps keys the stored record lacks
	if err := json.Unmarshal([]byte(doc), prefs); err != nil {
		return errors.NewStoreReadFailed(string(model.CollectionPreferences), err)
	}
	return nil
}

func (s *Store) loadMeta(ctx context.Context, data *model.Data) error {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return errors.NewStoreReadFailed("meta", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return errors.NewStoreReadFailed("meta", err)
		}
		switch key {
		case metaVersion:
			if v, err := strconv.Atoi(value); err == nil {
				data.Version = v
			}
		case metaLastSyncedAt:
			if value == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339Nano, value)
			if err != nil {
				s.log.Warn("ignoring malformed lastSyncedAt", "value", value)
				continue
			}
			data.LastSyncedAt = &t
		}
	}
	return rows.Err()
}

// ReplaceAll rewrites every collection and the meta entries from data.
func (s *Store) ReplaceAll(ctx context.Context, data *model.Data) error {
	return s.Replace(ctx, data, model.AllCollections...)
}

// Replace rewrites the named collections and the meta entries from data.
//
// Each collection's clear+rewrite is its own transaction: a collection is
// never left half written, but an interruption between collections can leave
// earlier ones updated and later ones stale. Every collection is attempted;
// the first failure is returned.
func (s *Store) Replace(ctx context.Context, data *model.Data, cols ...model.Collection) error {
	var firstErr error
	for _, col := range cols {
		if err := s.replaceCollection(ctx, data, col); err != nil {
			s.log.Error("store write failed", "collection", string(col), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if err := s.writeMeta(ctx, data); err != nil {
		s.log.Error("store write failed", "collection", "meta", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) replaceCollection(ctx context.Context, data *model.Data, col model.Collection) error {
	table, ok := tables[col]
	if !ok {
		return errors.NewInvalidRequest(fmt.Sprintf("unknown collection: %s", col))
	}

	if col == model.CollectionPreferences {
		return s.writePreferences(ctx, data.Preferences)
	}

	rows, err := rowsFor(data, col)
	if err != nil {
		return errors.NewStoreWriteFailed(string(col), err)
	}

	return s.inTx(ctx, col, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}

		var insert string
		switch col {
		case model.CollectionArticles:
			insert = "INSERT INTO articles (pos, id, feed_id, is_read, is_starred, is_archived, doc) VALUES (?, ?, ?, ?, ?, ?, ?)"
		case model.CollectionNotes:
			insert = "INSERT INTO notes (pos, id, article_id, doc) VALUES (?, ?, ?, ?)"
		default:
			insert = fmt.Sprintf("INSERT INTO %s (pos, id, doc) VALUES (?, ?, ?)", table)
		}

		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for pos, r := range rows {
			switch col {
			case model.CollectionArticles:
				_, err = stmt.ExecContext(ctx, pos, r.id, r.feedID, r.isRead, r.isStarred, r.isArchived, string(r.doc))
			case model.CollectionNotes:
				_, err = stmt.ExecContext(ctx, pos, r.id, r.articleID, string(r.doc))
			default:
				_, err = stmt.ExecContext(ctx, pos, r.id, string(r.doc))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) writePreferences(ctx context.Context, prefs model.Preferences) error {
	doc, err := json.Marshal(prefs)
	if err != nil {
		return errors.NewStoreWriteFailed(string(model.CollectionPreferences), err)
	}
	return s.inTx(ctx, model.CollectionPreferences, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM preferences"); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "INSERT INTO preferences (id, doc) VALUES (?, ?)", preferencesRowID, string(doc))
		return err
	})
}

func (s *Store) writeMeta(ctx context.Context, data *model.Data) error {
	lastSynced := ""
	if data.LastSyncedAt != nil {
		lastSynced = data.LastSyncedAt.UTC().Format(time.RFC3339Nano)
	}
	return s.inTx(ctx, "meta", func(tx *sql.Tx) error {
		upsert := "INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"
		if _, err := tx.ExecContext(ctx, upsert, metaVersion, strconv.Itoa(data.Version)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, upsert, metaLastSyncedAt, lastSynced)
		return err
	})
}

// inTx runs fn in a transaction, mapping any failure to STORE_WRITE_FAILED.
func (s *Store) inTx(ctx context.Context, col model.Collection, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreWriteFailed(string(col), err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return errors.NewStoreWriteFailed(string(col), err)
	}
	if err := tx.Commit(); err != nil {
		return errors.NewStoreWriteFailed(string(col), err)
	}
	return nil
}

// rowsFor serializes one collection of data.
func rowsFor(data *model.Data, col model.Collection) ([]row, error) {
	switch col {
	case model.CollectionFeeds:
		return encodeRows(data.Feeds, func(f model.Feed, r *row) { r.id = f.ID })
	case model.CollectionArticles:
		return encodeRows(data.Articles, func(a model.Article, r *row) {
			r.id = a.ID
			r.feedID = a.FeedID
			r.isRead = a.IsRead
			r.isStarred = a.IsStarred
			r.isArchived = a.IsArchived
		})
	case model.CollectionFolders:
		return encodeRows(data.Folders, func(f model.Folder, r *row) { r.id = f.ID })
	case model.CollectionTags:
		return encodeRows(data.Tags, func(t model.Tag, r *row) { r.id = t.ID })
	case model.CollectionNotes:
		return encodeRows(data.Notes, func(n model.Note, r *row) {
			r.id = n.ID
			r.articleID = n.ArticleID
		})
	case model.CollectionNoteTags:
		return encodeRows(data.NoteTags, func(t model.NoteTag, r *row) { r.id = t.ID })
	case model.CollectionFilterRules:
		return encodeRows(data.FilterRules, rawID)
	case model.CollectionTrainingSignals:
		return encodeRows(data.TrainingSignals, rawID)
	case model.CollectionSavedSearches:
		return encodeRows(data.SavedSearches, rawID)
	}
	return nil, fmt.Errorf("unknown collection: %s", col)
}

func encodeRows[T any](items []T, fill func(T, *row)) ([]row, error) {
	out := make([]row, 0, len(items))
	for _, item := range items {
		doc, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		r := row{doc: doc}
		fill(item, &r)
		out = append(out, r)
	}
	return out, nil
}

// rawID pulls an "id" field out of an opaque record when it has one.
func rawID(raw json.RawMessage, r *row) {
	var probe struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(raw, &probe) == nil {
		r.id = probe.ID
	}
}
