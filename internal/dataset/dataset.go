// Package dataset holds the authoritative in-memory copy of every entity
// and serializes all mutations through single-writer transactions.
package dataset

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

// Store is the durable backend a Dataset writes through.
// *db.Store satisfies it.
type Store interface {
	LoadAll(ctx context.Context) (*model.Data, error)
	ReplaceAll(ctx context.Context, data *model.Data) error
	Replace(ctx context.Context, data *model.Data, cols ...model.Collection) error
	MigrateLegacy(ctx context.Context, path string) (bool, error)
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithClock sets the time source used for lastSyncedAt and transaction stamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dataset) { d.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dataset) {
		if logger != nil {
			d.log = logger
		}
	}
}

// WithLegacyPath enables the one-shot legacy document import during Load.
func WithLegacyPath(path string) Option {
	return func(d *Dataset) { d.legacyPath = path }
}

// Dataset is the process-wide snapshot of all entities.
//
// Published snapshots are immutable: every write builds a new top-level
// Data value and swaps it in, so a snapshot returned by Get never changes
// underneath its reader. Writers serialize on writeMu, which is held across
// the read-modify-write and the durable write.
type Dataset struct {
	store      Store
	log        *slog.Logger
	now        func() time.Time
	legacyPath string

	writeMu sync.Mutex

	mu        sync.RWMutex
	data      *model.Data
	revisions map[model.Collection]uint64
	ready     bool
}

// New returns a Dataset holding defaults until Load completes.
// A nil store keeps everything in memory; writes then report persisted=false.
func New(store Store, opts ...Option) *Dataset {
	d := &Dataset{
		store:     store,
		log:       slog.Default(),
		now:       time.Now,
		data:      model.DefaultData(),
		revisions: make(map[model.Collection]uint64),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load runs the legacy migration (when configured) and reads the Store.
// On any failure the dataset keeps its defaults and the error is returned
// for logging; the dataset is marked ready either way.
func (d *Dataset) Load(ctx context.Context) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	defer d.markReady()

	if d.store == nil {
		return nil
	}

	if d.legacyPath != "" {
		if _, err := d.store.MigrateLegacy(ctx, d.legacyPath); err != nil {
			d.log.Error("legacy migration failed", "path", d.legacyPath, "error", err)
		}
	}

	data, err := d.store.LoadAll(ctx)
	if err != nil {
		d.log.Error("load failed, using defaults", "error", err)
		return err
	}

	d.mu.Lock()
	d.data = data
	d.mu.Unlock()

	d.log.Debug("dataset loaded", "feeds", len(data.Feeds), "articles", len(data.Articles))
	return nil
}

func (d *Dataset) markReady() {
	d.mu.Lock()
	d.ready = true
	d.mu.Unlock()
}

// IsReady reports whether Load has completed.
func (d *Dataset) IsReady() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ready
}

// Get returns the current snapshot by reference. It must be treated as
// read-only; later writes publish a new snapshot instead of changing it.
func (d *Dataset) Get() *model.Data {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.data
}

// Revision returns how many committed writes have touched col.
func (d *Dataset) Revision(col model.Collection) uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revisions[col]
}

// Logger returns the dataset's logger.
func (d *Dataset) Logger() *slog.Logger {
	return d.log
}

// Now returns the current time from the dataset clock, in UTC.
func (d *Dataset) Now() time.Time {
	return d.now().UTC()
}

// Update runs fn as a serialized read-modify-write transaction.
//
// If fn returns an error nothing is published and the error is returned.
// Otherwise the changed collections are published, lastSyncedAt is stamped,
// and only the changed collections are written to the Store. persisted
// reports whether that durable write succeeded; a failed write keeps the
// in-memory change.
func (d *Dataset) Update(ctx context.Context, fn func(tx *Tx) error) (persisted bool, err error) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if ctx.Err() != nil {
		return false, errors.NewCancelled("update")
	}

	tx := &Tx{
		data:  d.Get().ShallowCopy(),
		dirty: make(map[model.Collection]bool),
		now:   d.Now(),
	}
	if err := fn(tx); err != nil {
		return false, err
	}
	if len(tx.dirty) == 0 {
		return true, nil
	}

	stamp := tx.now
	tx.data.LastSyncedAt = &stamp
	cols := tx.collections()
	d.publish(tx.data, cols)

	return d.persist(ctx, tx.data, cols), nil
}

// ReplaceAll swaps in a whole new dataset and rewrites every collection.
func (d *Dataset) ReplaceAll(ctx context.Context, data *model.Data) (persisted bool, err error) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if ctx.Err() != nil {
		return false, errors.NewCancelled("replace")
	}

	next := data.ShallowCopy()
	stamp := d.Now()
	next.LastSyncedAt = &stamp
	d.publish(next, model.AllCollections)

	return d.persist(ctx, next, model.AllCollections), nil
}

func (d *Dataset) publish(data *model.Data, cols []model.Collection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = data
	for _, col := range cols {
		d.revisions[col]++
	}
}

// persist writes cols to the Store. The write is not cancelled with ctx
// once the snapshot has been published.
func (d *Dataset) persist(ctx context.Context, data *model.Data, cols []model.Collection) bool {
	if d.store == nil {
		return false
	}
	ctx = context.WithoutCancel(ctx)

	var err error
	if len(cols) == len(model.AllCollections) {
		err = d.store.ReplaceAll(ctx, data)
	} else {
		err = d.store.Replace(ctx, data, cols...)
	}
	if err != nil {
		d.log.Warn("persist failed, keeping in-memory state", "collections", cols, "error", err)
		return false
	}
	return true
}
