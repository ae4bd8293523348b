package simvec

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/simvec/simvec/codec"
	"github.com/simvec/simvec/embedding"
	"github.com/simvec/simvec/engine"
	"github.com/simvec/simvec/index"
	"github.com/simvec/simvec/index/exact"
	"github.com/simvec/simvec/index/smallworld"
	"github.com/simvec/simvec/metric"
	"github.com/simvec/simvec/resource"
	"github.com/simvec/simvec/snapshot"
)

// DefaultRebuildThreshold is the tombstone ratio above which an automatic
// background rebuild is scheduled after a delete.
const DefaultRebuildThreshold = 0.2

// IndexKind identifies the index structure backing a DB.
type IndexKind string

const (
	// IndexKindExact is the brute-force index with exhaustive scoring.
	IndexKindExact IndexKind = "exact"

	// IndexKindSmallWorld is the approximate navigable small-world graph.
	IndexKindSmallWorld IndexKind = "smallworld"
)

// ParseIndexKind parses an index kind from its snapshot name.
func ParseIndexKind(name string) (IndexKind, error) {
	switch IndexKind(name) {
	case IndexKindExact:
		return IndexKindExact, nil
	case IndexKindSmallWorld:
		return IndexKindSmallWorld, nil
	default:
		return "", fmt.Errorf("simvec: unknown index kind %q", name)
	}
}

// Record is a stored vector record.
type Record[T any] = engine.Record[T]

type dbConfig struct {
	dimension      int
	metric         metric.Metric
	indexKind      IndexKind
	m              int
	efConstruction int
	efSearch       int
}

// indexSlot wraps the index interface so the current index can be swapped
// atomically during rebuilds.
type indexSlot struct {
	index.Index
}

// DB is an embedded similarity index over vector records.
//
// Writes are serialized through a single writer lock; reads never block and
// operate on immutable snapshots published by writers. During a rebuild,
// writes fail fast with ErrIndexUnavailable while reads keep serving the
// previous index.
type DB[T any] struct {
	cfg   dbConfig
	store *engine.Store[T]

	writeMu    sync.Mutex
	idx        atomic.Pointer[indexSlot]
	rebuilding atomic.Bool
	background sync.WaitGroup

	codec            codec.Codec
	compression      snapshot.Compression
	metrics          MetricsCollector
	logger           *Logger
	embedder         embedding.Embedder
	resources        *resource.Controller
	rebuildThreshold float64
	autoRebuild      bool
}

// newDB is the internal constructor shared by the builders and Load.
func newDB[T any](cfg dbConfig, optFns []Option) (*DB[T], error) {
	if cfg.dimension <= 0 {
		return nil, &ErrInvalidDimension{Dimension: cfg.dimension}
	}
	if !cfg.metric.Valid() {
		return nil, ErrMetricRequired
	}

	opts := applyOptions(optFns)

	store, err := engine.New[T](cfg.dimension, cfg.metric == metric.Cosine)
	if err != nil {
		return nil, translateError(err)
	}

	db := &DB[T]{
		cfg:              cfg,
		store:            store,
		codec:            opts.codec,
		compression:      opts.compression,
		metrics:          opts.metricsCollector,
		logger:           opts.logger,
		embedder:         opts.embedder,
		resources:        opts.resources,
		rebuildThreshold: opts.rebuildThreshold,
		autoRebuild:      opts.autoRebuild,
	}
	db.idx.Store(&indexSlot{newIndexFor(cfg, store.Vectors())})

	return db, nil
}

// newIndexFor builds an empty index for cfg. The index always ranks by dot
// product: the store pre-normalizes vectors when the metric is cosine.
func newIndexFor(cfg dbConfig, vectors smallworld.VectorReader) index.Index {
	switch cfg.indexKind {
	case IndexKindSmallWorld:
		return smallworld.New(vectors, smallworld.Options{
			M:              cfg.m,
			EFConstruction: cfg.efConstruction,
			EFSearch:       cfg.efSearch,
			Score:          metric.DotProduct,
		})
	default:
		return exact.New(vectors, exact.Options{Score: metric.DotProduct})
	}
}

func (db *DB[T]) index() index.Index {
	return db.idx.Load().Index
}

// recordOverheadBytes approximates the per-record bookkeeping cost beyond the
// vector data itself: ID string, payload slot and index node.
const recordOverheadBytes = 128

// recordBytes estimates the managed memory one record occupies, charged
// against the resource controller on insert and returned on delete.
func (db *DB[T]) recordBytes() int64 {
	bytes := int64(db.cfg.dimension) * 4
	if db.cfg.metric == metric.Cosine {
		// The store keeps the raw vector alongside the normalized copy.
		bytes *= 2
	}
	return bytes + recordOverheadBytes
}

// Dimension returns the vector dimensionality of the database.
func (db *DB[T]) Dimension() int { return db.cfg.dimension }

// Metric returns the similarity metric the database was built with.
func (db *DB[T]) Metric() metric.Metric { return db.cfg.metric }

// Kind returns the index kind backing the database.
func (db *DB[T]) Kind() IndexKind { return db.cfg.indexKind }

// Len returns the number of live records.
func (db *DB[T]) Len() int { return db.store.Len() }

// TombstoneRatio returns the fraction of index nodes that are tombstoned.
func (db *DB[T]) TombstoneRatio() float64 {
	return db.index().TombstoneRatio()
}

// Contains reports whether a live record exists under id.
func (db *DB[T]) Contains(id string) bool {
	return db.store.Contains(id)
}

// Get retrieves a record by ID. The returned vector is the one originally
// inserted, even when the metric normalizes vectors internally.
func (db *DB[T]) Get(id string) (Record[T], error) {
	rec, err := db.store.Get(id)
	return rec, translateError(err)
}

// Insert adds a vector record. If id is empty, a UUID is generated. The
// assigned ID is returned.
//
// Duplicate IDs are rejected with ErrDuplicateID; re-inserting after a
// delete is allowed and the record enters the index as a new node.
func (db *DB[T]) Insert(ctx context.Context, id string, vector []float32, payload T) (string, error) {
	start := time.Now()
	assigned, err := db.insert(ctx, id, vector, payload)
	duration := time.Since(start)
	db.metrics.RecordInsert(duration, err)
	db.logger.LogInsert(ctx, assigned, len(vector), err)
	return assigned, err
}

func (db *DB[T]) insert(ctx context.Context, id string, vector []float32, payload T) (string, error) {
	if db.rebuilding.Load() {
		return "", ErrIndexUnavailable
	}
	if err := db.resources.WaitIngest(ctx, 1); err != nil {
		return "", err
	}
	cost := db.recordBytes()
	if err := db.resources.AcquireMemory(ctx, cost); err != nil {
		return "", err
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	ref, assigned, err := db.store.Insert(id, vector, payload)
	if err != nil {
		db.resources.ReleaseMemory(cost)
		return "", translateError(err)
	}

	if err := db.index().Insert(ctx, ref); err != nil {
		// Roll back the store entry so the failed insert leaves no trace.
		_, _ = db.store.Delete(assigned)
		db.resources.ReleaseMemory(cost)
		return "", translateError(err)
	}

	return assigned, nil
}

// InsertText embeds text with the configured embedder and inserts the
// resulting vector. Requires WithEmbedder.
func (db *DB[T]) InsertText(ctx context.Context, id, text string, payload T) (string, error) {
	if db.embedder == nil {
		return "", ErrEmbedderRequired
	}

	vector, err := db.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("simvec: embed: %w", err)
	}

	return db.Insert(ctx, id, vector, payload)
}

// InsertItem is a single item of a batch insert.
type InsertItem[T any] struct {
	ID      string
	Vector  []float32
	Payload T
}

// BatchInsertResult reports the per-item outcome of a batch insert.
// IDs and Errors have one entry per input item; failed items carry an empty
// ID and a non-nil error.
type BatchInsertResult struct {
	IDs    []string
	Errors []error
}

// BatchInsert inserts multiple records. Items are applied independently in
// order; a failed item does not abort the batch.
func (db *DB[T]) BatchInsert(ctx context.Context, items []InsertItem[T]) BatchInsertResult {
	start := time.Now()
	result := BatchInsertResult{
		IDs:    make([]string, len(items)),
		Errors: make([]error, len(items)),
	}

	failed := 0
	for i, item := range items {
		assigned, err := db.insert(ctx, item.ID, item.Vector, item.Payload)
		if err != nil {
			result.Errors[i] = err
			failed++
			continue
		}
		result.IDs[i] = assigned
	}

	duration := time.Since(start)
	db.metrics.RecordBatchInsert(len(items), failed, duration)
	db.logger.LogBatchInsert(ctx, len(items), failed)
	return result
}

// Delete removes the record with the given ID. The underlying index node is
// tombstoned; when the tombstone ratio exceeds the rebuild threshold a
// background rebuild is scheduled (unless auto-rebuild is disabled).
func (db *DB[T]) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := db.delete(ctx, id)
	duration := time.Since(start)
	db.metrics.RecordDelete(duration, err)
	db.logger.LogDelete(ctx, id, err)
	if err == nil {
		db.maybeScheduleRebuild()
	}
	return err
}

func (db *DB[T]) delete(ctx context.Context, id string) error {
	if db.rebuilding.Load() {
		return ErrIndexUnavailable
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	ref, err := db.store.Delete(id)
	if err != nil {
		return translateError(err)
	}
	db.resources.ReleaseMemory(db.recordBytes())

	return translateError(db.index().Delete(ctx, ref))
}

// Rebuild compacts the index by constructing a fresh one from the live
// records and atomically swapping it in. Reads keep serving the old index
// until the swap; writes fail with ErrIndexUnavailable for the duration.
func (db *DB[T]) Rebuild(ctx context.Context) error {
	start := time.Now()
	err := db.rebuild(ctx)
	duration := time.Since(start)
	db.metrics.RecordRebuild(duration, err)
	db.logger.LogRebuild(ctx, db.store.Len(), db.TombstoneRatio(), err)
	return err
}

func (db *DB[T]) rebuild(ctx context.Context) error {
	if !db.rebuilding.CompareAndSwap(false, true) {
		return ErrIndexUnavailable
	}
	defer db.rebuilding.Store(false)

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	fresh := newIndexFor(db.cfg, db.store.Vectors())
	for _, ref := range db.store.Live() {
		if err := fresh.Insert(ctx, ref); err != nil {
			return translateError(err)
		}
	}

	db.idx.Store(&indexSlot{fresh})
	return nil
}

// maybeScheduleRebuild starts a background rebuild when the tombstone ratio
// exceeds the configured threshold.
func (db *DB[T]) maybeScheduleRebuild() {
	if !db.autoRebuild || db.rebuilding.Load() {
		return
	}
	if db.index().TombstoneRatio() <= db.rebuildThreshold {
		return
	}
	if !db.resources.TryAcquireRebuild() {
		return
	}

	db.background.Add(1)
	go func() {
		defer db.background.Done()
		defer db.resources.ReleaseRebuild()
		_ = db.Rebuild(context.Background())
	}()
}
