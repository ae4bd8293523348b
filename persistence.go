package simvec

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/simvec/simvec/blobstore"
	"github.com/simvec/simvec/metric"
	"github.com/simvec/simvec/snapshot"
)

// SaveToWriter writes a snapshot of the database to w.
//
// The snapshot is self-describing: it records the codec, compression, metric
// and index parameters so Load can reconstruct an equivalent database
// without out-of-band configuration. Records are written in insertion order.
func (db *DB[T]) SaveToWriter(ctx context.Context, w io.Writer) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	header := snapshot.Header{
		Dimension:      db.cfg.dimension,
		Metric:         db.cfg.metric.String(),
		Index:          string(db.cfg.indexKind),
		M:              db.cfg.m,
		EFConstruction: db.cfg.efConstruction,
		EFSearch:       db.cfg.efSearch,
		Count:          db.store.Len(),
		CreatedAt:      time.Now().Unix(),
	}

	records := make([]snapshot.Record[T], 0, header.Count)
	db.store.Each(func(_ uint32, rec Record[T]) bool {
		records = append(records, snapshot.Record[T]{
			ID:      rec.ID,
			Vector:  rec.Vector,
			Payload: rec.Payload,
		})
		return ctx.Err() == nil
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	err := snapshot.Write(w, db.codec, db.compression, header, records)
	db.logger.LogSnapshot(ctx, "", header.Count, err)
	return err
}

// SaveToFile writes a snapshot to a file. The file is written to a temporary
// sibling and renamed into place so readers never observe a partial snapshot.
func (db *DB[T]) SaveToFile(ctx context.Context, filename string) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".tmp-snapshot-*")
	if err != nil {
		return fmt.Errorf("simvec: create snapshot file: %w", err)
	}
	tmpName := tmp.Name()

	if err := db.SaveToWriter(ctx, tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("simvec: close snapshot file: %w", err)
	}

	if err := os.Rename(tmpName, filename); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("simvec: publish snapshot file: %w", err)
	}

	return nil
}

// SaveToBlob writes a snapshot to a blob store under the given name.
func (db *DB[T]) SaveToBlob(ctx context.Context, store blobstore.Store, name string) error {
	pr, pw := io.Pipe()

	done := make(chan error, 1)
	go func() {
		err := db.SaveToWriter(ctx, pw)
		_ = pw.CloseWithError(err)
		done <- err
	}()

	if err := store.Put(ctx, name, pr); err != nil {
		_ = pr.CloseWithError(err)
		<-done
		return err
	}

	return <-done
}

// Load reconstructs a database from a snapshot produced by SaveToWriter.
//
// The metric, index kind and index parameters are taken from the snapshot
// header; options only affect ambient behavior (logging, metrics, codec for
// subsequent saves).
func Load[T any](ctx context.Context, r io.Reader, optFns ...Option) (*DB[T], error) {
	header, records, err := snapshot.Read[T](r)
	if err != nil {
		return nil, err
	}

	m, err := metric.Parse(header.Metric)
	if err != nil {
		return nil, err
	}
	kind, err := ParseIndexKind(header.Index)
	if err != nil {
		return nil, err
	}

	db, err := newDB[T](dbConfig{
		dimension:      header.Dimension,
		metric:         m,
		indexKind:      kind,
		m:              header.M,
		efConstruction: header.EFConstruction,
		efSearch:       header.EFSearch,
	}, optFns)
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if _, err := db.insert(ctx, rec.ID, rec.Vector, rec.Payload); err != nil {
			return nil, fmt.Errorf("simvec: restore record %q: %w", rec.ID, err)
		}
	}

	return db, nil
}

// LoadFromFile reconstructs a database from a snapshot file.
func LoadFromFile[T any](ctx context.Context, filename string, optFns ...Option) (*DB[T], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("simvec: open snapshot file: %w", err)
	}
	defer f.Close()

	return Load[T](ctx, f, optFns...)
}

// LoadFromBlob reconstructs a database from a snapshot stored in a blob
// store under the given name.
func LoadFromBlob[T any](ctx context.Context, store blobstore.Store, name string, optFns ...Option) (*DB[T], error) {
	rc, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return Load[T](ctx, rc, optFns...)
}
