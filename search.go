// Package simvec provides an embedded embedding similarity index.
//
// This file implements a fluent search API for querying DB instances.
package simvec

import (
	"context"
	"fmt"
	"time"

	"github.com/simvec/simvec/index"
	"github.com/simvec/simvec/metric"
)

// SearchResult is a single search hit.
type SearchResult[T any] struct {
	// ID is the record identifier.
	ID string

	// Score is the similarity between the query and the record under the
	// database metric. Higher is more similar.
	Score float32

	// Payload is the data stored alongside the vector.
	Payload T
}

// FilterFunc decides whether a retrieved record may appear in search results.
// It runs over the k candidates after retrieval, so a filtered search returns
// a subset of what the unfiltered search would return.
type FilterFunc[T any] func(id string, payload T) bool

// Search creates a new fluent search builder for the given query vector.
//
// Example:
//
//	results, err := db.Search(query).
//	    KNN(10).
//	    EF(100).
//	    Execute(ctx)
func (db *DB[T]) Search(query []float32) *SearchBuilder[T] {
	return &SearchBuilder[T]{
		db:     db,
		query:  query,
		k:      10, // Default k
		ef:     0,  // Use index default
		metric: db.cfg.metric,
	}
}

// SearchText embeds text with the configured embedder and searches with the
// resulting vector. Requires WithEmbedder.
func (db *DB[T]) SearchText(ctx context.Context, text string) (*SearchBuilder[T], error) {
	if db.embedder == nil {
		return nil, ErrEmbedderRequired
	}

	query, err := db.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("simvec: embed: %w", err)
	}

	return db.Search(query), nil
}

// SearchBuilder is a fluent builder for constructing search queries.
type SearchBuilder[T any] struct {
	db     *DB[T]
	query  []float32
	k      int
	ef     int
	metric metric.Metric
	filter FilterFunc[T]
}

// KNN sets the number of nearest neighbors to return.
func (sb *SearchBuilder[T]) KNN(k int) *SearchBuilder[T] {
	sb.k = k
	return sb
}

// EF sets the exploration factor for approximate search.
// Higher values improve recall but slow down search. Values below k are
// raised to k. Ignored by the exact index.
func (sb *SearchBuilder[T]) EF(ef int) *SearchBuilder[T] {
	sb.ef = ef
	return sb
}

// Metric asserts the metric this query expects. Execute fails with
// ErrMetricMismatch if it differs from the metric the database was built
// with; queries cannot be rescored under a different metric.
func (sb *SearchBuilder[T]) Metric(m metric.Metric) *SearchBuilder[T] {
	sb.metric = m
	return sb
}

// Filter sets a predicate applied to the retrieved candidates. The index
// still returns its k nearest neighbors; records the predicate rejects are
// dropped from that set, so fewer than k results may come back.
func (sb *SearchBuilder[T]) Filter(fn FilterFunc[T]) *SearchBuilder[T] {
	sb.filter = fn
	return sb
}

// Execute runs the search and returns up to k results ordered by descending
// score, ties broken by insertion order.
//
// On context cancellation the results gathered so far are returned together
// with the context error.
func (sb *SearchBuilder[T]) Execute(ctx context.Context) ([]SearchResult[T], error) {
	start := time.Now()
	results, err := sb.execute(ctx)
	duration := time.Since(start)
	sb.db.metrics.RecordSearch(sb.k, duration, err)
	sb.db.logger.LogSearch(ctx, sb.k, len(results), err)
	return results, err
}

func (sb *SearchBuilder[T]) execute(ctx context.Context) ([]SearchResult[T], error) {
	db := sb.db

	if sb.k < 1 {
		return nil, ErrInvalidK
	}
	if sb.metric != db.cfg.metric {
		return nil, ErrMetricMismatch
	}
	if len(sb.query) != db.cfg.dimension {
		return nil, &ErrDimensionMismatch{Expected: db.cfg.dimension, Actual: len(sb.query)}
	}

	query := sb.query
	if db.cfg.metric == metric.Cosine {
		normalized, ok := metric.NormalizeL2Copy(query)
		if !ok {
			return nil, ErrDegenerateVector
		}
		query = normalized
	}

	opts := &index.SearchOptions{EF: sb.ef}

	hits, searchErr := db.index().Search(ctx, query, sb.k, opts)

	results := make([]SearchResult[T], 0, len(hits))
	for _, hit := range hits {
		id, ok := db.store.IDOf(hit.Ref)
		if !ok {
			// Index and store briefly disagree during concurrent deletes.
			continue
		}
		payload, _ := db.store.PayloadOf(hit.Ref)
		if sb.filter != nil && !sb.filter(id, payload) {
			continue
		}
		results = append(results, SearchResult[T]{
			ID:      id,
			Score:   hit.Score,
			Payload: payload,
		})
	}

	return results, translateError(searchErr)
}

// MustExecute runs the search, panicking on error.
// Use this only in tests or when you're certain the query is valid.
func (sb *SearchBuilder[T]) MustExecute(ctx context.Context) []SearchResult[T] {
	results, err := sb.Execute(ctx)
	if err != nil {
		panic(err)
	}
	return results
}

// First returns only the nearest result, or ErrNotFound if none matched.
func (sb *SearchBuilder[T]) First(ctx context.Context) (SearchResult[T], error) {
	sb.k = 1
	results, err := sb.Execute(ctx)
	if err != nil {
		return SearchResult[T]{}, err
	}
	if len(results) == 0 {
		return SearchResult[T]{}, ErrNotFound
	}
	return results[0], nil
}

// Exists reports whether at least one result matches the search.
func (sb *SearchBuilder[T]) Exists(ctx context.Context) (bool, error) {
	sb.k = 1
	results, err := sb.Execute(ctx)
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}
