// Package index defines the contract shared by all vector indexes.
//
// Indexes operate on uint32 record references assigned by the record store.
// They never hold vector data themselves; vectors are resolved through a
// VectorReader at search and link time.
package index

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidK is returned when a search requests fewer than one neighbor.
var ErrInvalidK = errors.New("index: k must be at least 1")

// ErrRefNotFound is returned when an operation targets a reference that is
// not live in the index.
var ErrRefNotFound = errors.New("index: reference not found")

// DimensionMismatchError is returned when a query vector does not match the
// index dimensionality.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("index: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// VectorReader resolves record references to vectors.
type VectorReader interface {
	// Vector returns the vector stored under ref. It reports false when ref
	// is unknown or deleted.
	Vector(ref uint32) ([]float32, bool)

	// Dimension returns the vector dimensionality.
	Dimension() int
}

// SearchResult is a single ranked match.
type SearchResult struct {
	Ref   uint32  // record reference
	Score float32 // similarity score, higher is better
}

// SearchOptions tunes a single search. A nil *SearchOptions means defaults.
type SearchOptions struct {
	// EF is the beam width for graph-based indexes. Values below k are
	// raised to k. Zero means the index default.
	EF int

	// Filter restricts results to references for which it returns true. A
	// nil filter admits everything.
	Filter func(ref uint32) bool
}

// Index is a similarity index over record references.
//
// Implementations serialize their own writes; reads may run concurrently
// with writes and with each other.
type Index interface {
	// Insert links ref into the index. The reference must resolve through
	// the index's VectorReader at call time.
	Insert(ctx context.Context, ref uint32) error

	// Delete removes ref from the index. Depending on the implementation
	// this may be a tombstone rather than a physical removal.
	Delete(ctx context.Context, ref uint32) error

	// Search returns up to k references ranked by descending similarity to
	// query. Ties are broken by ascending reference. When ctx is cancelled
	// mid-search, the results collected so far are returned along with the
	// context error.
	Search(ctx context.Context, query []float32, k int, opts *SearchOptions) ([]SearchResult, error)

	// Len returns the number of live references.
	Len() int

	// TombstoneRatio returns the fraction of logically deleted entries the
	// index still carries. Indexes that remove entries physically report 0.
	TombstoneRatio() float64
}
