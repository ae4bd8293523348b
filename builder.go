// Package simvec provides an embedded embedding similarity index.
//
// This file implements index-specific fluent builder APIs for creating and
// configuring DB instances. Builders are immutable - each method returns a
// new builder with the updated configuration.
package simvec

import (
	"github.com/simvec/simvec/codec"
	"github.com/simvec/simvec/index/smallworld"
	"github.com/simvec/simvec/metric"
)

// =============================================================================
// SmallWorld Builder (Immutable)
// =============================================================================

// SmallWorld creates a new navigable small-world index builder with the
// specified dimension. SmallWorld provides fast approximate nearest neighbor
// search in memory.
//
// The builder is immutable - each method returns a new builder with the
// updated configuration. This ensures thread-safety and prevents accidental
// state sharing.
//
// A similarity metric must be selected via Dot or Cosine before Build.
//
// Example:
//
//	db, err := simvec.SmallWorld[string](128).
//	    Cosine().
//	    M(32).
//	    EFConstruction(200).
//	    Build()
func SmallWorld[T any](dimension int) SmallWorldBuilder[T] {
	return SmallWorldBuilder[T]{
		dimension:      dimension,
		m:              smallworld.DefaultM,
		efConstruction: smallworld.DefaultEFConstruction,
		efSearch:       smallworld.DefaultEFSearch,
	}
}

// SmallWorldBuilder is an immutable fluent builder for creating
// SmallWorld-based DB instances. Each method returns a new builder with the
// updated configuration.
type SmallWorldBuilder[T any] struct {
	dimension      int
	metric         metric.Metric
	m              int
	efConstruction int
	efSearch       int
	codec          codec.Codec
	logger         *Logger
	metrics        MetricsCollector
	extraOpts      []Option
}

// Dot sets the similarity metric to dot product (inner product).
func (b SmallWorldBuilder[T]) Dot() SmallWorldBuilder[T] {
	b.metric = metric.Dot
	return b
}

// Cosine sets the similarity metric to cosine similarity.
// Vectors are L2-normalized on insert; zero vectors are rejected.
func (b SmallWorldBuilder[T]) Cosine() SmallWorldBuilder[T] {
	b.metric = metric.Cosine
	return b
}

// M sets the maximum number of neighbors per node.
// Higher values improve recall but increase memory usage.
// Default: 16. Recommended range: 8-64.
func (b SmallWorldBuilder[T]) M(m int) SmallWorldBuilder[T] {
	b.m = m
	return b
}

// EFConstruction sets the exploration factor used during index construction.
// Higher values improve graph quality but slow down indexing.
// Default: 128. Recommended range: 100-500.
//
// Note: This is different from search-time EF, which is set via Search().EF().
func (b SmallWorldBuilder[T]) EFConstruction(ef int) SmallWorldBuilder[T] {
	b.efConstruction = ef
	return b
}

// EFSearch sets the default search-time exploration factor.
// Individual queries can override it via Search().EF().
// Default: 64.
func (b SmallWorldBuilder[T]) EFSearch(ef int) SmallWorldBuilder[T] {
	b.efSearch = ef
	return b
}

// Logger sets the structured logger for operation tracing.
func (b SmallWorldBuilder[T]) Logger(l *Logger) SmallWorldBuilder[T] {
	b.logger = l
	return b
}

// Metrics sets the metrics collector for monitoring.
func (b SmallWorldBuilder[T]) Metrics(mc MetricsCollector) SmallWorldBuilder[T] {
	b.metrics = mc
	return b
}

// Codec sets the codec for snapshot serialization.
func (b SmallWorldBuilder[T]) Codec(c codec.Codec) SmallWorldBuilder[T] {
	b.codec = c
	return b
}

// Options appends additional DB options (embedder, resources, compression,
// rebuild behavior).
func (b SmallWorldBuilder[T]) Options(optFns ...Option) SmallWorldBuilder[T] {
	opts := make([]Option, 0, len(b.extraOpts)+len(optFns))
	opts = append(opts, b.extraOpts...)
	opts = append(opts, optFns...)
	b.extraOpts = opts
	return b
}

// Build creates the SmallWorld-based DB instance.
func (b SmallWorldBuilder[T]) Build() (*DB[T], error) {
	opts := b.extraOpts
	if b.codec != nil {
		opts = append(opts, WithCodec(b.codec))
	}
	if b.logger != nil {
		opts = append(opts, WithLogger(b.logger))
	}
	if b.metrics != nil {
		opts = append(opts, WithMetricsCollector(b.metrics))
	}

	return newDB[T](dbConfig{
		dimension:      b.dimension,
		metric:         b.metric,
		indexKind:      IndexKindSmallWorld,
		m:              b.m,
		efConstruction: b.efConstruction,
		efSearch:       b.efSearch,
	}, opts)
}

// MustBuild creates the DB instance, panicking on error.
func (b SmallWorldBuilder[T]) MustBuild() *DB[T] {
	db, err := b.Build()
	if err != nil {
		panic(err)
	}
	return db
}

// =============================================================================
// Exact Builder (Immutable)
// =============================================================================

// Exact creates a new exact index builder with the specified dimension.
// Exact provides exact nearest neighbor search by exhaustive comparison.
//
// The builder is immutable - each method returns a new builder with the
// updated configuration.
//
// Example:
//
//	db, err := simvec.Exact[string](128).
//	    Dot().
//	    Build()
func Exact[T any](dimension int) ExactBuilder[T] {
	return ExactBuilder[T]{
		dimension: dimension,
	}
}

// ExactBuilder is an immutable fluent builder for creating Exact-based DB
// instances. Each method returns a new builder with the updated configuration.
type ExactBuilder[T any] struct {
	dimension int
	metric    metric.Metric
	codec     codec.Codec
	logger    *Logger
	metrics   MetricsCollector
	extraOpts []Option
}

// Dot sets the similarity metric to dot product (inner product).
func (b ExactBuilder[T]) Dot() ExactBuilder[T] {
	b.metric = metric.Dot
	return b
}

// Cosine sets the similarity metric to cosine similarity.
// Vectors are L2-normalized on insert; zero vectors are rejected.
func (b ExactBuilder[T]) Cosine() ExactBuilder[T] {
	b.metric = metric.Cosine
	return b
}

// Logger sets the structured logger for operation tracing.
func (b ExactBuilder[T]) Logger(l *Logger) ExactBuilder[T] {
	b.logger = l
	return b
}

// Metrics sets the metrics collector for monitoring.
func (b ExactBuilder[T]) Metrics(mc MetricsCollector) ExactBuilder[T] {
	b.metrics = mc
	return b
}

// Codec sets the codec for snapshot serialization.
func (b ExactBuilder[T]) Codec(c codec.Codec) ExactBuilder[T] {
	b.codec = c
	return b
}

// Options appends additional DB options (embedder, resources, compression,
// rebuild behavior).
func (b ExactBuilder[T]) Options(optFns ...Option) ExactBuilder[T] {
	opts := make([]Option, 0, len(b.extraOpts)+len(optFns))
	opts = append(opts, b.extraOpts...)
	opts = append(opts, optFns...)
	b.extraOpts = opts
	return b
}

// Build creates the Exact-based DB instance.
func (b ExactBuilder[T]) Build() (*DB[T], error) {
	opts := b.extraOpts
	if b.codec != nil {
		opts = append(opts, WithCodec(b.codec))
	}
	if b.logger != nil {
		opts = append(opts, WithLogger(b.logger))
	}
	if b.metrics != nil {
		opts = append(opts, WithMetricsCollector(b.metrics))
	}

	return newDB[T](dbConfig{
		dimension: b.dimension,
		metric:    b.metric,
		indexKind: IndexKindExact,
	}, opts)
}

// MustBuild creates the DB instance, panicking on error.
func (b ExactBuilder[T]) MustBuild() *DB[T] {
	db, err := b.Build()
	if err != nil {
		panic(err)
	}
	return db
}
