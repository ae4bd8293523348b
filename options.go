package simvec

import (
	"log/slog"

	"github.com/simvec/simvec/codec"
	"github.com/simvec/simvec/embedding"
	"github.com/simvec/simvec/resource"
	"github.com/simvec/simvec/snapshot"
)

type options struct {
	codec            codec.Codec
	compression      snapshot.Compression
	metricsCollector MetricsCollector
	logger           *Logger
	embedder         embedding.Embedder
	resources        *resource.Controller
	rebuildThreshold float64
	autoRebuild      bool
}

// Option configures DB constructor/load behavior.
type Option func(*options)

// WithCodec configures the codec used for snapshot headers and records.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures the compression applied to snapshot bodies.
func WithCompression(c snapshot.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &simvec.BasicMetricsCollector{}
//	db, _ := simvec.SmallWorld[string](128).Cosine().
//	    Options(simvec.WithMetricsCollector(metrics)).Build()
//	// ... use db ...
//	stats := metrics.GetStats()
//	fmt.Printf("Inserts: %d, Avg latency: %dns\n", stats.InsertCount, stats.InsertAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := simvec.NewJSONLogger(slog.LevelInfo)
//	db, _ := simvec.Exact[string](128).Dot().
//	    Options(simvec.WithLogger(logger)).Build()
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithEmbedder configures a text embedder, enabling InsertText and SearchText.
func WithEmbedder(e embedding.Embedder) Option {
	return func(o *options) {
		o.embedder = e
	}
}

// WithResources configures a resource controller that bounds memory usage,
// ingest rate and concurrent background rebuilds.
func WithResources(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithRebuildThreshold sets the tombstone ratio above which a background
// rebuild is triggered after a delete. Values outside (0, 1) are ignored.
func WithRebuildThreshold(ratio float64) Option {
	return func(o *options) {
		if ratio > 0 && ratio < 1 {
			o.rebuildThreshold = ratio
		}
	}
}

// WithAutoRebuild enables or disables automatic background rebuilds when the
// tombstone ratio exceeds the rebuild threshold.
func WithAutoRebuild(enabled bool) Option {
	return func(o *options) {
		o.autoRebuild = enabled
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		compression:      snapshot.Zstd,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		rebuildThreshold: DefaultRebuildThreshold,
		autoRebuild:      true,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
