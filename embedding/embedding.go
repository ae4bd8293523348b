// Package embedding turns text into vectors so that callers can ingest and
// query documents without computing embeddings themselves.
package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"golang.org/x/sync/errgroup"
)

// Embedder produces a vector for a piece of text.
type Embedder interface {
	// Embed returns the embedding of text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the dimensionality of produced vectors.
	Dimension() int
}

// Func adapts a function to the Embedder interface.
type Func struct {
	Dim int
	Fn  func(ctx context.Context, text string) ([]float32, error)
}

// Embed calls the wrapped function.
func (f Func) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.Fn(ctx, text)
}

// Dimension returns the configured dimensionality.
func (f Func) Dimension() int { return f.Dim }

// Batch embeds texts concurrently, preserving input order. concurrency
// bounds the number of in-flight requests; values below 1 mean sequential.
func Batch(ctx context.Context, e Embedder, texts []string, concurrency int) ([][]float32, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	vectors := make([][]float32, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, text := range texts {
		g.Go(func() error {
			v, err := e.Embed(ctx, text)
			if err != nil {
				return fmt.Errorf("embedding: text %d: %w", i, err)
			}
			vectors[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Mock is a deterministic embedder for tests. The same text always yields
// the same unit vector.
type Mock struct {
	Dim int
}

// Embed hashes text into a deterministic unit vector.
func (m Mock) Embed(_ context.Context, text string) ([]float32, error) {
	if m.Dim < 1 {
		return nil, fmt.Errorf("embedding: mock dimension must be positive, got %d", m.Dim)
	}

	v := make([]float32, m.Dim)
	var norm float64

	for i := range v {
		h := fnv.New64a()
		h.Write([]byte(text))
		h.Write([]byte{byte(i), byte(i >> 8)})
		x := float64(h.Sum64()%2000)/1000 - 1
		v[i] = float32(x)
		norm += x * x
	}

	if norm == 0 {
		v[0] = 1
		return v, nil
	}

	inv := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= inv
	}
	return v, nil
}

// Dimension returns the configured dimensionality.
func (m Mock) Dimension() int { return m.Dim }
