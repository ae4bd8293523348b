package exact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simvec/simvec/index"
	"github.com/simvec/simvec/vectorstore"
)

func newTestIndex(t *testing.T, dim int, vecs ...[]float32) (*Exact, *vectorstore.Columnar) {
	t.Helper()

	store, err := vectorstore.New(dim)
	require.NoError(t, err)

	idx := New(store, Options{})
	for _, v := range vecs {
		ref, err := store.Append(v)
		require.NoError(t, err)
		require.NoError(t, idx.Insert(context.Background(), ref))
	}

	return idx, store
}

func TestExactSearchOrdering(t *testing.T) {
	idx, _ := newTestIndex(t, 2,
		[]float32{1, 0},   // ref 0
		[]float32{0, 1},   // ref 1
		[]float32{0.5, 0}, // ref 2
	)

	results, err := idx.Search(context.Background(), []float32{1, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, uint32(0), results[0].Ref)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, uint32(2), results[1].Ref)
	assert.Equal(t, uint32(1), results[2].Ref)
}

func TestExactTieBreak(t *testing.T) {
	// Three identical vectors; ranking must come back in insertion order.
	idx, _ := newTestIndex(t, 2,
		[]float32{1, 1},
		[]float32{1, 1},
		[]float32{1, 1},
	)

	results, err := idx.Search(context.Background(), []float32{1, 1}, 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, uint32(0), results[0].Ref)
	assert.Equal(t, uint32(1), results[1].Ref)
	assert.Equal(t, uint32(2), results[2].Ref)
}

func TestExactKLargerThanIndex(t *testing.T) {
	idx, _ := newTestIndex(t, 2, []float32{1, 0}, []float32{0, 1})

	results, err := idx.Search(context.Background(), []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestExactInvalidK(t *testing.T) {
	idx, _ := newTestIndex(t, 2, []float32{1, 0})

	_, err := idx.Search(context.Background(), []float32{1, 0}, 0, nil)
	assert.ErrorIs(t, err, index.ErrInvalidK)

	_, err = idx.Search(context.Background(), []float32{1, 0}, -3, nil)
	assert.ErrorIs(t, err, index.ErrInvalidK)
}

func TestExactDimensionMismatch(t *testing.T) {
	idx, _ := newTestIndex(t, 2, []float32{1, 0})

	_, err := idx.Search(context.Background(), []float32{1, 0, 0}, 1, nil)

	var dimErr *index.DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 2, dimErr.Expected)
	assert.Equal(t, 3, dimErr.Actual)
}

func TestExactDelete(t *testing.T) {
	idx, _ := newTestIndex(t, 2, []float32{1, 0}, []float32{0, 1})

	require.NoError(t, idx.Delete(context.Background(), 0))
	assert.Equal(t, 1, idx.Len())

	results, err := idx.Search(context.Background(), []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint32(1), results[0].Ref)

	assert.ErrorIs(t, idx.Delete(context.Background(), 0), index.ErrRefNotFound)
	assert.ErrorIs(t, idx.Delete(context.Background(), 42), index.ErrRefNotFound)
}

func TestExactFilter(t *testing.T) {
	idx, _ := newTestIndex(t, 2,
		[]float32{1, 0},
		[]float32{0.9, 0},
		[]float32{0.8, 0},
	)

	opts := &index.SearchOptions{Filter: func(ref uint32) bool { return ref%2 == 0 }}
	results, err := idx.Search(context.Background(), []float32{1, 0}, 3, opts)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint32(0), results[0].Ref)
	assert.Equal(t, uint32(2), results[1].Ref)
}

func TestExactEmptyIndex(t *testing.T) {
	store, err := vectorstore.New(2)
	require.NoError(t, err)
	idx := New(store, Options{})

	results, err := idx.Search(context.Background(), []float32{1, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, idx.Len())
	assert.Zero(t, idx.TombstoneRatio())
}

func TestExactCancelledContext(t *testing.T) {
	idx, _ := newTestIndex(t, 2, []float32{1, 0}, []float32{0, 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := idx.Search(ctx, []float32{1, 0}, 2, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}
