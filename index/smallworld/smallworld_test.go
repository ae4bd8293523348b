package smallworld

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simvec/simvec/index"
	"github.com/simvec/simvec/index/exact"
	"github.com/simvec/simvec/vectorstore"
)

func newTestIndex(t *testing.T, dim int, opts Options, vecs ...[]float32) (*SmallWorld, *vectorstore.Columnar) {
	t.Helper()

	store, err := vectorstore.New(dim)
	require.NoError(t, err)

	idx := New(store, opts)
	for _, v := range vecs {
		ref, err := store.Append(v)
		require.NoError(t, err)
		require.NoError(t, idx.Insert(context.Background(), ref))
	}

	return idx, store
}

func TestSmallWorldDefaults(t *testing.T) {
	store, err := vectorstore.New(2)
	require.NoError(t, err)

	idx := New(store, Options{})
	assert.Equal(t, DefaultM, idx.M())
	assert.Equal(t, DefaultEFConstruction, idx.EFConstruction())
	assert.Equal(t, DefaultEFSearch, idx.EFSearch())
	assert.Equal(t, 0, idx.Len())
	assert.Zero(t, idx.TombstoneRatio())
}

func TestSmallWorldBasicSearch(t *testing.T) {
	idx, _ := newTestIndex(t, 2, Options{},
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

func TestSmallWorldTieBreak(t *testing.T) {
	idx, _ := newTestIndex(t, 2, Options{},
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

func TestSmallWorldInvalidInput(t *testing.T) {
	idx, _ := newTestIndex(t, 2, Options{}, []float32{1, 0})

	_, err := idx.Search(context.Background(), []float32{1, 0}, 0, nil)
	assert.ErrorIs(t, err, index.ErrInvalidK)

	_, err = idx.Search(context.Background(), []float32{1}, 1, nil)
	var dimErr *index.DimensionMismatchError
	assert.ErrorAs(t, err, &dimErr)
}

func TestSmallWorldInsertMissingVector(t *testing.T) {
	store, err := vectorstore.New(2)
	require.NoError(t, err)

	idx := New(store, Options{})
	err = idx.Insert(context.Background(), 7)
	assert.ErrorIs(t, err, index.ErrRefNotFound)
}

func TestSmallWorldDelete(t *testing.T) {
	idx, _ := newTestIndex(t, 2, Options{},
		[]float32{1, 0},
		[]float32{0.9, 0.1},
		[]float32{0, 1},
	)

	require.NoError(t, idx.Delete(context.Background(), 0))
	assert.Equal(t, 2, idx.Len())
	assert.InDelta(t, 1.0/3.0, idx.TombstoneRatio(), 1e-9)

	// Tombstoned node must not appear, even as entry point.
	results, err := idx.Search(context.Background(), []float32{1, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint32(1), results[0].Ref)
	assert.Equal(t, uint32(2), results[1].Ref)

	assert.ErrorIs(t, idx.Delete(context.Background(), 0), index.ErrRefNotFound)
	assert.ErrorIs(t, idx.Delete(context.Background(), 99), index.ErrRefNotFound)
}

func TestSmallWorldRoutesThroughTombstones(t *testing.T) {
	// Chain-like data: deleting intermediate nodes must not cut off the rest.
	var vecs [][]float32
	for i := 0; i < 20; i++ {
		vecs = append(vecs, []float32{float32(i), 1})
	}
	idx, _ := newTestIndex(t, 2, Options{M: 2, EFConstruction: 4, EFSearch: 32}, vecs...)

	for ref := uint32(5); ref < 15; ref++ {
		require.NoError(t, idx.Delete(context.Background(), ref))
	}

	results, err := idx.Search(context.Background(), []float32{19, 1}, 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, uint32(19), results[0].Ref)
}

func TestSmallWorldFilter(t *testing.T) {
	idx, _ := newTestIndex(t, 2, Options{},
		[]float32{1, 0},
		[]float32{0.9, 0},
		[]float32{0.8, 0},
	)

	opts := &index.SearchOptions{Filter: func(ref uint32) bool { return ref != 0 }}
	results, err := idx.Search(context.Background(), []float32{1, 0}, 3, opts)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint32(1), results[0].Ref)
	assert.Equal(t, uint32(2), results[1].Ref)
}

func TestSmallWorldEmpty(t *testing.T) {
	store, err := vectorstore.New(2)
	require.NoError(t, err)
	idx := New(store, Options{})

	results, err := idx.Search(context.Background(), []float32{1, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSmallWorldCancelledContext(t *testing.T) {
	idx, _ := newTestIndex(t, 2, Options{}, []float32{1, 0}, []float32{0, 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Search(ctx, []float32{1, 0}, 2, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSmallWorldRecallAgainstOracle(t *testing.T) {
	const (
		n       = 1000
		dim     = 16
		k       = 10
		queries = 20
	)

	rng := rand.New(rand.NewSource(42))
	randomVec := func() []float32 {
		v := make([]float32, dim)
		for i := range v {
			v[i] = rng.Float32()*2 - 1
		}
		return v
	}

	store, err := vectorstore.New(dim)
	require.NoError(t, err)

	approx := New(store, Options{M: 16, EFConstruction: 128, EFSearch: 128})
	oracle := exact.New(store, exact.Options{})

	for i := 0; i < n; i++ {
		ref, err := store.Append(randomVec())
		require.NoError(t, err)
		require.NoError(t, approx.Insert(context.Background(), ref))
		require.NoError(t, oracle.Insert(context.Background(), ref))
	}

	hits, total := 0, 0
	for q := 0; q < queries; q++ {
		query := randomVec()

		want, err := oracle.Search(context.Background(), query, k, nil)
		require.NoError(t, err)
		got, err := approx.Search(context.Background(), query, k, nil)
		require.NoError(t, err)

		wantRefs := make(map[uint32]struct{}, len(want))
		for _, r := range want {
			wantRefs[r.Ref] = struct{}{}
		}
		for _, r := range got {
			if _, ok := wantRefs[r.Ref]; ok {
				hits++
			}
		}
		total += len(want)
	}

	recall := float64(hits) / float64(total)
	assert.GreaterOrEqual(t, recall, 0.9, "recall@%d = %.3f", k, recall)
}

func TestSmallWorldStats(t *testing.T) {
	idx, _ := newTestIndex(t, 2, Options{M: 4},
		[]float32{1, 0},
		[]float32{0, 1},
		[]float32{1, 1},
	)
	require.NoError(t, idx.Delete(context.Background(), 1))

	st := idx.Stats()
	assert.Equal(t, 3, st.Nodes)
	assert.Equal(t, 2, st.Live)
	assert.Equal(t, 1, st.Tombstones)
	assert.Greater(t, st.AvgDegree, 0.0)
	assert.LessOrEqual(t, st.MaxDegree, 4)
}
