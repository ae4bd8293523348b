package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simvec/simvec/index"
	"github.com/simvec/simvec/metric"
)

func TestStoreInsertGet(t *testing.T) {
	s, err := New[string](3, false)
	require.NoError(t, err)

	ref, id, err := s.Insert("a", []float32{1, 2, 3}, "payload-a")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), ref)
	assert.Equal(t, "a", id)

	rec, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", rec.ID)
	assert.Equal(t, []float32{1, 2, 3}, rec.Vector)
	assert.Equal(t, "payload-a", rec.Payload)

	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Contains("a"))
}

func TestStoreGeneratedID(t *testing.T) {
	s, err := New[struct{}](2, false)
	require.NoError(t, err)

	_, id, err := s.Insert("", []float32{1, 0}, struct{}{})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.True(t, s.Contains(id))
}

func TestStoreDuplicateID(t *testing.T) {
	s, err := New[int](2, false)
	require.NoError(t, err)

	_, _, err = s.Insert("a", []float32{1, 0}, 1)
	require.NoError(t, err)

	_, _, err = s.Insert("a", []float32{0, 1}, 2)
	var dupErr *DuplicateIDError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "a", dupErr.ID)

	// The original record is untouched.
	rec, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Payload)
}

func TestStoreDimensionMismatch(t *testing.T) {
	s, err := New[int](3, false)
	require.NoError(t, err)

	_, _, err = s.Insert("a", []float32{1, 2}, 0)
	var dimErr *index.DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Actual)
}

func TestStoreDeleteReinsert(t *testing.T) {
	s, err := New[int](2, false)
	require.NoError(t, err)

	ref0, _, err := s.Insert("a", []float32{1, 0}, 1)
	require.NoError(t, err)

	gone, err := s.Delete("a")
	require.NoError(t, err)
	assert.Equal(t, ref0, gone)
	assert.Equal(t, 0, s.Len())

	_, err = s.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Delete("a")
	assert.ErrorIs(t, err, ErrNotFound)

	// Same ID gets a fresh reference.
	ref1, _, err := s.Insert("a", []float32{0, 1}, 2)
	require.NoError(t, err)
	assert.NotEqual(t, ref0, ref1)

	rec, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Payload)
}

func TestStoreNormalize(t *testing.T) {
	s, err := New[struct{}](2, true)
	require.NoError(t, err)

	ref, _, err := s.Insert("a", []float32{3, 4}, struct{}{})
	require.NoError(t, err)

	// Retrieval round-trips the original vector.
	rec, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, rec.Vector)

	// Scoring storage holds the unit vector.
	v, ok := s.Vectors().Vector(ref)
	require.True(t, ok)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	_, _, err = s.Insert("zero", []float32{0, 0}, struct{}{})
	assert.ErrorIs(t, err, metric.ErrDegenerateVector)
}

func TestStoreInsertCopiesVector(t *testing.T) {
	s, err := New[struct{}](2, false)
	require.NoError(t, err)

	v := []float32{1, 2}
	_, _, err = s.Insert("a", v, struct{}{})
	require.NoError(t, err)

	v[0] = 99
	rec, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, rec.Vector)
}

func TestStoreRefLookups(t *testing.T) {
	s, err := New[string](2, false)
	require.NoError(t, err)

	ref, _, err := s.Insert("a", []float32{1, 0}, "pa")
	require.NoError(t, err)

	id, ok := s.IDOf(ref)
	require.True(t, ok)
	assert.Equal(t, "a", id)

	p, ok := s.PayloadOf(ref)
	require.True(t, ok)
	assert.Equal(t, "pa", p)

	_, ok = s.IDOf(99)
	assert.False(t, ok)
}

func TestStoreLiveAndEach(t *testing.T) {
	s, err := New[int](2, false)
	require.NoError(t, err)

	for i, id := range []string{"a", "b", "c"} {
		_, _, err := s.Insert(id, []float32{float32(i), 0}, i)
		require.NoError(t, err)
	}
	_, err = s.Delete("b")
	require.NoError(t, err)

	assert.Equal(t, []uint32{0, 2}, s.Live())

	var ids []string
	s.Each(func(_ uint32, rec Record[int]) bool {
		ids = append(ids, rec.ID)
		return true
	})
	assert.Equal(t, []string{"a", "c"}, ids)
}
