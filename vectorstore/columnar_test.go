package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnarAppendGet(t *testing.T) {
	s, err := New(3)
	require.NoError(t, err)

	ref0, err := s.Append([]float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), ref0)

	ref1, err := s.Append([]float32{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), ref1)

	v, ok := s.Vector(ref0)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)

	v, ok = s.Vector(ref1)
	require.True(t, ok)
	assert.Equal(t, []float32{4, 5, 6}, v)

	_, ok = s.Vector(99)
	assert.False(t, ok)

	assert.Equal(t, 2, s.Count())
	assert.Equal(t, 2, s.Live())
	assert.Equal(t, 3, s.Dimension())
}

func TestColumnarDimensionValidation(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)

	s, err := New(2)
	require.NoError(t, err)

	_, err = s.Append([]float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrWrongDimension)
}

func TestColumnarDelete(t *testing.T) {
	s, err := New(2)
	require.NoError(t, err)

	ref, err := s.Append([]float32{1, 2})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ref))
	assert.True(t, s.IsDeleted(ref))
	assert.Equal(t, 0, s.Live())
	assert.Equal(t, 1, s.Count())

	_, ok := s.Vector(ref)
	assert.False(t, ok)

	// Idempotent.
	require.NoError(t, s.Delete(ref))
	assert.Equal(t, 0, s.Live())

	assert.ErrorIs(t, s.Delete(5), ErrOutOfBounds)
}

func TestColumnarRefsNotReused(t *testing.T) {
	s, err := New(1)
	require.NoError(t, err)

	ref0, _ := s.Append([]float32{1})
	require.NoError(t, s.Delete(ref0))

	ref1, err := s.Append([]float32{2})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), ref1)
}

func TestColumnarIterate(t *testing.T) {
	s, err := New(2)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := s.Append([]float32{float32(i), float32(i)})
		require.NoError(t, err)
	}
	require.NoError(t, s.Delete(2))

	var refs []uint32
	s.Iterate(func(ref uint32, vec []float32) bool {
		refs = append(refs, ref)
		assert.Equal(t, float32(ref), vec[0])
		return true
	})
	assert.Equal(t, []uint32{0, 1, 3, 4}, refs)

	var stopped []uint32
	s.Iterate(func(ref uint32, _ []float32) bool {
		stopped = append(stopped, ref)
		return len(stopped) < 2
	})
	assert.Equal(t, []uint32{0, 1}, stopped)
}

func TestColumnarGrowth(t *testing.T) {
	s, err := New(4)
	require.NoError(t, err)

	const n = 3000
	for i := 0; i < n; i++ {
		_, err := s.Append([]float32{float32(i), 0, 0, 0})
		require.NoError(t, err)
	}

	v, ok := s.Vector(n - 1)
	require.True(t, ok)
	assert.Equal(t, float32(n-1), v[0])
	assert.Equal(t, n, s.Live())
}
