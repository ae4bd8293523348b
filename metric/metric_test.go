package metric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDotProduct(t *testing.T) {
	assert.InDelta(t, 11.0, DotProduct([]float32{1, 2, 3}, []float32{3, 1, 2}), 1e-6)
	assert.InDelta(t, 0.0, DotProduct([]float32{0, 0}, []float32{4, 5}), 1e-6)
	assert.InDelta(t, -2.0, DotProduct([]float32{1, -1}, []float32{-1, 1}), 1e-6)
}

func TestCosineSimilarity(t *testing.T) {
	t.Run("parallel vectors score 1", func(t *testing.T) {
		got, err := CosineSimilarity([]float32{2, 0}, []float32{5, 0})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, got, 1e-6)
	})

	t.Run("orthogonal vectors score 0", func(t *testing.T) {
		got, err := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, got, 1e-6)
	})

	t.Run("scale invariant", func(t *testing.T) {
		a, err := CosineSimilarity([]float32{1, 2, 3}, []float32{4, 5, 6})
		require.NoError(t, err)
		b, err := CosineSimilarity([]float32{10, 20, 30}, []float32{4, 5, 6})
		require.NoError(t, err)
		assert.InDelta(t, a, b, 1e-6)
	})

	t.Run("zero-norm vector is degenerate", func(t *testing.T) {
		_, err := CosineSimilarity([]float32{0, 0}, []float32{1, 2})
		assert.ErrorIs(t, err, ErrDegenerateVector)

		_, err = CosineSimilarity([]float32{1, 2}, []float32{0, 0})
		assert.ErrorIs(t, err, ErrDegenerateVector)
	})
}

func TestScore(t *testing.T) {
	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := Score(Dot, []float32{1, 2}, []float32{1, 2, 3})
		assert.Error(t, err)
	})

	t.Run("dot accepts zero vectors", func(t *testing.T) {
		got, err := Score(Dot, []float32{0, 0}, []float32{1, 2})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, got, 1e-6)
	})

	t.Run("unknown metric", func(t *testing.T) {
		_, err := Score(Metric(0), []float32{1}, []float32{1})
		assert.Error(t, err)
	})
}

func TestParse(t *testing.T) {
	for name, want := range map[string]Metric{
		"dot":      Dot,
		"cosine":   Cosine,
		" Cosine ": Cosine,
		"DOT":      Dot,
	} {
		got, err := Parse(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := Parse("euclidean")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	t.Run("copy leaves source untouched", func(t *testing.T) {
		src := []float32{3, 4}
		out, ok := NormalizeL2Copy(src)
		require.True(t, ok)
		assert.Equal(t, []float32{3, 4}, src)
		assert.InDelta(t, 0.6, out[0], 1e-6)
		assert.InDelta(t, 0.8, out[1], 1e-6)
		assert.InDelta(t, 1.0, float64(Magnitude(out)), 1e-6)
	})

	t.Run("zero vector cannot be normalized", func(t *testing.T) {
		_, ok := NormalizeL2Copy([]float32{0, 0, 0})
		assert.False(t, ok)

		v := []float32{0, 0}
		assert.False(t, NormalizeL2InPlace(v))
		assert.Equal(t, []float32{0, 0}, v)
	})

	t.Run("in place", func(t *testing.T) {
		v := []float32{0, 5}
		require.True(t, NormalizeL2InPlace(v))
		assert.InDelta(t, 1.0, float64(v[1]), 1e-6)
	})
}

func TestMagnitude(t *testing.T) {
	assert.InDelta(t, 5.0, Magnitude([]float32{3, 4}), 1e-6)
	assert.InDelta(t, math.Sqrt(3), Magnitude([]float32{1, 1, 1}), 1e-6)
}
