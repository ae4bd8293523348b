// Package metric provides the similarity metrics used to rank vectors.
//
// All metrics produce similarity scores where a higher value means a closer
// match. Cosine similarity is defined only for vectors with a non-zero norm;
// scoring a zero-norm vector yields ErrDegenerateVector.
package metric

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrDegenerateVector is returned when cosine similarity is requested for a
// vector whose L2 norm is zero.
var ErrDegenerateVector = errors.New("metric: cosine similarity undefined for zero-norm vector")

// Metric identifies a similarity metric. The zero value is invalid so that a
// metric choice is always explicit.
type Metric int

const (
	// Dot ranks vectors by raw inner product.
	Dot Metric = iota + 1
	// Cosine ranks vectors by the cosine of the angle between them.
	Cosine
)

// String returns the canonical name of the metric.
func (m Metric) String() string {
	switch m {
	case Dot:
		return "dot"
	case Cosine:
		return "cosine"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// Valid reports whether m names a known metric.
func (m Metric) Valid() bool {
	return m == Dot || m == Cosine
}

// Parse resolves a metric by its canonical name.
func Parse(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dot":
		return Dot, nil
	case "cosine":
		return Cosine, nil
	default:
		return 0, fmt.Errorf("metric: unknown metric %q", name)
	}
}

// ScoreFunc computes the similarity of two vectors of equal dimension.
type ScoreFunc func(a, b []float32) float32

// Score computes the similarity of a and b under m. It validates dimensions
// and, for Cosine, rejects zero-norm inputs.
func Score(m Metric, a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("metric: dimension mismatch %d vs %d", len(a), len(b))
	}

	switch m {
	case Dot:
		return DotProduct(a, b), nil
	case Cosine:
		return CosineSimilarity(a, b)
	default:
		return 0, fmt.Errorf("metric: unknown metric %q", m)
	}
}

// DotProduct returns the inner product of a and b. Both slices must have the
// same length.
func DotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// CosineSimilarity returns the cosine of the angle between a and b. It
// returns ErrDegenerateVector if either vector has a zero norm.
func CosineSimilarity(a, b []float32) (float32, error) {
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, ErrDegenerateVector
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB)))), nil
}

// Magnitude returns the L2 norm of v.
func Magnitude(v []float32) float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	return float32(math.Sqrt(float64(sum)))
}

// NormalizeL2Copy returns an L2-normalized copy of v. It reports false when v
// has a zero norm, in which case no copy is made.
func NormalizeL2Copy(v []float32) ([]float32, bool) {
	mag := Magnitude(v)
	if mag == 0 {
		return nil, false
	}
	out := make([]float32, len(v))
	inv := 1 / mag
	for i, x := range v {
		out[i] = x * inv
	}
	return out, true
}

// NormalizeL2InPlace scales v to unit L2 norm. It reports false and leaves v
// untouched when v has a zero norm.
func NormalizeL2InPlace(v []float32) bool {
	mag := Magnitude(v)
	if mag == 0 {
		return false
	}
	inv := 1 / mag
	for i := range v {
		v[i] *= inv
	}
	return true
}
