package simvec

import (
	"errors"
	"fmt"

	"github.com/simvec/simvec/engine"
	"github.com/simvec/simvec/index"
	"github.com/simvec/simvec/metric"
)

var (
	// ErrNotFound is returned when no record exists under the requested ID.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidK is returned when a search requests fewer than one result.
	ErrInvalidK = errors.New("k must be at least 1")

	// ErrMetricRequired is returned by Build when no similarity metric was
	// chosen. There is no safe default: dot and cosine rank differently.
	ErrMetricRequired = errors.New("similarity metric must be chosen explicitly")

	// ErrMetricMismatch is returned when a per-query metric override differs
	// from the metric the index was built with.
	ErrMetricMismatch = errors.New("query metric does not match index metric")

	// ErrIndexUnavailable is returned for writes that arrive while the index
	// is being rebuilt.
	ErrIndexUnavailable = errors.New("index unavailable during rebuild")

	// ErrDegenerateVector is returned when cosine similarity is requested
	// for a zero-norm vector.
	ErrDegenerateVector = metric.ErrDegenerateVector

	// ErrEmbedderRequired is returned by text operations when no embedder
	// was configured via WithEmbedder.
	ErrEmbedderRequired = errors.New("no embedder configured")
)

// ErrDimensionMismatch indicates a vector or query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrDuplicateID indicates an insert that reused a live record ID.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDuplicateID struct {
	ID    string
	cause error
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("duplicate record id %q", e.ID)
}

func (e *ErrDuplicateID) Unwrap() error { return e.cause }

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// translateError maps internal errors to the public error taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, engine.ErrNotFound) || errors.Is(err, index.ErrRefNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var dup *engine.DuplicateIDError
	if errors.As(err, &dup) {
		return &ErrDuplicateID{ID: dup.ID, cause: err}
	}

	var dm *index.DimensionMismatchError
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	if errors.Is(err, index.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}

	return err
}
