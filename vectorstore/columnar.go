// Package vectorstore stores vectors contiguously in memory.
//
// Vectors live in a single []float32 slice, addressed by a dense uint32
// reference: vector ref occupies data[ref*dim : (ref+1)*dim]. References are
// assigned sequentially by Append and are never reused; deletes mark the
// reference in a copy-on-write bitmap.
//
// Concurrent reads are lock-free against published snapshots. Writes require
// external synchronization by the caller.
package vectorstore

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
)

var (
	// ErrWrongDimension is returned when a vector has the wrong length.
	ErrWrongDimension = errors.New("vectorstore: wrong vector dimension")
	// ErrOutOfBounds is returned when a reference was never assigned.
	ErrOutOfBounds = errors.New("vectorstore: reference out of bounds")
)

// Columnar is an append-only columnar vector store.
type Columnar struct {
	dim int

	// Published snapshots for lock-free readers.
	data    atomic.Pointer[[]float32]
	deleted atomic.Pointer[roaring.Bitmap]

	mu    sync.Mutex // serializes writers
	count uint32
	live  uint32
}

// New creates an empty store for vectors of the given dimension.
func New(dim int) (*Columnar, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vectorstore: dimension must be positive, got %d", dim)
	}

	s := &Columnar{dim: dim}

	data := make([]float32, 0, 1024*dim)
	s.data.Store(&data)
	s.deleted.Store(roaring.New())

	return s, nil
}

// Dimension returns the vector dimensionality.
func (s *Columnar) Dimension() int { return s.dim }

// Count returns the total number of references ever assigned, including
// deleted ones.
func (s *Columnar) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.count)
}

// Live returns the number of non-deleted vectors.
func (s *Columnar) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.live)
}

// Vector returns the vector at ref. It reports false when ref is out of
// bounds or deleted. The returned slice aliases internal memory; callers must
// not modify it.
func (s *Columnar) Vector(ref uint32) ([]float32, bool) {
	data := s.data.Load()
	start := int(ref) * s.dim
	end := start + s.dim
	if end > len(*data) {
		return nil, false
	}
	if s.deleted.Load().Contains(ref) {
		return nil, false
	}
	return (*data)[start:end:end], true
}

// VectorAny returns the vector at ref regardless of deletion status. Graph
// indexes use it to route through tombstoned nodes. The returned slice
// aliases internal memory; callers must not modify it.
func (s *Columnar) VectorAny(ref uint32) ([]float32, bool) {
	data := s.data.Load()
	start := int(ref) * s.dim
	end := start + s.dim
	if end > len(*data) {
		return nil, false
	}
	return (*data)[start:end:end], true
}

// Append stores v under the next free reference and returns it.
//
// The extended slice is published only after the vector has been fully
// written, so concurrent readers never observe a partial vector.
func (s *Columnar) Append(v []float32) (uint32, error) {
	if len(v) != s.dim {
		return 0, ErrWrongDimension
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ref := s.count
	current := *s.data.Load()
	requiredLen := (int(ref) + 1) * s.dim

	if requiredLen > cap(current) {
		grown := make([]float32, requiredLen, max(requiredLen*2, cap(current)*2))
		copy(grown, current)
		copy(grown[int(ref)*s.dim:], v)
		s.data.Store(&grown)
	} else {
		grown := current[:requiredLen]
		copy(grown[int(ref)*s.dim:], v)
		s.data.Store(&grown)
	}

	s.count++
	s.live++

	return ref, nil
}

// Delete marks the vector at ref as deleted. Deleting an already-deleted
// reference is a no-op.
func (s *Columnar) Delete(ref uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ref >= s.count {
		return ErrOutOfBounds
	}

	deleted := s.deleted.Load()
	if deleted.Contains(ref) {
		return nil
	}

	next := deleted.Clone()
	next.Add(ref)
	s.deleted.Store(next)
	s.live--

	return nil
}

// IsDeleted reports whether the vector at ref has been deleted.
func (s *Columnar) IsDeleted(ref uint32) bool {
	return s.deleted.Load().Contains(ref)
}

// Iterate calls fn for each live vector in ascending reference order. Return
// false from fn to stop early.
func (s *Columnar) Iterate(fn func(ref uint32, vec []float32) bool) {
	data := *s.data.Load()
	deleted := s.deleted.Load()

	for start, ref := 0, uint32(0); start+s.dim <= len(data); start, ref = start+s.dim, ref+1 {
		if deleted.Contains(ref) {
			continue
		}
		if !fn(ref, data[start:start+s.dim:start+s.dim]) {
			return
		}
	}
}
