// Package engine maintains the mapping between user-facing record IDs and
// the dense uint32 references used by indexes and the vector store.
//
// The store is the single source of truth for record data. Indexes hold only
// references; payloads and ID mappings live here. A record that is deleted
// and re-inserted under the same ID receives a fresh reference, so
// references are never reused across record generations.
package engine

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/simvec/simvec/index"
	"github.com/simvec/simvec/metric"
	"github.com/simvec/simvec/vectorstore"
)

// Record is a stored vector with its ID and payload.
type Record[T any] struct {
	ID      string
	Vector  []float32
	Payload T
}

// Store maps record IDs to references and owns the vector storage.
//
// All methods are safe for concurrent use. Writers are serialized by the
// caller (the database takes a write lock around insert/delete); the
// internal mutex protects the ID maps for concurrent readers.
type Store[T any] struct {
	mu        sync.RWMutex
	normalize bool

	byID     map[string]uint32
	ids      map[uint32]string
	payloads map[uint32]T
	raw      map[uint32][]float32 // original vectors when normalize is set

	vectors *vectorstore.Columnar
}

// New creates an empty store for vectors of the given dimension. When
// normalize is set, vectors are stored L2-normalized for scoring and the
// original vector is kept for retrieval; zero-norm vectors are rejected.
func New[T any](dim int, normalize bool) (*Store[T], error) {
	vectors, err := vectorstore.New(dim)
	if err != nil {
		return nil, err
	}

	s := &Store[T]{
		normalize: normalize,
		byID:      make(map[string]uint32),
		ids:       make(map[uint32]string),
		payloads:  make(map[uint32]T),
		vectors:   vectors,
	}
	if normalize {
		s.raw = make(map[uint32][]float32)
	}

	return s, nil
}

// Vectors exposes the underlying vector storage for index construction.
func (s *Store[T]) Vectors() *vectorstore.Columnar { return s.vectors }

// Dimension returns the vector dimensionality.
func (s *Store[T]) Dimension() int { return s.vectors.Dimension() }

// Len returns the number of live records.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Insert stores a record and returns its reference and effective ID. An
// empty ID gets a generated UUID. The input vector is copied; callers may
// reuse it.
func (s *Store[T]) Insert(id string, vector []float32, payload T) (uint32, string, error) {
	if dim := s.vectors.Dimension(); len(vector) != dim {
		return 0, "", &index.DimensionMismatchError{Expected: dim, Actual: len(vector)}
	}

	if id == "" {
		id = uuid.NewString()
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)

	var original []float32
	if s.normalize {
		original = stored
		normalized, ok := metric.NormalizeL2Copy(stored)
		if !ok {
			return 0, "", metric.ErrDegenerateVector
		}
		stored = normalized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[id]; exists {
		return 0, "", &DuplicateIDError{ID: id}
	}

	ref, err := s.vectors.Append(stored)
	if err != nil {
		return 0, "", err
	}

	s.byID[id] = ref
	s.ids[ref] = id
	s.payloads[ref] = payload
	if s.normalize {
		s.raw[ref] = original
	}

	return ref, id, nil
}

// Delete removes the record with the given ID and returns the reference it
// occupied.
func (s *Store[T]) Delete(id string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, exists := s.byID[id]
	if !exists {
		return 0, ErrNotFound
	}

	delete(s.byID, id)
	delete(s.ids, ref)
	delete(s.payloads, ref)
	if s.normalize {
		delete(s.raw, ref)
	}

	if err := s.vectors.Delete(ref); err != nil {
		return 0, err
	}

	return ref, nil
}

// Get returns a copy of the record stored under id. The vector is the one
// originally inserted, even when the store normalizes for scoring.
func (s *Store[T]) Get(id string) (Record[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, exists := s.byID[id]
	if !exists {
		return Record[T]{}, ErrNotFound
	}

	return Record[T]{
		ID:      id,
		Vector:  s.originalLocked(ref),
		Payload: s.payloads[ref],
	}, nil
}

// IDOf returns the record ID occupying ref.
func (s *Store[T]) IDOf(ref uint32) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ids[ref]
	return id, ok
}

// PayloadOf returns the payload stored under ref.
func (s *Store[T]) PayloadOf(ref uint32) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payloads[ref]
	return p, ok
}

// Contains reports whether a live record exists under id.
func (s *Store[T]) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

// Live returns the references of all live records in ascending order.
func (s *Store[T]) Live() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := make([]uint32, 0, len(s.ids))
	for ref := range s.ids {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })

	return refs
}

// Each calls fn for every live record in ascending reference order. The
// vector passed to fn is the originally inserted one. Return false to stop.
func (s *Store[T]) Each(fn func(ref uint32, rec Record[T]) bool) {
	for _, ref := range s.Live() {
		s.mu.RLock()
		rec := Record[T]{
			ID:      s.ids[ref],
			Vector:  s.originalLocked(ref),
			Payload: s.payloads[ref],
		}
		s.mu.RUnlock()

		if !fn(ref, rec) {
			return
		}
	}
}

// originalLocked returns a copy of the originally inserted vector for ref.
func (s *Store[T]) originalLocked(ref uint32) []float32 {
	var src []float32
	if s.normalize {
		src = s.raw[ref]
	} else {
		src, _ = s.vectors.Vector(ref)
	}

	out := make([]float32, len(src))
	copy(out, src)
	return out
}
