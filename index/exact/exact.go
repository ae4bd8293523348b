// Package exact implements a brute-force index that scans every live vector.
//
// It is the oracle against which approximate indexes are measured: results
// are exact by construction, at O(n) cost per query.
package exact

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/simvec/simvec/index"
	"github.com/simvec/simvec/internal/queue"
	"github.com/simvec/simvec/metric"
)

// How many vectors to score between context checks during a scan.
const cancelCheckInterval = 256

// Options configures an exact index.
type Options struct {
	// Score ranks candidate vectors against the query. Defaults to the dot
	// product; stores that pre-normalize vectors get cosine ranking from the
	// same kernel.
	Score metric.ScoreFunc
}

// Exact is a brute-force similarity index.
//
// The live set is kept in a copy-on-write bitmap so that searches never take
// a lock: readers operate on the snapshot they loaded, writers publish a new
// bitmap under a mutex.
type Exact struct {
	vectors index.VectorReader
	score   metric.ScoreFunc

	writeMu sync.Mutex
	live    atomic.Pointer[roaring.Bitmap]
}

var _ index.Index = (*Exact)(nil)

// New creates an empty exact index reading vectors from vectors.
func New(vectors index.VectorReader, opts Options) *Exact {
	score := opts.Score
	if score == nil {
		score = metric.DotProduct
	}

	e := &Exact{
		vectors: vectors,
		score:   score,
	}
	e.live.Store(roaring.New())

	return e
}

// Insert adds ref to the live set.
func (e *Exact) Insert(_ context.Context, ref uint32) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	next := e.live.Load().Clone()
	next.Add(ref)
	e.live.Store(next)

	return nil
}

// Delete removes ref from the live set.
func (e *Exact) Delete(_ context.Context, ref uint32) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	current := e.live.Load()
	if !current.Contains(ref) {
		return index.ErrRefNotFound
	}

	next := current.Clone()
	next.Remove(ref)
	e.live.Store(next)

	return nil
}

// Len returns the number of live references.
func (e *Exact) Len() int {
	return int(e.live.Load().GetCardinality())
}

// TombstoneRatio always returns 0: deletes remove entries physically.
func (e *Exact) TombstoneRatio() float64 { return 0 }

// Search scans all live vectors and returns the k best matches in descending
// score order, ties broken by ascending reference. A cancelled context stops
// the scan and returns the matches collected so far together with ctx.Err().
func (e *Exact) Search(ctx context.Context, query []float32, k int, opts *index.SearchOptions) ([]index.SearchResult, error) {
	if k < 1 {
		return nil, index.ErrInvalidK
	}
	if dim := e.vectors.Dimension(); len(query) != dim {
		return nil, &index.DimensionMismatchError{Expected: dim, Actual: len(query)}
	}

	var filter func(uint32) bool
	if opts != nil {
		filter = opts.Filter
	}

	live := e.live.Load()
	top := queue.NewWorst(k)

	var searchErr error
	scanned := 0

	it := live.Iterator()
	for it.HasNext() {
		if scanned%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				searchErr = err
				break
			}
		}
		scanned++

		ref := it.Next()
		if filter != nil && !filter(ref) {
			continue
		}

		vec, ok := e.vectors.Vector(ref)
		if !ok {
			continue
		}

		cand := queue.Item{Ref: ref, Score: e.score(query, vec)}
		if top.Len() < k {
			top.Push(cand)
			continue
		}
		if worst, _ := top.Top(); queue.Better(cand, worst) {
			top.Pop()
			top.Push(cand)
		}
	}

	return drain(top), searchErr
}

// drain empties a worst-queue into a descending-score result slice.
func drain(top *queue.Queue) []index.SearchResult {
	results := make([]index.SearchResult, top.Len())
	for i := top.Len() - 1; i >= 0; i-- {
		item, _ := top.Pop()
		results[i] = index.SearchResult{Ref: item.Ref, Score: item.Score}
	}
	return results
}
