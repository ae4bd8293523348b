// Package smallworld implements an approximate index over a navigable
// small-world graph.
//
// Every inserted reference becomes a graph node linked to at most M
// neighbors. Searches run a greedy beam of width ef from a fixed entry point:
// a frontier of unexpanded candidates ordered best-first, and a bounded
// result set that evicts its worst member. Deletes tombstone nodes; they stop
// appearing in results but remain routable so the graph stays connected.
//
// The whole graph is copied on write and published through an atomic
// pointer, so searches never block on writers and always observe a
// consistent snapshot.
package smallworld

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/simvec/simvec/index"
	"github.com/simvec/simvec/internal/queue"
	"github.com/simvec/simvec/metric"
)

// Default tuning parameters.
const (
	DefaultM              = 16
	DefaultEFConstruction = 128
	DefaultEFSearch       = 64
)

// How many frontier expansions between context checks.
const cancelCheckInterval = 64

// VectorReader resolves references to vectors, including tombstoned ones.
// Tombstoned vectors are needed to score graph hops that route through dead
// nodes.
type VectorReader interface {
	index.VectorReader

	// VectorAny returns the vector at ref regardless of deletion status.
	VectorAny(ref uint32) ([]float32, bool)
}

// Options configures a small-world index.
type Options struct {
	// M is the maximum number of neighbors per node. Defaults to DefaultM.
	M int

	// EFConstruction is the beam width used when linking new nodes.
	// Defaults to DefaultEFConstruction.
	EFConstruction int

	// EFSearch is the default beam width for queries. Defaults to
	// DefaultEFSearch.
	EFSearch int

	// Score ranks candidate vectors against the query. Defaults to the dot
	// product.
	Score metric.ScoreFunc
}

// SmallWorld is a navigable small-world graph index.
type SmallWorld struct {
	vectors VectorReader
	score   metric.ScoreFunc

	m              int
	efConstruction int
	efSearch       int

	writeMu sync.Mutex
	graph   atomic.Pointer[graph]
}

var _ index.Index = (*SmallWorld)(nil)

// graph is an immutable snapshot of the index structure. Writers clone it,
// mutate the clone and publish it atomically.
type graph struct {
	neighbors  [][]uint32
	present    *roaring.Bitmap // refs ever inserted
	tombstones *roaring.Bitmap // subset of present
	entry      uint32
	hasEntry   bool
}

func newGraph() *graph {
	return &graph{
		present:    roaring.New(),
		tombstones: roaring.New(),
	}
}

// clone copies the snapshot. Neighbor lists are shared until individually
// rewritten by the writer.
func (g *graph) clone() *graph {
	neighbors := make([][]uint32, len(g.neighbors))
	copy(neighbors, g.neighbors)

	return &graph{
		neighbors:  neighbors,
		present:    g.present.Clone(),
		tombstones: g.tombstones.Clone(),
		entry:      g.entry,
		hasEntry:   g.hasEntry,
	}
}

func (g *graph) total() int { return int(g.present.GetCardinality()) }

func (g *graph) dead() int { return int(g.tombstones.GetCardinality()) }

func (g *graph) live() int { return g.total() - g.dead() }

// New creates an empty small-world index reading vectors from vectors.
func New(vectors VectorReader, opts Options) *SmallWorld {
	if opts.M <= 0 {
		opts.M = DefaultM
	}
	if opts.EFConstruction <= 0 {
		opts.EFConstruction = DefaultEFConstruction
	}
	if opts.EFSearch <= 0 {
		opts.EFSearch = DefaultEFSearch
	}

	score := opts.Score
	if score == nil {
		score = metric.DotProduct
	}

	s := &SmallWorld{
		vectors:        vectors,
		score:          score,
		m:              opts.M,
		efConstruction: opts.EFConstruction,
		efSearch:       opts.EFSearch,
	}
	s.graph.Store(newGraph())

	return s
}

// M returns the maximum neighbors per node.
func (s *SmallWorld) M() int { return s.m }

// EFSearch returns the default query beam width.
func (s *SmallWorld) EFSearch() int { return s.efSearch }

// EFConstruction returns the link-time beam width.
func (s *SmallWorld) EFConstruction() int { return s.efConstruction }

// Len returns the number of live nodes.
func (s *SmallWorld) Len() int {
	return s.graph.Load().live()
}

// TombstoneRatio returns the fraction of nodes that are tombstoned.
func (s *SmallWorld) TombstoneRatio() float64 {
	g := s.graph.Load()
	total := g.total()
	if total == 0 {
		return 0
	}
	return float64(g.dead()) / float64(total)
}

// Insert links ref into the graph. The first insert becomes the entry point;
// later inserts search the current graph with the construction beam and link
// bidirectionally to the best candidates found.
func (s *SmallWorld) Insert(ctx context.Context, ref uint32) error {
	vec, ok := s.vectors.VectorAny(ref)
	if !ok {
		return fmt.Errorf("smallworld: insert %d: %w", ref, index.ErrRefNotFound)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	g := s.graph.Load()
	if g.present.Contains(ref) && !g.tombstones.Contains(ref) {
		return fmt.Errorf("smallworld: insert %d: reference already present", ref)
	}

	ng := g.clone()
	ng.ensure(ref)

	if !ng.hasEntry {
		ng.entry = ref
		ng.hasEntry = true
		ng.present.Add(ref)
		s.graph.Store(ng)
		return nil
	}

	// Beam-search the pre-insert snapshot for link candidates. Tombstoned
	// nodes participate so routing quality survives deletions.
	candidates, err := s.searchLayer(ctx, g, vec, s.efConstruction, nil)
	if err != nil {
		return err
	}

	targets := pickLinkTargets(g, candidates, s.m)

	links := make([]uint32, 0, len(targets))
	for _, target := range targets {
		links = append(links, target)
		s.addBackLink(ng, target, ref)
	}
	ng.neighbors[ref] = links
	ng.present.Add(ref)
	ng.tombstones.Remove(ref)

	s.graph.Store(ng)
	return nil
}

// Delete tombstones ref. The node keeps its links and stays routable.
func (s *SmallWorld) Delete(_ context.Context, ref uint32) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	g := s.graph.Load()
	if !g.present.Contains(ref) || g.tombstones.Contains(ref) {
		return index.ErrRefNotFound
	}

	ng := g.clone()
	ng.tombstones.Add(ref)
	s.graph.Store(ng)

	return nil
}

// Search returns up to k live references ranked by descending similarity to
// query, ties broken by ascending reference. The beam width is
// max(opts.EF, k), falling back to the index default when opts.EF is zero. A
// cancelled context returns the matches collected so far with ctx.Err().
func (s *SmallWorld) Search(ctx context.Context, query []float32, k int, opts *index.SearchOptions) ([]index.SearchResult, error) {
	if k < 1 {
		return nil, index.ErrInvalidK
	}
	if dim := s.vectors.Dimension(); len(query) != dim {
		return nil, &index.DimensionMismatchError{Expected: dim, Actual: len(query)}
	}

	ef := s.efSearch
	var filter func(uint32) bool
	if opts != nil {
		if opts.EF > 0 {
			ef = opts.EF
		}
		filter = opts.Filter
	}
	if ef < k {
		ef = k
	}

	g := s.graph.Load()
	include := func(ref uint32) bool {
		if g.tombstones.Contains(ref) {
			return false
		}
		return filter == nil || filter(ref)
	}

	found, searchErr := s.searchLayer(ctx, g, query, ef, include)
	if len(found) > k {
		found = found[:k]
	}

	results := make([]index.SearchResult, len(found))
	for i, item := range found {
		results[i] = index.SearchResult{Ref: item.Ref, Score: item.Score}
	}
	return results, searchErr
}

// searchLayer runs the greedy beam over snapshot g and returns up to ef
// admitted candidates in descending rank order. The include predicate
// controls result admission only; traversal always crosses every node. A
// context error stops the walk and returns what was collected.
func (s *SmallWorld) searchLayer(ctx context.Context, g *graph, query []float32, ef int, include func(uint32) bool) ([]queue.Item, error) {
	if !g.hasEntry {
		return nil, nil
	}

	entryVec, ok := s.vectors.VectorAny(g.entry)
	if !ok {
		panic(fmt.Sprintf("smallworld: entry point %d has no vector", g.entry))
	}

	visited := roaring.New()
	visited.Add(g.entry)

	frontier := queue.NewBest(ef)
	results := queue.NewWorst(ef)

	entryItem := queue.Item{Ref: g.entry, Score: s.score(query, entryVec)}
	frontier.Push(entryItem)
	if include == nil || include(g.entry) {
		results.Push(entryItem)
	}

	var searchErr error
	steps := 0

	for frontier.Len() > 0 {
		if steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				searchErr = err
				break
			}
		}
		steps++

		curr, _ := frontier.Pop()

		if results.Len() >= ef {
			if worst, _ := results.Top(); queue.Better(worst, curr) {
				break
			}
		}

		for _, n := range g.neighbors[curr.Ref] {
			if visited.Contains(n) {
				continue
			}
			visited.Add(n)

			nVec, ok := s.vectors.VectorAny(n)
			if !ok {
				panic(fmt.Sprintf("smallworld: node %d links to missing vector %d", curr.Ref, n))
			}

			item := queue.Item{Ref: n, Score: s.score(query, nVec)}

			full := results.Len() >= ef
			var worst queue.Item
			if full {
				worst, _ = results.Top()
			}

			if full && !queue.Better(item, worst) {
				continue
			}

			frontier.Push(item)
			if include == nil || include(n) {
				if full {
					results.Pop()
				}
				results.Push(item)
			}
		}
	}

	return drainDescending(results), searchErr
}

// ensure grows the adjacency table to cover ref.
func (g *graph) ensure(ref uint32) {
	for len(g.neighbors) <= int(ref) {
		g.neighbors = append(g.neighbors, nil)
	}
}

// addBackLink appends ref to target's neighbor list in ng, pruning to the m
// best neighbors by similarity to target when the list overflows.
func (s *SmallWorld) addBackLink(ng *graph, target, ref uint32) {
	current := ng.neighbors[target]
	updated := make([]uint32, 0, len(current)+1)
	updated = append(updated, current...)
	updated = append(updated, ref)

	if len(updated) > s.m {
		targetVec, ok := s.vectors.VectorAny(target)
		if !ok {
			panic(fmt.Sprintf("smallworld: node %d has no vector", target))
		}

		ranked := queue.NewWorst(s.m)
		for _, n := range updated {
			nVec, ok := s.vectors.VectorAny(n)
			if !ok {
				panic(fmt.Sprintf("smallworld: node %d links to missing vector %d", target, n))
			}
			cand := queue.Item{Ref: n, Score: s.score(targetVec, nVec)}
			if ranked.Len() < s.m {
				ranked.Push(cand)
				continue
			}
			if worst, _ := ranked.Top(); queue.Better(cand, worst) {
				ranked.Pop()
				ranked.Push(cand)
			}
		}

		updated = updated[:0]
		for _, item := range drainDescending(ranked) {
			updated = append(updated, item.Ref)
		}
	}

	ng.neighbors[target] = updated
}

// pickLinkTargets selects up to m link targets from ranked candidates,
// preferring live nodes. Tombstoned candidates are used only when no live
// node was reachable, to keep the new node connected.
func pickLinkTargets(g *graph, ranked []queue.Item, m int) []uint32 {
	targets := make([]uint32, 0, m)
	for _, item := range ranked {
		if g.tombstones.Contains(item.Ref) {
			continue
		}
		targets = append(targets, item.Ref)
		if len(targets) == m {
			return targets
		}
	}

	if len(targets) == 0 && len(ranked) > 0 {
		targets = append(targets, ranked[0].Ref)
	}
	return targets
}

// drainDescending empties a worst-queue into a best-first slice.
func drainDescending(q *queue.Queue) []queue.Item {
	items := make([]queue.Item, q.Len())
	for i := q.Len() - 1; i >= 0; i-- {
		items[i], _ = q.Pop()
	}
	return items
}

// Stats describes the current graph shape.
type Stats struct {
	Nodes      int
	Live       int
	Tombstones int
	AvgDegree  float64
	MaxDegree  int
}

// Stats returns a snapshot of the graph shape.
func (s *SmallWorld) Stats() Stats {
	g := s.graph.Load()

	st := Stats{
		Nodes:      g.total(),
		Live:       g.live(),
		Tombstones: g.dead(),
	}

	totalDegree := 0
	it := g.present.Iterator()
	for it.HasNext() {
		ref := it.Next()
		d := len(g.neighbors[ref])
		totalDegree += d
		if d > st.MaxDegree {
			st.MaxDegree = d
		}
	}
	if st.Nodes > 0 {
		st.AvgDegree = float64(totalDegree) / float64(st.Nodes)
	}

	return st
}
