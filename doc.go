// Package simvec provides an embedded embedding similarity index for Go.
//
// Simvec stores vector records (string ID, fixed-dimension float32 vector,
// typed payload) and answers k-nearest-neighbor queries under dot-product or
// cosine similarity. Two index structures are available behind one API: an
// exact brute-force index and an approximate navigable small-world graph.
//
// # Quick Start
//
// Create a database with a type-safe builder:
//
//	ctx := context.Background()
//	db, err := simvec.SmallWorld[string](128).  // 128-dimensional vectors
//	    Cosine().                               // Similarity metric (required)
//	    M(32).                                  // Graph connectivity
//	    EFConstruction(200).                    // Build quality
//	    Build()
//	if err != nil {
//	    panic(err)
//	}
//	defer db.Close()
//
// Insert records (empty ID generates a UUID):
//
//	id, err := db.Insert(ctx, "doc-1", vector, "my document")
//
// Search with the fluent API:
//
//	results, err := db.Search(query).
//	    KNN(10).
//	    EF(100).
//	    Filter(func(id string, payload string) bool {
//	        return strings.HasPrefix(id, "doc-")
//	    }).
//	    Execute(ctx)
//
// Results are ordered by descending similarity; ties resolve by insertion
// order, so repeated queries over the same data return identical rankings.
//
// # Index Selection
//
// Choose the index for your dataset:
//   - Exact: exhaustive scan, exact results, small datasets
//   - SmallWorld: graph-based approximate search, large datasets
//
// Deletes tombstone graph nodes; when the tombstone ratio exceeds the
// rebuild threshold (default 20%) a background rebuild compacts the graph
// while reads keep serving the previous index.
//
// # Persistence
//
// Snapshots are self-describing (codec, compression, metric and index
// parameters travel with the data) and can be written to files or blob
// stores (local disk, in-memory, S3, MinIO):
//
//	err := db.SaveToFile(ctx, "vectors.simvec")
//	db2, err := simvec.LoadFromFile[string](ctx, "vectors.simvec")
//
// # Text Embeddings
//
// With an embedder configured, text can be inserted and queried directly:
//
//	db, _ := simvec.SmallWorld[string](1536).Cosine().
//	    Options(simvec.WithEmbedder(embedding.NewOpenAI(apiKey))).
//	    Build()
//	id, _ := db.InsertText(ctx, "", "a bench in the park", "bench")
package simvec
