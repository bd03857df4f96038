package retrieval

import "context"

// DenseEncoder produces fixed-length real-valued vectors. Two
// diagnostically similar chunks should have high cosine similarity.
// Deterministic for a fixed model version; the only failure mode is
// encoder-unavailable.
type DenseEncoder interface {
	EncodeDense(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}

// SparseEncoder produces term-weighted vectors where exact rare-token
// overlap (marker names, staging codes) dominates.
type SparseEncoder interface {
	EncodeSparse(ctx context.Context, texts []string) ([]SparseVector, error)
	Version() string
}

// VectorIndex is the application's port to the external case index.
// Implementations must make Upsert idempotent by point id and safe under
// concurrent calls for distinct ids.
type VectorIndex interface {
	// EnsureCollection creates the backing collection if missing.
	EnsureCollection(ctx context.Context) error

	// Upsert stores points, replacing any existing point with the same id
	// atomically.
	Upsert(ctx context.Context, points []Point) error

	// Query runs one nearest-neighbor search for the modality set in
	// params and returns hits ordered by descending similarity.
	Query(ctx context.Context, params QueryParams) ([]ScoredPoint, error)

	// DeleteByCase removes every point belonging to a case.
	DeleteByCase(ctx context.Context, caseID string) error
}
