// Package retrieval implements the hybrid retrieval and evidence
// aggregation engine over the case index.
package retrieval

import (
	"biocup-api/internal/domain/entity"
)

// SparseVector is a term-weighted representation: parallel token-id and
// weight arrays, mostly zero elsewhere. Weights are non-negative.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// IsZero reports whether the vector carries no terms.
func (v SparseVector) IsZero() bool {
	return len(v.Indices) == 0
}

// DualEmbedding pairs the two complementary encodings of one chunk. It is
// derived, cached data: regenerable deterministically from the chunk text
// for a fixed encoder version.
type DualEmbedding struct {
	Dense  []float32
	Sparse SparseVector
}

// ChunkPayload is the strongly-typed payload stored with every indexed
// vector. Raw key-value payloads from the external index are mapped into
// this record at the boundary, so aggregation logic never touches untyped
// maps.
type ChunkPayload struct {
	ChunkID   string `json:"chunk_id"`
	CaseID    string `json:"case_id"`
	PatientID string `json:"patient_id"`
	// PrimarySite is non-nil iff the source report is a resolved reference
	// case.
	PrimarySite    *string              `json:"primary_site,omitempty"`
	CancerType     string               `json:"cancer_type,omitempty"`
	CancerSubtype  string               `json:"cancer_subtype,omitempty"`
	Section        entity.Section       `json:"section"`
	Flags          entity.ClinicalFlags `json:"flags"`
	EncoderVersion string               `json:"encoder_version,omitempty"`
	Text           string               `json:"text,omitempty"`
}

// Site returns the payload's primary site or "".
func (p ChunkPayload) Site() string {
	if p.PrimarySite == nil {
		return ""
	}
	return *p.PrimarySite
}

// Point is the unit stored in the case index: one chunk's dual embedding
// plus its payload.
type Point struct {
	ID      string
	Dense   []float32
	Sparse  SparseVector
	Payload ChunkPayload
}

// Filter restricts a case-index query by payload fields.
type Filter struct {
	// ResolvedOnly keeps only resolved reference cases (primary_site
	// non-null).
	ResolvedOnly bool
	// ExcludeCaseID drops all chunks of one case, so a report never
	// matches itself.
	ExcludeCaseID string
	// Sections, when non-empty, restricts hits to the given section
	// labels.
	Sections []entity.Section
	// RequireIHC keeps only chunks flagged has_ihc.
	RequireIHC bool
}

// QueryParams is one nearest-neighbor query against the case index.
// Exactly one of Dense and Sparse should be set; scores are comparable
// across hits of the same query but not across queries.
type QueryParams struct {
	Dense  []float32
	Sparse *SparseVector
	Filter Filter
	TopK   int
}

// ScoredPoint is one raw index hit. Higher score means more similar.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload ChunkPayload
}

// Hit is a fused per-chunk retrieval hit. Ephemeral: produced per query,
// never persisted.
type Hit struct {
	QueryChunkID string
	PointID      string
	Payload      ChunkPayload
	DenseScore   float64
	SparseScore  float64
	FusedScore   float64
	// SectionMatch marks that the hit's section equals the query chunk's
	// section; used for tie-breaking.
	SectionMatch bool
}

// Result is the engine output for one query report.
type Result struct {
	// NoMatches is set when no resolved reference case was retrieved at
	// all; Predictions is empty in that state.
	NoMatches   bool
	Predictions []entity.SitePrediction
	// ChunksQueried and ChunksFailed describe partial degradation: failed
	// chunks contributed zero, they did not abort the report.
	ChunksQueried int
	ChunksFailed  int
}
