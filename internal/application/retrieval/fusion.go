package retrieval

import (
	"math"
	"sort"

	"biocup-api/internal/domain/entity"
)

// FusionPolicy controls how dense and sparse scores are combined. The
// weights and the normalization scheme are policy, not fixed behavior: the
// defaults are documented in configuration and tunable per deployment.
type FusionPolicy struct {
	DenseWeight  float64
	SparseWeight float64
	// Normalization is "minmax" (default) or "zscore".
	Normalization string
}

// normalize rescales one modality's scores to a comparable range within
// the current query's candidate set, so neither modality dominates purely
// through numeric range.
func (p FusionPolicy) normalize(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return scores
	}
	out := make(map[string]float64, len(scores))
	switch p.Normalization {
	case "zscore":
		var sum, sumSq float64
		for _, s := range scores {
			sum += s
			sumSq += s * s
		}
		n := float64(len(scores))
		mean := sum / n
		variance := sumSq/n - mean*mean
		if variance < 1e-12 {
			for id := range scores {
				out[id] = 1.0
			}
			return out
		}
		std := math.Sqrt(variance)
		for id, s := range scores {
			out[id] = (s - mean) / std
		}
	default: // minmax
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, s := range scores {
			lo = math.Min(lo, s)
			hi = math.Max(hi, s)
		}
		if hi-lo < 1e-12 {
			// A single candidate (or all-equal scores) is maximal
			// evidence, not zero.
			for id := range scores {
				out[id] = 1.0
			}
			return out
		}
		for id, s := range scores {
			out[id] = (s - lo) / (hi - lo)
		}
	}
	return out
}

// Fuse merges the dense and sparse candidate sets for one query chunk into
// a single list ordered by fused score. Ties are broken by preferring hits
// whose section matches the query chunk's section: exact-section analogs
// are more diagnostically trustworthy than cross-section ones.
func (p FusionPolicy) Fuse(queryChunkID string, querySection entity.Section, dense, sparse []ScoredPoint) []Hit {
	denseScores := make(map[string]float64, len(dense))
	sparseScores := make(map[string]float64, len(sparse))
	payloads := make(map[string]ChunkPayload, len(dense)+len(sparse))

	for _, sp := range dense {
		denseScores[sp.ID] = sp.Score
		payloads[sp.ID] = sp.Payload
	}
	for _, sp := range sparse {
		sparseScores[sp.ID] = sp.Score
		if _, ok := payloads[sp.ID]; !ok {
			payloads[sp.ID] = sp.Payload
		}
	}

	normDense := p.normalize(denseScores)
	normSparse := p.normalize(sparseScores)

	hits := make([]Hit, 0, len(payloads))
	for id, payload := range payloads {
		h := Hit{
			QueryChunkID: queryChunkID,
			PointID:      id,
			Payload:      payload,
			SectionMatch: payload.Section == querySection,
		}
		if s, ok := denseScores[id]; ok {
			h.DenseScore = s
			h.FusedScore += p.DenseWeight * normDense[id]
		}
		if s, ok := sparseScores[id]; ok {
			h.SparseScore = s
			h.FusedScore += p.SparseWeight * normSparse[id]
		}
		hits = append(hits, h)
	}

	// Z-scores center on the candidate mean, so below-mean hits fuse
	// negative. Shift the set so the weakest candidate contributes zero
	// and the roll-up always normalizes into a valid distribution.
	lowest := 0.0
	for _, h := range hits {
		if h.FusedScore < lowest {
			lowest = h.FusedScore
		}
	}
	if lowest < 0 {
		for i := range hits {
			hits[i].FusedScore -= lowest
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].FusedScore != hits[j].FusedScore {
			return hits[i].FusedScore > hits[j].FusedScore
		}
		if hits[i].SectionMatch != hits[j].SectionMatch {
			return hits[i].SectionMatch
		}
		// Stable ordering for reproducible results.
		return hits[i].PointID < hits[j].PointID
	})

	return hits
}
