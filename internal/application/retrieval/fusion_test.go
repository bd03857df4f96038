package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biocup-api/internal/domain/entity"
)

func payload(caseID, site string, section entity.Section) ChunkPayload {
	return ChunkPayload{
		CaseID:      caseID,
		PrimarySite: &site,
		Section:     section,
	}
}

func TestFuseWeightsAndNormalization(t *testing.T) {
	p := FusionPolicy{DenseWeight: 0.6, SparseWeight: 0.4, Normalization: "minmax"}

	dense := []ScoredPoint{
		{ID: "a", Score: 0.9, Payload: payload("c1", "lung", entity.SectionDiagnosis)},
		{ID: "b", Score: 0.5, Payload: payload("c2", "liver", entity.SectionDiagnosis)},
	}
	sparse := []ScoredPoint{
		{ID: "a", Score: 12.0, Payload: payload("c1", "lung", entity.SectionDiagnosis)},
		{ID: "b", Score: 20.0, Payload: payload("c2", "liver", entity.SectionDiagnosis)},
	}

	hits := p.Fuse("q#0", entity.SectionDiagnosis, dense, sparse)
	require.Len(t, hits, 2)

	byID := map[string]Hit{}
	for _, h := range hits {
		byID[h.PointID] = h
	}

	// Min-max puts each modality's best at 1 and worst at 0.
	assert.InDelta(t, 0.6, byID["a"].FusedScore, 1e-9)
	assert.InDelta(t, 0.4, byID["b"].FusedScore, 1e-9)

	// Raw scores are preserved for observability.
	assert.Equal(t, 0.9, byID["a"].DenseScore)
	assert.Equal(t, 12.0, byID["a"].SparseScore)
}

func TestFuseSingleHitIsMaximal(t *testing.T) {
	p := FusionPolicy{DenseWeight: 0.6, SparseWeight: 0.4, Normalization: "minmax"}

	dense := []ScoredPoint{{ID: "a", Score: 0.42, Payload: payload("c1", "lung", entity.SectionIHC)}}
	sparse := []ScoredPoint{{ID: "a", Score: 3.0, Payload: payload("c1", "lung", entity.SectionIHC)}}

	hits := p.Fuse("q#0", entity.SectionIHC, dense, sparse)
	require.Len(t, hits, 1)

	// A lone candidate normalizes to 1 in both modalities, so its fused
	// score is exactly the weight sum.
	assert.InDelta(t, 1.0, hits[0].FusedScore, 1e-9)
}

func TestFuseUnionOfModalities(t *testing.T) {
	p := FusionPolicy{DenseWeight: 0.6, SparseWeight: 0.4, Normalization: "minmax"}

	dense := []ScoredPoint{
		{ID: "a", Score: 0.9, Payload: payload("c1", "lung", entity.SectionDiagnosis)},
		{ID: "b", Score: 0.7, Payload: payload("c2", "liver", entity.SectionDiagnosis)},
	}
	sparse := []ScoredPoint{
		{ID: "c", Score: 8.0, Payload: payload("c3", "colon", entity.SectionDiagnosis)},
		{ID: "b", Score: 5.0, Payload: payload("c2", "liver", entity.SectionDiagnosis)},
	}

	hits := p.Fuse("q#0", entity.SectionDiagnosis, dense, sparse)
	require.Len(t, hits, 3)

	for _, h := range hits {
		assert.Equal(t, "q#0", h.QueryChunkID)
	}
}

func TestFuseSectionMatchBreaksTies(t *testing.T) {
	p := FusionPolicy{DenseWeight: 1.0, SparseWeight: 0.0, Normalization: "minmax"}

	// Equal dense scores normalize equally; only the section differs.
	dense := []ScoredPoint{
		{ID: "cross", Score: 0.8, Payload: payload("c1", "lung", entity.SectionDiagnosis)},
		{ID: "exact", Score: 0.8, Payload: payload("c2", "liver", entity.SectionIHC)},
	}

	hits := p.Fuse("q#0", entity.SectionIHC, dense, nil)
	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].PointID)
	assert.True(t, hits[0].SectionMatch)
	assert.False(t, hits[1].SectionMatch)
}

func TestFuseDeterministicOrder(t *testing.T) {
	p := FusionPolicy{DenseWeight: 1.0, SparseWeight: 0.0, Normalization: "minmax"}

	dense := []ScoredPoint{
		{ID: "b", Score: 0.5, Payload: payload("c2", "liver", entity.SectionDiagnosis)},
		{ID: "a", Score: 0.5, Payload: payload("c1", "lung", entity.SectionDiagnosis)},
	}

	first := p.Fuse("q#0", entity.SectionDiagnosis, dense, nil)
	second := p.Fuse("q#0", entity.SectionDiagnosis, dense, nil)
	require.Equal(t, first, second)
	// Identical score and section fall back to point id order.
	assert.Equal(t, "a", first[0].PointID)
}

func TestFuseZScore(t *testing.T) {
	p := FusionPolicy{DenseWeight: 1.0, SparseWeight: 0.0, Normalization: "zscore"}

	dense := []ScoredPoint{
		{ID: "a", Score: 0.9, Payload: payload("c1", "lung", entity.SectionDiagnosis)},
		{ID: "b", Score: 0.5, Payload: payload("c2", "liver", entity.SectionDiagnosis)},
		{ID: "c", Score: 0.1, Payload: payload("c3", "colon", entity.SectionDiagnosis)},
	}

	hits := p.Fuse("q#0", entity.SectionDiagnosis, dense, nil)
	require.Len(t, hits, 3)
	assert.Equal(t, "a", hits[0].PointID)
	assert.Equal(t, "c", hits[2].PointID)

	// The centered scores are shifted so the weakest candidate sits at
	// zero and nothing fuses negative.
	assert.InDelta(t, 0.0, hits[2].FusedScore, 1e-9)
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.FusedScore, 0.0)
	}
	// The symmetric spread keeps equal gaps after the shift.
	assert.InDelta(t, hits[0].FusedScore-hits[1].FusedScore,
		hits[1].FusedScore-hits[2].FusedScore, 1e-9)
}
