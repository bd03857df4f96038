package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biocup-api/internal/config"
	"biocup-api/internal/domain/entity"
	"biocup-api/pkg/errors"
)

type fakeDense struct {
	err error
}

func (f *fakeDense) EncodeDense(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

func (f *fakeDense) Version() string { return "dense-test" }

type fakeSparse struct {
	err error
}

func (f *fakeSparse) EncodeSparse(_ context.Context, texts []string) ([]SparseVector, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]SparseVector, len(texts))
	for i := range texts {
		out[i] = SparseVector{Indices: []uint32{1}, Values: []float32{1}}
	}
	return out, nil
}

func (f *fakeSparse) Version() string { return "sparse-test" }

type fakeIndex struct {
	mu      sync.Mutex
	dense   []ScoredPoint
	sparse  []ScoredPoint
	err     error
	filters []Filter
}

func (f *fakeIndex) EnsureCollection(context.Context) error { return nil }

func (f *fakeIndex) Upsert(context.Context, []Point) error { return nil }

func (f *fakeIndex) DeleteByCase(context.Context, string) error { return nil }

func (f *fakeIndex) Query(_ context.Context, params QueryParams) ([]ScoredPoint, error) {
	f.mu.Lock()
	f.filters = append(f.filters, params.Filter)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if params.Sparse != nil {
		return f.sparse, nil
	}
	return f.dense, nil
}

func testConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		TopK:            10,
		TopSites:        7,
		EvidencePerSite: 3,
		DenseWeight:     0.6,
		SparseWeight:    0.4,
		Normalization:   "minmax",
		Concurrency:     2,
	}
}

func chunk(ordinal int, section entity.Section, text string) *entity.SemanticChunk {
	return &entity.SemanticChunk{
		ID:      entity.ChunkID("q", ordinal),
		Ordinal: ordinal,
		Section: section,
		Text:    text,
	}
}

func point(id, caseID, site string, section entity.Section, score float64) ScoredPoint {
	return ScoredPoint{
		ID:    id,
		Score: score,
		Payload: ChunkPayload{
			ChunkID:     id,
			CaseID:      caseID,
			PrimarySite: &site,
			Section:     section,
			Text:        "reference text for " + caseID,
		},
	}
}

func TestDiagnoseRanksSitesByProbability(t *testing.T) {
	// One modality per site: the liver case is only a dense neighbor and
	// the colon case only a sparse one, so each normalizes to 1 within
	// its modality and the probabilities are exactly the fusion weights.
	index := &fakeIndex{
		dense:  []ScoredPoint{point("p1", "liver-1", "liver", entity.SectionDiagnosis, 0.9)},
		sparse: []ScoredPoint{point("p2", "colon-1", "colon", entity.SectionDiagnosis, 7.5)},
	}
	e := NewEngine(&fakeDense{}, &fakeSparse{}, index, testConfig())

	result, err := e.Diagnose(context.Background(), "query-case",
		[]*entity.SemanticChunk{chunk(0, entity.SectionDiagnosis, "adenocarcinoma in liver biopsy")})
	require.NoError(t, err)
	require.False(t, result.NoMatches)
	require.Len(t, result.Predictions, 2)

	assert.Equal(t, "liver", result.Predictions[0].Site)
	assert.InDelta(t, 0.6, result.Predictions[0].Probability, 1e-9)
	assert.Equal(t, "colon", result.Predictions[1].Site)
	assert.InDelta(t, 0.4, result.Predictions[1].Probability, 1e-9)

	total := result.Predictions[0].Probability + result.Predictions[1].Probability
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestDiagnoseSingleCaseGetsFullProbability(t *testing.T) {
	index := &fakeIndex{
		dense:  []ScoredPoint{point("p1", "lung-1", "lung", entity.SectionIHC, 0.42)},
		sparse: []ScoredPoint{point("p1", "lung-1", "lung", entity.SectionIHC, 3.0)},
	}
	e := NewEngine(&fakeDense{}, &fakeSparse{}, index, testConfig())

	result, err := e.Diagnose(context.Background(), "query-case",
		[]*entity.SemanticChunk{chunk(0, entity.SectionIHC, "TTF-1 positive")})
	require.NoError(t, err)
	require.Len(t, result.Predictions, 1)
	assert.InDelta(t, 1.0, result.Predictions[0].Probability, 1e-9)

	require.Len(t, result.Predictions[0].Evidence, 1)
	assert.Equal(t, "lung-1", result.Predictions[0].Evidence[0].CaseID)
	assert.Equal(t, entity.SectionIHC, result.Predictions[0].Evidence[0].Section)
}

func TestAggregateSumsAcrossChunks(t *testing.T) {
	// Chunk-level fused scores add across query chunks: one chunk backing
	// liver at 0.9 and another backing colon at 0.3 split the probability
	// mass 0.75 / 0.25.
	e := NewEngine(&fakeDense{}, &fakeSparse{}, &fakeIndex{}, testConfig())
	liver, colon := "liver", "colon"

	chunks := []*entity.SemanticChunk{
		chunk(0, entity.SectionDiagnosis, "metastatic adenocarcinoma"),
		chunk(1, entity.SectionIHC, "CDX2 positive"),
	}
	perChunk := [][]Hit{
		{{
			QueryChunkID: chunks[0].ID,
			PointID:      "p1",
			FusedScore:   0.9,
			Payload:      ChunkPayload{CaseID: "liver-1", PrimarySite: &liver, Section: entity.SectionDiagnosis},
		}},
		{{
			QueryChunkID: chunks[1].ID,
			PointID:      "p2",
			FusedScore:   0.3,
			Payload:      ChunkPayload{CaseID: "colon-1", PrimarySite: &colon, Section: entity.SectionIHC},
		}},
	}

	result := e.aggregate(chunks, perChunk)
	require.Len(t, result.Predictions, 2)
	assert.Equal(t, "liver", result.Predictions[0].Site)
	assert.InDelta(t, 0.75, result.Predictions[0].Probability, 1e-9)
	assert.Equal(t, "colon", result.Predictions[1].Site)
	assert.InDelta(t, 0.25, result.Predictions[1].Probability, 1e-9)
}

func TestDiagnoseZScoreProbabilitiesSumToOne(t *testing.T) {
	cfg := testConfig()
	cfg.Normalization = "zscore"
	index := &fakeIndex{
		dense: []ScoredPoint{
			point("p1", "liver-1", "liver", entity.SectionDiagnosis, 0.9),
			point("p2", "pancreas-1", "pancreas", entity.SectionDiagnosis, 0.5),
			point("p3", "colon-1", "colon", entity.SectionDiagnosis, 0.1),
		},
	}
	e := NewEngine(&fakeDense{}, &fakeSparse{}, index, cfg)

	result, err := e.Diagnose(context.Background(), "query-case",
		[]*entity.SemanticChunk{chunk(0, entity.SectionDiagnosis, "adenocarcinoma")})
	require.NoError(t, err)
	require.Len(t, result.Predictions, 3)

	var total float64
	for _, p := range result.Predictions {
		assert.GreaterOrEqual(t, p.Probability, 0.0)
		total += p.Probability
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	// The evenly spaced dense scores shift to 2:1:0 contributions.
	assert.Equal(t, "liver", result.Predictions[0].Site)
	assert.InDelta(t, 2.0/3.0, result.Predictions[0].Probability, 1e-9)
	assert.Equal(t, "pancreas", result.Predictions[1].Site)
	assert.InDelta(t, 1.0/3.0, result.Predictions[1].Probability, 1e-9)
	assert.Equal(t, "colon", result.Predictions[2].Site)
	assert.InDelta(t, 0.0, result.Predictions[2].Probability, 1e-9)
}

func TestDiagnoseCollapsesChunksOfSameCase(t *testing.T) {
	// Two chunks of the same reference case must count once per query
	// chunk, not once per matched chunk.
	index := &fakeIndex{
		dense: []ScoredPoint{
			point("p1", "lung-1", "lung", entity.SectionDiagnosis, 0.9),
			point("p2", "lung-1", "lung", entity.SectionIHC, 0.8),
			point("p3", "colon-1", "colon", entity.SectionDiagnosis, 0.1),
		},
	}
	e := NewEngine(&fakeDense{}, &fakeSparse{}, index, testConfig())

	result, err := e.Diagnose(context.Background(), "query-case",
		[]*entity.SemanticChunk{chunk(0, entity.SectionDiagnosis, "adenocarcinoma")})
	require.NoError(t, err)

	require.Equal(t, "lung", result.Predictions[0].Site)
	// Only the case's best chunk contributes, so lung cites one chunk.
	assert.Len(t, result.Predictions[0].Evidence, 1)
	assert.Equal(t, "lung-1", result.Predictions[0].Evidence[0].CaseID)
}

func TestDiagnoseExcludesQueryCase(t *testing.T) {
	index := &fakeIndex{
		dense: []ScoredPoint{point("p1", "ref-1", "lung", entity.SectionDiagnosis, 0.9)},
	}
	e := NewEngine(&fakeDense{}, &fakeSparse{}, index, testConfig())

	_, err := e.Diagnose(context.Background(), "query-case",
		[]*entity.SemanticChunk{chunk(0, entity.SectionDiagnosis, "adenocarcinoma")})
	require.NoError(t, err)

	require.NotEmpty(t, index.filters)
	for _, f := range index.filters {
		assert.Equal(t, "query-case", f.ExcludeCaseID)
		assert.True(t, f.ResolvedOnly)
	}
}

func TestDiagnoseNoMatches(t *testing.T) {
	e := NewEngine(&fakeDense{}, &fakeSparse{}, &fakeIndex{}, testConfig())

	result, err := e.Diagnose(context.Background(), "query-case",
		[]*entity.SemanticChunk{chunk(0, entity.SectionDiagnosis, "adenocarcinoma")})
	require.NoError(t, err)
	assert.True(t, result.NoMatches)
	assert.Empty(t, result.Predictions)
	assert.Equal(t, 1, result.ChunksQueried)
	assert.Equal(t, 0, result.ChunksFailed)
}

func TestDiagnoseEmptyChunkList(t *testing.T) {
	e := NewEngine(&fakeDense{}, &fakeSparse{}, &fakeIndex{}, testConfig())

	result, err := e.Diagnose(context.Background(), "query-case", nil)
	require.NoError(t, err)
	assert.True(t, result.NoMatches)
}

func TestDiagnoseAllChunksFailed(t *testing.T) {
	e := NewEngine(&fakeDense{err: fmt.Errorf("encoder down")}, &fakeSparse{}, &fakeIndex{}, testConfig())

	_, err := e.Diagnose(context.Background(), "query-case",
		[]*entity.SemanticChunk{
			chunk(0, entity.SectionDiagnosis, "adenocarcinoma"),
			chunk(1, entity.SectionIHC, "TTF-1 positive"),
		})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeEncoderUnavailable))
}

func TestDiagnoseIndexFailureSurfaces(t *testing.T) {
	e := NewEngine(&fakeDense{}, &fakeSparse{}, &fakeIndex{err: fmt.Errorf("connection refused")}, testConfig())

	_, err := e.Diagnose(context.Background(), "query-case",
		[]*entity.SemanticChunk{chunk(0, entity.SectionDiagnosis, "adenocarcinoma")})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeIndexUnavailable))
}

func TestDiagnoseTopSitesCap(t *testing.T) {
	var dense []ScoredPoint
	for i := 0; i < 10; i++ {
		site := fmt.Sprintf("site-%d", i)
		dense = append(dense, point(fmt.Sprintf("p%d", i), fmt.Sprintf("case-%d", i), site,
			entity.SectionDiagnosis, float64(10-i)))
	}
	cfg := testConfig()
	cfg.TopSites = 3
	e := NewEngine(&fakeDense{}, &fakeSparse{}, &fakeIndex{dense: dense}, cfg)

	result, err := e.Diagnose(context.Background(), "query-case",
		[]*entity.SemanticChunk{chunk(0, entity.SectionDiagnosis, "adenocarcinoma")})
	require.NoError(t, err)
	assert.Len(t, result.Predictions, 3)
	assert.Equal(t, "site-0", result.Predictions[0].Site)
}

func TestDiagnoseMaxCasesPerChunk(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCasesPerChunk = 1
	index := &fakeIndex{
		dense: []ScoredPoint{
			point("p1", "lung-1", "lung", entity.SectionDiagnosis, 0.9),
			point("p2", "colon-1", "colon", entity.SectionDiagnosis, 0.2),
		},
	}
	e := NewEngine(&fakeDense{}, &fakeSparse{}, index, cfg)

	result, err := e.Diagnose(context.Background(), "query-case",
		[]*entity.SemanticChunk{chunk(0, entity.SectionDiagnosis, "adenocarcinoma")})
	require.NoError(t, err)

	// Only the strongest case may be credited by the single query chunk.
	require.Len(t, result.Predictions, 1)
	assert.Equal(t, "lung", result.Predictions[0].Site)
}

func TestDiagnoseConsistencyBonus(t *testing.T) {
	index := &fakeIndex{
		dense: []ScoredPoint{
			point("p1", "lung-1", "lung", entity.SectionDiagnosis, 0.9),
			point("p2", "colon-1", "colon", entity.SectionDiagnosis, 0.3),
		},
	}
	chunks := []*entity.SemanticChunk{
		chunk(0, entity.SectionDiagnosis, "adenocarcinoma"),
		chunk(1, entity.SectionIHC, "TTF-1 positive"),
	}

	plain := NewEngine(&fakeDense{}, &fakeSparse{}, index, testConfig())
	plainResult, err := plain.Diagnose(context.Background(), "query-case", chunks)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.ConsistencyBonus = 0.25
	boosted := NewEngine(&fakeDense{}, &fakeSparse{}, &fakeIndex{dense: index.dense}, cfg)
	boostedResult, err := boosted.Diagnose(context.Background(), "query-case", chunks)
	require.NoError(t, err)

	// Both cases match both chunks, so the bonus multiplies both totals
	// equally and the probabilities are unchanged.
	assert.InDelta(t, plainResult.Predictions[0].Probability,
		boostedResult.Predictions[0].Probability, 1e-9)
	assert.Equal(t, plainResult.Predictions[0].Site, boostedResult.Predictions[0].Site)
}

func TestDiagnoseEvidenceSnippetTruncated(t *testing.T) {
	long := strings.Repeat("metastatic adenocarcinoma ", 20)
	site := "lung"
	index := &fakeIndex{
		dense: []ScoredPoint{{
			ID:    "p1",
			Score: 0.9,
			Payload: ChunkPayload{
				CaseID:      "lung-1",
				PrimarySite: &site,
				Section:     entity.SectionDiagnosis,
				Text:        long,
			},
		}},
	}
	e := NewEngine(&fakeDense{}, &fakeSparse{}, index, testConfig())

	result, err := e.Diagnose(context.Background(), "query-case",
		[]*entity.SemanticChunk{chunk(0, entity.SectionDiagnosis, "adenocarcinoma")})
	require.NoError(t, err)

	snippet := result.Predictions[0].Evidence[0].Snippet
	assert.LessOrEqual(t, len(snippet), evidenceSnippetChars+3)
	assert.True(t, strings.HasSuffix(snippet, "..."))
}

func TestDiagnoseSectionWeights(t *testing.T) {
	cfg := testConfig()
	cfg.SectionWeights = map[string]float64{string(entity.SectionIHC): 3.0}
	index := &fakeIndex{
		dense: []ScoredPoint{
			point("p1", "lung-1", "lung", entity.SectionIHC, 0.5),
			point("p2", "colon-1", "colon", entity.SectionDiagnosis, 0.5),
		},
	}
	e := NewEngine(&fakeDense{}, &fakeSparse{}, index, cfg)

	result, err := e.Diagnose(context.Background(), "query-case",
		[]*entity.SemanticChunk{chunk(0, entity.SectionIHC, "TTF-1 positive")})
	require.NoError(t, err)

	// Equal fused scores, but the IHC hit is up-weighted 3x.
	require.Len(t, result.Predictions, 2)
	assert.Equal(t, "lung", result.Predictions[0].Site)
	assert.InDelta(t, 0.75, result.Predictions[0].Probability, 1e-9)
	assert.InDelta(t, 0.25, result.Predictions[1].Probability, 1e-9)
}

func TestDiagnoseCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(&fakeDense{}, &fakeSparse{}, &fakeIndex{}, testConfig())
	_, err := e.Diagnose(ctx, "query-case",
		[]*entity.SemanticChunk{chunk(0, entity.SectionDiagnosis, "adenocarcinoma")})
	require.Error(t, err)
}
