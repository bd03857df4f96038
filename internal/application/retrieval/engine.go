package retrieval

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"biocup-api/internal/config"
	"biocup-api/internal/domain/entity"
	"biocup-api/pkg/logger"
	"biocup-api/pkg/metrics"
)

const evidenceSnippetChars = 220

// Engine runs hybrid per-chunk retrieval against the case index and rolls
// chunk-level hits up into a ranked, probability-weighted list of candidate
// primary sites with cited evidence.
type Engine struct {
	dense  DenseEncoder
	sparse SparseEncoder
	index  VectorIndex

	cfg    config.RetrievalConfig
	policy FusionPolicy

	// encoderVersion is what freshly indexed points carry; hits encoded
	// under another version are a re-index signal.
	encoderVersion string
}

// NewEngine creates the retrieval engine. All tunables come from the
// explicit config object.
func NewEngine(dense DenseEncoder, sparse SparseEncoder, index VectorIndex, cfg config.RetrievalConfig) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = 40
	}
	if cfg.TopSites <= 0 {
		cfg.TopSites = 7
	}
	if cfg.EvidencePerSite <= 0 {
		cfg.EvidencePerSite = 3
	}
	if cfg.DenseWeight == 0 && cfg.SparseWeight == 0 {
		cfg.DenseWeight, cfg.SparseWeight = 0.6, 0.4
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Engine{
		dense:  dense,
		sparse: sparse,
		index:  index,
		cfg:    cfg,
		policy: FusionPolicy{
			DenseWeight:   cfg.DenseWeight,
			SparseWeight:  cfg.SparseWeight,
			Normalization: cfg.Normalization,
		},
		encoderVersion: dense.Version() + "+" + sparse.Version(),
	}
}

// Diagnose retrieves analog reference chunks for every chunk of one query
// report and aggregates them into site predictions. queryCaseID is always
// excluded from retrieval so a case can never match itself. Per-chunk
// failures contribute zero; the call fails only when the caller's context
// is canceled or every chunk failed.
func (e *Engine) Diagnose(ctx context.Context, queryCaseID string, chunks []*entity.SemanticChunk) (*Result, error) {
	if len(chunks) == 0 {
		return &Result{NoMatches: true}, nil
	}

	start := time.Now()

	perChunk := make([][]Hit, len(chunks))
	failures := make([]error, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			hits, err := e.retrieveChunk(gctx, queryCaseID, chunk)
			if err != nil {
				// Isolated: this chunk contributes nothing, the report
				// survives unless every chunk fails.
				logger.Warn(gctx, "chunk retrieval failed",
					"chunk_id", chunk.ID, "section", chunk.Section, "error", err.Error())
				failures[i] = err
				return nil
			}
			perChunk[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Canceled before the join point: discard all partial results,
		// probability normalization needs the complete hit set.
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	var lastErr error
	for _, err := range failures {
		if err != nil {
			failed++
			lastErr = err
		}
	}
	if failed == len(chunks) {
		metrics.DiagnosisTotal.WithLabelValues("failed").Inc()
		return nil, lastErr
	}

	result := e.aggregate(chunks, perChunk)
	result.ChunksQueried = len(chunks)
	result.ChunksFailed = failed

	status := "ok"
	if result.NoMatches {
		status = "no_matches"
	}
	metrics.DiagnosisTotal.WithLabelValues(status).Inc()
	metrics.DiagnosisDuration.Observe(time.Since(start).Seconds())

	return result, nil
}

// retrieveChunk encodes one query chunk with both encoders and fuses the
// dense and sparse candidate sets from the case index.
func (e *Engine) retrieveChunk(ctx context.Context, queryCaseID string, chunk *entity.SemanticChunk) ([]Hit, error) {
	if e.cfg.ChunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ChunkTimeout)
		defer cancel()
	}

	denseVecs, err := e.dense.EncodeDense(ctx, []string{chunk.Text})
	if err != nil || len(denseVecs) == 0 {
		return nil, ErrEncoderUnavailable.WithError(err)
	}
	sparseVecs, err := e.sparse.EncodeSparse(ctx, []string{chunk.Text})
	if err != nil || len(sparseVecs) == 0 {
		return nil, ErrEncoderUnavailable.WithError(err)
	}

	filter := e.buildFilter(queryCaseID, chunk)

	denseHits, err := e.index.Query(ctx, QueryParams{
		Dense:  denseVecs[0],
		Filter: filter,
		TopK:   e.cfg.TopK,
	})
	if err != nil {
		return nil, ErrIndexUnavailable.WithError(err)
	}
	sparseHits, err := e.index.Query(ctx, QueryParams{
		Sparse: &sparseVecs[0],
		Filter: filter,
		TopK:   e.cfg.TopK,
	})
	if err != nil {
		return nil, ErrIndexUnavailable.WithError(err)
	}

	hits := e.policy.Fuse(chunk.ID, chunk.Section, denseHits, sparseHits)
	for _, h := range hits {
		if v := h.Payload.EncoderVersion; v != "" && v != e.encoderVersion {
			logger.Warn(ctx, "hit encoded under stale encoder version, re-index recommended",
				"point_version", v, "current_version", e.encoderVersion)
			break
		}
	}
	return hits, nil
}

// buildFilter restricts retrieval to resolved reference cases and excludes
// the query's own case. With the section filter enabled, IHC query chunks
// are matched only against IHC/DIAGNOSIS chunks carrying IHC vocabulary,
// and other chunks against the diagnostically strong sections.
func (e *Engine) buildFilter(queryCaseID string, chunk *entity.SemanticChunk) Filter {
	f := Filter{
		ResolvedOnly:  true,
		ExcludeCaseID: queryCaseID,
	}
	if !e.cfg.SectionFilter {
		return f
	}
	if chunk.Section == entity.SectionIHC {
		f.Sections = []entity.Section{entity.SectionIHC, entity.SectionDiagnosis}
		f.RequireIHC = true
	} else {
		f.Sections = []entity.Section{entity.SectionDiagnosis, entity.SectionSynoptic, entity.SectionIHC}
	}
	return f
}

// caseContribution is pass-one state: one case's best evidence for the
// whole query report.
type caseContribution struct {
	caseID string
	site   string
	score  float64
	// chunksMatched counts distinct query chunks that retrieved this case.
	chunksMatched int
	hits          []Hit
}

// aggregate rolls per-chunk hits up to per-case and then per-site totals.
// The grouping is an explicit two-pass: chunk hits are first collapsed to
// at most one (best) contribution per case per query chunk, so correlated
// chunks inside one reference case cannot self-reinforce; distinct cases
// accumulate independently.
func (e *Engine) aggregate(chunks []*entity.SemanticChunk, perChunk [][]Hit) *Result {
	cases := make(map[string]*caseContribution)

	// Pass one: query chunk -> per-case best hit.
	for _, hits := range perChunk {
		best := make(map[string]Hit)
		for _, h := range hits {
			site := h.Payload.Site()
			if h.Payload.CaseID == "" || site == "" {
				continue
			}
			if cur, ok := best[h.Payload.CaseID]; !ok || h.FusedScore > cur.FusedScore {
				best[h.Payload.CaseID] = h
			}
		}

		contribs := make([]Hit, 0, len(best))
		for _, h := range best {
			contribs = append(contribs, h)
		}
		sort.SliceStable(contribs, func(i, j int) bool {
			if contribs[i].FusedScore != contribs[j].FusedScore {
				return contribs[i].FusedScore > contribs[j].FusedScore
			}
			return contribs[i].Payload.CaseID < contribs[j].Payload.CaseID
		})
		if e.cfg.MaxCasesPerChunk > 0 && len(contribs) > e.cfg.MaxCasesPerChunk {
			contribs = contribs[:e.cfg.MaxCasesPerChunk]
		}

		for _, h := range contribs {
			score := h.FusedScore * e.sectionWeight(h.Payload.Section)
			cc, ok := cases[h.Payload.CaseID]
			if !ok {
				cc = &caseContribution{
					caseID: h.Payload.CaseID,
					site:   h.Payload.Site(),
				}
				cases[h.Payload.CaseID] = cc
			}
			cc.score += score
			cc.chunksMatched++
			cc.hits = append(cc.hits, h)
		}
	}

	if len(cases) == 0 {
		return &Result{NoMatches: true}
	}

	// Pass two: case totals -> site totals. A case retrieved by several
	// query chunks may optionally earn a consistency bonus.
	siteScore := make(map[string]float64)
	siteHits := make(map[string][]Hit)
	for _, cc := range cases {
		total := cc.score
		if e.cfg.ConsistencyBonus > 0 && cc.chunksMatched > 1 {
			total *= 1 + e.cfg.ConsistencyBonus*float64(cc.chunksMatched-1)
		}
		siteScore[cc.site] += total
		siteHits[cc.site] = append(siteHits[cc.site], cc.hits...)
	}

	var grandTotal float64
	for _, s := range siteScore {
		grandTotal += s
	}

	predictions := make([]entity.SitePrediction, 0, len(siteScore))
	for site, score := range siteScore {
		p := entity.SitePrediction{
			Site:            site,
			AggregatedScore: score,
		}
		if grandTotal > 0 {
			p.Probability = score / grandTotal
		}
		p.Evidence = e.selectEvidence(siteHits[site])
		predictions = append(predictions, p)
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		if predictions[i].Probability != predictions[j].Probability {
			return predictions[i].Probability > predictions[j].Probability
		}
		return predictions[i].Site < predictions[j].Site
	})
	if len(predictions) > e.cfg.TopSites {
		predictions = predictions[:e.cfg.TopSites]
	}

	return &Result{Predictions: predictions}
}

// selectEvidence picks the strongest hits contributing to a site and
// records them as (case_id, section) citations. Scores are withheld:
// evidence is for explanation, not re-ranking.
func (e *Engine) selectEvidence(hits []Hit) []entity.Citation {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].FusedScore != hits[j].FusedScore {
			return hits[i].FusedScore > hits[j].FusedScore
		}
		return hits[i].PointID < hits[j].PointID
	})

	citations := make([]entity.Citation, 0, e.cfg.EvidencePerSite)
	for _, h := range hits {
		if len(citations) >= e.cfg.EvidencePerSite {
			break
		}
		citations = append(citations, entity.Citation{
			CaseID:  h.Payload.CaseID,
			Section: h.Payload.Section,
			Snippet: snippet(h.Payload.Text, evidenceSnippetChars),
		})
	}
	return citations
}

func (e *Engine) sectionWeight(section entity.Section) float64 {
	if len(e.cfg.SectionWeights) == 0 {
		return 1.0
	}
	if w, ok := e.cfg.SectionWeights[string(section)]; ok && w > 0 {
		return w
	}
	return 1.0
}

func snippet(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
