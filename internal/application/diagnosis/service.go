// Package diagnosis orchestrates the end-to-end flow: stored report ->
// chunking pipeline -> hybrid retrieval -> optional explanation ->
// persisted result document.
package diagnosis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"biocup-api/internal/application/explain"
	"biocup-api/internal/application/retrieval"
	"biocup-api/internal/domain/entity"
	"biocup-api/internal/domain/repository"
	"biocup-api/pkg/errors"
	"biocup-api/pkg/logger"
)

// ResultCache caches result documents keyed by result id. A cache miss or
// cache failure is never an error for the caller.
type ResultCache interface {
	Get(ctx context.Context, id string) (*entity.ResultDocument, bool)
	Set(ctx context.Context, result *entity.ResultDocument)
}

// Service exposes the case-level operations behind the HTTP surface.
type Service struct {
	reports repository.ReportRepository
	results repository.ResultRepository

	indexer   *retrieval.Indexer
	engine    *retrieval.Engine
	explainer *explain.Explainer
	cache     ResultCache

	encoderVersion string
}

func NewService(
	reports repository.ReportRepository,
	results repository.ResultRepository,
	indexer *retrieval.Indexer,
	engine *retrieval.Engine,
	explainer *explain.Explainer,
	cache ResultCache,
	encoderVersion string,
) *Service {
	return &Service{
		reports:        reports,
		results:        results,
		indexer:        indexer,
		engine:         engine,
		explainer:      explainer,
		cache:          cache,
		encoderVersion: encoderVersion,
	}
}

// CreateCase stores a new query report revision. The text pipeline runs
// once up front so an empty report is rejected at submission time rather
// than at diagnosis time.
func (s *Service) CreateCase(ctx context.Context, report *entity.PathologyReport) (*entity.PathologyReport, error) {
	if _, err := s.indexer.Prepare(report); err != nil {
		return nil, err
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// CreateReference stores a resolved reference report and indexes its
// chunks into the vector store. Unresolved reports are rejected: only
// cases with a known primary site may serve as evidence.
func (s *Service) CreateReference(ctx context.Context, report *entity.PathologyReport) (*entity.PathologyReport, int, error) {
	if !report.IsResolved() {
		return nil, 0, errors.New(errors.CodeInvalidParam, "reference case requires a primary site")
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, 0, err
	}
	chunks, err := s.indexer.IndexReport(ctx, report)
	if err != nil {
		return nil, 0, err
	}
	return report, chunks, nil
}

// GetReport fetches the latest report revision for a case.
func (s *Service) GetReport(ctx context.Context, caseID string) (*entity.PathologyReport, error) {
	return s.reports.GetLatestByCase(ctx, caseID)
}

// Diagnose runs the full retrieval flow for the latest revision of one
// case and persists the result document. Explanation failure degrades the
// result, it never fails the call.
func (s *Service) Diagnose(ctx context.Context, caseID string) (*entity.ResultDocument, error) {
	report, err := s.reports.GetLatestByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithContext(ctx, logger.CaseIDKey, report.CaseID)
	ctx = logger.WithContext(ctx, logger.ReportIDKey, report.ID)

	chunks, err := s.indexer.Prepare(report)
	if err != nil {
		return nil, err
	}

	outcome, err := s.engine.Diagnose(ctx, report.CaseID, chunks)
	if err != nil {
		return nil, err
	}

	result := &entity.ResultDocument{
		ID:             uuid.NewString(),
		CaseID:         report.CaseID,
		Revision:       report.Revision,
		NoMatches:      outcome.NoMatches,
		Predictions:    outcome.Predictions,
		EncoderVersion: s.encoderVersion,
		CreatedAt:      time.Now().UTC(),
	}
	if result.Predictions == nil {
		result.Predictions = []entity.SitePrediction{}
	}

	if !outcome.NoMatches {
		if text, ok := s.explainer.Explain(ctx, outcome.Predictions); ok {
			result.Explanation = text
		} else {
			result.ExplanationUnavailable = true
		}
	}

	if err := s.results.Create(ctx, result); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, result)
	}

	logger.Info(ctx, "diagnosis completed",
		"result_id", result.ID,
		"no_matches", result.NoMatches,
		"sites", len(result.Predictions),
		"chunks_queried", outcome.ChunksQueried,
		"chunks_failed", outcome.ChunksFailed)
	return result, nil
}

// GetResult fetches a result document, preferring the cache.
func (s *Service) GetResult(ctx context.Context, id string) (*entity.ResultDocument, error) {
	if s.cache != nil {
		if result, ok := s.cache.Get(ctx, id); ok {
			return result, nil
		}
	}
	result, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, result)
	}
	return result, nil
}

// GetLatestResult fetches the newest result for a case.
func (s *Service) GetLatestResult(ctx context.Context, caseID string) (*entity.ResultDocument, error) {
	return s.results.GetLatestByCase(ctx, caseID)
}
