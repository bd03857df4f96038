// Package repository defines data access ports.
package repository

import (
	"context"

	"biocup-api/internal/domain/entity"
)

// ReportRepository stores pathology reports. Reports are append-only:
// Create assigns the next revision for the case instead of mutating an
// existing row.
type ReportRepository interface {
	// Create stores a new report revision and fills in ID and Revision.
	Create(ctx context.Context, report *entity.PathologyReport) error

	// GetByID fetches one report.
	GetByID(ctx context.Context, id string) (*entity.PathologyReport, error)

	// GetLatestByCase fetches the newest revision for a case.
	GetLatestByCase(ctx context.Context, caseID string) (*entity.PathologyReport, error)

	// ListReference lists resolved reference reports, newest revision per
	// case, for re-indexing.
	ListReference(ctx context.Context, limit, offset int) ([]*entity.PathologyReport, error)
}

// ResultRepository stores produced result documents.
type ResultRepository interface {
	// Create stores a result document.
	Create(ctx context.Context, result *entity.ResultDocument) error

	// GetByID fetches one result document.
	GetByID(ctx context.Context, id string) (*entity.ResultDocument, error)

	// GetLatestByCase fetches the newest result for a case.
	GetLatestByCase(ctx context.Context, caseID string) (*entity.ResultDocument, error)
}
