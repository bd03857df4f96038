package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"biocup-api/internal/domain/entity"
	"biocup-api/internal/domain/repository"
	"biocup-api/pkg/errors"
)

// ReportRepo implements repository.ReportRepository. Reports are
// append-only: each Create inserts the next revision for the case.
type ReportRepo struct {
	db *sql.DB
}

func NewReportRepo(client *Client) repository.ReportRepository {
	return &ReportRepo{db: client.DB()}
}

func (r *ReportRepo) Create(ctx context.Context, report *entity.PathologyReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CaseID == "" {
		report.CaseID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO pathology_reports
			(id, case_id, patient_id, raw_text, primary_site, cancer_type, cancer_subtype, revision, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7,
			 COALESCE((SELECT MAX(revision) FROM pathology_reports WHERE case_id = $2), 0) + 1,
			 $8)
		RETURNING revision`,
		report.ID, report.CaseID, report.PatientID, report.RawText,
		report.PrimarySite, nullable(report.CancerType), nullable(report.CancerSubtype),
		report.CreatedAt,
	).Scan(&report.Revision)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to create report")
	}
	return nil
}

func (r *ReportRepo) GetByID(ctx context.Context, id string) (*entity.PathologyReport, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, case_id, patient_id, raw_text, primary_site, cancer_type, cancer_subtype, revision, created_at
		FROM pathology_reports
		WHERE id = $1`, id))
}

func (r *ReportRepo) GetLatestByCase(ctx context.Context, caseID string) (*entity.PathologyReport, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, case_id, patient_id, raw_text, primary_site, cancer_type, cancer_subtype, revision, created_at
		FROM pathology_reports
		WHERE case_id = $1
		ORDER BY revision DESC
		LIMIT 1`, caseID))
}

func (r *ReportRepo) ListReference(ctx context.Context, limit, offset int) ([]*entity.PathologyReport, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ON (case_id)
			id, case_id, patient_id, raw_text, primary_site, cancer_type, cancer_subtype, revision, created_at
		FROM pathology_reports
		WHERE primary_site IS NOT NULL AND primary_site <> ''
		ORDER BY case_id, revision DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to list reference reports")
	}
	defer rows.Close()

	var reports []*entity.PathologyReport
	for rows.Next() {
		report, err := scanReport(rows.Scan)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan report")
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to iterate reports")
	}
	return reports, nil
}

func (r *ReportRepo) scanOne(row *sql.Row) (*entity.PathologyReport, error) {
	report, err := scanReport(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errors.ErrCaseNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to fetch report")
	}
	return report, nil
}

func scanReport(scan func(...any) error) (*entity.PathologyReport, error) {
	var report entity.PathologyReport
	var primarySite, cancerType, cancerSubtype sql.NullString
	err := scan(
		&report.ID, &report.CaseID, &report.PatientID, &report.RawText,
		&primarySite, &cancerType, &cancerSubtype, &report.Revision, &report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if primarySite.Valid && primarySite.String != "" {
		report.PrimarySite = &primarySite.String
	}
	report.CancerType = cancerType.String
	report.CancerSubtype = cancerSubtype.String
	return &report, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
