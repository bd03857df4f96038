package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"biocup-api/internal/domain/entity"
	"biocup-api/internal/domain/repository"
	"biocup-api/pkg/errors"
)

// ResultRepo implements repository.ResultRepository. Predictions are
// stored as a JSONB document: they are read back whole, never queried
// field-by-field.
type ResultRepo struct {
	db *sql.DB
}

func NewResultRepo(client *Client) repository.ResultRepository {
	return &ResultRepo{db: client.DB()}
}

func (r *ResultRepo) Create(ctx context.Context, result *entity.ResultDocument) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	predictions, err := json.Marshal(result.Predictions)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternalError, "failed to marshal predictions")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO result_documents
			(id, case_id, revision, no_matches, predictions, explanation, explanation_unavailable, encoder_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		result.ID, result.CaseID, result.Revision, result.NoMatches,
		predictions, nullable(result.Explanation), result.ExplanationUnavailable,
		nullable(result.EncoderVersion), result.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to create result")
	}
	return nil
}

func (r *ResultRepo) GetByID(ctx context.Context, id string) (*entity.ResultDocument, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, case_id, revision, no_matches, predictions, explanation, explanation_unavailable, encoder_version, created_at
		FROM result_documents
		WHERE id = $1`, id))
}

func (r *ResultRepo) GetLatestByCase(ctx context.Context, caseID string) (*entity.ResultDocument, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, case_id, revision, no_matches, predictions, explanation, explanation_unavailable, encoder_version, created_at
		FROM result_documents
		WHERE case_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, caseID))
}

func (r *ResultRepo) scanOne(row *sql.Row) (*entity.ResultDocument, error) {
	var result entity.ResultDocument
	var predictions []byte
	var explanation, encoderVersion sql.NullString

	err := row.Scan(
		&result.ID, &result.CaseID, &result.Revision, &result.NoMatches,
		&predictions, &explanation, &result.ExplanationUnavailable,
		&encoderVersion, &result.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.ErrResultNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to fetch result")
	}

	if err := json.Unmarshal(predictions, &result.Predictions); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternalError, "failed to unmarshal predictions")
	}
	result.Explanation = explanation.String
	result.EncoderVersion = encoderVersion.String
	return &result, nil
}
