package dto

import (
	"time"

	"biocup-api/internal/domain/entity"
)

// ResultResponse is the diagnostic report for one (case, revision).
// Probabilities are relative confidence over the retrieved evidence, not
// calibrated clinical probabilities.
type ResultResponse struct {
	ID                     string           `json:"id"`
	CaseID                 string           `json:"case_id"`
	Revision               int              `json:"revision"`
	NoMatches              bool             `json:"no_matches"`
	Predictions            []SitePrediction `json:"predictions"`
	Explanation            string           `json:"explanation,omitempty"`
	ExplanationUnavailable bool             `json:"explanation_unavailable,omitempty"`
	EncoderVersion         string           `json:"encoder_version,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
}

// SitePrediction is one ranked candidate primary site.
type SitePrediction struct {
	Site        string     `json:"site"`
	Probability float64    `json:"probability"`
	Evidence    []Citation `json:"evidence"`
}

// Citation points at one reference chunk supporting a prediction.
type Citation struct {
	CaseID  string `json:"case_id"`
	Section string `json:"section"`
	Snippet string `json:"snippet,omitempty"`
}

// NewResultResponse maps a result document to its response shape.
func NewResultResponse(result *entity.ResultDocument) ResultResponse {
	predictions := make([]SitePrediction, len(result.Predictions))
	for i, p := range result.Predictions {
		evidence := make([]Citation, len(p.Evidence))
		for j, e := range p.Evidence {
			evidence[j] = Citation{
				CaseID:  e.CaseID,
				Section: string(e.Section),
				Snippet: e.Snippet,
			}
		}
		predictions[i] = SitePrediction{
			Site:        p.Site,
			Probability: p.Probability,
			Evidence:    evidence,
		}
	}
	return ResultResponse{
		ID:                     result.ID,
		CaseID:                 result.CaseID,
		Revision:               result.Revision,
		NoMatches:              result.NoMatches,
		Predictions:            predictions,
		Explanation:            result.Explanation,
		ExplanationUnavailable: result.ExplanationUnavailable,
		EncoderVersion:         result.EncoderVersion,
		CreatedAt:              result.CreatedAt,
	}
}
