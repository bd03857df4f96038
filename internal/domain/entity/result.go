package entity

import "time"

// Citation points a prediction at a supporting reference chunk. Scores are
// deliberately absent: evidence is shown for explanation, not for the user
// to re-rank.
type Citation struct {
	CaseID  string  `json:"case_id"`
	Section Section `json:"section"`
	Snippet string  `json:"snippet,omitempty"`
}

// SitePrediction is one candidate primary site in a ranked result.
// Probability is the site's share of the total aggregated score across all
// candidate sites — a relative-confidence indicator, not a calibrated
// clinical probability.
type SitePrediction struct {
	Site            string     `json:"site"`
	AggregatedScore float64    `json:"-"`
	Probability     float64    `json:"probability"`
	Evidence        []Citation `json:"evidence"`
}

// ResultDocument is the produced diagnostic report for one (case, revision).
type ResultDocument struct {
	ID       string `json:"id"`
	CaseID   string `json:"case_id"`
	Revision int    `json:"revision"`
	// NoMatches marks the explicit no-matches state: no resolved reference
	// case was retrieved at all. Predictions is empty in that state.
	NoMatches   bool             `json:"no_matches,omitempty"`
	Predictions []SitePrediction `json:"predictions"`
	Explanation string           `json:"explanation,omitempty"`
	// ExplanationUnavailable marks that the explanation collaborator was
	// absent or failed; predictions are still complete.
	ExplanationUnavailable bool      `json:"explanation_unavailable,omitempty"`
	EncoderVersion         string    `json:"encoder_version,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
}
