package explain

import (
	"context"

	"biocup-api/internal/domain/entity"
	"biocup-api/pkg/logger"
	"biocup-api/pkg/metrics"
)

// Generator produces a grounded explanation from a question and an
// evidence context. Implementations must stay within the context: the
// system prompt forbids inventing facts.
type Generator interface {
	Generate(ctx context.Context, question, evidenceContext string) (string, error)
}

// Explainer is the diagnosis-side facade. A nil or disabled generator is
// a valid configuration: every Explain call then reports unavailable.
type Explainer struct {
	assembler *Assembler
	generator Generator
}

func NewExplainer(assembler *Assembler, generator Generator) *Explainer {
	return &Explainer{assembler: assembler, generator: generator}
}

// Explain attempts an explanation for ranked predictions. On any failure
// it returns ("", false) after logging; the caller marks the result
// explanation_unavailable and proceeds.
func (e *Explainer) Explain(ctx context.Context, predictions []entity.SitePrediction) (string, bool) {
	if e == nil || e.generator == nil || len(predictions) == 0 {
		metrics.ExplanationTotal.WithLabelValues("unavailable").Inc()
		return "", false
	}

	text, err := e.generator.Generate(ctx, e.assembler.Question(), e.assembler.Context(predictions))
	if err != nil {
		logger.Warn(ctx, "explanation generation failed", "error", err.Error())
		metrics.ExplanationTotal.WithLabelValues("unavailable").Inc()
		return "", false
	}
	if text == "" {
		logger.Warn(ctx, "explanation generation returned empty text")
		metrics.ExplanationTotal.WithLabelValues("unavailable").Inc()
		return "", false
	}

	metrics.ExplanationTotal.WithLabelValues("ok").Inc()
	return text, true
}
