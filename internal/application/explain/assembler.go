// Package explain turns ranked site predictions and their cited evidence
// into a grounded natural-language explanation via an optional generator
// collaborator. Explanation failure never fails a diagnosis.
package explain

import (
	"fmt"
	"strings"

	"biocup-api/internal/domain/entity"
)

const (
	defaultMaxChars        = 6000
	defaultMaxItemsPerSite = 6
	explainSites           = 3
)

// Assembler builds the bounded evidence context handed to the generator.
type Assembler struct {
	maxChars        int
	maxItemsPerSite int
}

func NewAssembler(maxChars int) *Assembler {
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	return &Assembler{maxChars: maxChars, maxItemsPerSite: defaultMaxItemsPerSite}
}

// Context serializes the top predicted sites and their evidence snippets
// into a compact bundle. Assembly stops once the budget is reached, so
// lower-ranked sites may be truncated or absent.
func (a *Assembler) Context(predictions []entity.SitePrediction) string {
	var b strings.Builder
	total := 0

	sites := predictions
	if len(sites) > explainSites {
		sites = sites[:explainSites]
	}

outer:
	for _, p := range sites {
		header := fmt.Sprintf("\n### SITE: %s (probability=%.4f)\n", p.Site, p.Probability)
		b.WriteString(header)
		total += len(header)

		evidence := p.Evidence
		if len(evidence) > a.maxItemsPerSite {
			evidence = evidence[:a.maxItemsPerSite]
		}
		for _, ev := range evidence {
			block := fmt.Sprintf("(case_id=%s, section=%s)\n%s\n\n", ev.CaseID, ev.Section, ev.Snippet)
			b.WriteString(block)
			total += len(block)
			if total >= a.maxChars {
				break outer
			}
		}
	}

	return b.String()
}

// Question is the fixed instruction for the generator. It asks for
// comparative reasoning over the assembled evidence only.
func (a *Assembler) Question() string {
	return "Explain why the top predicted primary site is most supported, " +
		"compared to the next two sites. Highlight discriminative markers/phrases " +
		"if present and flag generic phrases that are not organ-specific."
}
