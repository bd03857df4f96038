// Package pipeline implements the clinical text pipeline: normalization,
// semantic chunking and clinical feature tagging.
package pipeline

import (
	"regexp"
	"strings"

	"biocup-api/pkg/errors"
)

var (
	pageMarkerRe = regexp.MustCompile(`(?i)\bpage\s*:?\s*\d+\s*(of\s*\d+)?\b`)
	statusRe     = regexp.MustCompile(`(?i)\bstatus\s*:\s*corrected\b[^.]*\.?`)
	ruleRe       = regexp.MustCompile(`(=|-|_){3,}`)
	spacesRe     = regexp.MustCompile(`[ \t]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)

	// Cassette labels (8A-8H, A1, B2) are scanner noise that skews
	// similarity.
	cassetteRe = regexp.MustCompile(`\b\d+[A-Z](?:-\d+[A-Z])?\b|\b[A-Z]\d\b`)

	// Administrative boilerplate lines carry no diagnostic content.
	adminLineRe = regexp.MustCompile(`(?i)\b(` +
		`print date/time|distributed to|patient locations|verified:|electronic signature|` +
		`this report was electronically signed|slides? received at|` +
		`other surgical pathology specimens|tissue code|source of specimen|` +
		`specimen was placed in formalin|ischemic time|time specimen was removed|` +
		`submitted for future studies|tumor bank|summary of sections|` +
		`continued on next page` +
		`)\b`)
)

// ocrCorrections repairs scanner/OCR artifacts common in the corpus.
var ocrCorrections = []struct {
	wrong, right string
}{
	{"tymph", "lymph"},
	{"attendir g", "attending"},
	{"alides", "slides"},
	{"materiala", "materials"},
	{"(D/", "(0/"},
}

// Normalizer cleans raw pathology report text into a canonical form with
// consistent line breaks and without administrative noise, while preserving
// line structure for section-heading detection. Normalize is idempotent.
type Normalizer struct{}

// NewNormalizer creates a normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize cleans raw report text. It returns ErrEmptyReport when the
// input, or what remains of it after stripping noise, is blank.
func (n *Normalizer) Normalize(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errors.ErrEmptyReport
	}

	t := raw
	t = strings.ReplaceAll(t, "\r\n", "\n")
	t = strings.ReplaceAll(t, "\r", "\n")
	t = strings.ReplaceAll(t, "\f", "\n")
	t = ruleRe.ReplaceAllString(t, "\n")

	for _, c := range ocrCorrections {
		t = strings.ReplaceAll(t, c.wrong, c.right)
	}

	lines := strings.Split(t, "\n")
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = pageMarkerRe.ReplaceAllString(ln, " ")
		ln = statusRe.ReplaceAllString(ln, " ")
		ln = cassetteRe.ReplaceAllString(ln, " ")
		ln = strings.TrimSpace(spacesRe.ReplaceAllString(ln, " "))
		if ln == "" {
			out = append(out, "")
			continue
		}
		// Short lines dominated by admin hints are dropped entirely;
		// longer ones may still carry clinical content.
		if adminLineRe.MatchString(ln) && len(ln) < 180 {
			continue
		}
		out = append(out, ln)
	}

	t = strings.Join(out, "\n")
	t = blankLinesRe.ReplaceAllString(t, "\n\n")
	t = strings.TrimSpace(t)

	if t == "" {
		return "", errors.ErrEmptyReport
	}
	return t, nil
}
