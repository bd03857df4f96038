package pipeline

import (
	"regexp"

	"biocup-api/internal/domain/entity"
)

var (
	// Immunohistochemistry marker and stain vocabulary.
	ihcRe = regexp.MustCompile(`(?i)\b(?:CK\d+|AE1/AE3|CK5/6|TTF-?1|p63|p40|NAPSIN(?:-?A)?|PAX8|WT1|HER2|ER|PR|ALK|ROS1|PD-?L1|CDX-?2|GATA-?3|SOX-?10|immunohistochem\w*|immunostain\w*)\b`)

	// TNM staging tokens: pT2, ypN0, T2N0 and similar.
	tnmRe = regexp.MustCompile(`(?i)\b(?:p|yp)?T\s*\d+[a-c]?\b|\b(?:p|yp)?N\s*\d+[a-c]?\b|\b(?:p|yp)?M\s*\d+[a-c]?\b|\bT\d+[a-c]?\s*N\d+[a-c]?\b`)

	// Explicit measurements with a unit: 4.0 cm, 18 mm, 3.0 x 2.0 cm.
	measureRe = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:x\s*\d+(?:\.\d+)?\s*)*(?:cm|mm)\b`)

	// Margin-status vocabulary.
	marginRe = regexp.MustCompile(`(?i)\bmargin(?:s)?\b|\bresection\s+margin\b|\bclosest\s+margin\b|\bdistance\s+(?:of|from)\b|\bbronchial\s+resection\b`)

	// Lymph node terminology, stations, and involvement counts (0/12).
	lymphRe = regexp.MustCompile(`(?i)\blymph\s+node(?:s)?\b|\bnodal\b|\bstation\b|\bsubcarinal\b|\bparatracheal\b|\binterlobar\b|\bhilar\b|\bmediastin(?:al|um)\b|\b\d+\s*/\s*\d+\s+(?:lymph\s+)?nodes?\b`)
)

// Tagger derives the five clinical flags from a chunk's own text. Flags
// never look across chunks and never alter chunk boundaries; a chunk with
// all flags false is valid.
type Tagger struct{}

// NewTagger creates a tagger.
func NewTagger() *Tagger {
	return &Tagger{}
}

// Tag computes the clinical flags for one chunk text.
func (t *Tagger) Tag(text string) entity.ClinicalFlags {
	return entity.ClinicalFlags{
		HasIHC:     ihcRe.MatchString(text),
		HasLymph:   lymphRe.MatchString(text),
		HasTNM:     tnmRe.MatchString(text),
		HasSize:    measureRe.MatchString(text),
		HasMargins: marginRe.MatchString(text),
	}
}

// TagChunks fills flags in place for every chunk of a report.
func (t *Tagger) TagChunks(chunks []*entity.SemanticChunk) {
	for _, c := range chunks {
		c.Flags = t.Tag(c.Text)
	}
}
