package pipeline

import (
	"regexp"
	"sort"
	"strings"

	"biocup-api/internal/domain/entity"
)

// headingVocabulary maps canonical section-heading cues (and close lexical
// variants) to the closed section set. Headings that open narrative or
// administrative sections map to OTHER.
var headingVocabulary = map[string]entity.Section{
	"FINAL DIAGNOSIS":              entity.SectionDiagnosis,
	"DIAGNOSIS":                    entity.SectionDiagnosis,
	"INTERPRETATION AND DIAGNOSIS": entity.SectionDiagnosis,

	"SPECIMEN":            entity.SectionSpecimen,
	"SPECIMENS RECEIVED":  entity.SectionSpecimen,
	"SPECIMENS SUBMITTED": entity.SectionSpecimen,
	"PROCEDURE":           entity.SectionSpecimen,
	"OPERATION":           entity.SectionSpecimen,

	"IMMUNOHISTOCHEMISTRY": entity.SectionIHC,
	"IMMUNOHISTOCHEMICAL":  entity.SectionIHC,
	"IHC":                  entity.SectionIHC,
	"SPECIAL STAINS":       entity.SectionIHC,

	"SYNOPTIC REPORT": entity.SectionSynoptic,
	"CAP SYNOPTIC":    entity.SectionSynoptic,
	"SYNOPTIC":        entity.SectionSynoptic,

	"REGIONAL LYMPH NODES": entity.SectionLymphNodes,
	"LYMPH NODE STATUS":    entity.SectionLymphNodes,
	"LYMPH NODES":          entity.SectionLymphNodes,

	"RESECTION MARGINS": entity.SectionMargins,
	"MARGIN STATUS":     entity.SectionMargins,
	"MARGINS":           entity.SectionMargins,

	"CLINICAL HISTORY":             entity.SectionOther,
	"CLINICAL NOTES":               entity.SectionOther,
	"HISTORY":                      entity.SectionOther,
	"GROSS DESCRIPTION":            entity.SectionOther,
	"GROSS":                        entity.SectionOther,
	"MICROSCOPIC DESCRIPTION":      entity.SectionOther,
	"MICROSCOPIC":                  entity.SectionOther,
	"COMMENTS":                     entity.SectionOther,
	"COMMENT":                      entity.SectionOther,
	"NOTES":                        entity.SectionOther,
	"NOTE":                         entity.SectionOther,
	"INTRAOPERATIVE CONSULTATION":  entity.SectionOther,
	"INTRA OPERATIVE CONSULTATION": entity.SectionOther,
	"FROZEN SECTION":               entity.SectionOther,
}

var headingRe = buildHeadingRe()

// inlineDiagnosisRe finds a DIAGNOSIS heading that OCR flattened into the
// middle of a line, where the line-anchored scan cannot see it.
var inlineDiagnosisRe = regexp.MustCompile(`(?i)\bDIAGNOSIS\b\s*:`)

// buildHeadingRe compiles the heading scanner. Alternatives are ordered
// longest-first so "FINAL DIAGNOSIS" wins over "DIAGNOSIS".
func buildHeadingRe() *regexp.Regexp {
	headings := make([]string, 0, len(headingVocabulary))
	for h := range headingVocabulary {
		headings = append(headings, h)
	}
	sort.Slice(headings, func(i, j int) bool {
		if len(headings[i]) != len(headings[j]) {
			return len(headings[i]) > len(headings[j])
		}
		return headings[i] < headings[j]
	})
	quoted := make([]string, len(headings))
	for i, h := range headings {
		quoted[i] = regexp.QuoteMeta(h)
	}
	return regexp.MustCompile(`(?im)^(` + strings.Join(quoted, "|") + `)\s*[:\-]?`)
}

// Chunker partitions normalized report text into ordered, non-overlapping
// SemanticChunks whose section labels come from recognized heading cues.
// Chunking is deterministic: identical input yields identical boundaries
// and labels.
type Chunker struct {
	minChunkChars int
}

// NewChunker creates a chunker. Chunks shorter than minChunkChars are
// merged into the preceding chunk so that diagnostically empty fragments
// never become retrieval units.
func NewChunker(minChunkChars int) *Chunker {
	if minChunkChars <= 0 {
		minChunkChars = 120
	}
	return &Chunker{minChunkChars: minChunkChars}
}

type span struct {
	section entity.Section
	text    string
}

// Chunk splits normalized text into section-typed chunks. A report with no
// recognized headings yields exactly one OTHER chunk spanning the whole
// text. Concatenating the chunks of a report reconstructs the normalized
// text modulo inter-chunk whitespace.
func (c *Chunker) Chunk(reportID, normalized string) []*entity.SemanticChunk {
	text := normalized
	if strings.TrimSpace(text) == "" {
		return nil
	}

	matches := headingRe.FindAllStringSubmatchIndex(text, -1)

	var spans []span
	if len(matches) == 0 {
		spans = []span{{section: entity.SectionOther, text: text}}
	} else {
		// Text before the first recognized heading is OTHER.
		if pre := text[:matches[0][0]]; strings.TrimSpace(pre) != "" {
			spans = append(spans, span{section: entity.SectionOther, text: pre})
		}
		for i, m := range matches {
			heading := canonicalHeading(text[m[2]:m[3]])
			section := headingVocabulary[heading]

			end := len(text)
			if i+1 < len(matches) {
				end = matches[i+1][0]
			}
			body := text[m[0]:end]
			if strings.TrimSpace(body) == "" {
				continue
			}
			spans = append(spans, span{section: section, text: body})
		}
	}

	spans = splitInlineDiagnosis(spans)
	spans = c.mergeShort(spans)

	chunks := make([]*entity.SemanticChunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, &entity.SemanticChunk{
			ID:       entity.ChunkID(reportID, i),
			ReportID: reportID,
			Ordinal:  i,
			Section:  s.section,
			Text:     strings.TrimSpace(s.text),
		})
	}
	return chunks
}

// splitInlineDiagnosis recovers mid-line DIAGNOSIS headings: the text
// before the cue keeps its span's label, everything from the cue onward
// becomes a DIAGNOSIS span. Spans already labeled DIAGNOSIS are left
// alone.
func splitInlineDiagnosis(spans []span) []span {
	out := make([]span, 0, len(spans))
	for _, s := range spans {
		if s.section == entity.SectionDiagnosis {
			out = append(out, s)
			continue
		}
		loc := inlineDiagnosisRe.FindStringIndex(s.text)
		if loc == nil {
			out = append(out, s)
			continue
		}
		if pre := s.text[:loc[0]]; strings.TrimSpace(pre) != "" {
			out = append(out, span{section: s.section, text: pre})
		}
		out = append(out, span{section: entity.SectionDiagnosis, text: s.text[loc[0]:]})
	}
	return out
}

// mergeShort folds fragments below the minimum length into the preceding
// span, preserving the preceding span's label and the overall coverage of
// the report text.
func (c *Chunker) mergeShort(spans []span) []span {
	if len(spans) <= 1 {
		return spans
	}
	out := make([]span, 0, len(spans))
	for _, s := range spans {
		if len(out) > 0 && len(strings.TrimSpace(s.text)) < c.minChunkChars {
			out[len(out)-1].text += s.text
			continue
		}
		out = append(out, s)
	}
	return out
}

func canonicalHeading(h string) string {
	return strings.ToUpper(strings.Join(strings.Fields(h), " "))
}
