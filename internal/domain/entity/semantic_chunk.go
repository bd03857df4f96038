package entity

import "fmt"

// Section is the closed set of diagnostic section labels a chunk can carry.
type Section string

const (
	SectionSpecimen   Section = "SPECIMEN"
	SectionDiagnosis  Section = "DIAGNOSIS"
	SectionLymphNodes Section = "LYMPH_NODES"
	SectionMargins    Section = "MARGINS"
	SectionIHC        Section = "IHC"
	SectionSynoptic   Section = "SYNOPTIC"
	SectionOther      Section = "OTHER"
)

// AllSections lists every valid section label.
func AllSections() []Section {
	return []Section{
		SectionSpecimen,
		SectionDiagnosis,
		SectionLymphNodes,
		SectionMargins,
		SectionIHC,
		SectionSynoptic,
		SectionOther,
	}
}

// ParseSection maps a raw label to the closed section set, falling back to
// OTHER for anything unrecognized.
func ParseSection(s string) Section {
	switch Section(s) {
	case SectionSpecimen, SectionDiagnosis, SectionLymphNodes,
		SectionMargins, SectionIHC, SectionSynoptic:
		return Section(s)
	default:
		return SectionOther
	}
}

// ClinicalFlags are per-chunk boolean diagnostic signals. Each flag is
// computable from that chunk's text alone; they are advisory filters and
// never alter chunk boundaries.
type ClinicalFlags struct {
	HasIHC     bool `json:"has_ihc"`
	HasLymph   bool `json:"has_lymph"`
	HasTNM     bool `json:"has_tnm"`
	HasSize    bool `json:"has_size"`
	HasMargins bool `json:"has_margins"`
}

// SemanticChunk is one diagnostically coherent unit of a report. Chunks are
// ordered, non-overlapping, and together reconstruct the normalized report
// text. A chunk is the final retrieval unit: it is never split further and
// never merged with a neighbor downstream. Chunks are immutable;
// re-chunking a report produces new chunk identifiers.
type SemanticChunk struct {
	ID       string        `json:"id"`
	ReportID string        `json:"report_id"`
	Ordinal  int           `json:"ordinal"`
	Section  Section       `json:"section"`
	Text     string        `json:"text"`
	Flags    ClinicalFlags `json:"flags"`
}

// ChunkID derives the chunk identifier from its report and ordinal.
func ChunkID(reportID string, ordinal int) string {
	return fmt.Sprintf("%s#%d", reportID, ordinal)
}
