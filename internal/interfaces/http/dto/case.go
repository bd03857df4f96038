package dto

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"biocup-api/internal/domain/entity"
)

// CreateCaseRequest submits a query case. Either RawText or the
// structured Form must be provided; when both are present RawText wins.
type CreateCaseRequest struct {
	CaseID    string      `json:"case_id"`
	PatientID string      `json:"patient_id"`
	RawText   string      `json:"raw_text"`
	Form      *ReportForm `json:"form"`
}

// ReportForm is the structured intake form. It is rendered into a
// sectioned report so the same chunking pipeline handles both inputs.
type ReportForm struct {
	Histology         string            `json:"histology"`
	MetastasisSites   []string          `json:"metastasis_sites"`
	LymphNodesSummary string            `json:"lymph_nodes_summary"`
	IHC               map[string]string `json:"ihc"`
	TNM               string            `json:"tnm"`
	Notes             string            `json:"notes"`
}

// CreateReferenceRequest submits a resolved reference case.
type CreateReferenceRequest struct {
	CaseID        string      `json:"case_id"`
	PatientID     string      `json:"patient_id"`
	RawText       string      `json:"raw_text"`
	Form          *ReportForm `json:"form"`
	PrimarySite   string      `json:"primary_site" binding:"required"`
	CancerType    string      `json:"cancer_type"`
	CancerSubtype string      `json:"cancer_subtype"`
}

// CaseResponse describes a stored report revision.
type CaseResponse struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"case_id"`
	PatientID string    `json:"patient_id,omitempty"`
	Revision  int       `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
}

// ReferenceResponse describes a stored and indexed reference case.
type ReferenceResponse struct {
	CaseResponse
	PrimarySite   string `json:"primary_site"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

// Text resolves the report text: raw text as-is, or the structured form
// rendered into stable labeled sections.
func (r *CreateCaseRequest) Text() string {
	if strings.TrimSpace(r.RawText) != "" {
		return r.RawText
	}
	if r.Form != nil {
		return r.Form.Render()
	}
	return ""
}

// Text resolves the reference report text, same rules as CreateCaseRequest.
func (r *CreateReferenceRequest) Text() string {
	if strings.TrimSpace(r.RawText) != "" {
		return r.RawText
	}
	if r.Form != nil {
		return r.Form.Render()
	}
	return ""
}

// Render serializes the form into the canonical sectioned layout.
func (f *ReportForm) Render() string {
	var parts []string

	histology := orDefault(f.Histology, "Not specified")
	metastasis := "Not specified"
	if len(f.MetastasisSites) > 0 {
		metastasis = strings.Join(f.MetastasisSites, ", ")
	}
	parts = append(parts, fmt.Sprintf(
		"DIAGNOSIS:\nHistology: %s.\nMetastasis sites: %s.\nPrimary tumor site not identified.\n",
		histology, metastasis))

	parts = append(parts, fmt.Sprintf("LYMPH NODES:\n%s\n",
		orDefault(f.LymphNodesSummary, "No lymph node information provided.")))

	markers := make([]string, 0, len(f.IHC))
	for marker := range f.IHC {
		markers = append(markers, marker)
	}
	sort.Strings(markers)

	var ihcLines []string
	for _, marker := range markers {
		if value := f.IHC[marker]; value != "" {
			ihcLines = append(ihcLines, marker+": "+value)
		}
	}
	ihcText := "No IHC provided."
	if len(ihcLines) > 0 {
		ihcText = "Immunohistochemistry: " + strings.Join(ihcLines, "; ")
	}
	parts = append(parts, fmt.Sprintf("IMMUNOHISTOCHEMISTRY:\n%s\n", ihcText))

	parts = append(parts, fmt.Sprintf("SYNOPTIC REPORT:\n%s\n",
		orDefault(f.TNM, "TNM not provided.")))

	parts = append(parts, fmt.Sprintf("COMMENT:\n%s\n",
		orDefault(f.Notes, "No additional comments.")))

	return strings.Join(parts, "\n")
}

// NewCaseResponse maps a stored report to its response shape.
func NewCaseResponse(report *entity.PathologyReport) CaseResponse {
	return CaseResponse{
		ID:        report.ID,
		CaseID:    report.CaseID,
		PatientID: report.PatientID,
		Revision:  report.Revision,
		CreatedAt: report.CreatedAt,
	}
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
