// Package entity defines domain entities.
package entity

import (
	"strings"
	"time"
)

// PathologyReport is one submitted pathology report. Reports are immutable
// once ingested: re-submission of the same case creates a new revision, it
// never mutates an existing one.
type PathologyReport struct {
	ID        string `json:"id"`
	CaseID    string `json:"case_id"`
	PatientID string `json:"patient_id"`
	RawText   string `json:"raw_text"`
	// PrimarySite is non-nil only for resolved reference cases.
	PrimarySite   *string   `json:"primary_site,omitempty"`
	CancerType    string    `json:"cancer_type,omitempty"`
	CancerSubtype string    `json:"cancer_subtype,omitempty"`
	Revision      int       `json:"revision"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsResolved reports whether the true primary site is known, making the
// report usable as a reference case.
func (r *PathologyReport) IsResolved() bool {
	return r.PrimarySite != nil && strings.TrimSpace(*r.PrimarySite) != ""
}

// Site returns the primary site or "" for unresolved query cases.
func (r *PathologyReport) Site() string {
	if r.PrimarySite == nil {
		return ""
	}
	return *r.PrimarySite
}
