package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateCaseRequestTextPrefersRawText(t *testing.T) {
	req := CreateCaseRequest{
		RawText: "DIAGNOSIS:\nMetastatic adenocarcinoma.",
		Form:    &ReportForm{Histology: "ignored"},
	}
	assert.Equal(t, "DIAGNOSIS:\nMetastatic adenocarcinoma.", req.Text())
}

func TestCreateCaseRequestTextFallsBackToForm(t *testing.T) {
	req := CreateCaseRequest{
		RawText: "   \n",
		Form:    &ReportForm{Histology: "Adenocarcinoma, poorly differentiated"},
	}
	text := req.Text()
	assert.Contains(t, text, "DIAGNOSIS:")
	assert.Contains(t, text, "Adenocarcinoma, poorly differentiated")
}

func TestCreateCaseRequestTextEmpty(t *testing.T) {
	req := CreateCaseRequest{}
	assert.Equal(t, "", req.Text())
}

func TestReportFormRenderSections(t *testing.T) {
	form := ReportForm{
		Histology:         "Squamous cell carcinoma",
		MetastasisSites:   []string{"cervical lymph node", "lung"},
		LymphNodesSummary: "3 of 12 nodes positive.",
		IHC: map[string]string{
			"p40":  "positive",
			"CK7":  "negative",
			"TTF1": "negative",
		},
		TNM:   "pTX pN2b",
		Notes: "Clinical history of neck mass.",
	}

	text := form.Render()

	for _, heading := range []string{
		"DIAGNOSIS:", "LYMPH NODES:", "IMMUNOHISTOCHEMISTRY:",
		"SYNOPTIC REPORT:", "COMMENT:",
	} {
		assert.Contains(t, text, heading)
	}
	assert.Contains(t, text, "Histology: Squamous cell carcinoma.")
	assert.Contains(t, text, "Metastasis sites: cervical lymph node, lung.")
	assert.Contains(t, text, "Primary tumor site not identified.")
	assert.Contains(t, text, "3 of 12 nodes positive.")
	// Markers render in stable sorted order.
	assert.Contains(t, text, "Immunohistochemistry: CK7: negative; TTF1: negative; p40: positive")
	assert.Contains(t, text, "pTX pN2b")
	assert.Contains(t, text, "Clinical history of neck mass.")
}

func TestReportFormRenderDeterministic(t *testing.T) {
	form := ReportForm{
		IHC: map[string]string{"CK20": "positive", "CDX2": "positive", "CK7": "negative"},
	}
	first := form.Render()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, form.Render())
	}
}

func TestReportFormRenderDefaults(t *testing.T) {
	text := (&ReportForm{}).Render()

	assert.Contains(t, text, "Histology: Not specified.")
	assert.Contains(t, text, "Metastasis sites: Not specified.")
	assert.Contains(t, text, "No lymph node information provided.")
	assert.Contains(t, text, "No IHC provided.")
	assert.Contains(t, text, "TNM not provided.")
	assert.Contains(t, text, "No additional comments.")
}

func TestReportFormRenderSkipsEmptyMarkers(t *testing.T) {
	form := ReportForm{IHC: map[string]string{"CK7": "positive", "GATA3": ""}}
	text := form.Render()
	assert.Contains(t, text, "CK7: positive")
	assert.False(t, strings.Contains(text, "GATA3"))
}
