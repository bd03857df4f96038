package qdrant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biocup-api/internal/application/retrieval"
	"biocup-api/internal/domain/entity"
)

func TestBuildFilterEmpty(t *testing.T) {
	assert.Nil(t, buildFilter(retrieval.Filter{}))
}

func TestBuildFilterResolvedOnlyAndExclusion(t *testing.T) {
	f := buildFilter(retrieval.Filter{
		ResolvedOnly:  true,
		ExcludeCaseID: "CASE-42",
	})
	require.NotNil(t, f)
	assert.NotContains(t, f, "must")

	mustNot, ok := f["must_not"].([]any)
	require.True(t, ok)
	require.Len(t, mustNot, 2)

	isEmpty := mustNot[0].(map[string]any)["is_empty"].(map[string]any)
	assert.Equal(t, "primary_site", isEmpty["key"])

	exclude := mustNot[1].(map[string]any)
	assert.Equal(t, "case_id", exclude["key"])
	assert.Equal(t, "CASE-42", exclude["match"].(map[string]any)["value"])
}

func TestBuildFilterSectionsAndIHC(t *testing.T) {
	f := buildFilter(retrieval.Filter{
		Sections:   []entity.Section{entity.SectionIHC, entity.SectionDiagnosis},
		RequireIHC: true,
	})
	require.NotNil(t, f)

	must, ok := f["must"].([]any)
	require.True(t, ok)
	require.Len(t, must, 2)

	sections := must[0].(map[string]any)
	assert.Equal(t, "section", sections["key"])
	assert.Equal(t, []string{"IHC", "DIAGNOSIS"}, sections["match"].(map[string]any)["any"])

	ihc := must[1].(map[string]any)
	assert.Equal(t, "has_ihc", ihc["key"])
	assert.Equal(t, true, ihc["match"].(map[string]any)["value"])
}

func TestPayloadRoundTrip(t *testing.T) {
	site := "lung"
	in := retrieval.ChunkPayload{
		ChunkID:       "CASE-7:2",
		CaseID:        "CASE-7",
		PatientID:     "P-19",
		PrimarySite:   &site,
		CancerType:    "adenocarcinoma",
		CancerSubtype: "lepidic",
		Section:       entity.SectionIHC,
		Flags: entity.ClinicalFlags{
			HasIHC:  true,
			HasTNM:  true,
			HasSize: true,
		},
		EncoderVersion: "BAAI/bge-base-en-v1.5+prithivida/Splade_PP_en_v1",
		Text:           "TTF-1 positive, Napsin A positive.",
	}

	flat := flattenPayload(in)
	assert.Equal(t, "lung", flat["primary_site"])
	assert.Equal(t, "IHC", flat["section"])
	assert.Equal(t, true, flat["has_ihc"])
	assert.Equal(t, false, flat["has_lymph"])

	out := unflattenPayload(flat)
	assert.Equal(t, in, out)
}

func TestFlattenPayloadUnresolvedCaseOmitsSite(t *testing.T) {
	flat := flattenPayload(retrieval.ChunkPayload{
		ChunkID: "Q-1:0",
		CaseID:  "Q-1",
		Section: entity.SectionDiagnosis,
	})
	_, present := flat["primary_site"]
	assert.False(t, present)

	out := unflattenPayload(flat)
	assert.Nil(t, out.PrimarySite)
}

func TestUnflattenPayloadIgnoresForeignTypes(t *testing.T) {
	out := unflattenPayload(map[string]any{
		"case_id": 12345,
		"has_ihc": "yes",
		"section": "DIAGNOSIS",
	})
	assert.Equal(t, "", out.CaseID)
	assert.False(t, out.Flags.HasIHC)
	assert.Equal(t, entity.SectionDiagnosis, out.Section)
}
