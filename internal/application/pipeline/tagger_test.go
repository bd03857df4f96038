package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biocup-api/internal/domain/entity"
)

func TestTaggerIHC(t *testing.T) {
	tg := NewTagger()

	assert.True(t, tg.Tag("Tumor cells positive for TTF-1 and Napsin-A.").HasIHC)
	assert.True(t, tg.Tag("Immunohistochemical stains were performed.").HasIHC)
	assert.True(t, tg.Tag("CK7 positive, CDX2 negative.").HasIHC)
	assert.False(t, tg.Tag("Invasive adenocarcinoma of the colon.").HasIHC)
}

func TestTaggerTNM(t *testing.T) {
	tg := NewTagger()

	assert.True(t, tg.Tag("Pathologic stage: pT2a pN0.").HasTNM)
	assert.True(t, tg.Tag("ypT3 after neoadjuvant therapy.").HasTNM)
	assert.False(t, tg.Tag("No staging information provided.").HasTNM)
}

func TestTaggerSize(t *testing.T) {
	tg := NewTagger()

	assert.True(t, tg.Tag("Tumor measures 3.1 cm in greatest dimension.").HasSize)
	assert.True(t, tg.Tag("A mass of 18 mm was identified.").HasSize)
	assert.False(t, tg.Tag("A large tumor was identified.").HasSize)
}

func TestTaggerMargins(t *testing.T) {
	tg := NewTagger()

	assert.True(t, tg.Tag("Resection margins are free of tumor.").HasMargins)
	assert.True(t, tg.Tag("The closest margin is 2 mm away.").HasMargins)
	assert.False(t, tg.Tag("Adenocarcinoma with lymphovascular invasion.").HasMargins)
}

func TestTaggerLymph(t *testing.T) {
	tg := NewTagger()

	assert.True(t, tg.Tag("Eleven lymph nodes examined, all negative.").HasLymph)
	assert.True(t, tg.Tag("Metastasis in 2/12 nodes.").HasLymph)
	assert.True(t, tg.Tag("Subcarinal station sampled.").HasLymph)
	assert.False(t, tg.Tag("Margins negative, no residual tumor.").HasLymph)
}

func TestTaggerFlagsAreIndependent(t *testing.T) {
	tg := NewTagger()

	got := tg.Tag("TTF-1 positive tumor, 3.1 cm, pT2 pN1, margins negative, 1/11 lymph nodes involved.")
	assert.Equal(t, entity.ClinicalFlags{
		HasIHC:     true,
		HasLymph:   true,
		HasTNM:     true,
		HasSize:    true,
		HasMargins: true,
	}, got)

	none := tg.Tag("No diagnostic abnormality recognized.")
	assert.Equal(t, entity.ClinicalFlags{}, none)
}

func TestTagChunksFillsInPlace(t *testing.T) {
	tg := NewTagger()

	chunks := []*entity.SemanticChunk{
		{Text: "TTF-1 and p40 immunostains were examined."},
		{Text: "Gross description of the unremarkable specimen."},
	}
	tg.TagChunks(chunks)

	require.True(t, chunks[0].Flags.HasIHC)
	assert.False(t, chunks[1].Flags.HasIHC)
}
