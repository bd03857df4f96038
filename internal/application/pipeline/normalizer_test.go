package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biocup-api/pkg/errors"
)

func TestNormalizerEmptyInput(t *testing.T) {
	n := NewNormalizer()

	for _, raw := range []string{"", "   ", "\n\n\t  \n"} {
		_, err := n.Normalize(raw)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeEmptyReport))
	}
}

func TestNormalizerNoiseOnlyInput(t *testing.T) {
	n := NewNormalizer()

	// Every line is administrative noise, so the result is blank.
	_, err := n.Normalize("Print Date/Time: 01/02/2020\nDistributed To: records\n=====\n")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeEmptyReport))
}

func TestNormalizerStripsNoise(t *testing.T) {
	n := NewNormalizer()

	raw := "FINAL DIAGNOSIS:\r\nLung, right upper lobe, lobectomy:\r\n" +
		"Adenocarcinoma, acinar predominant.   Page: 2 of 3\r\n" +
		"Print Date/Time: 01/02/2020 09:15\r\n" +
		"==========\r\n" +
		"Tumor size: 3.1 cm.\r\n"

	got, err := n.Normalize(raw)
	require.NoError(t, err)

	assert.NotContains(t, got, "Page:")
	assert.NotContains(t, got, "Print Date/Time")
	assert.NotContains(t, got, "=====")
	assert.NotContains(t, got, "\r")
	assert.Contains(t, got, "Adenocarcinoma, acinar predominant.")
	assert.Contains(t, got, "Tumor size: 3.1 cm.")
}

func TestNormalizerOCRCorrections(t *testing.T) {
	n := NewNormalizer()

	got, err := n.Normalize("Regional tymph nodes: negative.")
	require.NoError(t, err)
	assert.Contains(t, got, "lymph nodes")
	assert.NotContains(t, got, "tymph")
}

func TestNormalizerIdempotent(t *testing.T) {
	n := NewNormalizer()

	raw := "SPECIMEN:\nRight upper lobe of lung, lobectomy specimen.\n\n\n\n" +
		"FINAL DIAGNOSIS:\nAdenocarcinoma of the lung, 2.4 cm, margins negative.\n"

	once, err := n.Normalize(raw)
	require.NoError(t, err)
	twice, err := n.Normalize(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestNormalizerKeepsLongLinesWithAdminHints(t *testing.T) {
	n := NewNormalizer()

	// A long line mentioning an admin phrase still carries clinical
	// content and must survive.
	long := "The specimen was placed in formalin after gross examination, which demonstrated a firm tan mass " +
		"measuring 4.2 cm in greatest dimension involving the bronchial resection margin with surrounding atelectasis."
	got, err := n.Normalize(long)
	require.NoError(t, err)
	assert.Contains(t, got, "4.2 cm")
}
