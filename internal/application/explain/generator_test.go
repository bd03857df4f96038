package explain

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biocup-api/internal/domain/entity"
)

type fakeGenerator struct {
	text string
	err  error

	gotQuestion string
	gotContext  string
}

func (f *fakeGenerator) Generate(_ context.Context, question, evidenceContext string) (string, error) {
	f.gotQuestion = question
	f.gotContext = evidenceContext
	return f.text, f.err
}

func TestExplainerSuccess(t *testing.T) {
	gen := &fakeGenerator{text: "Top site lung is supported by TTF-1 (lung-1, IHC)."}
	e := NewExplainer(NewAssembler(6000), gen)

	text, ok := e.Explain(context.Background(), predictions())
	require.True(t, ok)
	assert.Equal(t, gen.text, text)
	assert.Contains(t, gen.gotContext, "### SITE: lung")
	assert.NotEmpty(t, gen.gotQuestion)
}

func TestExplainerGeneratorFailureIsNonFatal(t *testing.T) {
	e := NewExplainer(NewAssembler(6000), &fakeGenerator{err: fmt.Errorf("rate limited")})

	text, ok := e.Explain(context.Background(), predictions())
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestExplainerEmptyTextIsUnavailable(t *testing.T) {
	e := NewExplainer(NewAssembler(6000), &fakeGenerator{text: ""})

	_, ok := e.Explain(context.Background(), predictions())
	assert.False(t, ok)
}

func TestExplainerWithoutGenerator(t *testing.T) {
	e := NewExplainer(NewAssembler(6000), nil)

	_, ok := e.Explain(context.Background(), predictions())
	assert.False(t, ok)
}

func TestExplainerNoPredictions(t *testing.T) {
	e := NewExplainer(NewAssembler(6000), &fakeGenerator{text: "anything"})

	_, ok := e.Explain(context.Background(), []entity.SitePrediction{})
	assert.False(t, ok)
}
