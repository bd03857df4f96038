// Package llm implements the explanation generator on the OpenAI chat
// completions API.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"biocup-api/internal/config"
)

const systemPrompt = "You are a clinical retrieval assistant.\n" +
	"Rules:\n" +
	"- Use ONLY the provided context.\n" +
	"- Do NOT invent facts.\n" +
	"- If context is insufficient, say what is missing.\n" +
	"- Provide citations as (case_id, section).\n" +
	"- Do NOT give medical advice. Summarize evidence patterns only.\n"

// OpenAIGenerator produces grounded explanations via chat completions.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// NewOpenAIGenerator returns nil when no API key is configured, which the
// explain facade treats as "collaborator absent".
func NewOpenAIGenerator(cfg config.ExplainConfig) *OpenAIGenerator {
	if !cfg.Enabled || cfg.APIKey == "" {
		return nil
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, question, evidenceContext string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	user := fmt.Sprintf(
		"Question:\n%s\n\nContext:\n%s\n\n"+
			"Answer format:\n"+
			"1) Top-site reasoning (short)\n"+
			"2) Evidence that supports top-1 vs top-2 (bullets)\n"+
			"3) Evidence that supports top-1 vs top-3 (bullets)\n"+
			"4) Generic/weak evidence to ignore (bullets)\n"+
			"5) Conclusion with uncertainty note\n",
		question, evidenceContext)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
