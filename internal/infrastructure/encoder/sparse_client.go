package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"biocup-api/internal/application/retrieval"
	"biocup-api/internal/config"
	"biocup-api/pkg/metrics"
)

// SparseClient calls the sparse (term-expansion) embedding service. The
// service returns SPLADE-style (index, weight) pairs per text.
type SparseClient struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

type sparseRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model"`
}

type sparseResponse struct {
	Embeddings []sparseEmbedding `json:"embeddings"`
}

type sparseEmbedding struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

func NewSparseClient(cfg config.SparseEncoderConfig) *SparseClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "prithivida/Splade_PP_en_v1"
	}
	return &SparseClient{
		endpoint: cfg.Endpoint,
		model:    model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *SparseClient) EncodeSparse(ctx context.Context, texts []string) ([]retrieval.SparseVector, error) {
	if len(texts) == 0 {
		return []retrieval.SparseVector{}, nil
	}

	start := time.Now()
	resp, err := c.doEncode(ctx, texts)
	metrics.EncoderCallDuration.WithLabelValues("sparse").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EncoderCallTotal.WithLabelValues("sparse", "failed").Inc()
		return nil, err
	}
	metrics.EncoderCallTotal.WithLabelValues("sparse", "ok").Inc()

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("sparse encoder returned %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([]retrieval.SparseVector, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if len(e.Indices) != len(e.Values) {
			return nil, fmt.Errorf("sparse vector %d has %d indices and %d values", i, len(e.Indices), len(e.Values))
		}
		vectors[i] = retrieval.SparseVector{Indices: e.Indices, Values: e.Values}
	}
	return vectors, nil
}

func (c *SparseClient) Version() string {
	return c.model
}

func (c *SparseClient) doEncode(ctx context.Context, texts []string) (*sparseResponse, error) {
	reqBody, err := json.Marshal(&sparseRequest{
		Texts: texts,
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sparse encode request: %w", err)
	}

	u, err := encodeURL(c.endpoint, "/embed_sparse")
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create sparse encode request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sparse encode request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("sparse encode request failed: status=%d", httpResp.StatusCode)
	}

	var resp sparseResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode sparse encode response: %w", err)
	}
	return &resp, nil
}
