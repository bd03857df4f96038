// Package encoder provides HTTP clients for the dense and sparse
// embedding services.
package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"biocup-api/internal/config"
	"biocup-api/pkg/metrics"
)

// DenseClient calls the dense (transformer) embedding service.
type DenseClient struct {
	endpoint   string
	model      string
	dimension  int
	httpClient *http.Client
}

type denseRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model"`
	// Normalize asks the service for unit-length vectors so that dot
	// product equals cosine similarity.
	Normalize bool `json:"normalize"`
}

type denseResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func NewDenseClient(cfg config.DenseEncoderConfig) *DenseClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "BAAI/bge-base-en-v1.5"
	}
	return &DenseClient{
		endpoint:  cfg.Endpoint,
		model:     model,
		dimension: cfg.Dimension,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *DenseClient) EncodeDense(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	start := time.Now()
	resp, err := c.doEncode(ctx, texts)
	metrics.EncoderCallDuration.WithLabelValues("dense").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EncoderCallTotal.WithLabelValues("dense", "failed").Inc()
		return nil, err
	}
	metrics.EncoderCallTotal.WithLabelValues("dense", "ok").Inc()

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("dense encoder returned %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}
	if c.dimension > 0 {
		for i, v := range resp.Embeddings {
			if len(v) != c.dimension {
				return nil, fmt.Errorf("dense vector %d has dimension %d, want %d", i, len(v), c.dimension)
			}
		}
	}
	return resp.Embeddings, nil
}

func (c *DenseClient) Version() string {
	return c.model
}

func (c *DenseClient) doEncode(ctx context.Context, texts []string) (*denseResponse, error) {
	reqBody, err := json.Marshal(&denseRequest{
		Texts:     texts,
		Model:     c.model,
		Normalize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dense encode request: %w", err)
	}

	u, err := encodeURL(c.endpoint, "/embed")
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create dense encode request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("dense encode request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("dense encode request failed: status=%d", httpResp.StatusCode)
	}

	var resp denseResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode dense encode response: %w", err)
	}
	return &resp, nil
}

// encodeURL resolves the configured endpoint, appending the default path
// when only a host was configured.
func encodeURL(endpoint, defaultPath string) (string, error) {
	endpoint = strings.TrimRight(endpoint, "/")
	if endpoint == "" {
		return "", fmt.Errorf("encoder endpoint is empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid encoder endpoint: %w", err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = defaultPath
	}
	return u.String(), nil
}
