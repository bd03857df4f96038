package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"biocup-api/internal/application/retrieval"
	"biocup-api/internal/config"
	"biocup-api/internal/domain/entity"
	"biocup-api/pkg/metrics"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "sparse"
)

// Repository stores and queries hybrid chunk points. It implements
// retrieval.VectorIndex.
type Repository struct {
	client     *Client
	collection string
	dimension  int
	hnswM      int
	hnswEf     int
}

func NewRepository(client *Client, cfg config.Config) *Repository {
	m := cfg.Vector.Qdrant.HNSWM
	if m <= 0 {
		m = 16
	}
	ef := cfg.Vector.Qdrant.HNSWEfConstruction
	if ef <= 0 {
		ef = 256
	}
	return &Repository{
		client:     client,
		collection: cfg.Vector.Qdrant.Collection,
		dimension:  cfg.Encoder.Dense.Dimension,
		hnswM:      m,
		hnswEf:     ef,
	}
}

// EnsureCollection creates the hybrid collection if missing: a named
// cosine dense vector plus a named sparse vector with server-side IDF
// weighting.
func (r *Repository) EnsureCollection(ctx context.Context) error {
	status, err := r.client.getJSON(ctx, "/collections/"+r.collection, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			denseVectorName: map[string]any{
				"size":     r.dimension,
				"distance": "Cosine",
			},
		},
		"sparse_vectors": map[string]any{
			sparseVectorName: map[string]any{
				"modifier": "idf",
			},
		},
		"hnsw_config": map[string]any{
			"m":            r.hnswM,
			"ef_construct": r.hnswEf,
		},
	}
	if err := r.client.putJSON(ctx, "/collections/"+r.collection, body); err != nil {
		return err
	}

	// Payload indexes for the fields every query filters on.
	for field, schema := range map[string]string{
		"case_id":      "keyword",
		"primary_site": "keyword",
		"section":      "keyword",
		"has_ihc":      "bool",
	} {
		indexBody := map[string]any{"field_name": field, "field_schema": schema}
		if err := r.client.putJSON(ctx, "/collections/"+r.collection+"/index", indexBody); err != nil {
			return err
		}
	}
	return nil
}

// Upsert replaces points by id. Payload fields are stored flat so Qdrant
// can filter on them directly.
func (r *Repository) Upsert(ctx context.Context, points []retrieval.Point) error {
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]map[string]any, len(points))
	for i, p := range points {
		qpoints[i] = map[string]any{
			"id": p.ID,
			"vector": map[string]any{
				denseVectorName: p.Dense,
				sparseVectorName: map[string]any{
					"indices": p.Sparse.Indices,
					"values":  p.Sparse.Values,
				},
			},
			"payload": flattenPayload(p.Payload),
		}
	}

	err := r.client.putJSON(ctx, "/collections/"+r.collection+"/points?wait=true",
		map[string]any{"points": qpoints})
	if err != nil {
		metrics.QdrantUpsertTotal.WithLabelValues(r.collection, "failed").Inc()
		return err
	}
	metrics.QdrantUpsertTotal.WithLabelValues(r.collection, "ok").Inc()
	return nil
}

type queryResponse struct {
	Result struct {
		Points []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	} `json:"result"`
}

// Query runs one named-vector nearest-neighbor search with payload
// filters.
func (r *Repository) Query(ctx context.Context, params retrieval.QueryParams) ([]retrieval.ScoredPoint, error) {
	var query any
	var using string
	switch {
	case params.Sparse != nil:
		query = map[string]any{
			"indices": params.Sparse.Indices,
			"values":  params.Sparse.Values,
		}
		using = sparseVectorName
	case params.Dense != nil:
		query = params.Dense
		using = denseVectorName
	default:
		return nil, fmt.Errorf("query requires a dense or sparse vector")
	}

	body := map[string]any{
		"query":        query,
		"using":        using,
		"limit":        params.TopK,
		"with_payload": true,
	}
	if f := buildFilter(params.Filter); f != nil {
		body["filter"] = f
	}

	start := time.Now()
	var resp queryResponse
	err := r.client.postJSON(ctx, "/collections/"+r.collection+"/points/query", body, &resp)
	metrics.QdrantSearchDuration.WithLabelValues(r.collection, using).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QdrantSearchTotal.WithLabelValues(r.collection, using, "failed").Inc()
		return nil, err
	}
	metrics.QdrantSearchTotal.WithLabelValues(r.collection, using, "ok").Inc()

	hits := make([]retrieval.ScoredPoint, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		hits = append(hits, retrieval.ScoredPoint{
			ID:      fmt.Sprint(p.ID),
			Score:   p.Score,
			Payload: unflattenPayload(p.Payload),
		})
	}
	return hits, nil
}

// DeleteByCase removes every point of a case, so a re-indexed revision
// fully supersedes the previous one.
func (r *Repository) DeleteByCase(ctx context.Context, caseID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []any{
				map[string]any{"key": "case_id", "match": map[string]any{"value": caseID}},
			},
		},
	}
	return r.client.postJSON(ctx, "/collections/"+r.collection+"/points/delete?wait=true", body, nil)
}

func buildFilter(f retrieval.Filter) map[string]any {
	var must, mustNot []any

	if f.ResolvedOnly {
		mustNot = append(mustNot, map[string]any{
			"is_empty": map[string]any{"key": "primary_site"},
		})
	}
	if f.ExcludeCaseID != "" {
		mustNot = append(mustNot, map[string]any{
			"key": "case_id", "match": map[string]any{"value": f.ExcludeCaseID},
		})
	}
	if len(f.Sections) > 0 {
		sections := make([]string, len(f.Sections))
		for i, s := range f.Sections {
			sections[i] = string(s)
		}
		must = append(must, map[string]any{
			"key": "section", "match": map[string]any{"any": sections},
		})
	}
	if f.RequireIHC {
		must = append(must, map[string]any{
			"key": "has_ihc", "match": map[string]any{"value": true},
		})
	}

	if len(must) == 0 && len(mustNot) == 0 {
		return nil
	}
	filter := map[string]any{}
	if len(must) > 0 {
		filter["must"] = must
	}
	if len(mustNot) > 0 {
		filter["must_not"] = mustNot
	}
	return filter
}

func flattenPayload(p retrieval.ChunkPayload) map[string]any {
	payload := map[string]any{
		"chunk_id":        p.ChunkID,
		"case_id":         p.CaseID,
		"patient_id":      p.PatientID,
		"cancer_type":     p.CancerType,
		"cancer_subtype":  p.CancerSubtype,
		"section":         string(p.Section),
		"has_ihc":         p.Flags.HasIHC,
		"has_lymph":       p.Flags.HasLymph,
		"has_tnm":         p.Flags.HasTNM,
		"has_size":        p.Flags.HasSize,
		"has_margins":     p.Flags.HasMargins,
		"encoder_version": p.EncoderVersion,
		"text":            p.Text,
	}
	if p.PrimarySite != nil {
		payload["primary_site"] = *p.PrimarySite
	}
	return payload
}

func unflattenPayload(m map[string]any) retrieval.ChunkPayload {
	p := retrieval.ChunkPayload{
		ChunkID:        str(m, "chunk_id"),
		CaseID:         str(m, "case_id"),
		PatientID:      str(m, "patient_id"),
		CancerType:     str(m, "cancer_type"),
		CancerSubtype:  str(m, "cancer_subtype"),
		Section:        entity.Section(str(m, "section")),
		EncoderVersion: str(m, "encoder_version"),
		Text:           str(m, "text"),
	}
	if site := str(m, "primary_site"); site != "" {
		p.PrimarySite = &site
	}
	p.Flags = entity.ClinicalFlags{
		HasIHC:     boolean(m, "has_ihc"),
		HasLymph:   boolean(m, "has_lymph"),
		HasTNM:     boolean(m, "has_tnm"),
		HasSize:    boolean(m, "has_size"),
		HasMargins: boolean(m, "has_margins"),
	}
	return p
}

func str(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func boolean(m map[string]any, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}
