package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"biocup-api/internal/infrastructure/persistence/postgres"
	"biocup-api/internal/infrastructure/persistence/redis"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	pg      *postgres.Client
	redis   *redis.Client
	index   func(ctx context.Context) error
	version string
}

func NewHealthHandler(pg *postgres.Client, redisClient *redis.Client, indexCheck func(ctx context.Context) error, version string) *HealthHandler {
	return &HealthHandler{
		pg:      pg,
		redis:   redisClient,
		index:   indexCheck,
		version: version,
	}
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health reports process liveness.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready reports whether the service can take traffic: database, cache and
// vector index must all answer within the probe deadline.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{
		"postgres": h.check(ctx, func(ctx context.Context) error { return h.pg.Ping(ctx) }),
		"redis":    h.check(ctx, func(ctx context.Context) error { return h.redis.Ping(ctx) }),
		"qdrant":   h.check(ctx, h.index),
	}

	status := http.StatusOK
	overall := "ready"
	for _, check := range checks {
		if check.Status != "ok" {
			status = http.StatusServiceUnavailable
			overall = "not_ready"
			break
		}
	}

	c.JSON(status, readinessResponse{
		Status: overall,
		Checks: checks,
	})
}

func (h *HealthHandler) check(ctx context.Context, probe func(ctx context.Context) error) *readinessCheck {
	if probe == nil {
		return &readinessCheck{Status: "disabled"}
	}
	start := time.Now()
	if err := probe(ctx); err != nil {
		return &readinessCheck{
			Status:    "failed",
			Error:     err.Error(),
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}
	return &readinessCheck{
		Status:    "ok",
		LatencyMs: time.Since(start).Milliseconds(),
	}
}
