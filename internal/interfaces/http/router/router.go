// Package router provides HTTP route configuration.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"biocup-api/internal/config"
	"biocup-api/internal/interfaces/http/handler"
	"biocup-api/internal/interfaces/http/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Health    *handler.HealthHandler
	Case      *handler.CaseHandler
	Result    *handler.ResultHandler
	Reference *handler.ReferenceHandler
	RateLimit gin.HandlerFunc
}

// Router is the HTTP router.
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
}

// New builds the router with middleware and routes installed.
func New(cfg *config.Config, handlers Handlers) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine returns the gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.CORS(r.cfg.Security.CORS))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
	if r.handlers.RateLimit != nil {
		r.engine.Use(r.handlers.RateLimit)
	}
}

func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/live", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)

	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.engine.Group("/v1")
	{
		cases := v1.Group("/cases")
		{
			cases.POST("", r.handlers.Case.Create)
			cases.GET("/:id", r.handlers.Case.Get)
			cases.POST("/:id/diagnose", r.handlers.Case.Diagnose)
			cases.GET("/:id/result", r.handlers.Case.LatestResult)
		}

		v1.GET("/results/:id", r.handlers.Result.Get)
		v1.POST("/reference-cases", r.handlers.Reference.Create)
	}
}
