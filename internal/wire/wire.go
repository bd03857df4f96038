// Package wire assembles the application graph by explicit construction.
package wire

import (
	"context"
	"fmt"

	"biocup-api/internal/application/diagnosis"
	"biocup-api/internal/application/explain"
	"biocup-api/internal/application/retrieval"
	"biocup-api/internal/config"
	"biocup-api/internal/infrastructure/encoder"
	"biocup-api/internal/infrastructure/llm"
	"biocup-api/internal/infrastructure/persistence/postgres"
	"biocup-api/internal/infrastructure/persistence/qdrant"
	"biocup-api/internal/infrastructure/persistence/redis"
	"biocup-api/internal/interfaces/http/handler"
	"biocup-api/internal/interfaces/http/middleware"
	"biocup-api/internal/interfaces/http/router"
)

// App holds the assembled service graph.
type App struct {
	Config *config.Config

	PgClient    *postgres.Client
	RedisClient *redis.Client
	VectorIndex *qdrant.Repository

	Indexer *retrieval.Indexer
	Engine  *retrieval.Engine
	Service *diagnosis.Service

	Router *router.Router
}

// InitializeApp builds the full graph for the API gateway and returns a
// cleanup function closing the stateful clients.
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	app, cleanup, err := initializeCore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	resultCache := redis.NewResultCache(app.RedisClient, cfg.Cache.Redis.ResultTTL)
	explainer := newExplainer(cfg)

	app.Service = diagnosis.NewService(
		postgres.NewReportRepo(app.PgClient),
		postgres.NewResultRepo(app.PgClient),
		app.Indexer,
		app.Engine,
		explainer,
		resultCache,
		cfg.Encoder.Dense.Model+"+"+cfg.Encoder.Sparse.Model,
	)

	healthHandler := handler.NewHealthHandler(
		app.PgClient,
		app.RedisClient,
		app.VectorIndex.EnsureCollection,
		cfg.App.Version,
	)

	app.Router = router.New(cfg, router.Handlers{
		Health:    healthHandler,
		Case:      handler.NewCaseHandler(app.Service),
		Result:    handler.NewResultHandler(app.Service),
		Reference: handler.NewReferenceHandler(app.Service),
		RateLimit: middleware.NewRateLimitMiddleware(cfg.Security.RateLimit, app.RedisClient.Redis()),
	})

	return app, cleanup, nil
}

// InitializeIndexerApp builds the reduced graph for the batch indexer.
func InitializeIndexerApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	app, cleanup, err := initializeCore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	app.Service = diagnosis.NewService(
		postgres.NewReportRepo(app.PgClient),
		postgres.NewResultRepo(app.PgClient),
		app.Indexer,
		app.Engine,
		newExplainer(cfg),
		nil,
		cfg.Encoder.Dense.Model+"+"+cfg.Encoder.Sparse.Model,
	)
	return app, cleanup, nil
}

func initializeCore(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	pgClient, err := postgres.NewClient(cfg.Database.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}

	redisClient, err := redis.NewClient(cfg.Cache.Redis)
	if err != nil {
		pgClient.Close()
		return nil, nil, fmt.Errorf("redis: %w", err)
	}

	cleanup := func() {
		redisClient.Close()
		pgClient.Close()
	}

	qdrantClient := qdrant.NewClient(cfg.Vector.Qdrant)
	vectorIndex := qdrant.NewRepository(qdrantClient, *cfg)
	if err := vectorIndex.EnsureCollection(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("qdrant: %w", err)
	}

	dense := encoder.NewDenseClient(cfg.Encoder.Dense)
	sparse := encoder.NewSparseClient(cfg.Encoder.Sparse)

	app := &App{
		Config:      cfg,
		PgClient:    pgClient,
		RedisClient: redisClient,
		VectorIndex: vectorIndex,
		Indexer:     retrieval.NewIndexer(dense, sparse, vectorIndex, *cfg),
		Engine:      retrieval.NewEngine(dense, sparse, vectorIndex, cfg.Retrieval),
	}
	return app, cleanup, nil
}

// newExplainer wires the optional generator; a missing API key yields a
// facade that always reports unavailable.
func newExplainer(cfg *config.Config) *explain.Explainer {
	assembler := explain.NewAssembler(cfg.Explain.MaxChars)
	if gen := llm.NewOpenAIGenerator(cfg.Explain); gen != nil {
		return explain.NewExplainer(assembler, gen)
	}
	return explain.NewExplainer(assembler, nil)
}
