// Package config provides configuration loading and management.
package config

import (
	"time"
)

// Config is the application configuration root. It is passed explicitly
// into component constructors; there is no ambient configuration state, so
// independent pipelines (test vs. production collections) can coexist in one
// process.
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Vector        VectorConfig        `yaml:"vector" mapstructure:"vector"`
	Encoder       EncoderConfig       `yaml:"encoder" mapstructure:"encoder"`
	Retrieval     RetrievalConfig     `yaml:"retrieval" mapstructure:"retrieval"`
	Pipeline      PipelineConfig      `yaml:"pipeline" mapstructure:"pipeline"`
	Explain       ExplainConfig       `yaml:"explain" mapstructure:"explain"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig holds application identity settings.
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig holds server settings.
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig holds HTTP server settings.
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// DatabaseConfig holds relational database settings.
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig holds PostgreSQL settings.
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig holds Redis settings.
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ResultTTL    time.Duration `yaml:"result_ttl" mapstructure:"result_ttl"`
}

// VectorConfig holds vector index settings.
type VectorConfig struct {
	Qdrant QdrantConfig `yaml:"qdrant" mapstructure:"qdrant"`
}

// QdrantConfig holds Qdrant settings. The collection carries one named
// dense vector and one named sparse vector per point.
type QdrantConfig struct {
	URL                string        `yaml:"url" mapstructure:"url"`
	APIKey             string        `yaml:"api_key" mapstructure:"api_key"`
	Collection         string        `yaml:"collection" mapstructure:"collection"`
	Timeout            time.Duration `yaml:"timeout" mapstructure:"timeout"`
	HNSWM              int           `yaml:"hnsw_m" mapstructure:"hnsw_m"`
	HNSWEfConstruction int           `yaml:"hnsw_ef_construction" mapstructure:"hnsw_ef_construction"`
}

// EncoderConfig holds the two embedding encoder endpoints. Both encoders
// are versioned; a version change invalidates stored vectors and requires
// re-indexing.
type EncoderConfig struct {
	Dense  DenseEncoderConfig  `yaml:"dense" mapstructure:"dense"`
	Sparse SparseEncoderConfig `yaml:"sparse" mapstructure:"sparse"`
}

// DenseEncoderConfig holds the dense (transformer) encoder settings.
type DenseEncoderConfig struct {
	Endpoint  string        `yaml:"endpoint" mapstructure:"endpoint"`
	Model     string        `yaml:"model" mapstructure:"model"`
	Dimension int           `yaml:"dimension" mapstructure:"dimension"`
	BatchSize int           `yaml:"batch_size" mapstructure:"batch_size"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SparseEncoderConfig holds the sparse (term-expansion) encoder settings.
type SparseEncoderConfig struct {
	Endpoint  string        `yaml:"endpoint" mapstructure:"endpoint"`
	Model     string        `yaml:"model" mapstructure:"model"`
	BatchSize int           `yaml:"batch_size" mapstructure:"batch_size"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RetrievalConfig holds the hybrid retrieval and aggregation tunables.
// The fusion policy (weights, normalization) is deliberately configuration,
// not hard-coded behavior.
type RetrievalConfig struct {
	TopK            int     `yaml:"top_k" mapstructure:"top_k"`
	TopSites        int     `yaml:"top_sites" mapstructure:"top_sites"`
	EvidencePerSite int     `yaml:"evidence_per_site" mapstructure:"evidence_per_site"`
	DenseWeight     float64 `yaml:"dense_weight" mapstructure:"dense_weight"`
	SparseWeight    float64 `yaml:"sparse_weight" mapstructure:"sparse_weight"`
	// Normalization: "minmax" or "zscore".
	Normalization string `yaml:"normalization" mapstructure:"normalization"`
	// MaxCasesPerChunk caps how many distinct cases one query chunk may
	// credit.
	MaxCasesPerChunk int `yaml:"max_cases_per_chunk" mapstructure:"max_cases_per_chunk"`
	// ConsistencyBonus > 0 rewards cases matched by several query chunks:
	// score *= 1 + bonus*(chunks-1). Neutral at 0.
	ConsistencyBonus float64 `yaml:"consistency_bonus" mapstructure:"consistency_bonus"`
	// SectionWeights optionally re-weights contributions by matched section
	// label. Missing sections weigh 1.0.
	SectionWeights map[string]float64 `yaml:"section_weights" mapstructure:"section_weights"`
	// SectionFilter restricts reference retrieval to diagnostically strong
	// sections, with an IHC-specific narrowing for IHC query chunks.
	SectionFilter bool `yaml:"section_filter" mapstructure:"section_filter"`
	// ChunkTimeout bounds one chunk's encode+query round trip.
	ChunkTimeout time.Duration `yaml:"chunk_timeout" mapstructure:"chunk_timeout"`
	// Concurrency bounds the per-chunk query fan-out.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// PipelineConfig holds the chunking pipeline tunables.
type PipelineConfig struct {
	// MinChunkChars merges shorter trailing fragments into the preceding
	// chunk.
	MinChunkChars int `yaml:"min_chunk_chars" mapstructure:"min_chunk_chars"`
	// IndexWorkers bounds the ingestion worker pool.
	IndexWorkers int `yaml:"index_workers" mapstructure:"index_workers"`
}

// ExplainConfig holds the explanation collaborator settings. The
// collaborator is optional: absence or failure never fails a diagnosis.
type ExplainConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	Temperature float32       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxChars    int           `yaml:"max_chars" mapstructure:"max_chars"`
}

// ObservabilityConfig holds logging, tracing and metrics settings.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig holds tracing settings.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig holds security settings.
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
