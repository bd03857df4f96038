// Package config provides configuration loading.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration in priority order: default file, environment
// file, environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if err := loadConfigFile(v, "configs/config.yaml", false); err != nil {
		return nil, err
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := fmt.Sprintf("configs/config.%s.yaml", env)
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// loadConfigFile reads a file, expands ${VAR:default} placeholders, and
// merges it into viper.
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := expandEnv(string(content))

	reader := strings.NewReader(expanded)
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv replaces ${VAR} and ${VAR:default} placeholders.
func expandEnv(s string) string {
	re := regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		submatch := re.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		val, ok := os.LookupEnv(key)
		if ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		// Keep unresolved placeholders visible.
		return match
	})
}

// MustLoad loads configuration and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "biocup-api")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "60s")
	v.SetDefault("server.http.idle_timeout", "120s")

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.database", "biocup")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 25)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", "30m")

	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 50)
	v.SetDefault("cache.redis.min_idle_conns", 5)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")
	v.SetDefault("cache.redis.result_ttl", "24h")

	v.SetDefault("vector.qdrant.url", "http://localhost:6333")
	v.SetDefault("vector.qdrant.collection", "biocup_hybrid_v1")
	v.SetDefault("vector.qdrant.timeout", "15s")
	v.SetDefault("vector.qdrant.hnsw_m", 16)
	v.SetDefault("vector.qdrant.hnsw_ef_construction", 256)

	v.SetDefault("encoder.dense.model", "BAAI/bge-base-en-v1.5")
	v.SetDefault("encoder.dense.dimension", 768)
	v.SetDefault("encoder.dense.batch_size", 32)
	v.SetDefault("encoder.dense.timeout", "30s")
	v.SetDefault("encoder.sparse.model", "prithivida/Splade_PP_en_v1")
	v.SetDefault("encoder.sparse.batch_size", 16)
	v.SetDefault("encoder.sparse.timeout", "30s")

	v.SetDefault("retrieval.top_k", 40)
	v.SetDefault("retrieval.top_sites", 7)
	v.SetDefault("retrieval.evidence_per_site", 3)
	v.SetDefault("retrieval.dense_weight", 0.6)
	v.SetDefault("retrieval.sparse_weight", 0.4)
	v.SetDefault("retrieval.normalization", "minmax")
	v.SetDefault("retrieval.max_cases_per_chunk", 15)
	v.SetDefault("retrieval.consistency_bonus", 0.0)
	v.SetDefault("retrieval.section_filter", false)
	v.SetDefault("retrieval.chunk_timeout", "20s")
	v.SetDefault("retrieval.concurrency", 8)

	v.SetDefault("pipeline.min_chunk_chars", 120)
	v.SetDefault("pipeline.index_workers", 4)

	v.SetDefault("explain.enabled", true)
	v.SetDefault("explain.model", "gpt-4o-mini")
	v.SetDefault("explain.temperature", 0.0)
	v.SetDefault("explain.timeout", "60s")
	v.SetDefault("explain.max_chars", 6000)

	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests_per_second", 50)
	v.SetDefault("security.rate_limit.burst", 100)
}
