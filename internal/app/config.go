package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/yungbote/pathprogress/internal/observability"
)

type Config struct {
	LogMode     string
	HTTPAddr    string
	CORSOrigins []string

	Postgres PostgresConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Storage  StorageAPIConfig
	Otel     observability.OtelConfig
}

type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	SlowQuery    time.Duration
}

// RedisConfig is optional. An empty Addr means events stay in process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// CacheConfig selects the local durable cache the progress client keeps.
type CacheConfig struct {
	Driver          string
	Path            string
	RedisPrefix     string
	ReconcilePolicy string
}

type StorageAPIConfig struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_mode", "development")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("cors_origins", "")

	v.SetDefault("postgres_dsn", "")
	v.SetDefault("postgres_max_open_conns", 20)
	v.SetDefault("postgres_max_idle_conns", 10)
	v.SetDefault("postgres_slow_query", "200ms")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_channel", "pathprogress.events")

	v.SetDefault("progress_cache_driver", "sqlite")
	v.SetDefault("progress_cache_path", "pathprogress-cache.db")
	v.SetDefault("progress_cache_redis_prefix", "pathprogress:cache")
	v.SetDefault("progress_reconcile_policy", "replace")

	v.SetDefault("storage_api_url", "http://localhost:8080")
	v.SetDefault("storage_api_timeout", "10s")
	v.SetDefault("storage_api_max_retries", 2)

	v.SetDefault("otel_enabled", false)
	v.SetDefault("otel_service_name", "pathprogress")
	v.SetDefault("otel_environment", "development")
	v.SetDefault("otel_service_version", "dev")
	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("otel_exporter_otlp_insecure", true)
	v.SetDefault("otel_exporter_otlp_headers", "")
	v.SetDefault("otel_sample_ratio", 1.0)
}

// LoadConfig reads defaults, then ./config/config.yaml if present, then the environment.
// Flags in fs override everything when set. A flag binds to the key in its "config"
// annotation, or to its name with dashes turned into underscores.
func LoadConfig(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if ann, ok := f.Annotations["config"]; ok && len(ann) > 0 {
				key = ann[0]
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	cfg := Config{
		LogMode:     v.GetString("log_mode"),
		HTTPAddr:    v.GetString("http_addr"),
		CORSOrigins: splitList(v.GetString("cors_origins")),
		Postgres: PostgresConfig{
			DSN:          v.GetString("postgres_dsn"),
			MaxOpenConns: v.GetInt("postgres_max_open_conns"),
			MaxIdleConns: v.GetInt("postgres_max_idle_conns"),
			SlowQuery:    v.GetDuration("postgres_slow_query"),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(v.GetString("redis_addr")),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
			Channel:  v.GetString("redis_channel"),
		},
		Cache: CacheConfig{
			Driver:          strings.ToLower(strings.TrimSpace(v.GetString("progress_cache_driver"))),
			Path:            v.GetString("progress_cache_path"),
			RedisPrefix:     v.GetString("progress_cache_redis_prefix"),
			ReconcilePolicy: v.GetString("progress_reconcile_policy"),
		},
		Storage: StorageAPIConfig{
			URL:        strings.TrimRight(v.GetString("storage_api_url"), "/"),
			Timeout:    v.GetDuration("storage_api_timeout"),
			MaxRetries: v.GetInt("storage_api_max_retries"),
		},
		Otel: observability.OtelConfig{
			Enabled:     v.GetBool("otel_enabled"),
			ServiceName: v.GetString("otel_service_name"),
			Environment: v.GetString("otel_environment"),
			Version:     v.GetString("otel_service_version"),
			Endpoint:    v.GetString("otel_exporter_otlp_endpoint"),
			Insecure:    v.GetBool("otel_exporter_otlp_insecure"),
			Headers:     observability.ParseHeaders(v.GetString("otel_exporter_otlp_headers")),
			SampleRatio: v.GetFloat64("otel_sample_ratio"),
		},
	}
	switch cfg.Cache.Driver {
	case "memory", "sqlite", "redis":
	default:
		return Config{}, fmt.Errorf("progress_cache_driver %q: want memory, sqlite or redis", cfg.Cache.Driver)
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
