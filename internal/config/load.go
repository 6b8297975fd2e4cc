package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally a config
// file. Environment variables (prefixed INGEST_, nested keys joined with
// underscores, e.g. INGEST_WORKER_MAX_WORKERS) take precedence over values
// from config.yaml in the working directory. Returns a populated Config
// struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers the reference worker's defaults: 4 executors, 1s
// poll timeout, 300s task timeout, 5s reconnect backoff.
func setDefaults(v *viper.Viper) {
	v.SetDefault("worker.max_workers", 4)
	v.SetDefault("worker.poll_timeout", time.Second)
	v.SetDefault("worker.task_timeout", 5*time.Minute)
	v.SetDefault("worker.reconnect_backoff", 5*time.Second)
	v.SetDefault("worker.scope_dedup_by_queue", false)
	v.SetDefault("worker.log_level", "info")

	v.SetDefault("redis.url", "redis://localhost:6379/0")

	// Secrets and endpoints default to empty so that AutomaticEnv can see
	// the keys during Unmarshal; validation rejects the required ones when
	// they stay empty.
	v.SetDefault("database.url", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("objectstore.endpoint", "")
	v.SetDefault("objectstore.access_key", "")
	v.SetDefault("objectstore.secret_key", "")
	v.SetDefault("objectstore.bucket", "")
	v.SetDefault("objectstore.public_base_url", "")

	v.SetDefault("llm.model_name", "gemini-1.5-flash")
	// 2 retries after the first call: 3 API attempts total.
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_delay_seconds", 1)

	v.SetDefault("fetch.download_timeout", 30*time.Second)
	v.SetDefault("fetch.scrape_timeout", 30*time.Second)
}
