package config

import "time"

// Config holds all worker configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Worker      WorkerConfig      `mapstructure:"worker" validate:"required"`
	Redis       RedisConfig       `mapstructure:"redis" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database" validate:"required"`
	LLM         LLMConfig         `mapstructure:"llm" validate:"required"`
	ObjectStore ObjectStoreConfig `mapstructure:"objectstore"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
}

// WorkerConfig contains dispatcher and poller settings.
type WorkerConfig struct {
	// MaxWorkers is the size of the bounded executor pool.
	MaxWorkers int `mapstructure:"max_workers" validate:"required,gt=0"`

	// PollTimeout bounds each blocking queue pop.
	PollTimeout time.Duration `mapstructure:"poll_timeout" validate:"required"`

	// TaskTimeout is the deadline attached to each pipeline execution.
	TaskTimeout time.Duration `mapstructure:"task_timeout" validate:"required"`

	// ReconnectBackoff is how long a poller sleeps after a queue
	// connection failure before retrying.
	ReconnectBackoff time.Duration `mapstructure:"reconnect_backoff" validate:"required"`

	// ScopeDedupByQueue controls whether the idempotency fingerprint
	// includes the queue name. Off by default to match the reference
	// behavior; see the tracker documentation.
	ScopeDedupByQueue bool `mapstructure:"scope_dedup_by_queue"`

	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// RedisConfig contains queue connection settings.
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// DatabaseConfig contains document-store connection settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// LLMConfig contains content-generator settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string `mapstructure:"model_name" validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// ObjectStoreConfig contains settings for resolving stored file URLs
// against an S3-compatible bucket. All fields optional: with no endpoint
// configured the resolver skips straight to the HTTP strategies.
type ObjectStoreConfig struct {
	// Endpoint is the full storage endpoint URL as it appears as a prefix
	// of stored file URLs.
	Endpoint  string `mapstructure:"endpoint" validate:"omitempty,url"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`

	// PublicBaseURL, when set, enables the last-resort re-derived
	// public-URL download strategy.
	PublicBaseURL string `mapstructure:"public_base_url" validate:"omitempty,url"`
}

// FetchConfig contains timeouts for outbound HTTP fetches (file downloads,
// transcripts, page scrapes).
type FetchConfig struct {
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	ScrapeTimeout   time.Duration `mapstructure:"scrape_timeout"`
}
