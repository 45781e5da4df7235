package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	App      AppConfig
	Platform PlatformConfig
	Queue    QueueConfig
	Webhook  WebhookConfig
	StateDB  StateDBConfig
	Database DatabaseConfig
	Cache    CacheConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"shelfsync-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// PlatformConfig holds ESL cloud platform connection settings.
type PlatformConfig struct {
	BaseURL string `envconfig:"ESL_BASE_URL" default:"https://esl.example.com"`
	Account string `envconfig:"ESL_ACCOUNT" default:""`
	Secret  string `envconfig:"ESL_SECRET" default:""`

	// TokenTTL is a conservative margin under the platform's real
	// 24-hour token lifetime, so a cached token is never presented
	// right at its remote expiry.
	TokenTTL time.Duration `envconfig:"ESL_TOKEN_TTL" default:"23h"`

	// TokenInvalidCode is the platform's response code meaning the
	// bearer token was rejected.
	TokenInvalidCode int `envconfig:"ESL_TOKEN_INVALID_CODE" default:"401"`

	HTTPTimeout time.Duration `envconfig:"ESL_HTTP_TIMEOUT" default:"15s"`
	MaxAttempts int           `envconfig:"ESL_MAX_ATTEMPTS" default:"2"`
	RetryDelay  time.Duration `envconfig:"ESL_RETRY_DELAY" default:"500ms"`
}

// QueueConfig holds sync queue processing settings.
type QueueConfig struct {
	BatchLimit         int           `envconfig:"QUEUE_BATCH_LIMIT" default:"50"`
	MaxRetries         int           `envconfig:"QUEUE_MAX_RETRIES" default:"5"`
	BackoffBaseMinutes int           `envconfig:"QUEUE_BACKOFF_BASE_MINUTES" default:"2"`
	StaleAfter         time.Duration `envconfig:"QUEUE_STALE_AFTER" default:"10m"`

	// TriggerKey, when set, is required in the X-Trigger-Key header of
	// the queue trigger endpoint.
	TriggerKey string `envconfig:"QUEUE_TRIGGER_KEY" default:""`

	// SchedulerInterval enables the built-in periodic trigger when > 0.
	// Leave at 0 when an external cron invokes the trigger endpoint.
	SchedulerInterval time.Duration `envconfig:"QUEUE_SCHEDULER_INTERVAL" default:"0"`
}

// WebhookConfig holds button webhook settings.
type WebhookConfig struct {
	DedupWindow time.Duration `envconfig:"WEBHOOK_DEDUP_WINDOW" default:"5m"`
}

// StateDBConfig holds the SQLite database for sync-layer state
// (cached tokens, store config, sync queue).
type StateDBConfig struct {
	Path string `envconfig:"STATE_DB_PATH" default:"./data/shelfsync.db"`
}

// DatabaseConfig holds MySQL connection settings for the admin
// application's entities (products, replenishment_requests, users).
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	Name     string `envconfig:"DB_NAME" default:"shelfsync"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASS" default:""`
}

// CacheConfig holds Redis settings for the optional fast-path cache.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// DSN returns the MySQL data source name.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate checks that retry and backoff settings are sane.
func (c *Config) Validate() error {
	if c.Queue.BatchLimit < 1 {
		return fmt.Errorf("QUEUE_BATCH_LIMIT must be >= 1, got %d", c.Queue.BatchLimit)
	}
	if c.Queue.MaxRetries < 1 {
		return fmt.Errorf("QUEUE_MAX_RETRIES must be >= 1, got %d", c.Queue.MaxRetries)
	}
	if c.Queue.BackoffBaseMinutes < 1 {
		return fmt.Errorf("QUEUE_BACKOFF_BASE_MINUTES must be >= 1, got %d", c.Queue.BackoffBaseMinutes)
	}
	if c.Platform.MaxAttempts < 1 {
		return fmt.Errorf("ESL_MAX_ATTEMPTS must be >= 1, got %d", c.Platform.MaxAttempts)
	}
	if c.Platform.TokenTTL <= 0 {
		return fmt.Errorf("ESL_TOKEN_TTL must be positive, got %v", c.Platform.TokenTTL)
	}
	if c.Webhook.DedupWindow <= 0 {
		return fmt.Errorf("WEBHOOK_DEDUP_WINDOW must be positive, got %v", c.Webhook.DedupWindow)
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
