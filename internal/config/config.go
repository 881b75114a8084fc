package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// API server configuration
	API APIConfig

	// Sync engine configuration
	Sync SyncConfig

	// Bitquery GraphQL API configuration
	Bitquery BitqueryConfig

	// BigQuery warehouse configuration
	BigQuery BigQueryConfig

	// Logging configuration
	Log LogConfig
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"indexer"`
	Password        string        `envconfig:"DB_PASSWORD" default:"indexer"`
	Name            string        `envconfig:"DB_NAME" default:"facilitator_indexer"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"true"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// APIConfig holds API server settings
type APIConfig struct {
	Host            string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"API_PORT" default:"8081"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"API_RATE_LIMIT_RPS" default:"100"`
	CacheTTL        time.Duration `envconfig:"API_CACHE_TTL" default:"30s"`
}

// SyncConfig holds sync engine settings
type SyncConfig struct {
	MetricsPort int `envconfig:"SYNC_METRICS_PORT" default:"8080"`

	// Path to a YAML facilitator table; the embedded table is used when empty
	FacilitatorsFile string `envconfig:"SYNC_FACILITATORS_FILE"`

	// Insert each fetched page immediately instead of once per facilitator
	StreamPersistence bool `envconfig:"SYNC_STREAM_PERSISTENCE" default:"false"`

	// Guard job invocations with a Redis lock so replicas never overlap
	LockEnabled bool `envconfig:"SYNC_LOCK_ENABLED" default:"true"`

	// Job ids to disable (comma-separated)
	DisabledJobs []string `envconfig:"SYNC_DISABLED_JOBS"`

	// Upper bound on jobs run in parallel by the one-shot run command
	WorkerCount int `envconfig:"SYNC_WORKER_COUNT" default:"4"`

	// Run every enabled job once right after the scheduler starts
	RunOnStart bool `envconfig:"SYNC_RUN_ON_START" default:"false"`
}

// BitqueryConfig holds Bitquery API settings
type BitqueryConfig struct {
	APIKey         string        `envconfig:"BITQUERY_API_KEY"`
	StreamingURL   string        `envconfig:"BITQUERY_STREAMING_URL" default:"https://streaming.bitquery.io/graphql"`
	LegacyURL      string        `envconfig:"BITQUERY_LEGACY_URL" default:"https://graphql.bitquery.io"`
	RequestTimeout time.Duration `envconfig:"BITQUERY_REQUEST_TIMEOUT" default:"120s"`
	RateLimitRPS   float64       `envconfig:"BITQUERY_RATE_LIMIT_RPS" default:"1"`
	RateLimitBurst int           `envconfig:"BITQUERY_RATE_LIMIT_BURST" default:"2"`
}

// BigQueryConfig holds Google BigQuery settings
type BigQueryConfig struct {
	ProjectID       string `envconfig:"BIGQUERY_PROJECT_ID"`
	CredentialsFile string `envconfig:"BIGQUERY_CREDENTIALS_FILE"`
	SolanaDataset   string `envconfig:"BIGQUERY_SOLANA_DATASET" default:"bigquery-public-data.crypto_solana_mainnet_us"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load loads configuration from environment variables, reading a .env file
// first when one is present
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.Sync.WorkerCount <= 0 {
		return nil, fmt.Errorf("SYNC_WORKER_COUNT must be positive, got %d", cfg.Sync.WorkerCount)
	}
	return &cfg, nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
