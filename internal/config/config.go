// Package config provides configuration management for the paper import service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Accepted values for database.ssl_mode.
const (
	SSLModeDisable    = "disable"
	SSLModeRequire    = "require"
	SSLModeVerifyCA   = "verify-ca"
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the paper import service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Kafka contains event publisher settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Importer contains batch import and enrichment policy settings.
	Importer ImporterConfig `mapstructure:"importer"`
	// Sources contains provider API configurations.
	Sources SourcesConfig `mapstructure:"sources"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host        string `mapstructure:"host"`
	HTTPPort    int    `mapstructure:"http_port"`
	MetricsPort int    `mapstructure:"metrics_port"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout bounds graceful shutdown, including the drain of
	// in-flight import jobs.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds the PostgreSQL connection and pool settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	// SSLMode defaults to "require"; set "disable" only for local work.
	SSLMode string `mapstructure:"ssl_mode"`

	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`

	// MigrationPath points at the SQL migrations directory.
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun applies pending migrations on startup.
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`

	StatementCacheCapacity int `mapstructure:"statement_cache_capacity"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or console
	Output     string `mapstructure:"output"` // stdout or stderr
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// KafkaConfig holds event publisher settings.
type KafkaConfig struct {
	// Enabled controls whether Kafka publishing is active.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic to publish import events to.
	Topic string `mapstructure:"topic"`
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// ImporterConfig holds batch import and enrichment policy settings.
// The thresholds encode the fan-out and matching rules used by every
// import path; override them only with care.
type ImporterConfig struct {
	// MaxAuthors is the author count above which no authorships are created.
	MaxAuthors int `mapstructure:"max_authors"`
	// FirstAuthorOnlyAbove is the author count above which only the first
	// author is resolved.
	FirstAuthorOnlyAbove int `mapstructure:"first_author_only_above"`
	// TitleSimilarityThreshold is the minimum key-term similarity required
	// to accept a provider result as a match for the requested title.
	TitleSimilarityThreshold float64 `mapstructure:"title_similarity_threshold"`
}

// SourcesConfig holds configuration for all provider APIs.
type SourcesConfig struct {
	// SemanticScholar contains Semantic Scholar API settings.
	SemanticScholar SourceConfig `mapstructure:"semantic_scholar"`
	// OpenAlex contains OpenAlex API settings.
	OpenAlex SourceConfig `mapstructure:"openalex"`
	// Crossref contains Crossref API settings.
	Crossref SourceConfig `mapstructure:"crossref"`
}

// SourceConfig holds configuration for a single provider API.
type SourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment variable, e.g.
	// PAPERIMPORT_SOURCES_SEMANTIC_SCHOLAR_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Email identifies the caller to polite-pool providers.
	Email string `mapstructure:"email"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the rate limiter burst size.
	BurstSize int `mapstructure:"burst_size"`
	// MaxRetries is the maximum number of retries on transient failures.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// MaxResults is the maximum results per title search.
	MaxResults int `mapstructure:"max_results"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	if c.StatementCacheCapacity > 0 {
		params.Set("statement_cache_capacity", fmt.Sprintf("%d", c.StatementCacheCapacity))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Load reads configuration from defaults, an optional config.yaml, and
// PAPERIMPORT_* environment variables, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PAPERIMPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-import-service")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults suffice.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// loadSecrets reads API keys from the environment only. The fields carry
// mapstructure:"-" so a checked-in config file cannot set them.
func loadSecrets(cfg *Config) {
	cfg.Sources.SemanticScholar.APIKey = os.Getenv("PAPERIMPORT_SOURCES_SEMANTIC_SCHOLAR_API_KEY")
	cfg.Sources.OpenAlex.APIKey = os.Getenv("PAPERIMPORT_SOURCES_OPENALEX_API_KEY")
	cfg.Sources.Crossref.APIKey = os.Getenv("PAPERIMPORT_SOURCES_CROSSREF_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "paperimport")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "paper_import_service")
	// Default to "require" for production security. Use PAPERIMPORT_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("database.min_conns", 10)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)
	v.SetDefault("database.statement_cache_capacity", 512)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.paper_import_service")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")

	// Importer policy defaults
	v.SetDefault("importer.max_authors", 50)
	v.SetDefault("importer.first_author_only_above", 10)
	v.SetDefault("importer.title_similarity_threshold", 0.5)

	// Sources defaults - Semantic Scholar.
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	// Without a key the Graph API allows roughly one request per second.
	v.SetDefault("sources.semantic_scholar.enabled", true)
	v.SetDefault("sources.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("sources.semantic_scholar.timeout", "30s")
	v.SetDefault("sources.semantic_scholar.rate_limit", 1.0)
	v.SetDefault("sources.semantic_scholar.burst_size", 1)
	v.SetDefault("sources.semantic_scholar.max_retries", 3)
	v.SetDefault("sources.semantic_scholar.retry_delay", "1s")
	v.SetDefault("sources.semantic_scholar.max_results", 5)

	// Sources defaults - OpenAlex
	v.SetDefault("sources.openalex.enabled", true)
	v.SetDefault("sources.openalex.base_url", "https://api.openalex.org")
	v.SetDefault("sources.openalex.email", "")
	v.SetDefault("sources.openalex.timeout", "30s")
	v.SetDefault("sources.openalex.rate_limit", 10.0)
	v.SetDefault("sources.openalex.burst_size", 10)
	v.SetDefault("sources.openalex.max_retries", 3)
	v.SetDefault("sources.openalex.retry_delay", "1s")
	v.SetDefault("sources.openalex.max_results", 5)

	// Sources defaults - Crossref (polite pool when email is set)
	v.SetDefault("sources.crossref.enabled", true)
	v.SetDefault("sources.crossref.base_url", "https://api.crossref.org")
	v.SetDefault("sources.crossref.email", "")
	v.SetDefault("sources.crossref.timeout", "30s")
	v.SetDefault("sources.crossref.rate_limit", 5.0)
	v.SetDefault("sources.crossref.burst_size", 5)
	v.SetDefault("sources.crossref.max_retries", 3)
	v.SetDefault("sources.crossref.retry_delay", "1s")
	v.SetDefault("sources.crossref.max_results", 5)
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if err := validPort("server.http_port", c.Server.HTTPPort); err != nil {
		return err
	}
	if err := validPort("server.metrics_port", c.Server.MetricsPort); err != nil {
		return err
	}

	if c.Database.Host == "" {
		return errors.New("database host is required")
	}
	if err := validPort("database.port", c.Database.Port); err != nil {
		return err
	}
	if c.Database.Name == "" {
		return errors.New("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if err := c.Importer.validate(); err != nil {
		return err
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka brokers are required when kafka is enabled")
	}

	for name, src := range map[string]SourceConfig{
		"semantic_scholar": c.Sources.SemanticScholar,
		"openalex":         c.Sources.OpenAlex,
		"crossref":         c.Sources.Crossref,
	} {
		if src.Enabled && src.RateLimit <= 0 {
			return fmt.Errorf("source %s rate_limit must be positive", name)
		}
	}

	return nil
}

func (c *ImporterConfig) validate() error {
	if c.MaxAuthors <= 0 {
		return errors.New("importer max_authors must be positive")
	}
	if c.FirstAuthorOnlyAbove <= 0 {
		return errors.New("importer first_author_only_above must be positive")
	}
	if c.FirstAuthorOnlyAbove > c.MaxAuthors {
		return fmt.Errorf("importer first_author_only_above (%d) must be <= max_authors (%d)",
			c.FirstAuthorOnlyAbove, c.MaxAuthors)
	}
	if c.TitleSimilarityThreshold < 0 || c.TitleSimilarityThreshold > 1 {
		return errors.New("importer title_similarity_threshold must be between 0 and 1")
	}
	return nil
}

func validPort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid %s: %d", name, port)
	}
	return nil
}
