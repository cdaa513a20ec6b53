// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Pipeline, Source, Sink, Kafka, Redis, Postgres, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Source types.
const (
	SourceFile  = "file"
	SourceKafka = "kafka"
)

// Sink types.
const (
	SinkText     = "text"
	SinkSegment  = "segment"
	SinkRedis    = "redis"
	SinkPostgres = "postgres"
	SinkKafka    = "kafka"
)

// Config is the top-level application configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Source   SourceConfig   `yaml:"source"`
	Sink     SinkConfig     `yaml:"sink"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Retry    RetryConfig    `yaml:"retry"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// PipelineConfig controls map/reduce parallelism and the run deadline.
type PipelineConfig struct {
	MapWorkers       int           `yaml:"mapWorkers"`
	ReduceWorkers    int           `yaml:"reduceWorkers"`
	ReducePartitions int           `yaml:"reducePartitions"`
	BatchSize        int           `yaml:"batchSize"`
	Timeout          time.Duration `yaml:"timeout"`
}

// SourceConfig selects where input records come from.
type SourceConfig struct {
	Type        string `yaml:"type"`
	MaxLineSize int    `yaml:"maxLineSize"`
}

// SinkConfig selects where index entries are written.
type SinkConfig struct {
	Type string `yaml:"type"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	Table           string        `yaml:"table"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker settings and output throttling.
type KafkaConfig struct {
	Brokers     []string      `yaml:"brokers"`
	DialTimeout time.Duration `yaml:"dialTimeout"`
	// IdleTimeout ends a partition replay when no message arrives for this
	// long, which happens when the tail of the range holds no data records.
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
	PublishRate    float64       `yaml:"publishRate"`
	PublishBurst   int           `yaml:"publishBurst"`
	MaxMessageSize int           `yaml:"maxMessageSize"`
}

// RedisConfig holds Redis connection parameters and the index key layout.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	KeyPrefix string        `yaml:"keyPrefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// RetryConfig controls backoff for network sources and sinks.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"maxAttempts"`
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`

	// Consecutive sink write failures that open the circuit, and how long it
	// stays open before a trial call.
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerCooldown  time.Duration `yaml:"breakerCooldown"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles span logging for pipeline runs.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// Validate checks the fields whose bad values would otherwise surface deep
// inside a run.
func (c *Config) Validate() error {
	switch c.Source.Type {
	case SourceFile, SourceKafka:
	default:
		return fmt.Errorf("%w: unknown source type %q", apperrors.ErrInvalidInput, c.Source.Type)
	}
	switch c.Sink.Type {
	case SinkText, SinkSegment, SinkRedis, SinkPostgres, SinkKafka:
	default:
		return fmt.Errorf("%w: unknown sink type %q", apperrors.ErrInvalidInput, c.Sink.Type)
	}
	if c.Pipeline.MapWorkers < 1 || c.Pipeline.ReduceWorkers < 1 || c.Pipeline.ReducePartitions < 1 || c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("%w: pipeline workers, partitions and batch size must be positive", apperrors.ErrInvalidInput)
	}
	if c.Pipeline.Timeout < 0 {
		return fmt.Errorf("%w: pipeline timeout must not be negative", apperrors.ErrInvalidInput)
	}
	if c.Sink.Type == SinkKafka && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: kafka sink needs at least one broker", apperrors.ErrInvalidInput)
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			MapWorkers:       4,
			ReduceWorkers:    4,
			ReducePartitions: 1,
			BatchSize:        500,
		},
		Source: SourceConfig{
			Type:        SourceFile,
			MaxLineSize: 1024 * 1024,
		},
		Sink: SinkConfig{
			Type: SinkText,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "invertedindex",
			User:            "invertedindex",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			Table:           "inverted_index",
		},
		Kafka: KafkaConfig{
			Brokers:        []string{"localhost:9092"},
			DialTimeout:    10 * time.Second,
			IdleTimeout:    5 * time.Second,
			MaxMessageSize: 10e6,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			Password:  "",
			DB:        0,
			PoolSize:  10,
			KeyPrefix: "index:",
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,

			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads II_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("II_MAP_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.MapWorkers = n
		}
	}
	if v := os.Getenv("II_REDUCE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.ReduceWorkers = n
		}
	}
	if v := os.Getenv("II_REDUCE_PARTITIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.ReducePartitions = n
		}
	}
	if v := os.Getenv("II_PIPELINE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipeline.Timeout = d
		}
	}
	if v := os.Getenv("II_SOURCE_TYPE"); v != "" {
		cfg.Source.Type = v
	}
	if v := os.Getenv("II_SINK_TYPE"); v != "" {
		cfg.Sink.Type = v
	}
	if v := os.Getenv("II_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("II_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("II_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("II_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("II_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("II_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("II_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("II_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("II_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("II_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("II_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("II_METRICS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = enabled
		}
	}
	if v := os.Getenv("II_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
