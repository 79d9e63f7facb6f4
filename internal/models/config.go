package models

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v2"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	ServiceName     string        `yaml:"service_name" env:"SERVICE_NAME"`
	ServerAddr      string        `yaml:"server_addr" env:"SERVER_ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat       string        `yaml:"log_format" env:"LOG_FORMAT"` // console or json

	StorageDriver string `yaml:"storage_driver" env:"STORAGE_DRIVER"`
	DatabaseURL   string `yaml:"database_url" env:"DATABASE_URL"`

	DefaultPageSize int `yaml:"default_page_size" env:"DEFAULT_PAGE_SIZE"`
	MaxPageSize     int `yaml:"max_page_size" env:"MAX_PAGE_SIZE"`

	KafkaEnabled     bool     `yaml:"kafka_enabled" env:"KAFKA_ENABLED"`
	KafkaBrokers     []string `yaml:"kafka_brokers" env:"KAFKA_BROKERS"`
	KafkaIngestTopic string   `yaml:"kafka_ingest_topic" env:"KAFKA_INGEST_TOPIC"`
	KafkaIngestGroup string   `yaml:"kafka_ingest_group" env:"KAFKA_INGEST_GROUP"`
	KafkaEventsTopic string   `yaml:"kafka_events_topic" env:"KAFKA_EVENTS_TOPIC"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:      "media-gallery",
		ServerAddr:       ":8080",
		ShutdownTimeout:  10 * time.Second,
		LogLevel:         "info",
		LogFormat:        "console",
		StorageDriver:    StorageDriverPostgres,
		DefaultPageSize:  50,
		MaxPageSize:      200,
		KafkaIngestTopic: "media-generation",
		KafkaIngestGroup: "media-gallery-ingest",
		KafkaEventsTopic: "media-lifecycle",
	}
}

// LoadConfig reads the YAML file at path on top of the defaults and then applies
// MEDIA_* environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "MEDIA_"}); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required for the postgres storage driver")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage_driver %q", c.StorageDriver)
	}
	if c.DefaultPageSize <= 0 || c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("invalid page sizes: default %d, max %d", c.DefaultPageSize, c.MaxPageSize)
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("kafka_brokers is required when kafka is enabled")
		}
		if c.KafkaIngestTopic == "" || c.KafkaEventsTopic == "" {
			return errors.New("kafka topics are required when kafka is enabled")
		}
	}
	return nil
}
