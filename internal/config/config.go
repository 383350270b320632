package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Eloqua  EloquaConfig  `yaml:"eloqua"`
	Service ServiceConfig `yaml:"service"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// In a container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// EloquaConfig holds the marketing platform credentials and endpoint.
// The consumer key/secret pair signs outbound Bulk API calls and
// verifies inbound notifications.
type EloquaConfig struct {
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c EloquaConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ServiceConfig holds decision service behavior settings
type ServiceConfig struct {
	Name                      string `yaml:"name"`
	Description               string `yaml:"description"`
	IdentifierField           string `yaml:"identifier_field"`
	MaxRecordsPerNotification int    `yaml:"max_records_per_notification"`
	// SkipVerification disables inbound signature checks. Local
	// development only; never enable in production.
	SkipVerification bool `yaml:"skip_verification"`
}

// StorageConfig selects the instance config store backend
type StorageConfig struct {
	Backend     string `yaml:"backend"` // "memory", "redis" or "postgres"
	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Load reads and parses the configuration file. A missing file is not
// an error; defaults apply and env overrides can fill in the rest.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Eloqua.BaseURL == "" {
		cfg.Eloqua.BaseURL = "https://secure.eloqua.com"
	}
	if cfg.Eloqua.TimeoutSeconds == 0 {
		cfg.Eloqua.TimeoutSeconds = 60
	}
	if cfg.Service.Name == "" {
		cfg.Service.Name = "decision-gateway"
	}
	if cfg.Service.IdentifierField == "" {
		cfg.Service.IdentifierField = "EmailAddress"
	}
	if cfg.Service.MaxRecordsPerNotification == 0 {
		cfg.Service.MaxRecordsPerNotification = 1000
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env
// vars, so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if key := os.Getenv("ELOQUA_CONSUMER_KEY"); key != "" {
		cfg.Eloqua.ConsumerKey = key
	}
	if secret := os.Getenv("ELOQUA_CONSUMER_SECRET"); secret != "" {
		cfg.Eloqua.ConsumerSecret = secret
	}
	if baseURL := os.Getenv("ELOQUA_BASE_URL"); baseURL != "" {
		cfg.Eloqua.BaseURL = baseURL
	}
	if field := os.Getenv("IDENTIFIER_FIELD"); field != "" {
		cfg.Service.IdentifierField = field
	}
	if os.Getenv("SKIP_SIGNATURE_VERIFICATION") == "true" {
		cfg.Service.SkipVerification = true
	}

	// Storage overrides. DATABASE_URL implies the postgres backend and
	// REDIS_URL the redis one; an explicit STORAGE_BACKEND wins.
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Storage.DatabaseURL = dbURL
		cfg.Storage.Backend = "postgres"
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Storage.RedisURL = redisURL
		if cfg.Storage.Backend == "memory" {
			cfg.Storage.Backend = "redis"
		}
	}
	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		cfg.Storage.Backend = backend
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	return cfg, nil
}
