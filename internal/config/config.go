// Package config loads service configuration from a YAML file with
// environment-variable overrides. Secrets live in env vars (or a local
// .env file); the YAML carries structure and defaults.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Contact  ContactConfig  `yaml:"contact"`
	Events   EventsConfig   `yaml:"events"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	SES      SESConfig      `yaml:"ses"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the listen host, with container detection.
func (c ServerConfig) GetHost() string {
	// Inside a container, listen on all interfaces.
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// RedactEnabled defaults to true when unset.
func (c LoggingConfig) RedactEnabled() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// ContactConfig holds the submission fan-out settings. Either API key
// may be empty; the corresponding side effect is then skipped.
type ContactConfig struct {
	HubSpotAPIKey  string `yaml:"hubspot_api_key"`
	ResendAPIKey   string `yaml:"resend_api_key"`
	NotifyProvider string `yaml:"notify_provider"` // "resend" or "ses"
	NotifyFrom     string `yaml:"notify_from"`
	NotifyTo       string `yaml:"notify_to"`
	SiteName       string `yaml:"site_name"`
	SiteURL        string `yaml:"site_url"`
}

// EventsConfig holds ingest-endpoint settings.
type EventsConfig struct {
	// AllowedReferers restricts ingest to listed domains; empty allows all.
	AllowedReferers []string `yaml:"allowed_referers"`
	DedupSeconds    int      `yaml:"dedup_seconds"`
}

// DedupWindow returns the ingest dedup window as a duration.
func (c EventsConfig) DedupWindow() time.Duration {
	return time.Duration(c.DedupSeconds) * time.Second
}

// RedisConfig holds the attribution-store connection.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DatabaseConfig holds the optional event-persistence connection.
type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// SESConfig holds AWS SES credentials for the "ses" notify provider.
type SESConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Load reads and parses the configuration file, then applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Contact.NotifyProvider == "" {
		cfg.Contact.NotifyProvider = "resend"
	}
	if cfg.Events.DedupSeconds == 0 {
		cfg.Events.DedupSeconds = 30
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-west-2"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file (if present) is loaded first, so secrets can live in .env
// locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if os.IsNotExist(err) {
		// Env-only deployments run without a config file.
		cfg = &Config{}
		applyDefaults(cfg)
	} else if err != nil {
		return nil, err
	}

	if v := os.Getenv("HUBSPOT_API_KEY"); v != "" {
		cfg.Contact.HubSpotAPIKey = v
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		cfg.Contact.ResendAPIKey = v
	}
	if v := os.Getenv("NOTIFY_PROVIDER"); v != "" {
		cfg.Contact.NotifyProvider = v
	}
	if v := os.Getenv("NOTIFY_FROM"); v != "" {
		cfg.Contact.NotifyFrom = v
	}
	if v := os.Getenv("NOTIFY_TO"); v != "" {
		cfg.Contact.NotifyTo = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
		cfg.Database.Enabled = true
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	return cfg, nil
}
