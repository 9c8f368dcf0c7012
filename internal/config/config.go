package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "quickconnect/libs/config"
)

// HTTPConfig holds the listen settings.
type HTTPConfig struct {
	Port string `yaml:"port" env:"QC_HTTP_PORT"`
}

// UpstreamConfig points at the consultation backend.
type UpstreamConfig struct {
	BaseURL        string `yaml:"baseUrl" env:"QC_UPSTREAM_BASE_URL"`
	TimeoutSeconds int    `yaml:"timeoutSeconds" env:"QC_UPSTREAM_TIMEOUT"`
}

// DatabaseConfig holds the postgres connection string.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"QC_POSTGRES_DSN"`
}

// RedisConfig holds the redis connection settings.
type RedisConfig struct {
	Addr       string `yaml:"addr" env:"QC_REDIS_ADDR"`
	Password   string `yaml:"password" env:"QC_REDIS_PASSWORD"`
	DB         int    `yaml:"db" env:"QC_REDIS_DB"`
	TTLSeconds int    `yaml:"ttlSeconds" env:"QC_REDIS_TTL"`
}

// AuthConfig holds gateway token and credential sealing settings.
type AuthConfig struct {
	JWTSecret       string `yaml:"jwtSecret" env:"QC_JWT_SECRET"`
	TokenTTLMinutes int    `yaml:"tokenTtlMinutes" env:"QC_TOKEN_TTL_MINUTES"`
	SealKey         string `yaml:"sealKey" env:"QC_SEAL_KEY"`
}

// PaymentsConfig tunes the verification poll loop.
type PaymentsConfig struct {
	Currency            string `yaml:"currency" env:"QC_PAYMENTS_CURRENCY"`
	PollIntervalSeconds int    `yaml:"pollIntervalSeconds" env:"QC_PAYMENTS_POLL_INTERVAL"`
	PollBudgetSeconds   int    `yaml:"pollBudgetSeconds" env:"QC_PAYMENTS_POLL_BUDGET"`
}

// ChatConfig tunes the relay keepalive.
type ChatConfig struct {
	PingIntervalSeconds int `yaml:"pingIntervalSeconds" env:"QC_CHAT_PING_INTERVAL"`
}

// Config defines gateway configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Payments PaymentsConfig `yaml:"payments"`
	Chat     ChatConfig     `yaml:"chat"`
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.Upstream.TimeoutSeconds = 15
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.TTLSeconds = 86400
	cfg.Auth.TokenTTLMinutes = 60
	cfg.Payments.Currency = "KES"
	cfg.Payments.PollIntervalSeconds = 2
	cfg.Payments.PollBudgetSeconds = 30
	cfg.Chat.PingIntervalSeconds = 30

	if err := libconfig.Load(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Upstream.BaseURL) == "" {
		return nil, errors.New("config: upstream base url required")
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil, errors.New("config: redis addr required")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("config: jwt secret required")
	}
	if _, err := cfg.SealKeyBytes(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// UpstreamTimeout returns the per-attempt HTTP timeout.
func (c *Config) UpstreamTimeout() time.Duration {
	if c.Upstream.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

// CredentialTTL returns how long sealed credentials live in redis.
func (c *Config) CredentialTTL() time.Duration {
	if c.Redis.TTLSeconds <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

// TokenTTL returns the gateway JWT lifetime.
func (c *Config) TokenTTL() time.Duration {
	if c.Auth.TokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

// SealKeyBytes decodes the base64 sealing key and checks its length.
func (c *Config) SealKeyBytes() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(c.Auth.SealKey))
	if err != nil {
		return nil, fmt.Errorf("config: seal key is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("config: seal key must decode to 32 bytes")
	}
	return key, nil
}

// PaymentPollInterval returns the delay between verification polls.
func (c *Config) PaymentPollInterval() time.Duration {
	if c.Payments.PollIntervalSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Payments.PollIntervalSeconds) * time.Second
}

// PaymentPollBudget returns how long one confirmation call may poll.
func (c *Config) PaymentPollBudget() time.Duration {
	if c.Payments.PollBudgetSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Payments.PollBudgetSeconds) * time.Second
}

// ChatPingInterval returns the relay keepalive period.
func (c *Config) ChatPingInterval() time.Duration {
	if c.Chat.PingIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Chat.PingIntervalSeconds) * time.Second
}
