// Package config defines the top-level configuration for portfoliod and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PORTFOLIOD_* environment variables.
type Config struct {
	Database     DatabaseConfig     `toml:"database"`
	Redis        RedisConfig        `toml:"redis"`
	Cache        CacheConfig        `toml:"cache"`
	S3           S3Config           `toml:"s3"`
	Server       ServerConfig       `toml:"server"`
	Auth         AuthConfig         `toml:"auth"`
	AlphaVantage AlphaVantageConfig `toml:"alphavantage"`
	NewsAPI      NewsAPIConfig      `toml:"newsapi"`
	Simulation   SimulationConfig   `toml:"simulation"`
	Notify       NotifyConfig       `toml:"notify"`
	Export       ExportConfig       `toml:"export"`
	// Mode selects what the process does: serve, migrate or export.
	Mode string `toml:"mode"`
	// Store selects the persistence backend: postgres or memory.
	Store    string `toml:"store"`
	LogLevel string `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN            string   `toml:"dsn"`
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	Database       string   `toml:"database"`
	User           string   `toml:"user"`
	Password       string   `toml:"password"`
	SSLMode        string   `toml:"ssl_mode"`
	PoolMaxConns   int      `toml:"pool_max_conns"`
	PoolMinConns   int      `toml:"pool_min_conns"`
	ConnectTimeout duration `toml:"connect_timeout"`
	RunMigrations  bool     `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// CacheConfig selects the cache backend and entry lifetimes.
type CacheConfig struct {
	// Backend is redis or memory. Memory also selects the in-process event
	// bus and rate limiter.
	Backend  string   `toml:"backend"`
	QuoteTTL duration `toml:"quote_ttl"`
	NewsTTL  duration `toml:"news_ttl"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	RateLimit       int      `toml:"rate_limit"`
	RateWindow      duration `toml:"rate_window"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
}

// AuthConfig holds token signing and password hashing parameters.
type AuthConfig struct {
	JWTSecret  string   `toml:"jwt_secret"`
	Issuer     string   `toml:"issuer"`
	TokenTTL   duration `toml:"token_ttl"`
	BcryptCost int      `toml:"bcrypt_cost"`
}

// AlphaVantageConfig holds the quote provider endpoint and key.
type AlphaVantageConfig struct {
	BaseURL string   `toml:"base_url"`
	APIKey  string   `toml:"api_key"`
	Timeout duration `toml:"timeout"`
}

// NewsAPIConfig holds the news provider endpoint and key.
type NewsAPIConfig struct {
	BaseURL  string   `toml:"base_url"`
	APIKey   string   `toml:"api_key"`
	Language string   `toml:"language"`
	Timeout  duration `toml:"timeout"`
}

// SimulationConfig holds paper-trading defaults.
type SimulationConfig struct {
	// DefaultBalance seeds accounts created without an initial balance. It
	// is a decimal string so no precision is lost in the TOML round trip.
	DefaultBalance string `toml:"default_balance"`
}

// DefaultBalanceDecimal parses DefaultBalance. Validate guarantees it is a
// positive decimal.
func (s SimulationConfig) DefaultBalanceDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(s.DefaultBalance)
	return d
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	DiscordUsername   string   `toml:"discord_username"`
	Events            []string `toml:"events"`
	Currency          string   `toml:"currency"`
}

// ExportConfig controls the ledger export written by mode=export.
type ExportConfig struct {
	Prefix     string `toml:"prefix"`
	PartSizeMB int    `toml:"part_size_mb"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			Database:       "portfoliod",
			User:           "postgres",
			SSLMode:        "disable",
			PoolMaxConns:   10,
			PoolMinConns:   2,
			ConnectTimeout: duration{10 * time.Second},
			RunMigrations:  true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "portfoliod",
		},
		Cache: CacheConfig{
			Backend:  "redis",
			QuoteTTL: duration{60 * time.Second},
			NewsTTL:  duration{15 * time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "portfoliod-exports",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000"},
			RateLimit:       120,
			RateWindow:      duration{time.Minute},
			ShutdownTimeout: duration{10 * time.Second},
		},
		Auth: AuthConfig{
			Issuer:   "portfoliod",
			TokenTTL: duration{30 * time.Minute},
		},
		AlphaVantage: AlphaVantageConfig{
			BaseURL: "https://www.alphavantage.co/query",
			Timeout: duration{10 * time.Second},
		},
		NewsAPI: NewsAPIConfig{
			BaseURL:  "https://newsapi.org/v2",
			Language: "en",
			Timeout:  duration{10 * time.Second},
		},
		Simulation: SimulationConfig{
			DefaultBalance: "100000",
		},
		Notify: NotifyConfig{
			DiscordUsername: "portfoliod",
			Events:          []string{"trade"},
			Currency:        "USD",
		},
		Export: ExportConfig{
			Prefix:     "exports",
			PartSizeMB: 8,
		},
		Mode:     "serve",
		Store:    "postgres",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":   true,
	"migrate": true,
	"export":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, migrate, export)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Store
	switch strings.ToLower(c.Store) {
	case "postgres":
		errs = append(errs, c.Database.validate()...)
	case "memory":
		if mode == "migrate" || mode == "export" {
			errs = append(errs, fmt.Sprintf("store: mode %s requires store = \"postgres\"", mode))
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown store %q (valid: postgres, memory)", c.Store))
	}

	// Cache
	switch strings.ToLower(c.Cache.Backend) {
	case "redis":
		if mode == "serve" {
			if c.Redis.Addr == "" {
				errs = append(errs, "redis: addr must not be empty")
			}
			if c.Redis.PoolSize < 1 {
				errs = append(errs, "redis: pool_size must be >= 1")
			}
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("unknown cache.backend %q (valid: redis, memory)", c.Cache.Backend))
	}
	if c.Cache.QuoteTTL.Duration <= 0 {
		errs = append(errs, "cache: quote_ttl must be > 0")
	}
	if c.Cache.NewsTTL.Duration <= 0 {
		errs = append(errs, "cache: news_ttl must be > 0")
	}

	if mode == "serve" {
		errs = append(errs, c.serveErrors()...)
	}

	if mode == "export" {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
		if c.Export.PartSizeMB < 5 {
			errs = append(errs, "export: part_size_mb must be >= 5")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (d DatabaseConfig) validate() []string {
	var errs []string
	if strings.TrimSpace(d.DSN) == "" {
		if d.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if d.Port <= 0 || d.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", d.Port))
		}
		if d.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if d.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if d.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if d.PoolMinConns > d.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}
	return errs
}

func (c *Config) serveErrors() []string {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server: rate_limit must be >= 0")
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
		errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
	}

	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, "auth: jwt_secret must be at least 16 characters")
	}
	if c.Auth.TokenTTL.Duration <= 0 {
		errs = append(errs, "auth: token_ttl must be > 0")
	}
	if c.Auth.BcryptCost != 0 && (c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31) {
		errs = append(errs, fmt.Sprintf("auth: bcrypt_cost must be 0 or 4-31, got %d", c.Auth.BcryptCost))
	}

	if c.AlphaVantage.APIKey == "" {
		errs = append(errs, "alphavantage: api_key must not be empty")
	}

	if d, err := decimal.NewFromString(c.Simulation.DefaultBalance); err != nil || !d.IsPositive() {
		errs = append(errs, fmt.Sprintf("simulation: default_balance must be a positive decimal, got %q", c.Simulation.DefaultBalance))
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	return errs
}
