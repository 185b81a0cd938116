package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PORTFOLIOD_* environment variable overrides, and
// returns the final Config. A missing file is not an error so the service
// can be configured from the environment alone. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PORTFOLIOD_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "PORTFOLIOD_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "PORTFOLIOD_DATABASE_HOST")
	setInt(&cfg.Database.Port, "PORTFOLIOD_DATABASE_PORT")
	setStr(&cfg.Database.Database, "PORTFOLIOD_DATABASE_DATABASE")
	setStr(&cfg.Database.User, "PORTFOLIOD_DATABASE_USER")
	setStr(&cfg.Database.Password, "PORTFOLIOD_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "PORTFOLIOD_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "PORTFOLIOD_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "PORTFOLIOD_DATABASE_POOL_MIN_CONNS")
	setDuration(&cfg.Database.ConnectTimeout, "PORTFOLIOD_DATABASE_CONNECT_TIMEOUT")
	setBool(&cfg.Database.RunMigrations, "PORTFOLIOD_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PORTFOLIOD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PORTFOLIOD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PORTFOLIOD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PORTFOLIOD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PORTFOLIOD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PORTFOLIOD_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "PORTFOLIOD_REDIS_KEY_PREFIX")

	// ── Cache ──
	setStr(&cfg.Cache.Backend, "PORTFOLIOD_CACHE_BACKEND")
	setDuration(&cfg.Cache.QuoteTTL, "PORTFOLIOD_CACHE_QUOTE_TTL")
	setDuration(&cfg.Cache.NewsTTL, "PORTFOLIOD_CACHE_NEWS_TTL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "PORTFOLIOD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PORTFOLIOD_S3_REGION")
	setStr(&cfg.S3.Bucket, "PORTFOLIOD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PORTFOLIOD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PORTFOLIOD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PORTFOLIOD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PORTFOLIOD_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setInt(&cfg.Server.Port, "PORTFOLIOD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PORTFOLIOD_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "PORTFOLIOD_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "PORTFOLIOD_SERVER_RATE_WINDOW")
	setDuration(&cfg.Server.ShutdownTimeout, "PORTFOLIOD_SERVER_SHUTDOWN_TIMEOUT")

	// ── Auth ──
	setStr(&cfg.Auth.JWTSecret, "PORTFOLIOD_AUTH_JWT_SECRET")
	setStr(&cfg.Auth.Issuer, "PORTFOLIOD_AUTH_ISSUER")
	setDuration(&cfg.Auth.TokenTTL, "PORTFOLIOD_AUTH_TOKEN_TTL")
	setInt(&cfg.Auth.BcryptCost, "PORTFOLIOD_AUTH_BCRYPT_COST")

	// ── Providers ──
	setStr(&cfg.AlphaVantage.BaseURL, "PORTFOLIOD_ALPHAVANTAGE_BASE_URL")
	setStr(&cfg.AlphaVantage.APIKey, "PORTFOLIOD_ALPHAVANTAGE_API_KEY")
	setStr(&cfg.AlphaVantage.APIKey, "ALPHA_VANTAGE_API_KEY") // compatibility alias
	setDuration(&cfg.AlphaVantage.Timeout, "PORTFOLIOD_ALPHAVANTAGE_TIMEOUT")
	setStr(&cfg.NewsAPI.BaseURL, "PORTFOLIOD_NEWSAPI_BASE_URL")
	setStr(&cfg.NewsAPI.APIKey, "PORTFOLIOD_NEWSAPI_API_KEY")
	setStr(&cfg.NewsAPI.APIKey, "NEWS_API_KEY") // compatibility alias
	setStr(&cfg.NewsAPI.Language, "PORTFOLIOD_NEWSAPI_LANGUAGE")
	setDuration(&cfg.NewsAPI.Timeout, "PORTFOLIOD_NEWSAPI_TIMEOUT")

	// ── Simulation ──
	setStr(&cfg.Simulation.DefaultBalance, "PORTFOLIOD_SIMULATION_DEFAULT_BALANCE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PORTFOLIOD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PORTFOLIOD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PORTFOLIOD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.DiscordUsername, "PORTFOLIOD_NOTIFY_DISCORD_USERNAME")
	setStringSlice(&cfg.Notify.Events, "PORTFOLIOD_NOTIFY_EVENTS")
	setStr(&cfg.Notify.Currency, "PORTFOLIOD_NOTIFY_CURRENCY")

	// ── Export ──
	setStr(&cfg.Export.Prefix, "PORTFOLIOD_EXPORT_PREFIX")
	setInt(&cfg.Export.PartSizeMB, "PORTFOLIOD_EXPORT_PART_SIZE_MB")

	// ── Top-level ──
	setStr(&cfg.Mode, "PORTFOLIOD_MODE")
	setStr(&cfg.Store, "PORTFOLIOD_STORE")
	setStr(&cfg.LogLevel, "PORTFOLIOD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
