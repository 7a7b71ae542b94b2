package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CURVEMARKET_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CURVEMARKET_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Engine ──
	setStr(&cfg.Engine.SlotGenesis, "CURVEMARKET_ENGINE_SLOT_GENESIS")
	setDuration(&cfg.Engine.SlotDuration, "CURVEMARKET_ENGINE_SLOT_DURATION")
	setInt(&cfg.Engine.TradeRateLimit, "CURVEMARKET_ENGINE_TRADE_RATE_LIMIT")
	setDuration(&cfg.Engine.TradeRateWindow, "CURVEMARKET_ENGINE_TRADE_RATE_WINDOW")
	setDuration(&cfg.Engine.MarketCacheTTL, "CURVEMARKET_ENGINE_MARKET_CACHE_TTL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "CURVEMARKET_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "CURVEMARKET_DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "CURVEMARKET_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CURVEMARKET_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CURVEMARKET_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CURVEMARKET_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CURVEMARKET_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CURVEMARKET_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CURVEMARKET_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CURVEMARKET_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CURVEMARKET_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "CURVEMARKET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CURVEMARKET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CURVEMARKET_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CURVEMARKET_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CURVEMARKET_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CURVEMARKET_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "CURVEMARKET_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CURVEMARKET_S3_REGION")
	setStr(&cfg.S3.Bucket, "CURVEMARKET_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CURVEMARKET_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CURVEMARKET_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CURVEMARKET_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CURVEMARKET_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "CURVEMARKET_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "CURVEMARKET_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "CURVEMARKET_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "CURVEMARKET_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "CURVEMARKET_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "CURVEMARKET_SERVER_RATE_LIMIT_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CURVEMARKET_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CURVEMARKET_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CURVEMARKET_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CURVEMARKET_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CURVEMARKET_MODE")
	setStr(&cfg.LogLevel, "CURVEMARKET_LOG_LEVEL")
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
