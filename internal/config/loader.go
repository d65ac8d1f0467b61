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
// built-in defaults, applies STRATD_* environment variable overrides, and
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

// applyEnvOverrides reads well-known STRATD_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "STRATD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "STRATD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "STRATD_SERVER_API_KEY")

	// ── Stream ──
	setStr(&cfg.Stream.URL, "STRATD_STREAM_URL")
	setBool(&cfg.Stream.AutoConnect, "STRATD_STREAM_AUTO_CONNECT")
	setBool(&cfg.Stream.AutoReconnect, "STRATD_STREAM_AUTO_RECONNECT")
	setDuration(&cfg.Stream.ReconnectDelay, "STRATD_STREAM_RECONNECT_DELAY")
	setInt(&cfg.Stream.MaxReconnectAttempts, "STRATD_STREAM_MAX_RECONNECT_ATTEMPTS")
	setDuration(&cfg.Stream.HeartbeatInterval, "STRATD_STREAM_HEARTBEAT_INTERVAL")
	setBool(&cfg.Stream.Debug, "STRATD_STREAM_DEBUG")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "STRATD_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "STRATD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "STRATD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "STRATD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "STRATD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "STRATD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "STRATD_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "STRATD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "STRATD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "STRATD_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "STRATD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "STRATD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "STRATD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "STRATD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "STRATD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "STRATD_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "STRATD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "STRATD_S3_REGION")
	setStr(&cfg.S3.Bucket, "STRATD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "STRATD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "STRATD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "STRATD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "STRATD_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "STRATD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "STRATD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "STRATD_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "STRATD_LOG_LEVEL")
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
