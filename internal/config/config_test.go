package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Server.Port = 0
	cfg.Stream.URL = "http://not-a-ws-url"
	cfg.Stream.MaxReconnectAttempts = 0

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "log_level")
	require.Contains(t, err.Error(), "port")
	require.Contains(t, err.Error(), "ws://")
	require.Contains(t, err.Error(), "max_reconnect_attempts")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[stream]
url = "wss://pricing.example.com/ws"
reconnect_delay = "250ms"
heartbeat_interval = "10s"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "wss://pricing.example.com/ws", cfg.Stream.URL)
	require.Equal(t, 250*time.Millisecond, cfg.Stream.ReconnectDelay.Duration)
	require.Equal(t, 10*time.Second, cfg.Stream.HeartbeatInterval.Duration)
	// Untouched fields keep their defaults.
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 5, cfg.Stream.MaxReconnectAttempts)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STRATD_STREAM_URL", "wss://override.example.com/ws")
	t.Setenv("STRATD_SERVER_PORT", "9090")
	t.Setenv("STRATD_STREAM_DEBUG", "true")
	t.Setenv("STRATD_STREAM_RECONNECT_DELAY", "1s")
	t.Setenv("STRATD_SERVER_CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	require.Equal(t, "wss://override.example.com/ws", cfg.Stream.URL)
	require.Equal(t, 9090, cfg.Server.Port)
	require.True(t, cfg.Stream.Debug)
	require.Equal(t, time.Second, cfg.Stream.ReconnectDelay.Duration)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Server.APIKey = "topsecret"
	cfg.Postgres.Password = "hunter2"
	cfg.S3.SecretKey = "aws-secret"
	cfg.Notify.TelegramToken = "bot-token"
	cfg.Notify.DiscordWebhookURL = "https://discord.com/api/webhooks/1/x"

	red := RedactedConfig(&cfg)

	require.Equal(t, "***", red.Server.APIKey)
	require.Equal(t, "***", red.Postgres.Password)
	require.Equal(t, "***", red.S3.SecretKey)
	require.Equal(t, "***", red.Notify.TelegramToken)
	require.Equal(t, "***", red.Notify.DiscordWebhookURL)
	// Original untouched.
	require.Equal(t, "topsecret", cfg.Server.APIKey)
}
