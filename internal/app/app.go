// Package app provides the top-level application lifecycle for the spread
// dashboard backend. It wires the configured backends (postgres, redis, s3),
// builds the stream client and the HTTP/WebSocket server, and runs them until
// the context is cancelled.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carmandale/trade-strategies-sub001/internal/config"
	"github.com/carmandale/trade-strategies-sub001/internal/domain"
	"github.com/carmandale/trade-strategies-sub001/internal/notify"
	"github.com/carmandale/trade-strategies-sub001/internal/server"
	"github.com/carmandale/trade-strategies-sub001/internal/server/handler"
	"github.com/carmandale/trade-strategies-sub001/internal/server/ws"
	"github.com/carmandale/trade-strategies-sub001/internal/stream"
)

// snapshotTTL bounds how long a cached update outlives its last refresh.
const snapshotTTL = 24 * time.Hour

// shutdownGrace is how long in-flight requests get to finish on shutdown.
const shutdownGrace = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the stream
// client and the server, and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.String("stream_url", a.cfg.Stream.URL),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	var (
		hub    *ws.Hub
		client *stream.Client
	)

	alerter := notify.NewStreamAlerter(a.buildSenders(), func() string {
		return client.Err()
	}, a.logger)

	client = stream.NewClient(stream.Options{
		URL:                  a.cfg.Stream.URL,
		AutoReconnect:        a.cfg.Stream.AutoReconnect,
		ReconnectDelay:       a.cfg.Stream.ReconnectDelay.Duration,
		MaxReconnectAttempts: a.cfg.Stream.MaxReconnectAttempts,
		HeartbeatInterval:    a.cfg.Stream.HeartbeatInterval.Duration,
		Debug:                a.cfg.Stream.Debug,
		Logger:               a.logger,
		OnUpdate: func(id string, update domain.StrategyUpdate) {
			a.fanOut(ctx, deps, hub, id, update)
		},
		OnStateChange: alerter.OnStateChange,
	})

	hub = ws.NewHub(deps.UpdateBus, func() (string, string) {
		return client.Status().String(), client.Err()
	}, a.logger)

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(deps.PostgresPinger, deps.RedisPinger, a.logger),
		Strategies: handler.NewStrategiesHandler(client, deps.SnapshotCache, a.logger),
		Stream:     handler.NewStreamHandler(client, a.logger),
		Analysis:   handler.NewAnalysisHandler(a.logger),
	}
	if deps.SettingsStore != nil {
		handlers.Settings = handler.NewSettingsHandler(deps.SettingsStore, a.logger)
	}
	if deps.TradeLogStore != nil {
		handlers.TradeLog = handler.NewTradeLogHandler(deps.TradeLogStore, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimiter: deps.RateLimiter,
	}, handlers, hub, a.logger)

	if a.cfg.Stream.AutoConnect {
		client.Connect()
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		client.Disconnect()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// fanOut pushes an accepted strategy update into the snapshot cache and out
// to dashboard clients. When no Redis bus is configured the hub is fed
// directly.
func (a *App) fanOut(ctx context.Context, deps *Dependencies, hub *ws.Hub, id string, update domain.StrategyUpdate) {
	opCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if deps.SnapshotCache != nil {
		if err := deps.SnapshotCache.Set(opCtx, id, update, snapshotTTL); err != nil {
			a.logger.WarnContext(opCtx, "snapshot cache write failed",
				slog.String("strategy_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	payload, err := json.Marshal(update)
	if err != nil {
		a.logger.ErrorContext(opCtx, "update marshal failed",
			slog.String("strategy_id", id),
			slog.String("error", err.Error()),
		)
		return
	}

	if deps.UpdateBus != nil {
		if err := deps.UpdateBus.Publish(opCtx, payload); err != nil {
			a.logger.WarnContext(opCtx, "update bus publish failed",
				slog.String("strategy_id", id),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	if hub != nil {
		hub.Broadcast(payload)
	}
}

// buildSenders assembles the configured alert channels.
func (a *App) buildSenders() []notify.Sender {
	var senders []notify.Sender
	if a.cfg.Notify.TelegramToken != "" && a.cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			a.cfg.Notify.TelegramToken,
			a.cfg.Notify.TelegramChatID,
		))
	}
	if a.cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(a.cfg.Notify.DiscordWebhookURL))
	}
	return senders
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
