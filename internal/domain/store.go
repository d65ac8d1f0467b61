package domain

import "context"

// SettingsStore persists per-strategy dashboard settings.
type SettingsStore interface {
	Get(ctx context.Context, strategy string) (StrategySettings, error)
	List(ctx context.Context) ([]StrategySettings, error)
	Upsert(ctx context.Context, settings StrategySettings) error
}
