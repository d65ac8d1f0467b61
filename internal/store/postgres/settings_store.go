package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
)

// SettingsStore implements domain.SettingsStore using PostgreSQL. Strike
// percentages are stored as JSONB so the dashboard can evolve its settings
// shape without schema churn.
type SettingsStore struct {
	pool *pgxpool.Pool
}

// NewSettingsStore creates a SettingsStore backed by the given connection pool.
func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Get retrieves the settings for one strategy type.
func (s *SettingsStore) Get(ctx context.Context, strategy string) (domain.StrategySettings, error) {
	const query = `SELECT strategy, settings_json, contracts, enabled, updated_at
		FROM strategy_settings WHERE strategy = $1`

	var settings domain.StrategySettings
	var settingsJSON []byte

	err := s.pool.QueryRow(ctx, query, strategy).Scan(
		&settings.Strategy, &settingsJSON, &settings.Contracts, &settings.Enabled, &settings.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.StrategySettings{}, domain.ErrNotFound
		}
		return domain.StrategySettings{}, fmt.Errorf("postgres: get settings %s: %w", strategy, err)
	}

	if settingsJSON != nil {
		if err := json.Unmarshal(settingsJSON, &settings.StrikePercentages); err != nil {
			return domain.StrategySettings{}, fmt.Errorf("postgres: unmarshal settings %s: %w", strategy, err)
		}
	}

	return settings, nil
}

// List returns the settings for every strategy type, ordered by name.
func (s *SettingsStore) List(ctx context.Context) ([]domain.StrategySettings, error) {
	const query = `SELECT strategy, settings_json, contracts, enabled, updated_at
		FROM strategy_settings ORDER BY strategy`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settings: %w", err)
	}
	defer rows.Close()

	var out []domain.StrategySettings
	for rows.Next() {
		var settings domain.StrategySettings
		var settingsJSON []byte
		if err := rows.Scan(&settings.Strategy, &settingsJSON, &settings.Contracts, &settings.Enabled, &settings.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan settings: %w", err)
		}
		if settingsJSON != nil {
			if err := json.Unmarshal(settingsJSON, &settings.StrikePercentages); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal settings %s: %w", settings.Strategy, err)
			}
		}
		out = append(out, settings)
	}
	return out, rows.Err()
}

// Upsert inserts or updates the settings for one strategy type.
func (s *SettingsStore) Upsert(ctx context.Context, settings domain.StrategySettings) error {
	settingsJSON, err := json.Marshal(settings.StrikePercentages)
	if err != nil {
		return fmt.Errorf("postgres: marshal settings %s: %w", settings.Strategy, err)
	}

	const query = `
		INSERT INTO strategy_settings (strategy, settings_json, contracts, enabled, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (strategy) DO UPDATE SET
			settings_json = EXCLUDED.settings_json,
			contracts     = EXCLUDED.contracts,
			enabled       = EXCLUDED.enabled,
			updated_at    = NOW()`

	_, err = s.pool.Exec(ctx, query, settings.Strategy, settingsJSON, settings.Contracts, settings.Enabled)
	if err != nil {
		return fmt.Errorf("postgres: upsert settings %s: %w", settings.Strategy, err)
	}
	return nil
}
