package domain

import "time"

// StrategySettings holds the dashboard-configurable defaults for one strategy
// type: strike distances as percentages of the underlying price, default
// contract count, and whether the strategy tab is enabled.
type StrategySettings struct {
	Strategy          string             `json:"strategy"` // strategy type key
	StrikePercentages map[string]float64 `json:"strike_percentages"`
	Contracts         int                `json:"contracts"`
	Enabled           bool               `json:"enabled"`
	UpdatedAt         time.Time          `json:"updated_at"`
}
