package domain

import "time"

// TradeLogEntry records one closed or open spread trade for the dashboard's
// trade log. Entries are grouped into daily blobs keyed by trade date and the
// whole blob is rewritten on every save.
type TradeLogEntry struct {
	ID           string         `json:"id"`
	Symbol       string         `json:"symbol"`
	StrategyType StrategyType   `json:"strategy_type"`
	Params       StrategyParams `json:"params"`
	Contracts    int            `json:"contracts"`
	EntryPrice   float64        `json:"entry_price"`
	ExitPrice    float64        `json:"exit_price,omitempty"`
	ProfitLoss   float64        `json:"profit_loss,omitempty"`
	Status       string         `json:"status"` // "open" or "closed"
	Notes        string         `json:"notes,omitempty"`
	OpenedAt     time.Time      `json:"opened_at"`
	ClosedAt     *time.Time     `json:"closed_at,omitempty"`
}

// TradeLog is the daily collection stored as one blob.
type TradeLog struct {
	Date    string          `json:"date"` // YYYY-MM-DD
	Entries []TradeLogEntry `json:"entries"`
	SavedAt time.Time       `json:"saved_at"`
}
