package domain

import "time"

// Leg is one option leg inside a live strategy valuation: its contract
// identity plus the latest quote and greeks.
type Leg struct {
	Right  string  `json:"right"` // "C" or "P"
	Side   string  `json:"side"`  // "buy" or "sell"
	Strike float64 `json:"strike"`

	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
	Mid float64 `json:"mid"`

	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	IV    float64 `json:"iv"`
}

// StrategyUpdate is one live valuation of a subscribed strategy, as pushed by
// the pricing server. The latest update per subscription is retained for the
// rendering layer; older updates are discarded.
type StrategyUpdate struct {
	StrategyID      string    `json:"strategy_id,omitempty"`
	Symbol          string    `json:"symbol,omitempty"`
	UnderlyingPrice float64   `json:"underlying_price"`
	NetPrice        float64   `json:"net_price"` // positive = credit, negative = debit
	MaxProfit       float64   `json:"max_profit"`
	MaxLoss         float64   `json:"max_loss"`
	Breakevens      []float64 `json:"breakevens,omitempty"`
	Legs            []Leg     `json:"legs,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}
