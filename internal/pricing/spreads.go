// Package pricing computes closed-form expiry metrics for options spreads:
// maximum profit and loss, breakeven prices, and payoff-at-expiry curves.
// Everything here is a pure function over the strategy parameters and the
// net entry price; live quotes come from the stream client, not from here.
package pricing

import (
	"fmt"
	"math"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
)

// contractMultiplier is the standard equity-option contract size.
const contractMultiplier = 100

// Analysis summarizes a spread at expiry. Dollar amounts are per position
// (contracts x multiplier); MaxLoss is expressed as a positive number.
type Analysis struct {
	StrategyType domain.StrategyType `json:"strategy_type"`
	NetPrice     float64             `json:"net_price"`
	MaxProfit    float64             `json:"max_profit"`
	MaxLoss      float64             `json:"max_loss"`
	Breakevens   []float64           `json:"breakevens"`
	RiskReward   float64             `json:"risk_reward"`
}

// PayoffPoint is one sample of the payoff-at-expiry curve.
type PayoffPoint struct {
	Price  float64 `json:"price"`
	Payoff float64 `json:"payoff"`
}

// leg is an option position at expiry: quantity is positive for long,
// negative for short.
type leg struct {
	right  string // "C" or "P"
	strike float64
	qty    float64
}

// Analyze computes the expiry metrics for the given spread. netPrice follows
// the sign convention used throughout the system: positive for a credit
// received, negative for a debit paid.
func Analyze(params domain.StrategyParams, netPrice float64) (Analysis, error) {
	if err := params.Validate(); err != nil {
		return Analysis{}, err
	}

	mult := multiplier(params)
	a := Analysis{StrategyType: params.StrategyType, NetPrice: netPrice}

	switch params.StrategyType {
	case domain.StrategyIronCondor:
		credit := netPrice
		if credit <= 0 {
			return Analysis{}, fmt.Errorf("pricing: iron condor requires a net credit, got %.4f", netPrice)
		}
		putWidth := params.PutShortStrike - params.PutLongStrike
		callWidth := params.CallLongStrike - params.CallShortStrike
		width := math.Max(putWidth, callWidth)
		if credit >= width {
			return Analysis{}, fmt.Errorf("pricing: iron condor credit %.4f exceeds wing width %.4f", credit, width)
		}
		a.MaxProfit = credit * mult
		a.MaxLoss = (width - credit) * mult
		a.Breakevens = []float64{params.PutShortStrike - credit, params.CallShortStrike + credit}

	case domain.StrategyBullCallSpread:
		debit := -netPrice
		if debit <= 0 {
			return Analysis{}, fmt.Errorf("pricing: bull call spread requires a net debit, got %.4f", netPrice)
		}
		width := params.ShortStrike - params.LongStrike
		if debit >= width {
			return Analysis{}, fmt.Errorf("pricing: bull call debit %.4f exceeds spread width %.4f", debit, width)
		}
		a.MaxLoss = debit * mult
		a.MaxProfit = (width - debit) * mult
		a.Breakevens = []float64{params.LongStrike + debit}

	case domain.StrategyButterfly:
		debit := -netPrice
		if debit <= 0 {
			return Analysis{}, fmt.Errorf("pricing: butterfly requires a net debit, got %.4f", netPrice)
		}
		innerWidth := params.MiddleStrike - params.LowerStrike
		if debit >= innerWidth {
			return Analysis{}, fmt.Errorf("pricing: butterfly debit %.4f exceeds inner width %.4f", debit, innerWidth)
		}
		a.MaxLoss = debit * mult
		a.MaxProfit = (innerWidth - debit) * mult
		a.Breakevens = []float64{params.LowerStrike + debit, params.UpperStrike - debit}
	}

	if a.MaxLoss > 0 {
		a.RiskReward = a.MaxProfit / a.MaxLoss
	}
	return a, nil
}

// PayoffAt evaluates the position's profit or loss at expiry for one
// underlying price.
func PayoffAt(params domain.StrategyParams, netPrice, underlying float64) (float64, error) {
	if err := params.Validate(); err != nil {
		return 0, err
	}

	total := netPrice
	for _, l := range legs(params) {
		total += l.qty * intrinsic(l, underlying)
	}
	return total * multiplier(params), nil
}

// PayoffCurve samples the payoff-at-expiry across [lo, hi] in the given
// number of steps (inclusive of both endpoints).
func PayoffCurve(params domain.StrategyParams, netPrice, lo, hi float64, steps int) ([]PayoffPoint, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if hi <= lo {
		return nil, fmt.Errorf("pricing: invalid price range [%.2f, %.2f]", lo, hi)
	}
	if steps < 2 {
		steps = 2
	}

	step := (hi - lo) / float64(steps-1)
	points := make([]PayoffPoint, 0, steps)
	for i := 0; i < steps; i++ {
		price := lo + float64(i)*step
		payoff, err := PayoffAt(params, netPrice, price)
		if err != nil {
			return nil, err
		}
		points = append(points, PayoffPoint{Price: price, Payoff: payoff})
	}
	return points, nil
}

func multiplier(params domain.StrategyParams) float64 {
	contracts := params.Contracts
	if contracts < 1 {
		contracts = 1
	}
	return float64(contracts) * contractMultiplier
}

func legs(params domain.StrategyParams) []leg {
	switch params.StrategyType {
	case domain.StrategyIronCondor:
		return []leg{
			{right: "P", strike: params.PutLongStrike, qty: 1},
			{right: "P", strike: params.PutShortStrike, qty: -1},
			{right: "C", strike: params.CallShortStrike, qty: -1},
			{right: "C", strike: params.CallLongStrike, qty: 1},
		}
	case domain.StrategyBullCallSpread:
		return []leg{
			{right: "C", strike: params.LongStrike, qty: 1},
			{right: "C", strike: params.ShortStrike, qty: -1},
		}
	case domain.StrategyButterfly:
		return []leg{
			{right: "C", strike: params.LowerStrike, qty: 1},
			{right: "C", strike: params.MiddleStrike, qty: -2},
			{right: "C", strike: params.UpperStrike, qty: 1},
		}
	}
	return nil
}

func intrinsic(l leg, underlying float64) float64 {
	if l.right == "C" {
		return math.Max(underlying-l.strike, 0)
	}
	return math.Max(l.strike-underlying, 0)
}
