// Package domain defines the core value objects shared across the strategy
// dashboard backend: strategy specifications, live valuation updates, trade
// log entries, and the persistence interfaces implemented by the storage
// layers.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// StrategyType identifies an options-spread strategy kind.
type StrategyType string

const (
	StrategyIronCondor     StrategyType = "iron_condor"
	StrategyBullCallSpread StrategyType = "bull_call_spread"
	StrategyButterfly      StrategyType = "butterfly"
)

// Valid reports whether t is a known strategy type.
func (t StrategyType) Valid() bool {
	switch t {
	case StrategyIronCondor, StrategyBullCallSpread, StrategyButterfly:
		return true
	}
	return false
}

// StrategyParams is the full specification of one spread the caller wants
// live-priced: underlying symbol, expiration date, strategy kind, and the
// strike/contract fields relevant to that kind. Unused strike fields are
// zero and omitted on the wire.
type StrategyParams struct {
	Symbol       string       `json:"symbol"`
	Expiration   string       `json:"expiration"` // YYYY-MM-DD
	StrategyType StrategyType `json:"strategy_type"`
	Contracts    int          `json:"contracts,omitempty"`

	// Iron condor legs.
	PutLongStrike   float64 `json:"put_long_strike,omitempty"`
	PutShortStrike  float64 `json:"put_short_strike,omitempty"`
	CallShortStrike float64 `json:"call_short_strike,omitempty"`
	CallLongStrike  float64 `json:"call_long_strike,omitempty"`

	// Bull call spread legs.
	LongStrike  float64 `json:"long_strike,omitempty"`
	ShortStrike float64 `json:"short_strike,omitempty"`

	// Butterfly legs.
	LowerStrike  float64 `json:"lower_strike,omitempty"`
	MiddleStrike float64 `json:"middle_strike,omitempty"`
	UpperStrike  float64 `json:"upper_strike,omitempty"`
}

// ID derives the stable subscription identifier for these parameters: the
// hex-truncated SHA-256 of the canonical JSON encoding. Two StrategyParams
// with equal field values always produce the same ID, across processes.
func (p StrategyParams) ID() string {
	data, err := json.Marshal(p)
	if err != nil {
		// Marshal of a plain struct of strings and floats cannot fail.
		panic(fmt.Sprintf("domain: marshal strategy params: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// Validate checks that the parameters describe a well-formed spread: a known
// strategy type, a symbol and expiration, and strikes in the order the
// strategy requires.
func (p StrategyParams) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidParams)
	}
	if p.Expiration == "" {
		return fmt.Errorf("%w: expiration is required", ErrInvalidParams)
	}
	if !p.StrategyType.Valid() {
		return fmt.Errorf("%w: unknown strategy_type %q", ErrInvalidParams, p.StrategyType)
	}
	if p.Contracts < 0 {
		return fmt.Errorf("%w: contracts must not be negative", ErrInvalidParams)
	}

	switch p.StrategyType {
	case StrategyIronCondor:
		if !(p.PutLongStrike < p.PutShortStrike && p.PutShortStrike < p.CallShortStrike && p.CallShortStrike < p.CallLongStrike) {
			return fmt.Errorf("%w: iron condor strikes must satisfy put_long < put_short < call_short < call_long", ErrInvalidParams)
		}
	case StrategyBullCallSpread:
		if !(p.LongStrike < p.ShortStrike) {
			return fmt.Errorf("%w: bull call spread requires long_strike < short_strike", ErrInvalidParams)
		}
		if p.LongStrike <= 0 {
			return fmt.Errorf("%w: bull call spread strikes must be positive", ErrInvalidParams)
		}
	case StrategyButterfly:
		if !(p.LowerStrike < p.MiddleStrike && p.MiddleStrike < p.UpperStrike) {
			return fmt.Errorf("%w: butterfly strikes must satisfy lower < middle < upper", ErrInvalidParams)
		}
	}
	return nil
}
