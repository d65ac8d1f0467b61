package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validIronCondor() StrategyParams {
	return StrategyParams{
		Symbol:          "SPY",
		Expiration:      "2026-09-18",
		StrategyType:    StrategyIronCondor,
		Contracts:       1,
		PutLongStrike:   420,
		PutShortStrike:  440,
		CallShortStrike: 470,
		CallLongStrike:  490,
	}
}

func TestStrategyParamsIDIsStable(t *testing.T) {
	a := validIronCondor()
	b := validIronCondor()

	require.Equal(t, a.ID(), b.ID())
	require.Len(t, a.ID(), 16)

	b.Symbol = "QQQ"
	require.NotEqual(t, a.ID(), b.ID())
}

func TestStrategyParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*StrategyParams)
		wantErr bool
	}{
		{"valid iron condor", func(p *StrategyParams) {}, false},
		{"missing symbol", func(p *StrategyParams) { p.Symbol = "" }, true},
		{"missing expiration", func(p *StrategyParams) { p.Expiration = "" }, true},
		{"unknown type", func(p *StrategyParams) { p.StrategyType = "straddle" }, true},
		{"negative contracts", func(p *StrategyParams) { p.Contracts = -1 }, true},
		{"inverted put wing", func(p *StrategyParams) { p.PutLongStrike = 450 }, true},
		{"overlapping wings", func(p *StrategyParams) { p.CallShortStrike = 430 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validIronCondor()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidParams)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestStrategyParamsValidateBullCall(t *testing.T) {
	p := StrategyParams{
		Symbol:       "SPY",
		Expiration:   "2026-09-18",
		StrategyType: StrategyBullCallSpread,
		LongStrike:   450,
		ShortStrike:  460,
	}
	require.NoError(t, p.Validate())

	p.ShortStrike = 440
	require.ErrorIs(t, p.Validate(), ErrInvalidParams)
}

func TestStrategyParamsValidateButterfly(t *testing.T) {
	p := StrategyParams{
		Symbol:       "SPY",
		Expiration:   "2026-09-18",
		StrategyType: StrategyButterfly,
		LowerStrike:  440,
		MiddleStrike: 455,
		UpperStrike:  470,
	}
	require.NoError(t, p.Validate())

	p.MiddleStrike = 480
	require.ErrorIs(t, p.Validate(), ErrInvalidParams)
}
