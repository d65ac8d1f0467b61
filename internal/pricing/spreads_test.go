package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
)

func ironCondor() domain.StrategyParams {
	return domain.StrategyParams{
		Symbol:          "SPY",
		Expiration:      "2026-09-18",
		StrategyType:    domain.StrategyIronCondor,
		Contracts:       1,
		PutLongStrike:   420,
		PutShortStrike:  440,
		CallShortStrike: 470,
		CallLongStrike:  490,
	}
}

func bullCall() domain.StrategyParams {
	return domain.StrategyParams{
		Symbol:       "SPY",
		Expiration:   "2026-09-18",
		StrategyType: domain.StrategyBullCallSpread,
		Contracts:    1,
		LongStrike:   450,
		ShortStrike:  460,
	}
}

func butterfly() domain.StrategyParams {
	return domain.StrategyParams{
		Symbol:       "SPY",
		Expiration:   "2026-09-18",
		StrategyType: domain.StrategyButterfly,
		Contracts:    1,
		LowerStrike:  440,
		MiddleStrike: 455,
		UpperStrike:  470,
	}
}

func TestAnalyzeIronCondor(t *testing.T) {
	// 20-wide wings entered for a 2.50 credit.
	a, err := Analyze(ironCondor(), 2.5)
	require.NoError(t, err)

	require.InDelta(t, 250, a.MaxProfit, 1e-9)
	require.InDelta(t, 1750, a.MaxLoss, 1e-9)
	require.Equal(t, []float64{437.5, 472.5}, a.Breakevens)
	require.InDelta(t, 250.0/1750.0, a.RiskReward, 1e-9)
}

func TestAnalyzeBullCallSpread(t *testing.T) {
	// 10-wide spread bought for a 4.00 debit.
	a, err := Analyze(bullCall(), -4.0)
	require.NoError(t, err)

	require.InDelta(t, 400, a.MaxLoss, 1e-9)
	require.InDelta(t, 600, a.MaxProfit, 1e-9)
	require.Equal(t, []float64{454.0}, a.Breakevens)
}

func TestAnalyzeButterfly(t *testing.T) {
	// 15-wide butterfly bought for a 1.20 debit.
	a, err := Analyze(butterfly(), -1.2)
	require.NoError(t, err)

	require.InDelta(t, 120, a.MaxLoss, 1e-9)
	require.InDelta(t, 1380, a.MaxProfit, 1e-9)
	require.Equal(t, []float64{441.2, 468.8}, a.Breakevens)
}

func TestAnalyzeContractsScale(t *testing.T) {
	p := bullCall()
	p.Contracts = 5

	a, err := Analyze(p, -4.0)
	require.NoError(t, err)
	require.InDelta(t, 2000, a.MaxLoss, 1e-9)
	require.InDelta(t, 3000, a.MaxProfit, 1e-9)
}

func TestAnalyzeRejectsWrongSign(t *testing.T) {
	_, err := Analyze(ironCondor(), -2.5)
	require.Error(t, err, "condor entered for a debit")

	_, err = Analyze(bullCall(), 4.0)
	require.Error(t, err, "debit spread entered for a credit")
}

func TestAnalyzeRejectsInvalidParams(t *testing.T) {
	p := ironCondor()
	p.Symbol = ""
	_, err := Analyze(p, 2.5)
	require.ErrorIs(t, err, domain.ErrInvalidParams)
}

func TestPayoffAtIronCondor(t *testing.T) {
	p := ironCondor()

	tests := []struct {
		name       string
		underlying float64
		want       float64
	}{
		{"deep between short strikes", 455, 250},
		{"at put short strike", 440, 250},
		{"at put breakeven", 437.5, 0},
		{"below put long strike", 400, -1750},
		{"at call breakeven", 472.5, 0},
		{"above call long strike", 500, -1750},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PayoffAt(p, 2.5, tt.underlying)
			require.NoError(t, err)
			require.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestPayoffAtBullCall(t *testing.T) {
	p := bullCall()

	got, err := PayoffAt(p, -4.0, 445)
	require.NoError(t, err)
	require.InDelta(t, -400, got, 1e-9)

	got, err = PayoffAt(p, -4.0, 454)
	require.NoError(t, err)
	require.InDelta(t, 0, got, 1e-9)

	got, err = PayoffAt(p, -4.0, 480)
	require.NoError(t, err)
	require.InDelta(t, 600, got, 1e-9)
}

func TestPayoffAtButterflyPeak(t *testing.T) {
	p := butterfly()

	got, err := PayoffAt(p, -1.2, 455)
	require.NoError(t, err)
	require.InDelta(t, 1380, got, 1e-9, "peak at the middle strike")

	got, err = PayoffAt(p, -1.2, 430)
	require.NoError(t, err)
	require.InDelta(t, -120, got, 1e-9, "flat loss outside the wings")
}

func TestPayoffCurve(t *testing.T) {
	p := bullCall()

	points, err := PayoffCurve(p, -4.0, 430, 480, 51)
	require.NoError(t, err)
	require.Len(t, points, 51)
	require.InDelta(t, 430, points[0].Price, 1e-9)
	require.InDelta(t, 480, points[50].Price, 1e-9)
	require.InDelta(t, -400, points[0].Payoff, 1e-9)
	require.InDelta(t, 600, points[50].Payoff, 1e-9)

	_, err = PayoffCurve(p, -4.0, 480, 430, 10)
	require.Error(t, err, "inverted range")
}
