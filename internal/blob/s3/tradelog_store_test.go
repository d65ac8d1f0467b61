package s3blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
)

func TestTradeLogKey(t *testing.T) {
	assert.Equal(t, "tradelogs/2026-08-29.json", tradeLogKey("2026-08-29"))
}

func TestSaveRejectsMalformedDate(t *testing.T) {
	store := &TradeLogStore{}

	err := store.Save(context.Background(), domain.TradeLog{Date: "29/08/2026"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
}

func TestLoadRejectsMalformedDate(t *testing.T) {
	store := &TradeLogStore{}

	_, err := store.Load(context.Background(), "today")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
}

func TestWithScheme(t *testing.T) {
	assert.Equal(t, "https://e2.example.com", withScheme("e2.example.com", true))
	assert.Equal(t, "http://minio.local", withScheme("minio.local", false))
	assert.Equal(t, "https://already.example.com", withScheme("https://already.example.com", false))
}
