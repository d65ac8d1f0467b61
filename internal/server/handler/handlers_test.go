package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
	"github.com/carmandale/trade-strategies-sub001/internal/stream"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStream implements StreamService for handler tests.
type fakeStream struct {
	state      stream.ConnState
	lastErr    string
	subs       []stream.SubscriptionInfo
	updates    map[string]domain.StrategyUpdate
	subscribed []domain.StrategyParams
	removed    []string
	connects   int
	disconns   int
}

func (f *fakeStream) Connect()    { f.connects++; f.state = stream.StateConnecting }
func (f *fakeStream) Disconnect() { f.disconns++; f.state = stream.StateDisconnected }

func (f *fakeStream) Subscribe(params domain.StrategyParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	f.subscribed = append(f.subscribed, params)
	return params.ID(), nil
}

func (f *fakeStream) Unsubscribe(id string) error {
	for _, s := range f.subs {
		if s.ID == id {
			f.removed = append(f.removed, id)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeStream) Status() stream.ConnState { return f.state }
func (f *fakeStream) Err() string              { return f.lastErr }

func (f *fakeStream) Subscriptions() []stream.SubscriptionInfo { return f.subs }

func (f *fakeStream) LastUpdate(id string) (domain.StrategyUpdate, bool) {
	u, ok := f.updates[id]
	return u, ok
}

func ironCondorParams() domain.StrategyParams {
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

func TestStrategiesSubscribe(t *testing.T) {
	fs := &fakeStream{}
	h := NewStrategiesHandler(fs, nil, testLogger())

	body, err := json.Marshal(ironCondorParams())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/strategies", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Subscribe(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ironCondorParams().ID(), resp["strategy_id"])
	assert.Len(t, fs.subscribed, 1)
}

func TestStrategiesSubscribeRejectsInvalidParams(t *testing.T) {
	fs := &fakeStream{}
	h := NewStrategiesHandler(fs, nil, testLogger())

	params := ironCondorParams()
	params.PutShortStrike = params.PutLongStrike - 5 // wrong ordering

	body, err := json.Marshal(params)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/strategies", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Subscribe(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fs.subscribed)
}

func TestStrategiesUnsubscribeUnknownID(t *testing.T) {
	h := NewStrategiesHandler(&fakeStream{}, nil, testLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/strategies/deadbeef", nil)
	req.SetPathValue("id", "deadbeef")
	rec := httptest.NewRecorder()
	h.Unsubscribe(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStrategiesSnapshot(t *testing.T) {
	params := ironCondorParams()
	id := params.ID()

	fs := &fakeStream{
		updates: map[string]domain.StrategyUpdate{
			id: {StrategyID: id, Symbol: "SPY", NetPrice: 2.5},
		},
	}
	h := NewStrategiesHandler(fs, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/strategies/"+id+"/snapshot", nil)
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.Snapshot(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var update domain.StrategyUpdate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &update))
	assert.Equal(t, id, update.StrategyID)
	assert.InDelta(t, 2.5, update.NetPrice, 1e-9)
}

func TestStrategiesSnapshotFallsBackToCache(t *testing.T) {
	params := ironCondorParams()
	id := params.ID()

	cache := &fakeSnapshotCache{
		updates: map[string]domain.StrategyUpdate{
			id: {StrategyID: id, Symbol: "SPY"},
		},
	}
	h := NewStrategiesHandler(&fakeStream{}, cache, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/strategies/"+id+"/snapshot", nil)
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.Snapshot(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStrategiesSnapshotMissing(t *testing.T) {
	h := NewStrategiesHandler(&fakeStream{}, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/strategies/nope/snapshot", nil)
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	h.Snapshot(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamStatusAndControl(t *testing.T) {
	fs := &fakeStream{state: stream.StateError, lastErr: "connection lost; gave up after 5 reconnect attempts"}
	h := NewStreamHandler(fs, testLogger())

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/stream/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status streamStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "error", status.State)
	assert.Contains(t, status.LastError, "gave up")

	rec = httptest.NewRecorder()
	h.Connect(rec, httptest.NewRequest(http.MethodPost, "/api/stream/connect", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, fs.connects)

	rec = httptest.NewRecorder()
	h.Disconnect(rec, httptest.NewRequest(http.MethodPost, "/api/stream/disconnect", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fs.disconns)
}

func TestAnalysisPayoff(t *testing.T) {
	h := NewAnalysisHandler(testLogger())

	body, err := json.Marshal(payoffRequest{
		Params:   ironCondorParams(),
		NetPrice: 2.5,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/analysis/payoff", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Payoff(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp payoffResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 250, resp.Analysis.MaxProfit, 1e-9)
	assert.InDelta(t, 1750, resp.Analysis.MaxLoss, 1e-9)
	assert.Empty(t, resp.Curve)
}

func TestAnalysisPayoffWithCurve(t *testing.T) {
	h := NewAnalysisHandler(testLogger())

	body, err := json.Marshal(payoffRequest{
		Params:   ironCondorParams(),
		NetPrice: 2.5,
		Lo:       400,
		Hi:       500,
		Steps:    11,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/analysis/payoff", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Payoff(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp payoffResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Curve, 11)
}

func TestAnalysisPayoffRejectsWrongSign(t *testing.T) {
	h := NewAnalysisHandler(testLogger())

	body, err := json.Marshal(payoffRequest{
		Params:   ironCondorParams(),
		NetPrice: -2.5, // condors are entered for a credit
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/analysis/payoff", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Payoff(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	store := &fakeSettingsStore{settings: map[string]domain.StrategySettings{}}
	h := NewSettingsHandler(store, testLogger())

	body, err := json.Marshal(domain.StrategySettings{
		StrikePercentages: map[string]float64{"put_short": 2.0, "call_short": 2.0},
		Contracts:         10,
		Enabled:           true,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/settings/iron_condor", bytes.NewReader(body))
	req.SetPathValue("strategy", "iron_condor")
	rec := httptest.NewRecorder()
	h.Put(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/settings/iron_condor", nil)
	req.SetPathValue("strategy", "iron_condor")
	rec = httptest.NewRecorder()
	h.Get(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.StrategySettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "iron_condor", got.Strategy)
	assert.Equal(t, 10, got.Contracts)
}

func TestSettingsGetMissing(t *testing.T) {
	store := &fakeSettingsStore{settings: map[string]domain.StrategySettings{}}
	h := NewSettingsHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/settings/butterfly", nil)
	req.SetPathValue("strategy", "butterfly")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTradeLogPutAssignsIDs(t *testing.T) {
	store := &fakeTradeLogStore{logs: map[string]domain.TradeLog{}}
	h := NewTradeLogHandler(store, testLogger())

	body, err := json.Marshal(domain.TradeLog{
		Entries: []domain.TradeLogEntry{
			{Symbol: "SPY", StrategyType: domain.StrategyIronCondor, Contracts: 1, EntryPrice: 2.5, Status: "open"},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/tradelog/2026-08-29", bytes.NewReader(body))
	req.SetPathValue("date", "2026-08-29")
	rec := httptest.NewRecorder()
	h.Put(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	saved := store.logs["2026-08-29"]
	require.Len(t, saved.Entries, 1)
	assert.NotEmpty(t, saved.Entries[0].ID)
	assert.False(t, saved.Entries[0].OpenedAt.IsZero())
	assert.Equal(t, "2026-08-29", saved.Date)
}

func TestTradeLogRejectsBadDate(t *testing.T) {
	h := NewTradeLogHandler(&fakeTradeLogStore{logs: map[string]domain.TradeLog{}}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/tradelog/yesterday", nil)
	req.SetPathValue("date", "yesterday")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTradeLogGetMissing(t *testing.T) {
	h := NewTradeLogHandler(&fakeTradeLogStore{logs: map[string]domain.TradeLog{}}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/tradelog/2026-01-01", nil)
	req.SetPathValue("date", "2026-01-01")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --------------------------------------------------------------------------
// fakes
// --------------------------------------------------------------------------

type fakeSnapshotCache struct {
	updates map[string]domain.StrategyUpdate
}

func (f *fakeSnapshotCache) Set(_ context.Context, id string, u domain.StrategyUpdate, _ time.Duration) error {
	f.updates[id] = u
	return nil
}

func (f *fakeSnapshotCache) Get(_ context.Context, id string) (domain.StrategyUpdate, error) {
	u, ok := f.updates[id]
	if !ok {
		return domain.StrategyUpdate{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeSnapshotCache) Delete(_ context.Context, id string) error {
	delete(f.updates, id)
	return nil
}

type fakeSettingsStore struct {
	settings map[string]domain.StrategySettings
}

func (f *fakeSettingsStore) Get(_ context.Context, strategy string) (domain.StrategySettings, error) {
	s, ok := f.settings[strategy]
	if !ok {
		return domain.StrategySettings{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeSettingsStore) List(_ context.Context) ([]domain.StrategySettings, error) {
	out := make([]domain.StrategySettings, 0, len(f.settings))
	for _, s := range f.settings {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSettingsStore) Upsert(_ context.Context, s domain.StrategySettings) error {
	f.settings[s.Strategy] = s
	return nil
}

type fakeTradeLogStore struct {
	logs map[string]domain.TradeLog
}

func (f *fakeTradeLogStore) Save(_ context.Context, log domain.TradeLog) error {
	f.logs[log.Date] = log
	return nil
}

func (f *fakeTradeLogStore) Load(_ context.Context, date string) (domain.TradeLog, error) {
	log, ok := f.logs[date]
	if !ok {
		return domain.TradeLog{}, domain.ErrNotFound
	}
	return log, nil
}

func (f *fakeTradeLogStore) ListDates(_ context.Context) ([]string, error) {
	dates := make([]string, 0, len(f.logs))
	for d := range f.logs {
		dates = append(dates, d)
	}
	return dates, nil
}
