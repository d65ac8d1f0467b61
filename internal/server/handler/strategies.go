package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
	"github.com/carmandale/trade-strategies-sub001/internal/stream"
)

// StreamService is the slice of the stream client that the HTTP handlers use.
type StreamService interface {
	Connect()
	Disconnect()
	Subscribe(params domain.StrategyParams) (string, error)
	Unsubscribe(id string) error
	Status() stream.ConnState
	Err() string
	Subscriptions() []stream.SubscriptionInfo
	LastUpdate(id string) (domain.StrategyUpdate, bool)
}

// StrategiesHandler serves the strategy subscription endpoints.
type StrategiesHandler struct {
	stream    StreamService
	snapshots domain.SnapshotCache // may be nil when Redis is not configured
	logger    *slog.Logger
}

// NewStrategiesHandler creates a StrategiesHandler. snapshots may be nil; the
// snapshot endpoint then serves only from the client's in-memory registry.
func NewStrategiesHandler(stream StreamService, snapshots domain.SnapshotCache, logger *slog.Logger) *StrategiesHandler {
	return &StrategiesHandler{
		stream:    stream,
		snapshots: snapshots,
		logger:    logHandler(logger, "strategies"),
	}
}

// listStrategiesResponse wraps the tracked subscriptions.
type listStrategiesResponse struct {
	Strategies []stream.SubscriptionInfo `json:"strategies"`
}

// List returns all tracked subscriptions with their confirmation status.
// GET /api/strategies
func (h *StrategiesHandler) List(w http.ResponseWriter, r *http.Request) {
	subs := h.stream.Subscriptions()
	if subs == nil {
		subs = []stream.SubscriptionInfo{}
	}
	writeJSON(w, http.StatusOK, listStrategiesResponse{Strategies: subs})
}

// Subscribe registers a new strategy subscription. The body is the strategy
// parameters; the response carries the derived strategy id. Subscribing while
// disconnected queues the announcement for the next connection.
// POST /api/strategies
func (h *StrategiesHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var params domain.StrategyParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.stream.Subscribe(params)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidParams) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "subscribe failed",
			slog.String("strategy_type", string(params.StrategyType)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"strategy_id": id})
}

// Unsubscribe removes a subscription by id.
// DELETE /api/strategies/{id}
func (h *StrategiesHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	if err := h.stream.Unsubscribe(id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown strategy id")
			return
		}
		h.logger.ErrorContext(r.Context(), "unsubscribe failed",
			slog.String("strategy_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to unsubscribe")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"strategy_id": id, "status": "unsubscribing"})
}

// Snapshot returns the latest pushed update for a subscription. The client's
// registry is checked first; the Redis snapshot cache serves as a fallback
// across restarts.
// GET /api/strategies/{id}/snapshot
func (h *StrategiesHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	if update, ok := h.stream.LastUpdate(id); ok {
		writeJSON(w, http.StatusOK, update)
		return
	}

	if h.snapshots != nil {
		update, err := h.snapshots.Get(r.Context(), id)
		if err == nil {
			writeJSON(w, http.StatusOK, update)
			return
		}
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.ErrorContext(r.Context(), "snapshot cache read failed",
				slog.String("strategy_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	writeError(w, http.StatusNotFound, "no snapshot for strategy id")
}
