package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
)

// SettingsHandler serves per-strategy dashboard settings backed by Postgres.
type SettingsHandler struct {
	store  domain.SettingsStore
	logger *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler with the given store.
func NewSettingsHandler(store domain.SettingsStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		store:  store,
		logger: logHandler(logger, "settings"),
	}
}

// Get returns the settings for one strategy type.
// GET /api/settings/{strategy}
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	strategy := pathParam(r, "strategy")

	settings, err := h.store.Get(r.Context(), strategy)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no settings for strategy")
			return
		}
		h.logger.ErrorContext(r.Context(), "get settings failed",
			slog.String("strategy", strategy),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// Put upserts the settings for one strategy type. The path segment wins over
// any strategy key in the body.
// PUT /api/settings/{strategy}
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	strategy := pathParam(r, "strategy")

	var settings domain.StrategySettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	settings.Strategy = strategy

	if settings.Contracts < 0 {
		writeError(w, http.StatusBadRequest, "contracts must be non-negative")
		return
	}

	if err := h.store.Upsert(r.Context(), settings); err != nil {
		h.logger.ErrorContext(r.Context(), "upsert settings failed",
			slog.String("strategy", strategy),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "updated",
		"strategy": strategy,
	})
}
