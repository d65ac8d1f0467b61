package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
)

// TradeLogHandler serves the daily trade log endpoints backed by blob storage.
type TradeLogHandler struct {
	store  domain.TradeLogStore
	logger *slog.Logger
}

// NewTradeLogHandler creates a TradeLogHandler with the given store.
func NewTradeLogHandler(store domain.TradeLogStore, logger *slog.Logger) *TradeLogHandler {
	return &TradeLogHandler{
		store:  store,
		logger: logHandler(logger, "tradelog"),
	}
}

// listDatesResponse wraps the dates that have stored logs.
type listDatesResponse struct {
	Dates []string `json:"dates"`
}

// ListDates returns every date with a stored log, newest first.
// GET /api/tradelog
func (h *TradeLogHandler) ListDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.store.ListDates(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trade log dates failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trade logs")
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, listDatesResponse{Dates: dates})
}

// Get returns the full log for one day.
// GET /api/tradelog/{date}
func (h *TradeLogHandler) Get(w http.ResponseWriter, r *http.Request) {
	date := pathParam(r, "date")
	if !validDate(date) {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	log, err := h.store.Load(r.Context(), date)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no trade log for date")
			return
		}
		h.logger.ErrorContext(r.Context(), "load trade log failed",
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load trade log")
		return
	}

	writeJSON(w, http.StatusOK, log)
}

// Put replaces the whole log for one day. Entries without an id are assigned
// one; entries without an opened-at timestamp get the current time.
// PUT /api/tradelog/{date}
func (h *TradeLogHandler) Put(w http.ResponseWriter, r *http.Request) {
	date := pathParam(r, "date")
	if !validDate(date) {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	var log domain.TradeLog
	if err := json.NewDecoder(r.Body).Decode(&log); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	log.Date = date

	now := time.Now().UTC()
	for i := range log.Entries {
		if log.Entries[i].ID == "" {
			log.Entries[i].ID = uuid.NewString()
		}
		if log.Entries[i].OpenedAt.IsZero() {
			log.Entries[i].OpenedAt = now
		}
	}

	if err := h.store.Save(r.Context(), log); err != nil {
		if errors.Is(err, domain.ErrInvalidParams) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "save trade log failed",
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to save trade log")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "saved",
		"date":    date,
		"entries": len(log.Entries),
	})
}
