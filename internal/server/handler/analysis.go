package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
	"github.com/carmandale/trade-strategies-sub001/internal/pricing"
)

// AnalysisHandler serves closed-form spread analysis.
type AnalysisHandler struct {
	logger *slog.Logger
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{logger: logHandler(logger, "analysis")}
}

// payoffRequest is the body for POST /api/analysis/payoff. NetPrice follows
// the sign convention used throughout: positive is a credit, negative a
// debit. The curve fields are optional; when Steps is zero no curve is
// computed.
type payoffRequest struct {
	Params   domain.StrategyParams `json:"params"`
	NetPrice float64               `json:"net_price"`
	Lo       float64               `json:"lo,omitempty"`
	Hi       float64               `json:"hi,omitempty"`
	Steps    int                   `json:"steps,omitempty"`
}

// payoffResponse carries the analysis and, when requested, the payoff curve.
type payoffResponse struct {
	Analysis pricing.Analysis      `json:"analysis"`
	Curve    []pricing.PayoffPoint `json:"curve,omitempty"`
}

// Payoff computes max profit, max loss, breakevens and optionally a payoff
// curve for a spread at the given net price.
// POST /api/analysis/payoff
func (h *AnalysisHandler) Payoff(w http.ResponseWriter, r *http.Request) {
	var req payoffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	analysis, err := pricing.Analyze(req.Params, req.NetPrice)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidParams) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// Wrong-sign net price and similar pricing rejections are also
		// client mistakes.
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := payoffResponse{Analysis: analysis}

	if req.Steps > 0 {
		curve, err := pricing.PayoffCurve(req.Params, req.NetPrice, req.Lo, req.Hi, req.Steps)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp.Curve = curve
	}

	writeJSON(w, http.StatusOK, resp)
}
