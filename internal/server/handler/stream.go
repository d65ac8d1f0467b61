package handler

import (
	"log/slog"
	"net/http"
)

// StreamHandler serves the stream connection control endpoints.
type StreamHandler struct {
	stream StreamService
	logger *slog.Logger
}

// NewStreamHandler creates a StreamHandler with the given stream client.
func NewStreamHandler(stream StreamService, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		stream: stream,
		logger: logHandler(logger, "stream"),
	}
}

// streamStatusResponse reports the connection state and the most recent error.
type streamStatusResponse struct {
	State     string `json:"state"`
	LastError string `json:"last_error,omitempty"`
}

// Status reports the current connection state.
// GET /api/stream/status
func (h *StreamHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, streamStatusResponse{
		State:     h.stream.Status().String(),
		LastError: h.stream.Err(),
	})
}

// Connect initiates a connection attempt. Connecting resets the reconnect
// budget, so this also recovers a client stuck in the error state.
// POST /api/stream/connect
func (h *StreamHandler) Connect(w http.ResponseWriter, r *http.Request) {
	h.stream.Connect()
	writeJSON(w, http.StatusAccepted, streamStatusResponse{
		State:     h.stream.Status().String(),
		LastError: h.stream.Err(),
	})
}

// Disconnect tears the connection down and suppresses reconnection until the
// next Connect.
// POST /api/stream/disconnect
func (h *StreamHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.stream.Disconnect()
	writeJSON(w, http.StatusOK, streamStatusResponse{
		State: h.stream.Status().String(),
	})
}
