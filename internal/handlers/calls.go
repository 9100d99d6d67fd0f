package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/YehoanatnEzra/Callflow-AI/internal/dialer"
)

// CallsHandler starts outbound calls through the configured dialer.
type CallsHandler struct {
	dialer dialer.Dialer
	logger *slog.Logger
}

func NewCallsHandler(d dialer.Dialer, logger *slog.Logger) *CallsHandler {
	return &CallsHandler{dialer: d, logger: logger}
}

type createCallRequest struct {
	CompanyID string `json:"company_id"`
	ToNumber  string `json:"to_number"`
}

type createCallResponse struct {
	CallID string `json:"call_id"`
}

func (h *CallsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.CompanyID = strings.TrimSpace(req.CompanyID)
	req.ToNumber = strings.TrimSpace(req.ToNumber)
	if req.CompanyID == "" || req.ToNumber == "" {
		http.Error(w, "company_id and to_number required", http.StatusBadRequest)
		return
	}

	callID, err := h.dialer.Dial(r.Context(), req.CompanyID, req.ToNumber)
	if err != nil {
		if errors.Is(err, dialer.ErrNotConfigured) {
			http.Error(w, "outbound dialing is not configured", http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("outbound dial failed", "company_id", req.CompanyID, "err", err)
		http.Error(w, "failed to start call", http.StatusBadGateway)
		return
	}

	h.logger.Info("outbound call started", "company_id", req.CompanyID, "call_id", callID)
	writeJSON(w, http.StatusCreated, createCallResponse{CallID: callID})
}
