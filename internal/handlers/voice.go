// Package handlers exposes the HTTP surface: the generic voice-event webhook,
// the Twilio webhooks, and the meetings API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/YehoanatnEzra/Callflow-AI/internal/callflow"
)

// VoiceHandler accepts provider-agnostic call events as JSON and returns the
// assistant's next utterance.
type VoiceHandler struct {
	registry *callflow.Registry
	logger   *slog.Logger
}

func NewVoiceHandler(registry *callflow.Registry, logger *slog.Logger) *VoiceHandler {
	return &VoiceHandler{registry: registry, logger: logger}
}

type voiceEventRequest struct {
	CallID    string `json:"call_id"`
	CompanyID string `json:"company_id"`
	Kind      string `json:"kind"`
	Utterance string `json:"utterance"`
	Seq       int    `json:"seq"`
}

type voiceEventResponse struct {
	Utterance string `json:"utterance"`
	EndCall   bool   `json:"end_call"`
}

func (h *VoiceHandler) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req voiceEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.CallID = strings.TrimSpace(req.CallID)
	req.CompanyID = strings.TrimSpace(req.CompanyID)
	if req.CallID == "" || req.CompanyID == "" {
		http.Error(w, "call_id and company_id required", http.StatusBadRequest)
		return
	}

	var kind callflow.EventKind
	switch req.Kind {
	case "call.started":
		kind = callflow.EventCallStarted
	case "speech":
		kind = callflow.EventSpeech
	case "call.ended":
		kind = callflow.EventCallEnded
	default:
		http.Error(w, "kind must be call.started, speech, or call.ended", http.StatusBadRequest)
		return
	}
	if kind == callflow.EventSpeech && strings.TrimSpace(req.Utterance) == "" {
		http.Error(w, "utterance required for speech events", http.StatusBadRequest)
		return
	}

	resp, err := h.registry.HandleEvent(r.Context(), callflow.Event{
		CallID:    req.CallID,
		CompanyID: req.CompanyID,
		Kind:      kind,
		Utterance: req.Utterance,
		Seq:       req.Seq,
	})
	if err != nil {
		if errors.Is(err, callflow.ErrSessionLimit) {
			http.Error(w, "too many active calls", http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("voice event failed", "call_id", req.CallID, "err", err)
		http.Error(w, "failed to process event", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(voiceEventResponse{
		Utterance: resp.Utterance,
		EndCall:   resp.EndCall,
	})
}

// ActiveCalls lists the call IDs currently in flight.
func (h *VoiceHandler) ActiveCalls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"active_calls": h.registry.ActiveCalls()})
}
