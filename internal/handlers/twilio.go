package handlers

import (
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/YehoanatnEzra/Callflow-AI/internal/callflow"
)

// Speech results below this confidence are treated as unheard and re-prompted
// rather than fed to the dialogue model.
const minSpeechConfidence = 0.4

// TwilioHandler serves the TwiML webhooks for calls bridged through Twilio.
// The turn sequence number rides on the Gather action URL so redelivered
// webhooks hit the session's replay cache.
type TwilioHandler struct {
	registry *callflow.Registry
	logger   *slog.Logger
}

func NewTwilioHandler(registry *callflow.Registry, logger *slog.Logger) *TwilioHandler {
	return &TwilioHandler{registry: registry, logger: logger}
}

// Voice answers the call: Twilio POSTs here when the prospect picks up.
func (h *TwilioHandler) Voice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	callID := strings.TrimSpace(r.FormValue("CallSid"))
	companyID := strings.TrimSpace(r.URL.Query().Get("company_id"))
	if companyID == "" {
		companyID = strings.TrimSpace(r.FormValue("company_id"))
	}
	if callID == "" || companyID == "" {
		http.Error(w, "CallSid and company_id required", http.StatusBadRequest)
		return
	}

	resp, err := h.registry.HandleEvent(r.Context(), callflow.Event{
		CallID:    callID,
		CompanyID: companyID,
		Kind:      callflow.EventCallStarted,
	})
	if err != nil {
		h.writeOverloaded(w, err, callID)
		return
	}
	h.writeTwiML(w, resp, companyID, 1)
}

// Turn handles the Gather result for one speech turn.
func (h *TwilioHandler) Turn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	callID := strings.TrimSpace(r.FormValue("CallSid"))
	companyID := strings.TrimSpace(r.URL.Query().Get("company_id"))
	seq, _ := strconv.Atoi(r.URL.Query().Get("seq"))
	if callID == "" || companyID == "" {
		http.Error(w, "CallSid and company_id required", http.StatusBadRequest)
		return
	}

	status := strings.TrimSpace(r.FormValue("CallStatus"))
	if status == "completed" || status == "failed" || status == "busy" || status == "no-answer" {
		_, _ = h.registry.HandleEvent(r.Context(), callflow.Event{
			CallID:    callID,
			CompanyID: companyID,
			Kind:      callflow.EventCallEnded,
			Seq:       seq,
		})
		h.writeHangup(w, "")
		return
	}

	speech := strings.TrimSpace(r.FormValue("SpeechResult"))
	confidence := 1.0
	if raw := strings.TrimSpace(r.FormValue("Confidence")); raw != "" {
		if c, err := strconv.ParseFloat(raw, 64); err == nil {
			confidence = c
		}
	}
	if speech == "" || confidence < minSpeechConfidence {
		// Nothing intelligible arrived; re-prompt on the same sequence number
		// so the turn is not consumed.
		h.writeTwiML(w, callflow.Response{Utterance: "Sorry, I didn't catch that. Could you say it again?"},
			companyID, seq)
		return
	}

	resp, err := h.registry.HandleEvent(r.Context(), callflow.Event{
		CallID:    callID,
		CompanyID: companyID,
		Kind:      callflow.EventSpeech,
		Utterance: speech,
		Seq:       seq,
	})
	if err != nil {
		h.writeOverloaded(w, err, callID)
		return
	}
	h.writeTwiML(w, resp, companyID, seq+1)
}

// Status receives Twilio call status callbacks and closes ended sessions.
func (h *TwilioHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	callID := strings.TrimSpace(r.FormValue("CallSid"))
	status := strings.TrimSpace(r.FormValue("CallStatus"))
	if callID != "" && (status == "completed" || status == "failed" || status == "busy" || status == "no-answer") {
		if sess, ok := h.registry.Get(callID); ok {
			_, _ = h.registry.HandleEvent(r.Context(), callflow.Event{
				CallID:    callID,
				CompanyID: sess.CompanyID,
				Kind:      callflow.EventCallEnded,
			})
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TwilioHandler) writeTwiML(w http.ResponseWriter, resp callflow.Response, companyID string, nextSeq int) {
	if resp.EndCall {
		h.writeHangup(w, resp.Utterance)
		return
	}
	action := fmt.Sprintf("/twilio/turn?company_id=%s&seq=%d", url.QueryEscape(companyID), nextSeq)
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><Response>`)
	fmt.Fprintf(&b, `<Gather input="speech" action="%s" method="POST" speechTimeout="auto">`, xmlEscape(action))
	if resp.Utterance != "" {
		fmt.Fprintf(&b, `<Say>%s</Say>`, xmlEscape(resp.Utterance))
	}
	b.WriteString(`</Gather>`)
	// No input before Gather times out: nudge once, then let Twilio re-POST.
	fmt.Fprintf(&b, `<Redirect method="POST">%s</Redirect>`, xmlEscape(action))
	b.WriteString(`</Response>`)

	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(b.String()))
}

func (h *TwilioHandler) writeHangup(w http.ResponseWriter, utterance string) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><Response>`)
	if utterance != "" {
		fmt.Fprintf(&b, `<Say>%s</Say>`, xmlEscape(utterance))
	}
	b.WriteString(`<Hangup/></Response>`)
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(b.String()))
}

func (h *TwilioHandler) writeOverloaded(w http.ResponseWriter, err error, callID string) {
	if errors.Is(err, callflow.ErrSessionLimit) {
		h.writeHangup(w, "All of our lines are busy right now. We'll call you back shortly.")
		return
	}
	h.logger.Error("twilio webhook failed", "call_id", callID, "err", err)
	h.writeHangup(w, "Something went wrong on our end. Goodbye.")
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
