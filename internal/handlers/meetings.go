package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/YehoanatnEzra/Callflow-AI/internal/availability"
	"github.com/YehoanatnEzra/Callflow-AI/internal/company"
	"github.com/YehoanatnEzra/Callflow-AI/internal/ledger"
)

// MeetingsHandler serves the meetings CRUD and the open-slots lookup.
type MeetingsHandler struct {
	ledger    ledger.Ledger
	companies company.Source
	logger    *slog.Logger
	slots     availability.Params
}

func NewMeetingsHandler(l ledger.Ledger, companies company.Source, logger *slog.Logger, slots availability.Params) *MeetingsHandler {
	return &MeetingsHandler{ledger: l, companies: companies, logger: logger, slots: slots}
}

type meetingItem struct {
	MeetingID       string `json:"meeting_id"`
	CompanyID       string `json:"company_id"`
	ProspectName    string `json:"prospect_name,omitempty"`
	ProspectContact string `json:"prospect_contact,omitempty"`
	CallID          string `json:"call_id,omitempty"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Status          string `json:"status"`
	CancelledAt     string `json:"cancelled_at,omitempty"`
	CancelReason    string `json:"cancel_reason,omitempty"`
	Notes           string `json:"notes,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func (h *MeetingsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	companyID := strings.TrimSpace(r.URL.Query().Get("company_id"))
	if companyID == "" {
		http.Error(w, "company_id required", http.StatusBadRequest)
		return
	}

	f := ledger.Filter{Status: strings.TrimSpace(r.URL.Query().Get("status")), Limit: 50}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			f.Limit = n
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return
		}
		f.From = t
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid to", http.StatusBadRequest)
			return
		}
		f.To = t
	}

	meetings, err := h.ledger.List(r.Context(), companyID, f)
	if err != nil {
		h.logger.Error("meeting list failed", "company_id", companyID, "err", err)
		http.Error(w, "failed to list meetings", http.StatusInternalServerError)
		return
	}

	items := make([]meetingItem, 0, len(meetings))
	for _, m := range meetings {
		item := meetingItem{
			MeetingID:       m.ID,
			CompanyID:       m.CompanyID,
			ProspectName:    m.ProspectName,
			ProspectContact: m.ProspectContact,
			CallID:          m.CallID,
			StartTime:       m.Start.UTC().Format(time.RFC3339),
			EndTime:         m.End().UTC().Format(time.RFC3339),
			Status:          m.Status,
			CancelReason:    m.CancelReason,
			Notes:           m.Notes,
			CreatedAt:       m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if m.CancelledAt != nil {
			item.CancelledAt = m.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

type cancelMeetingRequest struct {
	CompanyID string `json:"company_id"`
	MeetingID string `json:"meeting_id"`
	Reason    string `json:"reason"`
}

func (h *MeetingsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.CompanyID = strings.TrimSpace(req.CompanyID)
	req.MeetingID = strings.TrimSpace(req.MeetingID)
	if req.CompanyID == "" || req.MeetingID == "" {
		http.Error(w, "company_id and meeting_id required", http.StatusBadRequest)
		return
	}

	if err := h.ledger.Cancel(r.Context(), req.CompanyID, req.MeetingID, strings.TrimSpace(req.Reason)); err != nil {
		h.logger.Error("meeting cancel failed", "meeting_id", req.MeetingID, "err", err)
		http.Error(w, "failed to cancel meeting", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"meeting_id": req.MeetingID, "status": "cancelled"})
}

type rescheduleMeetingRequest struct {
	CompanyID string `json:"company_id"`
	MeetingID string `json:"meeting_id"`
	StartTime string `json:"start_time"`
}

func (h *MeetingsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.CompanyID = strings.TrimSpace(req.CompanyID)
	req.MeetingID = strings.TrimSpace(req.MeetingID)
	if req.CompanyID == "" || req.MeetingID == "" {
		http.Error(w, "company_id and meeting_id required", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		http.Error(w, "start_time must be RFC3339", http.StatusBadRequest)
		return
	}

	m, err := h.ledger.Reschedule(r.Context(), req.CompanyID, req.MeetingID, start.UTC())
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		http.Error(w, "meeting not found", http.StatusNotFound)
		return
	case errors.Is(err, ledger.ErrSlotConflict):
		http.Error(w, "new time overlaps a booked meeting", http.StatusConflict)
		return
	case err != nil:
		h.logger.Error("meeting reschedule failed", "meeting_id", req.MeetingID, "err", err)
		http.Error(w, "failed to reschedule meeting", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"meeting_id": m.ID,
		"status":     m.Status,
		"start_time": m.Start.UTC().Format(time.RFC3339),
		"end_time":   m.End().UTC().Format(time.RFC3339),
	})
}

type clearMeetingsRequest struct {
	CompanyID string `json:"company_id"`
}

func (h *MeetingsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req clearMeetingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.CompanyID = strings.TrimSpace(req.CompanyID)
	if req.CompanyID == "" {
		http.Error(w, "company_id required", http.StatusBadRequest)
		return
	}

	if err := h.ledger.ClearAll(r.Context(), req.CompanyID); err != nil {
		h.logger.Error("meeting clear failed", "company_id", req.CompanyID, "err", err)
		http.Error(w, "failed to clear meetings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"company_id": req.CompanyID, "status": "cleared"})
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Local     string `json:"local"`
}

func (h *MeetingsHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	companyID := strings.TrimSpace(r.URL.Query().Get("company_id"))
	if companyID == "" {
		http.Error(w, "company_id required", http.StatusBadRequest)
		return
	}
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	prof, err := h.companies.Profile(r.Context(), companyID)
	if err != nil {
		h.logger.Error("company profile lookup failed", "company_id", companyID, "err", err)
		http.Error(w, "failed to load company profile", http.StatusInternalServerError)
		return
	}

	p := h.slots
	if prof.MeetingDuration > 0 {
		p.Duration = prof.MeetingDuration
	}
	now := time.Now().UTC()
	p.Now = now
	horizon := p.HorizonDays
	if horizon <= 0 {
		horizon = 14
	}
	busy, err := h.ledger.BookedIntervals(r.Context(), companyID, now, now.AddDate(0, 0, horizon))
	if err != nil {
		h.logger.Error("booked interval lookup failed", "company_id", companyID, "err", err)
		http.Error(w, "failed to load booked meetings", http.StatusInternalServerError)
		return
	}

	items := make([]slotItem, 0, limit)
	for _, s := range availability.ComputeSlots(prof.Windows, busy, p, limit) {
		items = append(items, slotItem{
			StartTime: s.Start.UTC().Format(time.RFC3339),
			EndTime:   s.End().UTC().Format(time.RFC3339),
			Local:     availability.FormatLocal(s, prof.Timezone),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
