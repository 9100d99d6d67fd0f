package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/YehoanatnEzra/Callflow-AI/internal/company"
	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
)

// ProfileStore is the writable side of the company profile, implemented by
// the Postgres repository. The static in-memory source is read-only, so this
// surface is only registered when a database is configured.
type ProfileStore interface {
	UpdateProfile(ctx context.Context, p company.Profile) error
	ReplaceWindows(ctx context.Context, companyID string, ws []model.AvailabilityWindow) error
}

// CompanyHandler serves the profile admin surface.
type CompanyHandler struct {
	store  ProfileStore
	logger *slog.Logger
}

func NewCompanyHandler(store ProfileStore, logger *slog.Logger) *CompanyHandler {
	return &CompanyHandler{store: store, logger: logger}
}

type windowItem struct {
	Weekday     int `json:"weekday"`
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

type updateCompanyRequest struct {
	CompanyID              string       `json:"company_id"`
	Name                   string       `json:"name"`
	Description            string       `json:"description"`
	AssistantName          string       `json:"assistant_name"`
	Timezone               string       `json:"timezone"`
	MeetingDurationMinutes int          `json:"meeting_duration_minutes"`
	Windows                []windowItem `json:"windows"`
}

func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req updateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.CompanyID = strings.TrimSpace(req.CompanyID)
	if req.CompanyID == "" {
		http.Error(w, "company_id required", http.StatusBadRequest)
		return
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			http.Error(w, "invalid timezone", http.StatusBadRequest)
			return
		}
	}
	if req.MeetingDurationMinutes <= 0 {
		req.MeetingDurationMinutes = 30
	}
	for _, win := range req.Windows {
		if win.Weekday < 0 || win.Weekday > 6 ||
			win.StartMinute < 0 || win.EndMinute > 24*60 || win.StartMinute >= win.EndMinute {
			http.Error(w, "invalid availability window", http.StatusBadRequest)
			return
		}
	}

	prof := company.Profile{
		CompanyID:       req.CompanyID,
		Name:            strings.TrimSpace(req.Name),
		Description:     strings.TrimSpace(req.Description),
		AssistantName:   strings.TrimSpace(req.AssistantName),
		Timezone:        req.Timezone,
		MeetingDuration: time.Duration(req.MeetingDurationMinutes) * time.Minute,
	}
	if err := h.store.UpdateProfile(r.Context(), prof); err != nil {
		h.logger.Error("company profile update failed", "company_id", req.CompanyID, "err", err)
		http.Error(w, "failed to update profile", http.StatusInternalServerError)
		return
	}
	// A request without a windows field leaves the existing set alone; an
	// explicit empty list clears it. Several windows may share a weekday
	// (split days), so the whole set is replaced in one shot.
	if req.Windows != nil {
		ws := make([]model.AvailabilityWindow, 0, len(req.Windows))
		for _, win := range req.Windows {
			ws = append(ws, model.AvailabilityWindow{
				CompanyID:   req.CompanyID,
				Weekday:     time.Weekday(win.Weekday),
				StartMinute: win.StartMinute,
				EndMinute:   win.EndMinute,
				Timezone:    req.Timezone,
			})
		}
		if err := h.store.ReplaceWindows(r.Context(), req.CompanyID, ws); err != nil {
			h.logger.Error("availability window replace failed",
				"company_id", req.CompanyID, "err", err)
			http.Error(w, "failed to update availability", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"company_id": req.CompanyID, "status": "updated"})
}
