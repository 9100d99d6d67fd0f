// Package company supplies the pitch profile and availability rules the call
// flow needs for each company.
package company

import (
	"context"
	"time"

	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
)

type Profile struct {
	CompanyID       string
	Name            string
	Description     string
	AssistantName   string
	Timezone        string
	MeetingDuration time.Duration
	Windows         []model.AvailabilityWindow
}

type Source interface {
	Profile(ctx context.Context, companyID string) (Profile, error)
}

// Static serves one base profile for every company, with the company ID
// stamped in. Used in development and as the fallback when no database is
// configured.
type Static struct {
	base Profile
}

func NewStatic(name, description, assistant, tz string) *Static {
	if name == "" {
		name = "Callflow AI"
	}
	if assistant == "" {
		assistant = "Alice"
	}
	if tz == "" {
		tz = "UTC"
	}
	return &Static{base: Profile{
		Name:            name,
		Description:     description,
		AssistantName:   assistant,
		Timezone:        tz,
		MeetingDuration: 30 * time.Minute,
		Windows:         DefaultWindows(tz),
	}}
}

func (s *Static) Profile(_ context.Context, companyID string) (Profile, error) {
	p := s.base
	p.CompanyID = companyID
	ws := make([]model.AvailabilityWindow, len(p.Windows))
	copy(ws, p.Windows)
	for i := range ws {
		ws[i].CompanyID = companyID
	}
	p.Windows = ws
	return p, nil
}

// DefaultWindows is the Sunday-through-Thursday 08:00-16:00 working week.
func DefaultWindows(tz string) []model.AvailabilityWindow {
	days := []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday}
	out := make([]model.AvailabilityWindow, 0, len(days))
	for _, d := range days {
		out = append(out, model.AvailabilityWindow{
			Weekday:     d,
			StartMinute: 8 * 60,
			EndMinute:   16 * 60,
			Timezone:    tz,
		})
	}
	return out
}
