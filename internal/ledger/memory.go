package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YehoanatnEzra/Callflow-AI/internal/availability"
	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
)

// Memory is the in-process Ledger used when no database is configured and in
// tests. Each company's meeting set has its own mutex so concurrent calls for
// different companies proceed independently.
type Memory struct {
	mu        sync.Mutex // guards the companies map only
	companies map[string]*companyMeetings
}

type companyMeetings struct {
	mu       sync.Mutex
	meetings map[string]*model.Meeting
}

func NewMemory() *Memory {
	return &Memory{companies: make(map[string]*companyMeetings)}
}

func (l *Memory) forCompany(companyID string) *companyMeetings {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.companies[companyID]
	if !ok {
		c = &companyMeetings{meetings: make(map[string]*model.Meeting)}
		l.companies[companyID] = c
	}
	return c
}

func (l *Memory) TryBook(_ context.Context, b Booking) (model.Meeting, error) {
	c := l.forCompany(b.CompanyID)
	c.mu.Lock()
	defer c.mu.Unlock()

	start := b.Slot.Start
	end := b.Slot.End()
	for _, m := range c.meetings {
		if m.Status != model.StatusBooked {
			continue
		}
		if start.Before(m.End()) && m.Start.Before(end) {
			return model.Meeting{}, ErrSlotConflict
		}
	}

	m := &model.Meeting{
		ID:              uuid.NewString(),
		CompanyID:       b.CompanyID,
		ProspectName:    b.Prospect.Name,
		ProspectContact: b.Prospect.Contact(),
		CallID:          b.CallID,
		Start:           start,
		Duration:        b.Slot.Duration,
		Status:          model.StatusBooked,
		Notes:           b.Notes,
		CreatedAt:       time.Now().UTC(),
	}
	c.meetings[m.ID] = m
	return *m, nil
}

func (l *Memory) List(_ context.Context, companyID string, f Filter) ([]model.Meeting, error) {
	c := l.forCompany(companyID)
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []model.Meeting
	for _, m := range c.meetings {
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && m.End().Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !m.Start.Before(f.To) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (l *Memory) Cancel(_ context.Context, companyID, meetingID, reason string) error {
	c := l.forCompany(companyID)
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.meetings[meetingID]
	if !ok || m.Status == model.StatusCancelled {
		return nil
	}
	now := time.Now().UTC()
	m.Status = model.StatusCancelled
	m.CancelledAt = &now
	m.CancelReason = reason
	return nil
}

func (l *Memory) Reschedule(_ context.Context, companyID, meetingID string, start time.Time) (model.Meeting, error) {
	c := l.forCompany(companyID)
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.meetings[meetingID]
	if !ok || m.Status != model.StatusBooked {
		return model.Meeting{}, ErrNotFound
	}

	end := start.Add(m.Duration)
	for id, other := range c.meetings {
		if id == meetingID || other.Status != model.StatusBooked {
			continue
		}
		if start.Before(other.End()) && other.Start.Before(end) {
			return model.Meeting{}, ErrSlotConflict
		}
	}

	m.Start = start
	return *m, nil
}

func (l *Memory) ClearAll(_ context.Context, companyID string) error {
	c := l.forCompany(companyID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meetings = make(map[string]*model.Meeting)
	return nil
}

func (l *Memory) BookedIntervals(_ context.Context, companyID string, from, to time.Time) ([]availability.Interval, error) {
	c := l.forCompany(companyID)
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []availability.Interval
	for _, m := range c.meetings {
		if m.Status != model.StatusBooked {
			continue
		}
		if !from.IsZero() && m.End().Before(from) {
			continue
		}
		if !to.IsZero() && !m.Start.Before(to) {
			continue
		}
		out = append(out, availability.Interval{Start: m.Start, End: m.End()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}
