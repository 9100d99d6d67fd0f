package model

import "time"

// Meeting statuses. A cancelled meeting never blocks a slot.
const (
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"
)

type Meeting struct {
	ID              string
	CompanyID       string
	ProspectName    string
	ProspectContact string
	CallID          string
	Start           time.Time // UTC
	Duration        time.Duration
	Status          string
	CancelledAt     *time.Time
	CancelReason    string
	Notes           string
	CreatedAt       time.Time
}

func (m Meeting) End() time.Time {
	return m.Start.Add(m.Duration)
}

// Prospect carries the contact details collected during a call.
type Prospect struct {
	Name  string
	Email string
	Phone string
}

// Contact prefers email over phone for the meeting record.
func (p Prospect) Contact() string {
	if p.Email != "" {
		return p.Email
	}
	return p.Phone
}

// Merge fills empty fields from other without overwriting collected values.
func (p Prospect) Merge(other Prospect) Prospect {
	if p.Name == "" {
		p.Name = other.Name
	}
	if p.Email == "" {
		p.Email = other.Email
	}
	if p.Phone == "" {
		p.Phone = other.Phone
	}
	return p
}
