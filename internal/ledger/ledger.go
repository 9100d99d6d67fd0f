// Package ledger is the authoritative store of committed meetings. Booking
// conflicts are decided here at commit time, never at slot-computation time.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/YehoanatnEzra/Callflow-AI/internal/availability"
	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
)

var (
	// ErrSlotConflict means the requested slot overlapped a booked meeting
	// at the moment of commit. Recoverable: the caller re-offers.
	ErrSlotConflict = errors.New("slot already booked")

	// ErrUnavailable wraps storage failures. Not recoverable within a call.
	ErrUnavailable = errors.New("meeting store unavailable")

	// ErrNotFound means no booked meeting matched the company and meeting ID.
	ErrNotFound = errors.New("meeting not found")
)

type Filter struct {
	Status string // "" = all
	From   time.Time
	To     time.Time
	Limit  int
}

// Booking is the input to TryBook.
type Booking struct {
	CompanyID string
	Slot      availability.Slot
	Prospect  model.Prospect
	CallID    string
	Notes     string
}

// Ledger serializes all mutations per company: two overlapping TryBook calls
// for the same company resolve to exactly one success and one ErrSlotConflict.
// Unrelated companies never block each other.
type Ledger interface {
	// TryBook re-validates the slot against booked meetings at commit time
	// and either persists the meeting or fails with ErrSlotConflict.
	TryBook(ctx context.Context, b Booking) (model.Meeting, error)

	List(ctx context.Context, companyID string, f Filter) ([]model.Meeting, error)

	// Cancel is idempotent: cancelling a cancelled or unknown meeting is a
	// no-op success.
	Cancel(ctx context.Context, companyID, meetingID, reason string) error

	// Reschedule moves a booked meeting to a new start, keeping its duration.
	// The new time is re-validated against the company's other booked
	// meetings; ErrNotFound for unknown or cancelled meetings.
	Reschedule(ctx context.Context, companyID, meetingID string, start time.Time) (model.Meeting, error)

	// ClearAll removes every meeting for the company.
	ClearAll(ctx context.Context, companyID string) error

	// BookedIntervals returns the busy intervals for slot computation.
	BookedIntervals(ctx context.Context, companyID string, from, to time.Time) ([]availability.Interval, error)
}
