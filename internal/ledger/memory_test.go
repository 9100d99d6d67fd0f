package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/YehoanatnEzra/Callflow-AI/internal/availability"
	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
)

func slotAt(start time.Time) availability.Slot {
	return availability.Slot{Start: start, Duration: 30 * time.Minute}
}

func TestMemory_TryBookAndList(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()
	start := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

	m, err := l.TryBook(ctx, Booking{
		CompanyID: "co-1",
		Slot:      slotAt(start),
		Prospect:  model.Prospect{Name: "Dana", Email: "dana@example.com"},
		CallID:    "call-1",
	})
	if err != nil {
		t.Fatalf("TryBook: %v", err)
	}
	if m.ID == "" {
		t.Fatalf("expected meeting ID")
	}
	if m.ProspectContact != "dana@example.com" {
		t.Fatalf("expected email contact, got %q", m.ProspectContact)
	}

	meetings, err := l.List(ctx, "co-1", Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(meetings) != 1 || meetings[0].ID != m.ID {
		t.Fatalf("expected the booked meeting, got %+v", meetings)
	}
}

func TestMemory_OverlapConflict(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()
	start := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

	if _, err := l.TryBook(ctx, Booking{CompanyID: "co-1", Slot: slotAt(start)}); err != nil {
		t.Fatalf("TryBook: %v", err)
	}

	// Partial overlap, not an exact duplicate, still conflicts.
	_, err := l.TryBook(ctx, Booking{CompanyID: "co-1", Slot: slotAt(start.Add(15 * time.Minute))})
	if err != ErrSlotConflict {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}

	// Back to back is fine (half-open intervals).
	if _, err := l.TryBook(ctx, Booking{CompanyID: "co-1", Slot: slotAt(start.Add(30 * time.Minute))}); err != nil {
		t.Fatalf("adjacent booking: %v", err)
	}

	// A different company is never blocked.
	if _, err := l.TryBook(ctx, Booking{CompanyID: "co-2", Slot: slotAt(start)}); err != nil {
		t.Fatalf("other company booking: %v", err)
	}
}

func TestMemory_ConcurrentBookingsOneWinner(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()
	start := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.TryBook(ctx, Booking{CompanyID: "co-1", Slot: slotAt(start)})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch err {
		case nil:
			wins++
		case ErrSlotConflict:
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful booking, got %d", wins)
	}
}

func TestMemory_CancelIdempotent(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()
	start := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

	m, err := l.TryBook(ctx, Booking{CompanyID: "co-1", Slot: slotAt(start)})
	if err != nil {
		t.Fatalf("TryBook: %v", err)
	}

	if err := l.Cancel(ctx, "co-1", m.ID, "schedule change"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := l.Cancel(ctx, "co-1", m.ID, "again"); err != nil {
		t.Fatalf("second Cancel: %v", err)
	}
	if err := l.Cancel(ctx, "co-1", "no-such-meeting", ""); err != nil {
		t.Fatalf("Cancel unknown: %v", err)
	}

	meetings, _ := l.List(ctx, "co-1", Filter{Status: model.StatusCancelled})
	if len(meetings) != 1 {
		t.Fatalf("expected 1 cancelled meeting, got %d", len(meetings))
	}
	if meetings[0].CancelReason != "schedule change" {
		t.Fatalf("second cancel must not overwrite the reason, got %q", meetings[0].CancelReason)
	}

	// The cancelled slot is bookable again.
	if _, err := l.TryBook(ctx, Booking{CompanyID: "co-1", Slot: slotAt(start)}); err != nil {
		t.Fatalf("rebooking cancelled slot: %v", err)
	}
}

func TestMemory_Reschedule(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()
	start := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

	m, err := l.TryBook(ctx, Booking{CompanyID: "co-1", Slot: slotAt(start)})
	if err != nil {
		t.Fatalf("TryBook: %v", err)
	}
	if _, err := l.TryBook(ctx, Booking{CompanyID: "co-1", Slot: slotAt(start.Add(2 * time.Hour))}); err != nil {
		t.Fatalf("TryBook: %v", err)
	}

	moved, err := l.Reschedule(ctx, "co-1", m.ID, start.Add(4*time.Hour))
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if !moved.Start.Equal(start.Add(4*time.Hour)) || moved.Duration != 30*time.Minute {
		t.Fatalf("unexpected rescheduled meeting: %+v", moved)
	}

	// The old slot is free again.
	if _, err := l.TryBook(ctx, Booking{CompanyID: "co-1", Slot: slotAt(start)}); err != nil {
		t.Fatalf("rebooking vacated slot: %v", err)
	}

	// Moving onto the other booked meeting conflicts.
	if _, err := l.Reschedule(ctx, "co-1", m.ID, start.Add(2*time.Hour+15*time.Minute)); err != ErrSlotConflict {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}

	// A meeting never conflicts with its own current time.
	if _, err := l.Reschedule(ctx, "co-1", m.ID, start.Add(4*time.Hour+15*time.Minute)); err != nil {
		t.Fatalf("shifting within own slot: %v", err)
	}
}

func TestMemory_RescheduleUnknownOrCancelled(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()
	start := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

	if _, err := l.Reschedule(ctx, "co-1", "no-such-meeting", start); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	m, err := l.TryBook(ctx, Booking{CompanyID: "co-1", Slot: slotAt(start)})
	if err != nil {
		t.Fatalf("TryBook: %v", err)
	}
	if err := l.Cancel(ctx, "co-1", m.ID, ""); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := l.Reschedule(ctx, "co-1", m.ID, start.Add(time.Hour)); err != ErrNotFound {
		t.Fatalf("cancelled meeting must not be reschedulable, got %v", err)
	}
}

func TestMemory_ClearAll(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()
	start := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if _, err := l.TryBook(ctx, Booking{CompanyID: "co-1", Slot: slotAt(start.Add(time.Duration(i) * time.Hour))}); err != nil {
			t.Fatalf("TryBook %d: %v", i, err)
		}
	}
	if _, err := l.TryBook(ctx, Booking{CompanyID: "co-2", Slot: slotAt(start)}); err != nil {
		t.Fatalf("TryBook co-2: %v", err)
	}

	if err := l.ClearAll(ctx, "co-1"); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if meetings, _ := l.List(ctx, "co-1", Filter{}); len(meetings) != 0 {
		t.Fatalf("expected no meetings after clear, got %d", len(meetings))
	}
	if meetings, _ := l.List(ctx, "co-2", Filter{}); len(meetings) != 1 {
		t.Fatalf("clear must not touch other companies, got %d", len(meetings))
	}
}

func TestMemory_BookedIntervals(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()
	start := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

	later, err := l.TryBook(ctx, Booking{CompanyID: "co-1", Slot: slotAt(start.Add(2 * time.Hour))})
	if err != nil {
		t.Fatalf("TryBook: %v", err)
	}
	if _, err := l.TryBook(ctx, Booking{CompanyID: "co-1", Slot: slotAt(start)}); err != nil {
		t.Fatalf("TryBook: %v", err)
	}
	cancelled, err := l.TryBook(ctx, Booking{CompanyID: "co-1", Slot: slotAt(start.Add(4 * time.Hour))})
	if err != nil {
		t.Fatalf("TryBook: %v", err)
	}
	if err := l.Cancel(ctx, "co-1", cancelled.ID, ""); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	intervals, err := l.BookedIntervals(ctx, "co-1", start.Add(-time.Hour), start.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("BookedIntervals: %v", err)
	}
	if len(intervals) != 2 {
		t.Fatalf("expected 2 intervals (cancelled excluded), got %d", len(intervals))
	}
	if !intervals[0].Start.Equal(start) || !intervals[1].Start.Equal(later.Start) {
		t.Fatalf("intervals not sorted by start: %+v", intervals)
	}
}
