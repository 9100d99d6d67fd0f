package availability

import (
	"testing"
	"time"

	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
)

// Monday 2026-02-02.
var monday = time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

func mondayWindow(startMin, endMin int) []model.AvailabilityWindow {
	return []model.AvailabilityWindow{{
		CompanyID:   "co-1",
		Weekday:     time.Monday,
		StartMinute: startMin,
		EndMinute:   endMin,
		Timezone:    "UTC",
	}}
}

func TestComputeSlots_FirstSlotAtWindowStart(t *testing.T) {
	windows := mondayWindow(9*60, 12*60)
	now := monday.Add(8 * time.Hour)

	slots := ComputeSlots(windows, nil, Params{Duration: 30 * time.Minute, Now: now}, 0)
	if len(slots) == 0 {
		t.Fatalf("expected slots, got none")
	}
	if !slots[0].Start.Equal(monday.Add(9 * time.Hour)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Start.Format(time.RFC3339))
	}
	// 09:00-12:00 on a 30-minute grid holds six slots per Monday; two Mondays
	// fall inside the 14-day horizon.
	if len(slots) != 12 {
		t.Fatalf("expected 12 slots, got %d", len(slots))
	}
}

func TestComputeSlots_SkipsBookedMeeting(t *testing.T) {
	windows := mondayWindow(9*60, 12*60)
	now := monday.Add(8 * time.Hour)
	busy := []Interval{{Start: monday.Add(9 * time.Hour), End: monday.Add(9*time.Hour + 30*time.Minute)}}

	slots := ComputeSlots(windows, busy, Params{Duration: 30 * time.Minute, Now: now}, 1)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if !slots[0].Start.Equal(monday.Add(9*time.Hour + 30*time.Minute)) {
		t.Fatalf("expected first slot 09:30, got %s", slots[0].Start.Format(time.RFC3339))
	}
}

func TestComputeSlots_LeadTimeFloor(t *testing.T) {
	windows := mondayWindow(9*60, 12*60)
	now := monday.Add(9*time.Hour + 20*time.Minute)

	slots := ComputeSlots(windows, nil, Params{Duration: 30 * time.Minute, Lead: 15 * time.Minute, Now: now}, 1)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	// 09:00 is past and 09:30 starts inside the 15-minute notice floor
	// (before 09:35), so 10:00 is the first offerable slot.
	if !slots[0].Start.Equal(monday.Add(10 * time.Hour)) {
		t.Fatalf("expected first slot 10:00, got %s", slots[0].Start.Format(time.RFC3339))
	}
}

func TestComputeSlots_NoOverlapWithBusy(t *testing.T) {
	windows := mondayWindow(9*60, 17*60)
	now := monday.Add(8 * time.Hour)
	busy := []Interval{
		{Start: monday.Add(10 * time.Hour), End: monday.Add(11 * time.Hour)},
		{Start: monday.Add(13*time.Hour + 15*time.Minute), End: monday.Add(13*time.Hour + 45*time.Minute)},
	}

	for _, s := range ComputeSlots(windows, busy, Params{Duration: 30 * time.Minute, Now: now}, 0) {
		for _, b := range busy {
			if s.Start.Before(b.End) && b.Start.Before(s.End()) {
				t.Fatalf("slot %s overlaps busy interval %s-%s",
					s.Start.Format(time.RFC3339), b.Start.Format(time.RFC3339), b.End.Format(time.RFC3339))
			}
		}
	}
}

func TestComputeSlots_SlotMustFitInsideWindow(t *testing.T) {
	windows := mondayWindow(9*60, 10*60)
	now := monday.Add(8 * time.Hour)

	slots := ComputeSlots(windows, nil, Params{Duration: 45 * time.Minute, Step: 30 * time.Minute, Now: now, HorizonDays: 7}, 0)
	// Only 09:00-09:45 fits; 09:30-10:15 crosses the window end.
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
}

func TestComputeSlots_EmptyWhenFullyBooked(t *testing.T) {
	windows := mondayWindow(9*60, 10*60)
	now := monday.Add(8 * time.Hour)
	busy := []Interval{
		{Start: monday, End: monday.AddDate(0, 1, 0)},
	}

	if slots := ComputeSlots(windows, busy, Params{Now: now}, 0); len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestSlots_OrderedAndRestartable(t *testing.T) {
	windows := []model.AvailabilityWindow{
		{Weekday: time.Monday, StartMinute: 10 * 60, EndMinute: 12 * 60, Timezone: "UTC"},
		{Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 11 * 60, Timezone: "UTC"},
	}
	now := monday.Add(8 * time.Hour)
	seq := Slots(windows, nil, Params{Duration: 30 * time.Minute, Now: now, HorizonDays: 7})

	var first []Slot
	for s := range seq {
		first = append(first, s)
	}
	if len(first) == 0 {
		t.Fatalf("expected slots, got none")
	}
	for i := 1; i < len(first); i++ {
		if first[i].Start.Before(first[i-1].Start) {
			t.Fatalf("slots out of order at %d: %s before %s",
				i, first[i].Start.Format(time.RFC3339), first[i-1].Start.Format(time.RFC3339))
		}
	}

	// A second pass over the same sequence yields the same slots.
	var second []Slot
	for s := range seq {
		second = append(second, s)
	}
	if len(second) != len(first) {
		t.Fatalf("restarted sequence yielded %d slots, want %d", len(second), len(first))
	}
	for i := range first {
		if !second[i].Start.Equal(first[i].Start) {
			t.Fatalf("restarted sequence diverged at %d", i)
		}
	}
}

func TestComputeSlots_TimezoneWindows(t *testing.T) {
	windows := []model.AvailabilityWindow{{
		Weekday:     time.Monday,
		StartMinute: 9 * 60,
		EndMinute:   10 * 60,
		Timezone:    "America/New_York",
	}}
	now := monday.Add(8 * time.Hour)

	slots := ComputeSlots(windows, nil, Params{Duration: 30 * time.Minute, Now: now, HorizonDays: 7}, 1)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	// 09:00 Eastern in early February is 14:00 UTC.
	if !slots[0].Start.Equal(monday.Add(14 * time.Hour)) {
		t.Fatalf("expected 14:00 UTC, got %s", slots[0].Start.Format(time.RFC3339))
	}
}

func TestFormatLocal(t *testing.T) {
	s := Slot{Start: monday.Add(14 * time.Hour), Duration: 30 * time.Minute}
	got := FormatLocal(s, "America/New_York")
	want := "Monday, February 2 at 9:00 AM"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
