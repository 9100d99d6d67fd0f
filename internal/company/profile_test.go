package company

import (
	"context"
	"testing"
	"time"
)

func TestStatic_StampsCompanyID(t *testing.T) {
	src := NewStatic("Acme", "Anvils for coyotes.", "Alice", "Asia/Jerusalem")

	p, err := src.Profile(context.Background(), "co-1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.CompanyID != "co-1" || p.Name != "Acme" || p.AssistantName != "Alice" {
		t.Fatalf("profile not filled: %+v", p)
	}
	if len(p.Windows) != 5 {
		t.Fatalf("expected a 5-day working week, got %d windows", len(p.Windows))
	}
	for _, w := range p.Windows {
		if w.CompanyID != "co-1" {
			t.Fatalf("window missing company ID: %+v", w)
		}
		if w.Timezone != "Asia/Jerusalem" {
			t.Fatalf("window timezone: %q", w.Timezone)
		}
	}

	// Profiles are independent copies; mutating one must not leak.
	p.Windows[0].StartMinute = 0
	q, _ := src.Profile(context.Background(), "co-2")
	if q.Windows[0].StartMinute != 8*60 {
		t.Fatalf("base windows mutated through a returned profile")
	}
}

func TestStatic_Defaults(t *testing.T) {
	src := NewStatic("", "", "", "")
	p, err := src.Profile(context.Background(), "co-1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Name == "" || p.AssistantName == "" || p.Timezone != "UTC" {
		t.Fatalf("defaults not applied: %+v", p)
	}
	if p.MeetingDuration != 30*time.Minute {
		t.Fatalf("expected 30m default duration, got %s", p.MeetingDuration)
	}
}

func TestDefaultWindows_SundayThroughThursday(t *testing.T) {
	ws := DefaultWindows("UTC")
	if len(ws) != 5 {
		t.Fatalf("expected 5 windows, got %d", len(ws))
	}
	for _, w := range ws {
		if w.Weekday == time.Friday || w.Weekday == time.Saturday {
			t.Fatalf("weekend window: %s", w.Weekday)
		}
		if w.StartMinute != 8*60 || w.EndMinute != 16*60 {
			t.Fatalf("expected 08:00-16:00, got %d-%d", w.StartMinute, w.EndMinute)
		}
	}
}
