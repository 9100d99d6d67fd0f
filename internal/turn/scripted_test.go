package turn

import (
	"context"
	"testing"
	"time"

	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
)

func scriptedContext(utterance string, offered []string) Context {
	return Context{
		CallID:       "call-1",
		CompanyName:  "Acme",
		OfferedSlots: offered,
		Transcript: []model.TranscriptEntry{
			{Role: model.RoleAssistant, Content: "Hi there!", At: time.Now()},
			{Role: model.RoleProspect, Content: utterance, At: time.Now()},
		},
	}
}

func TestScripted_Signals(t *testing.T) {
	offered := []string{"Monday at 9:00 AM", "Monday at 9:30 AM"}
	cases := []struct {
		utterance string
		offered   []string
		kind      SignalKind
		option    int
	}{
		{"I'm not interested, thanks", nil, SignalDeclines, 0},
		{"what times do you have", nil, SignalWantsTimes, 0},
		{"option 2 works", offered, SignalSelectsOption, 2},
		{"the first one", offered, SignalSelectsOption, 1},
		{"sounds good, lock it in", offered, SignalConfirms, 0},
		{"ok goodbye now", nil, SignalEndCall, 0},
		{"tell me more", nil, SignalContinue, 0},
	}

	for _, tc := range cases {
		res, err := Scripted{}.NextTurn(context.Background(), scriptedContext(tc.utterance, tc.offered))
		if err != nil {
			t.Fatalf("%q: %v", tc.utterance, err)
		}
		if res.Signal.Kind != tc.kind {
			t.Fatalf("%q: expected %s, got %s", tc.utterance, tc.kind, res.Signal.Kind)
		}
		if res.Signal.Option != tc.option {
			t.Fatalf("%q: expected option %d, got %d", tc.utterance, tc.option, res.Signal.Option)
		}
		if res.Utterance == "" {
			t.Fatalf("%q: scripted adapter always speaks", tc.utterance)
		}
	}
}

func TestScripted_ExtractsContactDetails(t *testing.T) {
	res, err := Scripted{}.NextTurn(context.Background(),
		scriptedContext("my name is Dana Levi, reach me at dana@example.com", nil))
	if err != nil {
		t.Fatalf("NextTurn: %v", err)
	}
	if res.Prospect.Name != "Dana Levi" {
		t.Fatalf("expected name extracted, got %q", res.Prospect.Name)
	}
	if res.Prospect.Email != "dana@example.com" {
		t.Fatalf("expected email extracted, got %q", res.Prospect.Email)
	}
}
