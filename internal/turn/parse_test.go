package turn

import (
	"testing"
)

func TestParseReply_PlainTextContinues(t *testing.T) {
	res := ParseReply("We help sales teams book more meetings.")
	if res.Signal.Kind != SignalContinue {
		t.Fatalf("expected continue, got %s", res.Signal.Kind)
	}
	if res.Utterance != "We help sales teams book more meetings." {
		t.Fatalf("utterance mangled: %q", res.Utterance)
	}
}

func TestParseReply_Tags(t *testing.T) {
	cases := []struct {
		raw  string
		kind SignalKind
	}{
		{"Let me check the calendar. [[TIMES]]", SignalWantsTimes},
		{"Booking it now. [[CONFIRM]]", SignalConfirms},
		{"No problem at all. [[DECLINE]]", SignalDeclines},
		{"Goodbye! [[END_CALL]]", SignalEndCall},
	}
	for _, tc := range cases {
		res := ParseReply(tc.raw)
		if res.Signal.Kind != tc.kind {
			t.Fatalf("%q: expected %s, got %s", tc.raw, tc.kind, res.Signal.Kind)
		}
		if res.Utterance == "" {
			t.Fatalf("%q: utterance stripped to nothing", tc.raw)
		}
		for _, c := range res.Utterance {
			if c == '[' || c == ']' {
				t.Fatalf("%q: tag leaked into utterance %q", tc.raw, res.Utterance)
			}
		}
	}
}

func TestParseReply_Option(t *testing.T) {
	res := ParseReply("The second one it is. [[OPTION 2]]")
	if res.Signal.Kind != SignalSelectsOption || res.Signal.Option != 2 {
		t.Fatalf("expected option 2, got %+v", res.Signal)
	}
	if res.Utterance != "The second one it is." {
		t.Fatalf("utterance: %q", res.Utterance)
	}
}

func TestParseReply_OptionWinsOverConfirm(t *testing.T) {
	res := ParseReply("Option one, locking it in. [[OPTION 1]] [[CONFIRM]]")
	if res.Signal.Kind != SignalSelectsOption || res.Signal.Option != 1 {
		t.Fatalf("expected option selection to win, got %+v", res.Signal)
	}
}

func TestParseReply_Contact(t *testing.T) {
	res := ParseReply(`Got it, thanks Dana. [[CONTACT {"name":"Dana Levi","email":"dana@example.com"}]]`)
	if res.Prospect.Name != "Dana Levi" || res.Prospect.Email != "dana@example.com" {
		t.Fatalf("prospect not extracted: %+v", res.Prospect)
	}
	if res.Signal.Kind != SignalContinue {
		t.Fatalf("contact alone must not change the signal, got %s", res.Signal.Kind)
	}
	if res.Utterance != "Got it, thanks Dana." {
		t.Fatalf("utterance: %q", res.Utterance)
	}
}

func TestParseReply_MalformedContactIgnored(t *testing.T) {
	res := ParseReply(`Noted. [[CONTACT {broken json]]`)
	if res.Prospect.Name != "" || res.Prospect.Email != "" {
		t.Fatalf("malformed contact must be ignored, got %+v", res.Prospect)
	}
	if res.Signal.Kind != SignalContinue {
		t.Fatalf("expected continue, got %s", res.Signal.Kind)
	}
}

func TestParseReply_EmptyFallsBack(t *testing.T) {
	res := ParseReply("")
	if res.Utterance != FallbackUtterance {
		t.Fatalf("expected fallback utterance, got %q", res.Utterance)
	}
	if res.Signal.Kind != SignalContinue {
		t.Fatalf("expected continue, got %s", res.Signal.Kind)
	}
}

func TestParseReply_TagOnlyKeepsSignal(t *testing.T) {
	res := ParseReply("[[END_CALL]]")
	if res.Signal.Kind != SignalEndCall {
		t.Fatalf("expected end call, got %s", res.Signal.Kind)
	}
	if res.Utterance != "" {
		t.Fatalf("tag-only reply should leave the utterance empty, got %q", res.Utterance)
	}
}
