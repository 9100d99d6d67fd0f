package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func postForm(t *testing.T, h http.HandlerFunc, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestTwilioVoice_AnswersWithGather(t *testing.T) {
	h := NewTwilioHandler(newTestRegistry(10), testLogger())

	rec := postForm(t, h.Voice, "/twilio/voice?company_id=co-1", url.Values{"CallSid": {"CA123"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/xml" {
		t.Fatalf("expected text/xml, got %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<Gather") || !strings.Contains(body, "<Say>") {
		t.Fatalf("expected Gather with a spoken greeting: %s", body)
	}
	if !strings.Contains(body, "seq=1") {
		t.Fatalf("first turn must point at seq=1: %s", body)
	}
}

func TestTwilioVoice_RequiresIdentifiers(t *testing.T) {
	h := NewTwilioHandler(newTestRegistry(10), testLogger())

	rec := postForm(t, h.Voice, "/twilio/voice", url.Values{"CallSid": {"CA123"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without company_id, got %d", rec.Code)
	}
}

func TestTwilioTurn_LowConfidenceReprompts(t *testing.T) {
	registry := newTestRegistry(10)
	h := NewTwilioHandler(registry, testLogger())

	postForm(t, h.Voice, "/twilio/voice?company_id=co-1", url.Values{"CallSid": {"CA123"}})

	rec := postForm(t, h.Turn, "/twilio/turn?company_id=co-1&seq=1", url.Values{
		"CallSid":      {"CA123"},
		"SpeechResult": {"mumble"},
		"Confidence":   {"0.2"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "didn't catch that") {
		t.Fatalf("expected a re-prompt: %s", body)
	}
	// The turn was not consumed, so the Gather still targets seq=1.
	if !strings.Contains(body, "seq=1") {
		t.Fatalf("low-confidence turn must not advance the sequence: %s", body)
	}
}

func TestTwilioTurn_SpeechAdvancesSequence(t *testing.T) {
	registry := newTestRegistry(10)
	h := NewTwilioHandler(registry, testLogger())

	postForm(t, h.Voice, "/twilio/voice?company_id=co-1", url.Values{"CallSid": {"CA123"}})

	rec := postForm(t, h.Turn, "/twilio/turn?company_id=co-1&seq=1", url.Values{
		"CallSid":      {"CA123"},
		"SpeechResult": {"tell me more"},
		"Confidence":   {"0.95"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "seq=2") {
		t.Fatalf("next gather must target seq=2: %s", rec.Body.String())
	}
}

func TestTwilioTurn_CompletedStatusHangsUp(t *testing.T) {
	registry := newTestRegistry(10)
	h := NewTwilioHandler(registry, testLogger())

	postForm(t, h.Voice, "/twilio/voice?company_id=co-1", url.Values{"CallSid": {"CA123"}})

	rec := postForm(t, h.Turn, "/twilio/turn?company_id=co-1&seq=1", url.Values{
		"CallSid":    {"CA123"},
		"CallStatus": {"completed"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<Hangup/>") {
		t.Fatalf("expected hangup TwiML: %s", rec.Body.String())
	}
	if _, ok := registry.Get("CA123"); ok {
		t.Fatalf("completed call must be evicted from the registry")
	}
}

func TestTwilioStatus_ClosesSession(t *testing.T) {
	registry := newTestRegistry(10)
	h := NewTwilioHandler(registry, testLogger())

	postForm(t, h.Voice, "/twilio/voice?company_id=co-1", url.Values{"CallSid": {"CA123"}})

	rec := postForm(t, h.Status, "/twilio/status", url.Values{
		"CallSid":    {"CA123"},
		"CallStatus": {"completed"},
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if _, ok := registry.Get("CA123"); ok {
		t.Fatalf("completed call must be evicted from the registry")
	}
}

func TestXMLEscape(t *testing.T) {
	got := xmlEscape(`Tom & Jerry <3 "quotes"`)
	if strings.ContainsAny(got, "<>&\"") && !strings.Contains(got, "&amp;") {
		t.Fatalf("unescaped output: %q", got)
	}
	if !strings.Contains(got, "&amp;") || !strings.Contains(got, "&lt;3") {
		t.Fatalf("expected escaped entities: %q", got)
	}
}
