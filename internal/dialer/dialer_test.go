package dialer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTwilio_NotConfigured(t *testing.T) {
	d := NewTwilio("", "", "", "")
	if d.Configured() {
		t.Fatalf("empty credentials must not report configured")
	}
	if _, err := d.Dial(context.Background(), "co-1", "+15550001111"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestTwilio_Dial(t *testing.T) {
	var gotPath, gotTo, gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "secret" {
			t.Errorf("missing or wrong basic auth: %s/%s", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotPath = r.URL.Path
		gotTo = r.FormValue("To")
		gotURL = r.FormValue("Url")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"CA999"}`))
	}))
	defer srv.Close()

	d := NewTwilio("AC123", "secret", "+15550009999", "https://calls.example.com/")
	d.apiURL = srv.URL

	callID, err := d.Dial(context.Background(), "co-1", "+15550001111")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if callID != "CA999" {
		t.Fatalf("expected CA999, got %q", callID)
	}
	if gotPath != "/2010-04-01/Accounts/AC123/Calls.json" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotTo != "+15550001111" {
		t.Fatalf("unexpected To %q", gotTo)
	}
	if gotURL != "https://calls.example.com/twilio/voice?company_id=co-1" {
		t.Fatalf("unexpected webhook URL %q", gotURL)
	}
}

func TestTwilio_DialErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"invalid number"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	d := NewTwilio("AC123", "secret", "+15550009999", "https://calls.example.com")
	d.apiURL = srv.URL

	if _, err := d.Dial(context.Background(), "co-1", "bogus"); err == nil {
		t.Fatalf("expected an error for a 400 response")
	}
}
