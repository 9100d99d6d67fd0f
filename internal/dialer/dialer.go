// Package dialer places outbound calls through a telephony provider.
package dialer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotConfigured means no telephony credentials were supplied; callers
// should surface this rather than retry.
var ErrNotConfigured = errors.New("dialer not configured")

// Dialer starts an outbound call and returns the provider call ID.
type Dialer interface {
	Dial(ctx context.Context, companyID, toNumber string) (string, error)
}

// Twilio places calls via the Twilio REST API. The answered call is pointed
// at our /twilio/voice webhook, with the company carried in the query string.
type Twilio struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string // our public base URL for webhooks
	apiURL     string
	client     *http.Client
}

func NewTwilio(accountSID, authToken, fromNumber, publicBaseURL string) *Twilio {
	return &Twilio{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    strings.TrimRight(publicBaseURL, "/"),
		apiURL:     "https://api.twilio.com",
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *Twilio) Configured() bool {
	return t.accountSID != "" && t.authToken != "" && t.fromNumber != "" && t.baseURL != ""
}

func (t *Twilio) Dial(ctx context.Context, companyID, toNumber string) (string, error) {
	if !t.Configured() {
		return "", ErrNotConfigured
	}

	voiceURL := fmt.Sprintf("%s/twilio/voice?company_id=%s", t.baseURL, url.QueryEscape(companyID))
	form := url.Values{
		"To":             {toNumber},
		"From":           {t.fromNumber},
		"Url":            {voiceURL},
		"StatusCallback": {t.baseURL + "/twilio/status"},
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", t.apiURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("twilio create call: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("twilio create call: decode response: %w", err)
	}
	return out.SID, nil
}
