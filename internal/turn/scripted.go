package turn

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
)

// Scripted is a deterministic keyword-driven Adapter used in development and
// smoke tests when no generation backend is configured.
type Scripted struct{}

var (
	nameRe   = regexp.MustCompile(`(?i)\bmy name is\s+([A-Za-z]+(?:\s+[A-Za-z]+)?)`)
	emailRe  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	optionRe = regexp.MustCompile(`(?i)\boption\s+(\d+)\b`)
)

func (Scripted) NextTurn(_ context.Context, tc Context) (Result, error) {
	last := lastProspectUtterance(tc.Transcript)
	lower := strings.ToLower(last)

	res := Result{Signal: Signal{Kind: SignalContinue}}
	if m := nameRe.FindStringSubmatch(last); m != nil {
		res.Prospect.Name = m[1]
	}
	if m := emailRe.FindString(last); m != "" {
		res.Prospect.Email = m
	}

	switch {
	case containsAny(lower, "not interested", "no thanks", "stop calling", "remove me"):
		res.Signal = Signal{Kind: SignalDeclines}
		res.Utterance = "Understood, thanks for your time."
	case containsAny(lower, "goodbye", "bye", "hang up"):
		res.Signal = Signal{Kind: SignalEndCall}
		res.Utterance = "Thanks for your time today. Goodbye!"
	case len(tc.OfferedSlots) > 0 && optionRe.MatchString(lower):
		m := optionRe.FindStringSubmatch(lower)
		n, _ := strconv.Atoi(m[1])
		res.Signal = Signal{Kind: SignalSelectsOption, Option: n}
		res.Utterance = fmt.Sprintf("Great, option %d it is. Shall I lock that in?", n)
	case len(tc.OfferedSlots) > 0 && containsAny(lower, "first", "the earlier"):
		res.Signal = Signal{Kind: SignalSelectsOption, Option: 1}
		res.Utterance = "Great, the first time it is. Shall I lock that in?"
	case len(tc.OfferedSlots) > 0 && containsAny(lower, "yes", "sure", "sounds good", "confirm", "works for me"):
		res.Signal = Signal{Kind: SignalConfirms}
		res.Utterance = "Wonderful, you're all set."
	case containsAny(lower, "time", "when", "schedule", "meet", "calendar", "interested"):
		res.Signal = Signal{Kind: SignalWantsTimes}
		res.Utterance = "Let me check what we have open."
	default:
		res.Utterance = fmt.Sprintf(
			"%s helps teams book more qualified meetings. Would a quick call with our manager be relevant to you?",
			tc.CompanyName)
	}
	return res, nil
}

func lastProspectUtterance(ts []model.TranscriptEntry) string {
	for i := len(ts) - 1; i >= 0; i-- {
		if ts[i].Role == model.RoleProspect {
			return ts[i].Content
		}
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
