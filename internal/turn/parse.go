package turn

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
)

// Generated replies embed wrap-up tags in otherwise free-form text. The
// parser strips them from the spoken utterance and converts them into one
// structured signal. A reply with no tag is a plain continue.
var (
	optionTag  = regexp.MustCompile(`\[\[OPTION\s+(\d+)\]\]`)
	contactTag = regexp.MustCompile(`\[\[CONTACT\s*(\{.*?\})\s*\]\]`)
	plainTags  = regexp.MustCompile(`\[\[(TIMES|CONFIRM|DECLINE|END_CALL)\]\]`)
	anyTag     = regexp.MustCompile(`\[\[[^\]]*\]\]`)
)

type contactPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ParseReply turns a raw generated reply into a Result. A malformed tag
// payload degrades to the surrounding text with a continue signal rather
// than failing the turn.
func ParseReply(raw string) Result {
	res := Result{Signal: Signal{Kind: SignalContinue}}

	if m := contactTag.FindStringSubmatch(raw); m != nil {
		var c contactPayload
		if err := json.Unmarshal([]byte(m[1]), &c); err == nil {
			res.Prospect = model.Prospect{Name: c.Name, Email: c.Email, Phone: c.Phone}
		}
	}

	// An option selection wins over the plain tags: when the model both
	// picks a time and confirms in one breath, the selection must land
	// first so the flow can read the confirmation back.
	if m := optionTag.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			res.Signal = Signal{Kind: SignalSelectsOption, Option: n}
		}
	} else if m := plainTags.FindStringSubmatch(raw); m != nil {
		switch m[1] {
		case "TIMES":
			res.Signal = Signal{Kind: SignalWantsTimes}
		case "CONFIRM":
			res.Signal = Signal{Kind: SignalConfirms}
		case "DECLINE":
			res.Signal = Signal{Kind: SignalDeclines}
		case "END_CALL":
			res.Signal = Signal{Kind: SignalEndCall}
		}
	}

	res.Utterance = strings.TrimSpace(anyTag.ReplaceAllString(raw, ""))
	if res.Utterance == "" && res.Signal.Kind == SignalContinue {
		// Nothing speakable and nothing structured: malformed turn, keep
		// the conversation alive with the scripted fallback.
		res.Utterance = FallbackUtterance
	}
	return res
}
