// Package turn defines the contract between the call flow and the dialogue
// generation service: each call turn maps the conversation so far to the next
// utterance plus one structured signal.
package turn

import (
	"context"

	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
)

// FallbackUtterance is spoken when generation fails, times out, or produces
// nothing usable. The accompanying signal is always SignalContinue.
const FallbackUtterance = "Sorry, I missed that. Could you say it again?"

// Context is everything an adapter may use to produce the next turn.
type Context struct {
	CallID        string
	CompanyName   string
	CompanyPitch  string
	AssistantName string
	Timezone      string

	// Transcript is the ordered conversation so far, prospect turn last.
	Transcript []model.TranscriptEntry

	// OfferedSlots are the human-readable times currently on the table, in
	// offer order ("option 1" is OfferedSlots[0]).
	OfferedSlots []string
}

type Result struct {
	Utterance string
	Signal    Signal

	// Prospect carries any contact details extracted this turn; empty fields
	// mean nothing new was learned.
	Prospect model.Prospect
}

// Adapter produces the next assistant turn. Implementations must honor ctx
// cancellation: the caller enforces a hard deadline because the telephony
// response path cannot wait.
type Adapter interface {
	NextTurn(ctx context.Context, tc Context) (Result, error)
}
