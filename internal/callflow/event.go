package callflow

// EventKind is the inbound webhook event type.
type EventKind int

const (
	EventCallStarted EventKind = iota
	EventSpeech
	EventCallEnded
)

func (k EventKind) String() string {
	switch k {
	case EventCallStarted:
		return "started"
	case EventSpeech:
		return "speech"
	case EventCallEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Event is one inbound notification about call progress. Seq is the
// provider's per-call turn sequence number; replaying a Seq the session has
// already processed returns the cached response without re-running the turn.
type Event struct {
	CallID    string
	CompanyID string
	Kind      EventKind
	Utterance string
	Seq       int
}

// Response is what the telephony layer should do next: speak Utterance, then
// either keep listening or terminate the call.
type Response struct {
	Utterance string
	EndCall   bool
}
