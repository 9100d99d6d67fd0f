package callflow

// State is where a call session sits in the booking conversation. Greeting
// through AwaitingConfirmation advance one webhook turn at a time; Booked
// keeps the call open for a wrap-up; Declined, Ended and Failed are terminal.
type State int

const (
	StateGreeting State = iota
	StatePitching
	StateAwaitingInterest
	StateOfferingSlots
	StateAwaitingConfirmation
	StateBooked
	StateDeclined
	StateEnded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateGreeting:
		return "greeting"
	case StatePitching:
		return "pitching"
	case StateAwaitingInterest:
		return "awaiting_interest"
	case StateOfferingSlots:
		return "offering_slots"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateBooked:
		return "booked"
	case StateDeclined:
		return "declined"
	case StateEnded:
		return "ended"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal states never accept another conversation turn.
func (s State) Terminal() bool {
	return s == StateDeclined || s == StateEnded || s == StateFailed
}
