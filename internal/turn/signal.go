package turn

// SignalKind is the closed set of structured outcomes a turn can carry.
// Every state handler switches exhaustively over these.
type SignalKind int

const (
	SignalContinue SignalKind = iota
	SignalWantsTimes
	SignalSelectsOption
	SignalConfirms
	SignalDeclines
	SignalEndCall
)

func (k SignalKind) String() string {
	switch k {
	case SignalContinue:
		return "continue"
	case SignalWantsTimes:
		return "wants_times"
	case SignalSelectsOption:
		return "selects_option"
	case SignalConfirms:
		return "confirms"
	case SignalDeclines:
		return "declines"
	case SignalEndCall:
		return "end_call"
	default:
		return "unknown"
	}
}

// Signal is a tagged variant: Option is meaningful only when Kind is
// SignalSelectsOption, where it is the 1-based offer index the prospect chose.
type Signal struct {
	Kind   SignalKind
	Option int
}
