package callflow

import (
	"fmt"
	"sync"
	"time"

	"github.com/YehoanatnEzra/Callflow-AI/internal/availability"
	"github.com/YehoanatnEzra/Callflow-AI/internal/company"
	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
)

// Long calls keep the first entries (the greeting context) plus the most
// recent turns so the generation context stays bounded.
const maxTranscript = 24

// Session is the per-call conversation state. The registry owns the lifecycle
// and serializes all access through mu: every webhook turn, the eviction
// sweep, and shutdown take the lock, so an in-flight booking always finishes
// before the session is removed.
type Session struct {
	CallID    string
	CompanyID string

	mu           sync.Mutex
	profile      company.Profile
	state        State
	transcript   []model.TranscriptEntry
	offer        []availability.Slot
	offerOffset  int
	selected     int // index into offer; -1 when nothing selected
	prospect     model.Prospect
	meetingID    string
	adapterFails int
	lastSeq      int
	lastResponse Response
	createdAt    time.Time
	lastActivity time.Time
}

func newSession(callID, companyID string, now time.Time) *Session {
	return &Session{
		CallID:       callID,
		CompanyID:    companyID,
		state:        StateGreeting,
		selected:     -1,
		createdAt:    now,
		lastActivity: now,
	}
}

// State returns the current call state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []model.TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// MeetingID returns the booked meeting's identifier, if any.
func (s *Session) MeetingID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meetingID
}

// setState records the transition in the transcript. Callers hold mu.
func (s *Session) setState(to State, now time.Time) {
	if s.state == to {
		return
	}
	s.append(model.RoleSystem, fmt.Sprintf("call state: %s -> %s", s.state, to), now)
	s.state = to
}

// append adds a transcript entry, trimming old turns but never the opening
// context. Callers hold mu.
func (s *Session) append(role model.Role, content string, now time.Time) {
	s.transcript = append(s.transcript, model.TranscriptEntry{Role: role, Content: content, At: now})
	if len(s.transcript) > maxTranscript {
		head := s.transcript[0]
		tail := s.transcript[len(s.transcript)-(maxTranscript-1):]
		s.transcript = append([]model.TranscriptEntry{head}, tail...)
	}
}
