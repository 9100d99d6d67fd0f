package model

import "time"

// Transcript roles. System entries record call progress markers
// (state changes, bookings) alongside the spoken turns.
type Role string

const (
	RoleProspect  Role = "prospect"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type TranscriptEntry struct {
	Role    Role
	Content string
	At      time.Time
}

// AvailabilityWindow is a weekly recurring window in which a company takes
// meetings. Start/End are minutes from local midnight in Timezone; Start must
// be strictly before End. Windows for a company may overlap (the union is
// offered).
type AvailabilityWindow struct {
	CompanyID   string
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
	Timezone    string
}
