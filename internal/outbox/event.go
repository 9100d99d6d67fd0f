package outbox

import (
	"encoding/json"
	"time"

	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
)

// Kafka topic per event type; the topic name equals EventType.
const (
	TopicMeetingBooked      = "meeting.booked.v1"
	TopicMeetingRescheduled = "meeting.rescheduled.v1"
	TopicMeetingCancelled   = "meeting.cancelled.v1"
)

// Event is the domain event envelope written to the outbox table in the same
// transaction as the meeting row it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type meetingBookedPayload struct {
	MeetingID       string    `json:"meeting_id"`
	CompanyID       string    `json:"company_id"`
	CallID          string    `json:"call_id,omitempty"`
	ProspectName    string    `json:"prospect_name,omitempty"`
	ProspectContact string    `json:"prospect_contact,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
}

func MeetingBooked(m model.Meeting) Event {
	payload, _ := json.Marshal(meetingBookedPayload{
		MeetingID:       m.ID,
		CompanyID:       m.CompanyID,
		CallID:          m.CallID,
		ProspectName:    m.ProspectName,
		ProspectContact: m.ProspectContact,
		StartTime:       m.Start,
		EndTime:         m.End(),
	})
	return Event{
		AggregateType: "meeting",
		AggregateID:   m.ID,
		EventType:     TopicMeetingBooked,
		Payload:       payload,
	}
}

type meetingRescheduledPayload struct {
	MeetingID string    `json:"meeting_id"`
	CompanyID string    `json:"company_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func MeetingRescheduled(m model.Meeting) Event {
	payload, _ := json.Marshal(meetingRescheduledPayload{
		MeetingID: m.ID,
		CompanyID: m.CompanyID,
		StartTime: m.Start,
		EndTime:   m.End(),
	})
	return Event{
		AggregateType: "meeting",
		AggregateID:   m.ID,
		EventType:     TopicMeetingRescheduled,
		Payload:       payload,
	}
}

type meetingCancelledPayload struct {
	MeetingID   string     `json:"meeting_id"`
	CompanyID   string     `json:"company_id"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

func MeetingCancelled(m model.Meeting) Event {
	payload, _ := json.Marshal(meetingCancelledPayload{
		MeetingID:   m.ID,
		CompanyID:   m.CompanyID,
		CancelledAt: m.CancelledAt,
		Reason:      m.CancelReason,
	})
	return Event{
		AggregateType: "meeting",
		AggregateID:   m.ID,
		EventType:     TopicMeetingCancelled,
		Payload:       payload,
	}
}
