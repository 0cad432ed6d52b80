package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types carried on the training bus.
const (
	TypeTurnCompleted = "turn.completed"
	TypeCaseImported  = "case.imported"
	TypeSessionLinked = "session.linked"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "turn.completed").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewTurnCompleted announces a committed turn. Consumers get the verdict,
// never the patient reply or the hidden case material.
func NewTurnCompleted(sessionId, caseId uuid.UUID, turnNo int, riskStatus string, fallbackUsed bool) BaseEvent {
	return BaseEvent{
		Type: TypeTurnCompleted,
		Data: map[string]interface{}{
			"session_id":    sessionId.String(),
			"case_id":       caseId.String(),
			"turn_no":       turnNo,
			"risk_status":   riskStatus,
			"fallback_used": fallbackUsed,
		},
		OccurredAt: time.Now(),
	}
}

func NewCaseImported(caseId uuid.UUID, title string, version, fragments int) BaseEvent {
	return BaseEvent{
		Type: TypeCaseImported,
		Data: map[string]interface{}{
			"case_id":   caseId.String(),
			"title":     title,
			"version":   version,
			"fragments": fragments,
		},
		OccurredAt: time.Now(),
	}
}

func NewSessionLinked(sessionId, caseId uuid.UUID, prevSessionId *uuid.UUID) BaseEvent {
	data := map[string]interface{}{
		"session_id": sessionId.String(),
		"case_id":    caseId.String(),
	}
	if prevSessionId != nil {
		data["prev_session_id"] = prevSessionId.String()
	}
	return BaseEvent{Type: TypeSessionLinked, Data: data, OccurredAt: time.Now()}
}
