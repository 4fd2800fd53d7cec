package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type codes published on the bus
const (
	TypeChatTurnCompleted = "CHAT_TURN_COMPLETED"
	TypeFactsStored       = "FACTS_STORED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CHAT_TURN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent holds the common fields; concrete constructors below are the
// preferred way to build valid events.
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

// NewChatTurnCompleted signals that one chat turn finished and was persisted.
func NewChatTurnCompleted(userId uuid.UUID, toolExecuted bool) Event {
	return BaseEvent{
		Type: TypeChatTurnCompleted,
		Data: map[string]interface{}{
			"user_id":       userId.String(),
			"tool_executed": toolExecuted,
		},
		OccurredAt: time.Now(),
	}
}

// NewFactsStored signals that derived knowledge facts were written for a user.
func NewFactsStored(userId uuid.UUID, count int) Event {
	return BaseEvent{
		Type: TypeFactsStored,
		Data: map[string]interface{}{
			"user_id": userId.String(),
			"count":   count,
		},
		OccurredAt: time.Now(),
	}
}
