// Package events provides the in-process domain event bus that decouples
// lifecycle state changes from their side effects. Delivery is sequential,
// non-durable and scoped to a single process lifetime.
package events

import (
	"time"

	"mecanix/internal/core/id"
)

// Event types emitted by the lifecycle core.
const (
	TypeOrderStatusChanged = "order.status_changed"
	TypeBudgetSent         = "budget.sent"
	TypeBudgetApproved     = "budget.approved"
	TypeBudgetRejected     = "budget.rejected"
	TypeExecutionCompleted = "execution.completed"
)

// Event is a domain event created at the moment a state-changing operation
// commits. Events are never persisted; handlers re-read aggregates for the
// authoritative state.
type Event struct {
	EventID     id.ID          `json:"eventId"`
	AggregateID id.ID          `json:"aggregateId"`
	EventType   string         `json:"eventType"`
	Timestamp   time.Time      `json:"timestamp"`
	Version     int            `json:"version"`
	Data        map[string]any `json:"data,omitempty"`
}

// New creates an Event for the given aggregate with version 1.
func New(eventType string, aggregateID id.ID, data map[string]any) Event {
	return Event{
		EventID:     id.New(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   time.Now().UTC(),
		Version:     1,
		Data:        data,
	}
}

// String returns a string payload field, or empty when absent.
func (e Event) String(key string) string {
	if v, ok := e.Data[key].(string); ok {
		return v
	}
	return ""
}
