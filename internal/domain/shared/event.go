package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that occurred in the domain or was received
// from another service. The event ID is globally unique per logical event, not
// per delivery; the inbound channel may deliver the same logical event more
// than once.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	SchemaVersion() int
}

// BaseDomainEvent provides common fields for all domain events.
// Concrete events embed it with a `json:"-"` tag so that only their own
// payload fields end up inside the wire envelope's data object.
type BaseDomainEvent struct {
	ID        uuid.UUID
	Type      string
	Timestamp time.Time
	AggID     uuid.UUID
	Version   int
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type of the event
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the ID of the aggregate that produced this event
func (e *BaseDomainEvent) AggregateID() uuid.UUID {
	return e.AggID
}

// SchemaVersion returns the schema version of the event.
// Returns 1 if no version was set.
func (e *BaseDomainEvent) SchemaVersion() int {
	if e.Version == 0 {
		return 1
	}
	return e.Version
}

// NewBaseDomainEvent creates a new base domain event with schema version 1
func NewBaseDomainEvent(eventType string, aggID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now(),
		AggID:     aggID,
		Version:   1,
	}
}

// NewInboundDomainEvent rebuilds the base event of an externally produced
// event, preserving the sender's event ID so the idempotency guard sees the
// logical event rather than the delivery.
func NewInboundDomainEvent(eventID uuid.UUID, eventType string, occurredAt time.Time, schemaVersion int) BaseDomainEvent {
	if schemaVersion < 1 {
		schemaVersion = 1
	}
	return BaseDomainEvent{
		ID:        eventID,
		Type:      eventType,
		Timestamp: occurredAt,
		Version:   schemaVersion,
	}
}
