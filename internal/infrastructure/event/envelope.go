package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/google/uuid"
)

// Envelope is the outbound wire format. The data object carries the event's
// own payload fields in snake_case.
type Envelope struct {
	Type    string          `json:"type"`
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Marshal wraps a domain event in the outbound envelope. The event struct
// itself serializes into the data object; its embedded base event carries no
// JSON tags and stays out of the payload.
func Marshal(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data for %s: %w", event.EventType(), err)
	}
	envelope := Envelope{
		Type:    event.EventType(),
		Version: event.SchemaVersion(),
		Data:    data,
	}
	out, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope for %s: %w", event.EventType(), err)
	}
	return out, nil
}

// InboundEnvelope is the wire format of events arriving from the other
// services. Every delivery carries the sender-assigned event ID used for
// deduplication.
type InboundEnvelope struct {
	EventID    uuid.UUID       `json:"eventId"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Version    int             `json:"version"`
	Data       json.RawMessage `json:"data"`
}

// UnmarshalInbound parses the raw message into an inbound envelope and
// validates the fields deduplication depends on
func UnmarshalInbound(raw []byte) (*InboundEnvelope, error) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("malformed event envelope: %w", err)
	}
	if envelope.EventID == uuid.Nil {
		return nil, fmt.Errorf("event envelope missing eventId")
	}
	if envelope.Type == "" {
		return nil, fmt.Errorf("event envelope missing type")
	}
	if envelope.Version == 0 {
		envelope.Version = 1
	}
	return &envelope, nil
}
