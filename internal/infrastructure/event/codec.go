package event

import (
	"encoding/json"
	"fmt"

	"github.com/autoshop/billing/internal/domain/billing"
	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/go-playground/validator/v10"
)

// ErrUnknownEventType is returned when no decoder is registered for an
// envelope's type
var ErrUnknownEventType = fmt.Errorf("unknown event type")

// decodeFunc builds a typed domain event from a parsed envelope
type decodeFunc func(envelope *InboundEnvelope) (shared.DomainEvent, error)

// Codec decodes inbound envelopes into typed domain events and validates
// their payloads
type Codec struct {
	validate *validator.Validate
	decoders map[string]decodeFunc
}

// NewCodec creates a codec with decoders for every inbound event type the
// billing core consumes
func NewCodec() *Codec {
	c := &Codec{
		validate: validator.New(),
		decoders: make(map[string]decodeFunc),
	}

	c.register(billing.EventTypeQuoteApproved, func(envelope *InboundEnvelope) (shared.DomainEvent, error) {
		var data billing.QuoteApprovedData
		if err := c.decodeData(envelope, &data); err != nil {
			return nil, err
		}
		return &billing.QuoteApprovedEvent{
			BaseDomainEvent: baseFromEnvelope(envelope),
			Data:            data,
		}, nil
	})

	c.register(billing.EventTypeProjectUpdated, func(envelope *InboundEnvelope) (shared.DomainEvent, error) {
		var data billing.ProjectUpdatedData
		if err := c.decodeData(envelope, &data); err != nil {
			return nil, err
		}
		return &billing.ProjectUpdatedEvent{
			BaseDomainEvent: baseFromEnvelope(envelope),
			Data:            data,
		}, nil
	})

	c.register(billing.EventTypePaymentResult, func(envelope *InboundEnvelope) (shared.DomainEvent, error) {
		var data billing.PaymentResultData
		if err := c.decodeData(envelope, &data); err != nil {
			return nil, err
		}
		return &billing.PaymentResultEvent{
			BaseDomainEvent: baseFromEnvelope(envelope),
			Data:            data,
		}, nil
	})

	return c
}

func (c *Codec) register(eventType string, fn decodeFunc) {
	c.decoders[eventType] = fn
}

func (c *Codec) decodeData(envelope *InboundEnvelope, target any) error {
	if err := json.Unmarshal(envelope.Data, target); err != nil {
		return fmt.Errorf("malformed %s payload: %w", envelope.Type, err)
	}
	if err := c.validate.Struct(target); err != nil {
		return fmt.Errorf("invalid %s payload: %w", envelope.Type, err)
	}
	return nil
}

// Decode turns an inbound envelope into a typed domain event.
// Returns ErrUnknownEventType for types this service does not consume.
func (c *Codec) Decode(envelope *InboundEnvelope) (shared.DomainEvent, error) {
	fn, ok := c.decoders[envelope.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, envelope.Type)
	}
	return fn(envelope)
}

// Types returns the event types this codec can decode
func (c *Codec) Types() []string {
	types := make([]string, 0, len(c.decoders))
	for t := range c.decoders {
		types = append(types, t)
	}
	return types
}

func baseFromEnvelope(envelope *InboundEnvelope) shared.BaseDomainEvent {
	return shared.NewInboundDomainEvent(envelope.EventID, envelope.Type, envelope.OccurredAt, envelope.Version)
}
