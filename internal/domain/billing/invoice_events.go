package billing

import (
	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/google/uuid"
)

// Outbound event types. The type string doubles as the routing key so that
// payloads logged or inspected outside the messaging layer stay self-describing.
const (
	EventTypeInvoiceCreated = "invoice.created"
	EventTypeInvoiceUpdated = "invoice.updated"
)

// InvoiceCreatedEvent is published when the first approved quote for a project
// creates its invoice. The embedded base is excluded from JSON so only the
// wire payload fields appear in the envelope's data object.
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent `json:"-"`
	InvoiceID              uuid.UUID `json:"invoice_id"`
	ProjectID              uuid.UUID `json:"project_id"`
	CustomerID             uuid.UUID `json:"customer_id"`
	AmountTotal            int64     `json:"amount_total"`
	Currency               string    `json:"currency"`
	Status                 string    `json:"status"`
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return EventTypeInvoiceCreated
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, inv.ID),
		InvoiceID:       inv.ID,
		ProjectID:       inv.ProjectID,
		CustomerID:      inv.CustomerID,
		AmountTotal:     inv.AmountTotal,
		Currency:        inv.Currency.String(),
		Status:          inv.Status.String(),
	}
}

// InvoiceUpdatedEvent is published when an open invoice changes: a re-approved
// quote adjusted the amount, or the invoice was voided.
type InvoiceUpdatedEvent struct {
	shared.BaseDomainEvent `json:"-"`
	InvoiceID              uuid.UUID `json:"invoice_id"`
	Status                 string    `json:"status"`
}

// EventType returns the event type name
func (e *InvoiceUpdatedEvent) EventType() string {
	return EventTypeInvoiceUpdated
}

// NewInvoiceUpdatedEvent creates a new InvoiceUpdatedEvent
func NewInvoiceUpdatedEvent(inv *Invoice) *InvoiceUpdatedEvent {
	return &InvoiceUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceUpdated, inv.ID),
		InvoiceID:       inv.ID,
		Status:          inv.Status.String(),
	}
}
