package billing

import (
	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	EventTypePaymentSucceeded = "payment.succeeded"
	EventTypePaymentFailed    = "payment.failed"
)

// PaymentSucceededEvent is published when a payment settles its invoice
type PaymentSucceededEvent struct {
	shared.BaseDomainEvent `json:"-"`
	PaymentID              uuid.UUID `json:"payment_id"`
	InvoiceID              uuid.UUID `json:"invoice_id"`
	ProjectID              uuid.UUID `json:"project_id"`
	Amount                 int64     `json:"amount"`
	Currency               string    `json:"currency"`
	Provider               string    `json:"provider"`
}

// EventType returns the event type name
func (e *PaymentSucceededEvent) EventType() string {
	return EventTypePaymentSucceeded
}

// NewPaymentSucceededEvent creates a new PaymentSucceededEvent
func NewPaymentSucceededEvent(p *Payment, inv *Invoice) *PaymentSucceededEvent {
	return &PaymentSucceededEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentSucceeded, p.ID),
		PaymentID:       p.ID,
		InvoiceID:       inv.ID,
		ProjectID:       inv.ProjectID,
		Amount:          p.Amount,
		Currency:        p.Currency.String(),
		Provider:        p.Provider,
	}
}

// PaymentFailedEvent is published when a payment attempt fails
type PaymentFailedEvent struct {
	shared.BaseDomainEvent `json:"-"`
	PaymentID              uuid.UUID `json:"payment_id"`
	InvoiceID              uuid.UUID `json:"invoice_id"`
	ErrorCode              string    `json:"error_code"`
}

// EventType returns the event type name
func (e *PaymentFailedEvent) EventType() string {
	return EventTypePaymentFailed
}

// NewPaymentFailedEvent creates a new PaymentFailedEvent
func NewPaymentFailedEvent(p *Payment) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentFailed, p.ID),
		PaymentID:       p.ID,
		InvoiceID:       p.InvoiceID,
		ErrorCode:       p.FailureCode,
	}
}
