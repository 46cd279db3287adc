package billing

import (
	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/google/uuid"
)

// Inbound event types consumed by the billing core
const (
	EventTypeQuoteApproved  = "quote.approved"
	EventTypeProjectUpdated = "project.updated"
	EventTypePaymentResult  = "payment.result"
)

// ProjectStatus represents the lifecycle status of a project as reported by
// the project service
type ProjectStatus string

const (
	ProjectStatusPending    ProjectStatus = "PENDING"
	ProjectStatusInProgress ProjectStatus = "IN_PROGRESS"
	ProjectStatusCompleted  ProjectStatus = "COMPLETED"
	ProjectStatusCancelled  ProjectStatus = "CANCELLED"
	ProjectStatusAbandoned  ProjectStatus = "ABANDONED"
)

// String returns the string representation of ProjectStatus
func (s ProjectStatus) String() string {
	return string(s)
}

// VoidsInvoice returns true if reaching this status means the project's work
// will not happen and an open invoice must not be collected on
func (s ProjectStatus) VoidsInvoice() bool {
	return s == ProjectStatusCancelled || s == ProjectStatusAbandoned
}

// QuoteApprovedData is the data payload of a quote.approved event
type QuoteApprovedData struct {
	ProjectID   uuid.UUID  `json:"projectId" validate:"required"`
	CustomerID  uuid.UUID  `json:"customerId" validate:"required"`
	QuoteID     *uuid.UUID `json:"quoteId,omitempty"`
	AmountTotal int64      `json:"amountTotal" validate:"required,gt=0"`
	Currency    string     `json:"currency" validate:"required,len=3"`
	Status      string     `json:"status"`
}

// QuoteApprovedEvent is received when the quoting service approves a quote
type QuoteApprovedEvent struct {
	shared.BaseDomainEvent `json:"-"`
	Data                   QuoteApprovedData `json:"data"`
}

// EventType returns the event type name
func (e *QuoteApprovedEvent) EventType() string {
	return EventTypeQuoteApproved
}

// ProjectUpdatedData is the data payload of a project.updated event
type ProjectUpdatedData struct {
	ProjectID uuid.UUID     `json:"projectId" validate:"required"`
	Status    ProjectStatus `json:"status" validate:"required"`
}

// ProjectUpdatedEvent is received when the project service changes a
// project's lifecycle status
type ProjectUpdatedEvent struct {
	shared.BaseDomainEvent `json:"-"`
	Data                   ProjectUpdatedData `json:"data"`
}

// EventType returns the event type name
func (e *ProjectUpdatedEvent) EventType() string {
	return EventTypeProjectUpdated
}

// PaymentResultData is the data payload of a payment.result event, the relay
// of a gateway webhook. Gateways may redeliver the same result notification;
// the event ID identifies the logical result, not the delivery.
type PaymentResultData struct {
	PaymentID    uuid.UUID `json:"paymentId" validate:"required"`
	Status       string    `json:"status" validate:"required,oneof=SUCCEEDED FAILED"`
	ReceiptURL   string    `json:"receiptUrl,omitempty"`
	ErrorCode    string    `json:"errorCode,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}

// PaymentResultEvent is received when the payment gateway reports the outcome
// of a payment attempt
type PaymentResultEvent struct {
	shared.BaseDomainEvent `json:"-"`
	Data                   PaymentResultData `json:"data"`
}

// EventType returns the event type name
func (e *PaymentResultEvent) EventType() string {
	return EventTypePaymentResult
}
