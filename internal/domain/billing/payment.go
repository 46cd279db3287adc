package billing

import (
	"fmt"
	"time"

	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/autoshop/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PaymentStatus represents the status of a single payment attempt
type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED" // Attempt created, gateway result pending
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED" // Gateway confirmed the charge
	PaymentStatusFailed    PaymentStatus = "FAILED"    // Gateway rejected the charge
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusInitiated, PaymentStatusSucceeded, PaymentStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the payment attempt has reached a final result
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusFailed
}

// Payment represents one attempt to settle an invoice through a payment
// gateway. An invoice may accumulate many attempts (retries after failure)
// but at most one of them SUCCEEDED.
type Payment struct {
	shared.BaseAggregateRoot
	InvoiceID      uuid.UUID            `gorm:"type:uuid;not null;index"`
	Amount         int64                `gorm:"not null"` // minor currency units
	Currency       valueobject.Currency `gorm:"type:char(3);not null"`
	Provider       string               `gorm:"type:varchar(50);not null"`
	Status         PaymentStatus        `gorm:"type:varchar(10);not null;default:'INITIATED';index"`
	FailureCode    string               `gorm:"type:varchar(100)"`
	FailureMessage string               `gorm:"type:varchar(500)"`
	ReceiptURL     string               `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a new INITIATED payment attempt against an invoice
func NewPayment(invoiceID uuid.UUID, amount valueobject.Money, provider string) (*Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if provider == "" {
		return nil, shared.NewDomainError("INVALID_PROVIDER", "Payment provider is required")
	}

	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceID:         invoiceID,
		Amount:            amount.Amount(),
		Currency:          amount.Currency(),
		Provider:          provider,
		Status:            PaymentStatusInitiated,
	}, nil
}

// MarkSucceeded records the gateway's success result and the receipt it
// issued. Repeating a success for an already-succeeded payment is a no-op;
// success after a recorded failure indicates gateway data drift and is
// rejected (a new attempt is expected instead).
// Returns true if the status changed.
func (p *Payment) MarkSucceeded(receiptURL string) (bool, error) {
	switch p.Status {
	case PaymentStatusSucceeded:
		return false, nil
	case PaymentStatusFailed:
		return false, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark %s payment as succeeded", p.Status))
	}

	p.Status = PaymentStatusSucceeded
	p.ReceiptURL = receiptURL
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return true, nil
}

// MarkFailed records the gateway's failure result. Repeating a failure for an
// already-failed payment is a no-op; failure after a recorded success is
// rejected.
// Returns true if the status changed.
func (p *Payment) MarkFailed(failureCode, failureMessage string) (bool, error) {
	switch p.Status {
	case PaymentStatusFailed:
		return false, nil
	case PaymentStatusSucceeded:
		return false, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark %s payment as failed", p.Status))
	}

	p.Status = PaymentStatusFailed
	p.FailureCode = failureCode
	p.FailureMessage = failureMessage
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return true, nil
}

// AmountMoney returns the payment amount as a Money value object
func (p *Payment) AmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.Amount, string(p.Currency))
	return m
}

// IsSucceeded returns true if the payment succeeded
func (p *Payment) IsSucceeded() bool {
	return p.Status == PaymentStatusSucceeded
}

// IsFailed returns true if the payment failed
func (p *Payment) IsFailed() bool {
	return p.Status == PaymentStatusFailed
}
