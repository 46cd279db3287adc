package billing

import (
	"fmt"
	"time"

	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/autoshop/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// InvoiceStatus represents the settlement status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusOpen InvoiceStatus = "OPEN" // Billable, amount still mutable
	InvoiceStatusPaid InvoiceStatus = "PAID" // Settled by a successful payment
	InvoiceStatusVoid InvoiceStatus = "VOID" // Cancelled before settlement (project cancelled)
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusOpen, InvoiceStatusPaid, InvoiceStatusVoid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the invoice is in a terminal state.
// Terminal invoices are immutable: late or duplicate quote approvals must not
// change their amount or reopen them.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusVoid
}

// Invoice represents the billable record for one project. There is exactly one
// invoice per project; the project_id unique constraint is the serialization
// point for concurrent events touching the same project.
type Invoice struct {
	shared.BaseAggregateRoot
	ProjectID   uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_invoices_project_id"`
	CustomerID  uuid.UUID            `gorm:"type:uuid;not null;index"`
	QuoteID     *uuid.UUID           `gorm:"type:uuid"`
	Currency    valueobject.Currency `gorm:"type:char(3);not null"`
	AmountTotal int64                `gorm:"not null"` // minor currency units
	Status      InvoiceStatus        `gorm:"type:varchar(10);not null;default:'OPEN';index"`
	PaidAt      *time.Time
	VoidedAt    *time.Time
	VoidReason  string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoiceFromQuote creates a new OPEN invoice from an approved quote
func NewInvoiceFromQuote(projectID, customerID uuid.UUID, quoteID *uuid.UUID, total valueobject.Money) (*Invoice, error) {
	if projectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROJECT", "Project ID cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if !total.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amount must be positive")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProjectID:         projectID,
		CustomerID:        customerID,
		QuoteID:           quoteID,
		Currency:          total.Currency(),
		AmountTotal:       total.Amount(),
		Status:            InvoiceStatusOpen,
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// ApplyQuoteApproval updates the invoice from a re-approved quote while the
// invoice is still OPEN: last approval wins for amount, quote reference and
// currency. On a terminal invoice the approval is accepted but has no effect;
// the caller logs and marks the event processed so the settled invoice is
// never reopened by a late delivery.
// Returns true if the invoice changed.
func (inv *Invoice) ApplyQuoteApproval(quoteID *uuid.UUID, total valueobject.Money) (bool, error) {
	if inv.Status.IsTerminal() {
		return false, nil
	}
	if !total.IsPositive() {
		return false, shared.NewDomainError("INVALID_AMOUNT", "Invoice amount must be positive")
	}

	inv.AmountTotal = total.Amount()
	inv.Currency = total.Currency()
	inv.QuoteID = quoteID
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceUpdatedEvent(inv))

	return true, nil
}

// MarkPaid transitions the invoice from OPEN to PAID. Payment success is the
// only path that calls this. Calling it on an already-PAID invoice is a no-op;
// a VOID invoice cannot be settled.
// Returns true if the status changed.
func (inv *Invoice) MarkPaid() (bool, error) {
	switch inv.Status {
	case InvoiceStatusPaid:
		return false, nil
	case InvoiceStatusVoid:
		return false, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot settle invoice in %s status", inv.Status))
	}

	now := time.Now()
	inv.Status = InvoiceStatusPaid
	inv.PaidAt = &now
	inv.UpdatedAt = now
	inv.IncrementVersion()

	return true, nil
}

// Void cancels an OPEN, unpaid invoice so work that will not happen is never
// collected on. A PAID invoice is not voided; the caller logs the conflict and
// treats the event as a benign no-op.
// Returns true if the status changed.
func (inv *Invoice) Void(reason string) (bool, error) {
	if inv.Status.IsTerminal() {
		return false, nil
	}
	if reason == "" {
		return false, shared.NewDomainError("INVALID_REASON", "Void reason is required")
	}

	now := time.Now()
	inv.Status = InvoiceStatusVoid
	inv.VoidedAt = &now
	inv.VoidReason = reason
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceUpdatedEvent(inv))

	return true, nil
}

// AmountMoney returns the invoice total as a Money value object
func (inv *Invoice) AmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(inv.AmountTotal, string(inv.Currency))
	return m
}

// IsOpen returns true if the invoice is open
func (inv *Invoice) IsOpen() bool {
	return inv.Status == InvoiceStatusOpen
}

// IsPaid returns true if the invoice is settled
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// IsVoid returns true if the invoice is voided
func (inv *Invoice) IsVoid() bool {
	return inv.Status == InvoiceStatusVoid
}
