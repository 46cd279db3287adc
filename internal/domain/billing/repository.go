package billing

import (
	"context"

	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByProjectID finds the single invoice of a project
	FindByProjectID(ctx context.Context, projectID uuid.UUID) (*Invoice, error)

	// FindAll lists invoices with pagination and returns the total count
	FindAll(ctx context.Context, filter shared.Filter) ([]Invoice, int64, error)

	// Create inserts a new invoice. A concurrent insert for the same project
	// surfaces as shared.ErrAlreadyExists via the project_id unique constraint.
	Create(ctx context.Context, invoice *Invoice) error

	// Update persists an existing invoice with an optimistic version check,
	// returning shared.ErrConcurrencyConflict when the row moved underneath us
	Update(ctx context.Context, invoice *Invoice) error
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByInvoiceID lists all payment attempts against an invoice
	FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)

	// Create inserts a new payment attempt
	Create(ctx context.Context, payment *Payment) error

	// Update persists an existing payment with an optimistic version check
	Update(ctx context.Context, payment *Payment) error
}

// ProcessedEventRepository is the authoritative idempotency guard. It records
// which inbound event IDs have produced their effect, inside the same
// transaction as the effect itself.
type ProcessedEventRepository interface {
	// HasBeenProcessed reports whether an event ID has already been recorded
	HasBeenProcessed(ctx context.Context, eventID uuid.UUID) (bool, error)

	// MarkProcessed atomically inserts the consumed-event record. A duplicate
	// returns shared.ErrAlreadyProcessed; any other error propagates so the
	// event is not marked and a redelivery retries from scratch.
	MarkProcessed(ctx context.Context, eventID uuid.UUID, eventType string) error
}

// Repositories is the set of repositories scoped to one unit of work
type Repositories interface {
	Invoices() InvoiceRepository
	Payments() PaymentRepository
	ProcessedEvents() ProcessedEventRepository
}

// UnitOfWork runs a function inside one atomic transaction. The idempotency
// mark, the business mutation and the synchronous outbound publish all happen
// inside fn; the transaction commits only if fn returns nil.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
