package billing

import (
	"context"
	"time"

	"github.com/autoshop/billing/internal/domain/billing"
	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceDTO is the read model of an invoice
type InvoiceDTO struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	CustomerID  uuid.UUID  `json:"customer_id"`
	QuoteID     *uuid.UUID `json:"quote_id,omitempty"`
	AmountTotal int64      `json:"amount_total"`
	Amount      string     `json:"amount"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	VoidedAt    *time.Time `json:"voided_at,omitempty"`
	VoidReason  string     `json:"void_reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PaymentDTO is the read model of one payment attempt
type PaymentDTO struct {
	ID             uuid.UUID `json:"id"`
	InvoiceID      uuid.UUID `json:"invoice_id"`
	AmountTotal    int64     `json:"amount_total"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	Provider       string    `json:"provider"`
	Status         string    `json:"status"`
	FailureCode    string    `json:"failure_code,omitempty"`
	FailureMessage string    `json:"failure_message,omitempty"`
	ReceiptURL     string    `json:"receipt_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toInvoiceDTO(inv *billing.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:          inv.ID,
		ProjectID:   inv.ProjectID,
		CustomerID:  inv.CustomerID,
		QuoteID:     inv.QuoteID,
		AmountTotal: inv.AmountTotal,
		Amount:      inv.AmountMoney().String(),
		Currency:    inv.Currency.String(),
		Status:      inv.Status.String(),
		PaidAt:      inv.PaidAt,
		VoidedAt:    inv.VoidedAt,
		VoidReason:  inv.VoidReason,
		CreatedAt:   inv.CreatedAt,
		UpdatedAt:   inv.UpdatedAt,
	}
}

func toPaymentDTO(p *billing.Payment) PaymentDTO {
	return PaymentDTO{
		ID:             p.ID,
		InvoiceID:      p.InvoiceID,
		AmountTotal:    p.Amount,
		Amount:         p.AmountMoney().String(),
		Currency:       p.Currency.String(),
		Provider:       p.Provider,
		Status:         p.Status.String(),
		FailureCode:    p.FailureCode,
		FailureMessage: p.FailureMessage,
		ReceiptURL:     p.ReceiptURL,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// InvoiceQueryService serves read-only invoice and payment lookups outside of
// any unit of work
type InvoiceQueryService struct {
	invoiceRepo billing.InvoiceRepository
	paymentRepo billing.PaymentRepository
	logger      *zap.Logger
}

// NewInvoiceQueryService creates a new InvoiceQueryService
func NewInvoiceQueryService(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	logger *zap.Logger,
) *InvoiceQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceQueryService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		logger:      logger,
	}
}

// GetInvoice returns one invoice by ID
func (s *InvoiceQueryService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toInvoiceDTO(invoice)
	return &dto, nil
}

// GetInvoiceByProject returns the invoice of a project
func (s *InvoiceQueryService) GetInvoiceByProject(ctx context.Context, projectID uuid.UUID) (*InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.FindByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	dto := toInvoiceDTO(invoice)
	return &dto, nil
}

// ListInvoices returns a page of invoices
func (s *InvoiceQueryService) ListInvoices(ctx context.Context, filter shared.Filter) (*shared.Paginated[InvoiceDTO], error) {
	invoices, total, err := s.invoiceRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	dtos := make([]InvoiceDTO, 0, len(invoices))
	for i := range invoices {
		dtos = append(dtos, toInvoiceDTO(&invoices[i]))
	}
	page := shared.NewPaginated(dtos, total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListPayments returns every payment attempt against an invoice
func (s *InvoiceQueryService) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]PaymentDTO, error) {
	payments, err := s.paymentRepo.FindByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	dtos := make([]PaymentDTO, 0, len(payments))
	for i := range payments {
		dtos = append(dtos, toPaymentDTO(&payments[i]))
	}
	return dtos, nil
}
