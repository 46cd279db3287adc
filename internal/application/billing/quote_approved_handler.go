package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/autoshop/billing/internal/domain/billing"
	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/autoshop/billing/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// QuoteApprovedHandler handles QuoteApprovedEvent and creates or revises the
// invoice of the approved quote's project
type QuoteApprovedHandler struct {
	uow       billing.UnitOfWork
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewQuoteApprovedHandler creates a new handler for quote approved events
func NewQuoteApprovedHandler(
	uow billing.UnitOfWork,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *QuoteApprovedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteApprovedHandler{
		uow:       uow,
		publisher: publisher,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *QuoteApprovedHandler) EventTypes() []string {
	return []string{billing.EventTypeQuoteApproved}
}

// Handle processes a QuoteApprovedEvent. The idempotency mark, the invoice
// mutation and the outbound publish all commit atomically; a duplicate event
// ID is acknowledged without re-applying the mutation.
func (h *QuoteApprovedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	approved, ok := event.(*billing.QuoteApprovedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", billing.EventTypeQuoteApproved),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			billing.EventTypeQuoteApproved, event.EventType())
	}

	data := approved.Data
	total, err := valueobject.NewMoney(data.AmountTotal, data.Currency)
	if err != nil {
		h.logger.Error("quote approved event carries invalid amount",
			zap.String("event_id", event.EventID().String()),
			zap.String("project_id", data.ProjectID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	err = h.uow.Execute(ctx, func(ctx context.Context, repos billing.Repositories) error {
		if err := repos.ProcessedEvents().MarkProcessed(ctx, event.EventID(), event.EventType()); err != nil {
			return err
		}

		invoice, err := repos.Invoices().FindByProjectID(ctx, data.ProjectID)
		switch {
		case err == nil:
			changed, err := invoice.ApplyQuoteApproval(data.QuoteID, total)
			if err != nil {
				return err
			}
			if !changed {
				h.logger.Info("invoice is terminal, late quote approval ignored",
					zap.String("invoice_id", invoice.ID.String()),
					zap.String("project_id", data.ProjectID.String()),
					zap.String("status", invoice.Status.String()),
				)
				return nil
			}
			if err := repos.Invoices().Update(ctx, invoice); err != nil {
				return err
			}
			h.logger.Info("invoice revised from quote approval",
				zap.String("invoice_id", invoice.ID.String()),
				zap.String("project_id", data.ProjectID.String()),
				zap.String("amount", invoice.AmountMoney().String()),
			)
			return h.publishAndClear(ctx, invoice)

		case errors.Is(err, shared.ErrNotFound):
			invoice, err := billing.NewInvoiceFromQuote(data.ProjectID, data.CustomerID, data.QuoteID, total)
			if err != nil {
				return err
			}
			if err := repos.Invoices().Create(ctx, invoice); err != nil {
				return err
			}
			h.logger.Info("invoice created from quote approval",
				zap.String("invoice_id", invoice.ID.String()),
				zap.String("project_id", data.ProjectID.String()),
				zap.String("customer_id", data.CustomerID.String()),
				zap.String("amount", invoice.AmountMoney().String()),
			)
			return h.publishAndClear(ctx, invoice)

		default:
			return fmt.Errorf("failed to load invoice for project: %w", err)
		}
	})

	if errors.Is(err, shared.ErrAlreadyProcessed) {
		h.logger.Info("quote approved event already processed, skipping",
			zap.String("event_id", event.EventID().String()),
			zap.String("project_id", data.ProjectID.String()),
		)
		return nil
	}
	return err
}

func (h *QuoteApprovedHandler) publishAndClear(ctx context.Context, invoice *billing.Invoice) error {
	if err := h.publisher.Publish(ctx, invoice.GetDomainEvents()...); err != nil {
		return fmt.Errorf("failed to publish invoice events: %w", err)
	}
	invoice.ClearDomainEvents()
	return nil
}

// Ensure QuoteApprovedHandler implements shared.EventHandler
var _ shared.EventHandler = (*QuoteApprovedHandler)(nil)
