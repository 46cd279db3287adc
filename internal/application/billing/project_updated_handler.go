package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/autoshop/billing/internal/domain/billing"
	"github.com/autoshop/billing/internal/domain/shared"
	"go.uber.org/zap"
)

// ProjectUpdatedHandler handles ProjectUpdatedEvent and voids the project's
// invoice when the project is cancelled or abandoned
type ProjectUpdatedHandler struct {
	uow       billing.UnitOfWork
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewProjectUpdatedHandler creates a new handler for project updated events
func NewProjectUpdatedHandler(
	uow billing.UnitOfWork,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *ProjectUpdatedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectUpdatedHandler{
		uow:       uow,
		publisher: publisher,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *ProjectUpdatedHandler) EventTypes() []string {
	return []string{billing.EventTypeProjectUpdated}
}

// Handle processes a ProjectUpdatedEvent. Only statuses that stop the work
// (cancelled, abandoned) touch the invoice; every event is still recorded so
// redeliveries short-circuit.
func (h *ProjectUpdatedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	updated, ok := event.(*billing.ProjectUpdatedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", billing.EventTypeProjectUpdated),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			billing.EventTypeProjectUpdated, event.EventType())
	}

	data := updated.Data
	err := h.uow.Execute(ctx, func(ctx context.Context, repos billing.Repositories) error {
		if err := repos.ProcessedEvents().MarkProcessed(ctx, event.EventID(), event.EventType()); err != nil {
			return err
		}

		if !data.Status.VoidsInvoice() {
			h.logger.Debug("project status does not affect billing",
				zap.String("project_id", data.ProjectID.String()),
				zap.String("status", data.Status.String()),
			)
			return nil
		}

		invoice, err := repos.Invoices().FindByProjectID(ctx, data.ProjectID)
		if errors.Is(err, shared.ErrNotFound) {
			h.logger.Info("no invoice for cancelled project",
				zap.String("project_id", data.ProjectID.String()),
				zap.String("status", data.Status.String()),
			)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load invoice for project: %w", err)
		}

		reason := fmt.Sprintf("project %s", data.Status)
		changed, err := invoice.Void(reason)
		if err != nil {
			return err
		}
		if !changed {
			h.logger.Info("invoice already terminal, project cancellation ignored",
				zap.String("invoice_id", invoice.ID.String()),
				zap.String("project_id", data.ProjectID.String()),
				zap.String("status", invoice.Status.String()),
			)
			return nil
		}
		if err := repos.Invoices().Update(ctx, invoice); err != nil {
			return err
		}
		h.logger.Info("invoice voided for cancelled project",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("project_id", data.ProjectID.String()),
			zap.String("reason", reason),
		)
		if err := h.publisher.Publish(ctx, invoice.GetDomainEvents()...); err != nil {
			return fmt.Errorf("failed to publish invoice events: %w", err)
		}
		invoice.ClearDomainEvents()
		return nil
	})

	if errors.Is(err, shared.ErrAlreadyProcessed) {
		h.logger.Info("project updated event already processed, skipping",
			zap.String("event_id", event.EventID().String()),
			zap.String("project_id", data.ProjectID.String()),
		)
		return nil
	}
	return err
}

// Ensure ProjectUpdatedHandler implements shared.EventHandler
var _ shared.EventHandler = (*ProjectUpdatedHandler)(nil)
