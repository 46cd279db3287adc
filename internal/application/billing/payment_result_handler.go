package billing

import (
	"context"
	"fmt"

	"github.com/autoshop/billing/internal/domain/billing"
	"github.com/autoshop/billing/internal/domain/shared"
	"go.uber.org/zap"
)

// PaymentResultHandler handles PaymentResultEvent by settling the referenced
// payment through the PaymentService
type PaymentResultHandler struct {
	payments *PaymentService
	logger   *zap.Logger
}

// NewPaymentResultHandler creates a new handler for payment result events
func NewPaymentResultHandler(payments *PaymentService, logger *zap.Logger) *PaymentResultHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentResultHandler{
		payments: payments,
		logger:   logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *PaymentResultHandler) EventTypes() []string {
	return []string{billing.EventTypePaymentResult}
}

// Handle routes a gateway result to the matching settlement path
func (h *PaymentResultHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	result, ok := event.(*billing.PaymentResultEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", billing.EventTypePaymentResult),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			billing.EventTypePaymentResult, event.EventType())
	}

	data := result.Data
	switch billing.PaymentStatus(data.Status) {
	case billing.PaymentStatusSucceeded:
		return h.payments.RecordSuccess(ctx, event.EventID(), data.PaymentID, data.ReceiptURL)
	case billing.PaymentStatusFailed:
		return h.payments.RecordFailure(ctx, event.EventID(), data.PaymentID, data.ErrorCode, data.ErrorMessage)
	default:
		return fmt.Errorf("%w: unknown payment result status %q", shared.ErrInvalidInput, data.Status)
	}
}

// Ensure PaymentResultHandler implements shared.EventHandler
var _ shared.EventHandler = (*PaymentResultHandler)(nil)
