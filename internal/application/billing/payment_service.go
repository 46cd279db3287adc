package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/autoshop/billing/internal/domain/billing"
	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService coordinates payment attempts and their gateway outcomes.
// Gateway outcomes arrive as payment.result events and are guarded by the
// consumed-event record so redelivered results settle exactly once.
type PaymentService struct {
	uow       billing.UnitOfWork
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	uow billing.UnitOfWork,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		uow:       uow,
		publisher: publisher,
		logger:    logger,
	}
}

// RecordAttempt opens a new INITIATED payment against an open invoice for the
// invoice's full amount. Returns shared.ErrInvalidState when the invoice is
// already paid or void.
func (s *PaymentService) RecordAttempt(ctx context.Context, invoiceID uuid.UUID, provider string) (*billing.Payment, error) {
	var payment *billing.Payment
	err := s.uow.Execute(ctx, func(ctx context.Context, repos billing.Repositories) error {
		invoice, err := repos.Invoices().FindByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if !invoice.IsOpen() {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("cannot start a payment on a %s invoice", invoice.Status))
		}

		payment, err = billing.NewPayment(invoice.ID, invoice.AmountMoney(), provider)
		if err != nil {
			return err
		}
		return repos.Payments().Create(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment attempt recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("provider", provider),
		zap.String("amount", payment.AmountMoney().String()),
	)
	return payment, nil
}

// RecordSuccess settles a successful gateway result: the payment moves to
// SUCCEEDED, its invoice to PAID, and payment.succeeded is published. All of
// it commits atomically with the consumed-event mark for eventID.
func (s *PaymentService) RecordSuccess(ctx context.Context, eventID, paymentID uuid.UUID, receiptURL string) error {
	err := s.uow.Execute(ctx, func(ctx context.Context, repos billing.Repositories) error {
		if err := repos.ProcessedEvents().MarkProcessed(ctx, eventID, billing.EventTypePaymentResult); err != nil {
			return err
		}

		payment, err := repos.Payments().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		invoice, err := repos.Invoices().FindByID(ctx, payment.InvoiceID)
		if err != nil {
			return fmt.Errorf("failed to load invoice for payment: %w", err)
		}
		// At most one payment may succeed per invoice. A success for a
		// different attempt after settlement is consumed without effect.
		if invoice.IsPaid() && !payment.IsSucceeded() {
			s.logger.Warn("invoice already settled by another payment, success ignored",
				zap.String("payment_id", paymentID.String()),
				zap.String("invoice_id", invoice.ID.String()),
			)
			return nil
		}
		changed, err := payment.MarkSucceeded(receiptURL)
		if err != nil {
			return err
		}
		if !changed {
			s.logger.Info("payment already succeeded, result ignored",
				zap.String("payment_id", paymentID.String()),
			)
			return nil
		}
		if err := repos.Payments().Update(ctx, payment); err != nil {
			return err
		}

		invoicePaid, err := invoice.MarkPaid()
		if err != nil {
			return err
		}
		if invoicePaid {
			if err := repos.Invoices().Update(ctx, invoice); err != nil {
				return err
			}
		}

		s.logger.Info("payment succeeded, invoice settled",
			zap.String("payment_id", payment.ID.String()),
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("amount", payment.AmountMoney().String()),
		)
		return s.publisher.Publish(ctx, billing.NewPaymentSucceededEvent(payment, invoice))
	})

	if errors.Is(err, shared.ErrAlreadyProcessed) {
		s.logger.Info("payment result already processed, skipping",
			zap.String("event_id", eventID.String()),
			zap.String("payment_id", paymentID.String()),
		)
		return nil
	}
	return err
}

// RecordFailure settles a failed gateway result: the payment moves to FAILED
// with the gateway's error details, the invoice stays OPEN for another
// attempt, and payment.failed is published.
func (s *PaymentService) RecordFailure(ctx context.Context, eventID, paymentID uuid.UUID, errorCode, errorMessage string) error {
	err := s.uow.Execute(ctx, func(ctx context.Context, repos billing.Repositories) error {
		if err := repos.ProcessedEvents().MarkProcessed(ctx, eventID, billing.EventTypePaymentResult); err != nil {
			return err
		}

		payment, err := repos.Payments().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		changed, err := payment.MarkFailed(errorCode, errorMessage)
		if err != nil {
			return err
		}
		if !changed {
			s.logger.Info("payment already failed, result ignored",
				zap.String("payment_id", paymentID.String()),
			)
			return nil
		}
		if err := repos.Payments().Update(ctx, payment); err != nil {
			return err
		}

		s.logger.Warn("payment failed",
			zap.String("payment_id", payment.ID.String()),
			zap.String("invoice_id", payment.InvoiceID.String()),
			zap.String("error_code", errorCode),
			zap.String("error_message", errorMessage),
		)
		return s.publisher.Publish(ctx, billing.NewPaymentFailedEvent(payment))
	})

	if errors.Is(err, shared.ErrAlreadyProcessed) {
		s.logger.Info("payment result already processed, skipping",
			zap.String("event_id", eventID.String()),
			zap.String("payment_id", paymentID.String()),
		)
		return nil
	}
	return err
}
