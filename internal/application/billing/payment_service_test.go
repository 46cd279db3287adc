package billing

import (
	"context"
	"testing"
	"time"

	"github.com/autoshop/billing/internal/domain/billing"
	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPaymentResultEvent(paymentID uuid.UUID, status, receiptURL, errorCode string) *billing.PaymentResultEvent {
	return &billing.PaymentResultEvent{
		BaseDomainEvent: shared.NewInboundDomainEvent(uuid.New(), billing.EventTypePaymentResult, time.Now(), 1),
		Data: billing.PaymentResultData{
			PaymentID:  paymentID,
			Status:     status,
			ReceiptURL: receiptURL,
			ErrorCode:  errorCode,
		},
	}
}

func TestPaymentService_RecordAttempt(t *testing.T) {
	fx := newBillingFixture()
	projectID := uuid.New()
	invoiceID := seedOpenInvoice(t, fx, projectID)
	svc := NewPaymentService(fx.uow, fx.publisher, zap.NewNop())

	payment, err := svc.RecordAttempt(context.Background(), invoiceID, "payhere")
	require.NoError(t, err)

	assert.Equal(t, invoiceID, payment.InvoiceID)
	assert.Equal(t, billing.PaymentStatusInitiated, payment.Status)
	assert.Equal(t, int64(50000), payment.Amount)
	assert.Equal(t, "payhere", payment.Provider)
	assert.Len(t, fx.store.payments, 1)
}

func TestPaymentService_RecordAttemptOnSettledInvoice(t *testing.T) {
	fx := newBillingFixture()
	projectID := uuid.New()
	invoiceID := seedOpenInvoice(t, fx, projectID)

	inv := fx.store.invoices[invoiceID]
	_, err := inv.MarkPaid()
	require.NoError(t, err)
	fx.store.invoices[invoiceID] = inv

	svc := NewPaymentService(fx.uow, fx.publisher, zap.NewNop())
	_, err = svc.RecordAttempt(context.Background(), invoiceID, "payhere")
	require.Error(t, err)
	assert.Empty(t, fx.store.payments)
}

func TestPaymentService_RecordSuccessSettlesInvoice(t *testing.T) {
	fx := newBillingFixture()
	projectID := uuid.New()
	invoiceID := seedOpenInvoice(t, fx, projectID)
	svc := NewPaymentService(fx.uow, fx.publisher, zap.NewNop())

	payment, err := svc.RecordAttempt(context.Background(), invoiceID, "payhere")
	require.NoError(t, err)

	event := newPaymentResultEvent(payment.ID, "SUCCEEDED", "https://pay.example/r/1", "")
	require.NoError(t, svc.RecordSuccess(context.Background(), event.EventID(), payment.ID, event.Data.ReceiptURL))

	stored := fx.store.payments[payment.ID]
	assert.Equal(t, billing.PaymentStatusSucceeded, stored.Status)
	assert.Equal(t, "https://pay.example/r/1", stored.ReceiptURL)

	inv := fx.store.invoices[invoiceID]
	assert.Equal(t, billing.InvoiceStatusPaid, inv.Status)
	assert.NotNil(t, inv.PaidAt)

	require.Len(t, fx.publisher.events, 1)
	succeeded, ok := fx.publisher.events[0].(*billing.PaymentSucceededEvent)
	require.True(t, ok)
	assert.Equal(t, payment.ID, succeeded.PaymentID)
	assert.Equal(t, invoiceID, succeeded.InvoiceID)
	assert.Equal(t, projectID, succeeded.ProjectID)
	assert.Equal(t, int64(50000), succeeded.Amount)
}

func TestPaymentService_RecordSuccessDuplicateEvent(t *testing.T) {
	fx := newBillingFixture()
	invoiceID := seedOpenInvoice(t, fx, uuid.New())
	svc := NewPaymentService(fx.uow, fx.publisher, zap.NewNop())

	payment, err := svc.RecordAttempt(context.Background(), invoiceID, "payhere")
	require.NoError(t, err)

	eventID := uuid.New()
	require.NoError(t, svc.RecordSuccess(context.Background(), eventID, payment.ID, "https://pay.example/r/1"))
	require.NoError(t, svc.RecordSuccess(context.Background(), eventID, payment.ID, "https://pay.example/r/1"))

	assert.Len(t, fx.publisher.events, 1)
}

func TestPaymentService_RecordSuccessRedeliveredWithNewEventID(t *testing.T) {
	fx := newBillingFixture()
	invoiceID := seedOpenInvoice(t, fx, uuid.New())
	svc := NewPaymentService(fx.uow, fx.publisher, zap.NewNop())

	payment, err := svc.RecordAttempt(context.Background(), invoiceID, "payhere")
	require.NoError(t, err)

	require.NoError(t, svc.RecordSuccess(context.Background(), uuid.New(), payment.ID, "https://pay.example/r/1"))
	// Same result under a fresh delivery identity settles nothing twice
	require.NoError(t, svc.RecordSuccess(context.Background(), uuid.New(), payment.ID, "https://pay.example/r/1"))

	assert.Len(t, fx.publisher.events, 1)
	assert.Equal(t, billing.InvoiceStatusPaid, fx.store.invoices[invoiceID].Status)
}

func TestPaymentService_SecondAttemptSuccessAfterSettlementIsIgnored(t *testing.T) {
	fx := newBillingFixture()
	invoiceID := seedOpenInvoice(t, fx, uuid.New())
	svc := NewPaymentService(fx.uow, fx.publisher, zap.NewNop())

	first, err := svc.RecordAttempt(context.Background(), invoiceID, "payhere")
	require.NoError(t, err)
	second, err := svc.RecordAttempt(context.Background(), invoiceID, "stripe")
	require.NoError(t, err)

	require.NoError(t, svc.RecordSuccess(context.Background(), uuid.New(), first.ID, "https://pay.example/r/1"))

	// A late gateway success for the other attempt must not produce a second
	// SUCCEEDED payment or a second published settlement
	lateEventID := uuid.New()
	require.NoError(t, svc.RecordSuccess(context.Background(), lateEventID, second.ID, "https://pay.example/r/2"))

	assert.Equal(t, billing.PaymentStatusSucceeded, fx.store.payments[first.ID].Status)
	assert.Equal(t, billing.PaymentStatusInitiated, fx.store.payments[second.ID].Status)

	succeeded := 0
	for _, p := range fx.store.payments {
		if p.Status == billing.PaymentStatusSucceeded {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, fx.publisher.events, 1)

	// The late result is consumed: its event stays marked
	_, marked := fx.store.processed[lateEventID]
	assert.True(t, marked)
}

func TestPaymentService_RecordFailureKeepsInvoiceOpen(t *testing.T) {
	fx := newBillingFixture()
	invoiceID := seedOpenInvoice(t, fx, uuid.New())
	svc := NewPaymentService(fx.uow, fx.publisher, zap.NewNop())

	payment, err := svc.RecordAttempt(context.Background(), invoiceID, "payhere")
	require.NoError(t, err)

	require.NoError(t, svc.RecordFailure(context.Background(), uuid.New(), payment.ID, "card_declined", "insufficient funds"))

	stored := fx.store.payments[payment.ID]
	assert.Equal(t, billing.PaymentStatusFailed, stored.Status)
	assert.Equal(t, "card_declined", stored.FailureCode)
	assert.Equal(t, billing.InvoiceStatusOpen, fx.store.invoices[invoiceID].Status)

	require.Len(t, fx.publisher.events, 1)
	failed, ok := fx.publisher.events[0].(*billing.PaymentFailedEvent)
	require.True(t, ok)
	assert.Equal(t, "card_declined", failed.ErrorCode)

	// A second attempt can follow the failure
	_, err = svc.RecordAttempt(context.Background(), invoiceID, "payhere")
	require.NoError(t, err)
	assert.Len(t, fx.store.payments, 2)
}

func TestPaymentService_ConflictingResultIsRejected(t *testing.T) {
	fx := newBillingFixture()
	invoiceID := seedOpenInvoice(t, fx, uuid.New())
	svc := NewPaymentService(fx.uow, fx.publisher, zap.NewNop())

	payment, err := svc.RecordAttempt(context.Background(), invoiceID, "payhere")
	require.NoError(t, err)

	require.NoError(t, svc.RecordSuccess(context.Background(), uuid.New(), payment.ID, "https://pay.example/r/1"))

	err = svc.RecordFailure(context.Background(), uuid.New(), payment.ID, "card_declined", "late failure")
	require.Error(t, err)

	// Rolled back entirely, including the consumed-event mark
	assert.Equal(t, billing.PaymentStatusSucceeded, fx.store.payments[payment.ID].Status)
	assert.Len(t, fx.store.processed, 2)
}

func TestPaymentResultHandler_RoutesByStatus(t *testing.T) {
	fx := newBillingFixture()
	invoiceID := seedOpenInvoice(t, fx, uuid.New())
	svc := NewPaymentService(fx.uow, fx.publisher, zap.NewNop())
	handler := NewPaymentResultHandler(svc, zap.NewNop())

	assert.Equal(t, []string{billing.EventTypePaymentResult}, handler.EventTypes())

	payment, err := svc.RecordAttempt(context.Background(), invoiceID, "payhere")
	require.NoError(t, err)

	failure := newPaymentResultEvent(payment.ID, "FAILED", "", "card_declined")
	require.NoError(t, handler.Handle(context.Background(), failure))
	assert.Equal(t, billing.PaymentStatusFailed, fx.store.payments[payment.ID].Status)

	retry, err := svc.RecordAttempt(context.Background(), invoiceID, "payhere")
	require.NoError(t, err)

	success := newPaymentResultEvent(retry.ID, "SUCCEEDED", "https://pay.example/r/2", "")
	require.NoError(t, handler.Handle(context.Background(), success))
	assert.Equal(t, billing.InvoiceStatusPaid, fx.store.invoices[invoiceID].Status)
}

func TestPaymentResultHandler_WrongEventType(t *testing.T) {
	fx := newBillingFixture()
	svc := NewPaymentService(fx.uow, fx.publisher, zap.NewNop())
	handler := NewPaymentResultHandler(svc, zap.NewNop())

	event := newQuoteApprovedEvent(uuid.New(), 50000)
	assert.Error(t, handler.Handle(context.Background(), event))
}
