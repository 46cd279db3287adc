package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/autoshop/billing/internal/domain/billing"
	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newQuoteApprovedEvent(projectID uuid.UUID, amount int64) *billing.QuoteApprovedEvent {
	quoteID := uuid.New()
	return &billing.QuoteApprovedEvent{
		BaseDomainEvent: shared.NewInboundDomainEvent(uuid.New(), billing.EventTypeQuoteApproved, time.Now(), 1),
		Data: billing.QuoteApprovedData{
			ProjectID:   projectID,
			CustomerID:  uuid.New(),
			QuoteID:     &quoteID,
			AmountTotal: amount,
			Currency:    "LKR",
			Status:      "APPROVED",
		},
	}
}

func TestQuoteApprovedHandler_CreatesInvoice(t *testing.T) {
	fx := newBillingFixture()
	handler := NewQuoteApprovedHandler(fx.uow, fx.publisher, zap.NewNop())

	projectID := uuid.New()
	event := newQuoteApprovedEvent(projectID, 50000)

	require.NoError(t, handler.Handle(context.Background(), event))

	require.Len(t, fx.store.invoices, 1)
	for _, inv := range fx.store.invoices {
		assert.Equal(t, projectID, inv.ProjectID)
		assert.Equal(t, int64(50000), inv.AmountTotal)
		assert.Equal(t, billing.InvoiceStatusOpen, inv.Status)
	}

	require.Len(t, fx.publisher.events, 1)
	assert.Equal(t, billing.EventTypeInvoiceCreated, fx.publisher.events[0].EventType())

	_, marked := fx.store.processed[event.EventID()]
	assert.True(t, marked)
}

func TestQuoteApprovedHandler_DuplicateEventIsSkipped(t *testing.T) {
	fx := newBillingFixture()
	handler := NewQuoteApprovedHandler(fx.uow, fx.publisher, zap.NewNop())

	event := newQuoteApprovedEvent(uuid.New(), 50000)

	require.NoError(t, handler.Handle(context.Background(), event))
	require.NoError(t, handler.Handle(context.Background(), event))

	assert.Len(t, fx.store.invoices, 1)
	assert.Len(t, fx.publisher.events, 1)
}

func TestQuoteApprovedHandler_ReApprovalRevisesAmount(t *testing.T) {
	fx := newBillingFixture()
	handler := NewQuoteApprovedHandler(fx.uow, fx.publisher, zap.NewNop())

	projectID := uuid.New()
	require.NoError(t, handler.Handle(context.Background(), newQuoteApprovedEvent(projectID, 50000)))
	require.NoError(t, handler.Handle(context.Background(), newQuoteApprovedEvent(projectID, 55000)))

	require.Len(t, fx.store.invoices, 1)
	for _, inv := range fx.store.invoices {
		assert.Equal(t, int64(55000), inv.AmountTotal)
		assert.Equal(t, billing.InvoiceStatusOpen, inv.Status)
	}

	require.Len(t, fx.publisher.events, 2)
	assert.Equal(t, billing.EventTypeInvoiceUpdated, fx.publisher.events[1].EventType())
}

func TestQuoteApprovedHandler_TerminalInvoiceIgnoresLateApproval(t *testing.T) {
	fx := newBillingFixture()
	handler := NewQuoteApprovedHandler(fx.uow, fx.publisher, zap.NewNop())

	projectID := uuid.New()
	require.NoError(t, handler.Handle(context.Background(), newQuoteApprovedEvent(projectID, 50000)))

	for id, inv := range fx.store.invoices {
		_, err := inv.MarkPaid()
		require.NoError(t, err)
		fx.store.invoices[id] = inv
	}
	fx.publisher.events = nil

	event := newQuoteApprovedEvent(projectID, 99000)
	require.NoError(t, handler.Handle(context.Background(), event))

	for _, inv := range fx.store.invoices {
		assert.Equal(t, int64(50000), inv.AmountTotal)
		assert.Equal(t, billing.InvoiceStatusPaid, inv.Status)
	}
	assert.Empty(t, fx.publisher.events)

	// The event was still consumed so a redelivery short-circuits
	_, marked := fx.store.processed[event.EventID()]
	assert.True(t, marked)
}

func TestQuoteApprovedHandler_PublishFailureRollsBack(t *testing.T) {
	fx := newBillingFixture()
	fx.publisher.err = errors.New("broker unavailable")
	handler := NewQuoteApprovedHandler(fx.uow, fx.publisher, zap.NewNop())

	event := newQuoteApprovedEvent(uuid.New(), 50000)
	err := handler.Handle(context.Background(), event)
	require.Error(t, err)

	// Nothing committed: the redelivery will start from scratch
	assert.Empty(t, fx.store.invoices)
	_, marked := fx.store.processed[event.EventID()]
	assert.False(t, marked)

	// And the redelivery succeeds once the broker is back
	fx.publisher.err = nil
	require.NoError(t, handler.Handle(context.Background(), event))
	assert.Len(t, fx.store.invoices, 1)
}

func TestQuoteApprovedHandler_InvalidAmountRejected(t *testing.T) {
	fx := newBillingFixture()
	handler := NewQuoteApprovedHandler(fx.uow, fx.publisher, zap.NewNop())

	event := newQuoteApprovedEvent(uuid.New(), 50000)
	event.Data.Currency = "not-a-code"

	err := handler.Handle(context.Background(), event)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Empty(t, fx.store.invoices)
}

func TestQuoteApprovedHandler_WrongEventType(t *testing.T) {
	fx := newBillingFixture()
	handler := NewQuoteApprovedHandler(fx.uow, fx.publisher, zap.NewNop())

	event := &billing.ProjectUpdatedEvent{
		BaseDomainEvent: shared.NewInboundDomainEvent(uuid.New(), billing.EventTypeProjectUpdated, time.Now(), 1),
	}
	assert.Error(t, handler.Handle(context.Background(), event))
}
