package billing

import (
	"testing"

	"github.com/autoshop/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestPayment(t *testing.T) *Payment {
	p, err := NewPayment(uuid.New(), valueobject.MustNewMoney(55000, "LKR"), "payhere")
	require.NoError(t, err)
	return p
}

func TestPaymentStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  PaymentStatus
		isValid bool
	}{
		{PaymentStatusInitiated, true},
		{PaymentStatusSucceeded, true},
		{PaymentStatusFailed, true},
		{PaymentStatus("PENDING"), false},
		{PaymentStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestNewPayment(t *testing.T) {
	invoiceID := uuid.New()
	p, err := NewPayment(invoiceID, valueobject.MustNewMoney(55000, "LKR"), "payhere")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, invoiceID, p.InvoiceID)
	assert.Equal(t, int64(55000), p.Amount)
	assert.Equal(t, valueobject.Currency("LKR"), p.Currency)
	assert.Equal(t, "payhere", p.Provider)
	assert.Equal(t, PaymentStatusInitiated, p.Status)
}

func TestNewPayment_Validation(t *testing.T) {
	tests := []struct {
		name      string
		invoiceID uuid.UUID
		amount    int64
		provider  string
	}{
		{"empty invoice", uuid.Nil, 55000, "payhere"},
		{"zero amount", uuid.New(), 0, "payhere"},
		{"negative amount", uuid.New(), -1, "payhere"},
		{"empty provider", uuid.New(), 55000, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPayment(tt.invoiceID, valueobject.MustNewMoney(tt.amount, "LKR"), tt.provider)
			assert.Error(t, err)
		})
	}
}

func TestPayment_MarkSucceeded(t *testing.T) {
	p := createTestPayment(t)

	changed, err := p.MarkSucceeded("https://gateway.example/receipts/123")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, PaymentStatusSucceeded, p.Status)
	assert.Equal(t, "https://gateway.example/receipts/123", p.ReceiptURL)

	// redelivered success result is a no-op
	changed, err = p.MarkSucceeded("https://gateway.example/receipts/123")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestPayment_MarkSucceeded_AfterFailureIsRejected(t *testing.T) {
	p := createTestPayment(t)
	_, err := p.MarkFailed("card_declined", "insufficient funds")
	require.NoError(t, err)

	_, err = p.MarkSucceeded("https://gateway.example/receipts/123")
	assert.Error(t, err)
	assert.Equal(t, PaymentStatusFailed, p.Status)
}

func TestPayment_MarkFailed(t *testing.T) {
	p := createTestPayment(t)

	changed, err := p.MarkFailed("card_declined", "insufficient funds")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, PaymentStatusFailed, p.Status)
	assert.Equal(t, "card_declined", p.FailureCode)
	assert.Equal(t, "insufficient funds", p.FailureMessage)

	// redelivered failure result is a no-op
	changed, err = p.MarkFailed("card_declined", "insufficient funds")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestPayment_MarkFailed_AfterSuccessIsRejected(t *testing.T) {
	p := createTestPayment(t)
	_, err := p.MarkSucceeded("https://gateway.example/receipts/123")
	require.NoError(t, err)

	_, err = p.MarkFailed("timeout", "gateway timeout")
	assert.Error(t, err)
	assert.Equal(t, PaymentStatusSucceeded, p.Status)
}

func TestPaymentEvents(t *testing.T) {
	inv := createTestInvoice(t)
	p, err := NewPayment(inv.ID, valueobject.MustNewMoney(50000, "LKR"), "payhere")
	require.NoError(t, err)

	succeeded := NewPaymentSucceededEvent(p, inv)
	assert.Equal(t, EventTypePaymentSucceeded, succeeded.EventType())
	assert.Equal(t, p.ID, succeeded.PaymentID)
	assert.Equal(t, inv.ID, succeeded.InvoiceID)
	assert.Equal(t, inv.ProjectID, succeeded.ProjectID)
	assert.Equal(t, int64(50000), succeeded.Amount)

	_, err = p.MarkFailed("card_declined", "declined")
	require.NoError(t, err)
	failed := NewPaymentFailedEvent(p)
	assert.Equal(t, EventTypePaymentFailed, failed.EventType())
	assert.Equal(t, "card_declined", failed.ErrorCode)
}
