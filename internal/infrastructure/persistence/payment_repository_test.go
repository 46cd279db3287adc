package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/autoshop/billing/internal/domain/billing"
	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/autoshop/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestPayment(t *testing.T) *billing.Payment {
	t.Helper()
	p, err := billing.NewPayment(uuid.New(), valueobject.MustNewMoney(50000, "LKR"), "payhere")
	require.NoError(t, err)
	p.ClearDomainEvents()
	return p
}

func TestGormPaymentRepository_Update(t *testing.T) {
	t.Run("persists a mutated aggregate", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormPaymentRepository(gormDB)

		p := newTestPayment(t)
		changed, err := p.MarkSucceeded("https://pay.example/r/9")
		require.NoError(t, err)
		require.True(t, changed)
		require.Equal(t, 2, p.GetVersion())

		mock.ExpectExec(`UPDATE "payments" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(context.Background(), p))
		assert.Equal(t, 2, p.GetVersion())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("binds the stored row's version", func(t *testing.T) {
		gormDB, _, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		var capturedVars []any
		dry := gormDB.Session(&gorm.Session{DryRun: true})
		require.NoError(t, dry.Callback().Update().After("gorm:update").Register("capture_payment_update_vars", func(tx *gorm.DB) {
			capturedVars = tx.Statement.Vars
		}))
		repo := NewGormPaymentRepository(dry)

		p := newTestPayment(t)
		changed, err := p.MarkFailed("card_declined", "insufficient funds")
		require.NoError(t, err)
		require.True(t, changed)
		require.Equal(t, 2, p.GetVersion())

		_ = repo.Update(context.Background(), p)

		assert.True(t, varsContainInt(capturedVars, 1), "where clause must carry the pre-mutation version")
		assert.True(t, varsContainInt(capturedVars, 2), "set clause must write the incremented version")
	})

	t.Run("stale version surfaces as conflict", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormPaymentRepository(gormDB)

		p := newTestPayment(t)
		changed, err := p.MarkSucceeded("https://pay.example/r/9")
		require.NoError(t, err)
		require.True(t, changed)

		mock.ExpectExec(`UPDATE "payments" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.Update(context.Background(), p)
		assert.Equal(t, shared.ErrConcurrencyConflict, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
