package persistence

import (
	"context"

	"github.com/autoshop/billing/internal/domain/billing"
	"gorm.io/gorm"
)

// gormRepositories bundles the repositories bound to one transaction handle
type gormRepositories struct {
	invoices  *GormInvoiceRepository
	payments  *GormPaymentRepository
	processed *GormConsumedEventRepository
}

func newGormRepositories(tx *gorm.DB) *gormRepositories {
	return &gormRepositories{
		invoices:  NewGormInvoiceRepository(tx),
		payments:  NewGormPaymentRepository(tx),
		processed: NewGormConsumedEventRepository(tx),
	}
}

func (r *gormRepositories) Invoices() billing.InvoiceRepository { return r.invoices }

func (r *gormRepositories) Payments() billing.PaymentRepository { return r.payments }

func (r *gormRepositories) ProcessedEvents() billing.ProcessedEventRepository { return r.processed }

// GormUnitOfWork implements billing.UnitOfWork on a database transaction.
// Everything fn does through the passed repositories commits or rolls back as
// one unit, so an event is never marked consumed without its effect.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute runs fn inside one database transaction
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, repos billing.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, newGormRepositories(tx))
	})
}

// Repositories returns repositories bound to the base connection, outside any
// transaction. Intended for read paths.
func (u *GormUnitOfWork) Repositories() billing.Repositories {
	return newGormRepositories(u.db)
}

// Ensure GormUnitOfWork implements billing.UnitOfWork
var _ billing.UnitOfWork = (*GormUnitOfWork)(nil)
