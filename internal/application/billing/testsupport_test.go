package billing

import (
	"context"

	"github.com/autoshop/billing/internal/domain/billing"
	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/google/uuid"
)

// memStore backs the in-memory repositories. Aggregates are stored by value
// so callers only observe mutations that went through Update, the same way a
// database behaves.
type memStore struct {
	invoices  map[uuid.UUID]billing.Invoice
	payments  map[uuid.UUID]billing.Payment
	processed map[uuid.UUID]string
}

func newMemStore() *memStore {
	return &memStore{
		invoices:  make(map[uuid.UUID]billing.Invoice),
		payments:  make(map[uuid.UUID]billing.Payment),
		processed: make(map[uuid.UUID]string),
	}
}

func (s *memStore) snapshot() *memStore {
	c := newMemStore()
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.processed {
		c.processed[k] = v
	}
	return c
}

func (s *memStore) restore(from *memStore) {
	s.invoices = from.invoices
	s.payments = from.payments
	s.processed = from.processed
}

type memInvoiceRepo struct{ store *memStore }

func (r *memInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	inv, ok := r.store.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &inv, nil
}

func (r *memInvoiceRepo) FindByProjectID(_ context.Context, projectID uuid.UUID) (*billing.Invoice, error) {
	for _, inv := range r.store.invoices {
		if inv.ProjectID == projectID {
			found := inv
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memInvoiceRepo) FindAll(_ context.Context, filter shared.Filter) ([]billing.Invoice, int64, error) {
	out := make([]billing.Invoice, 0, len(r.store.invoices))
	for _, inv := range r.store.invoices {
		out = append(out, inv)
	}
	return out, int64(len(out)), nil
}

func (r *memInvoiceRepo) Create(_ context.Context, invoice *billing.Invoice) error {
	for _, existing := range r.store.invoices {
		if existing.ProjectID == invoice.ProjectID {
			return shared.ErrAlreadyExists
		}
	}
	// Real persistence never stores pending domain events (gorm:"-"), so the
	// stored copy must not carry them either
	cp := *invoice
	cp.ClearDomainEvents()
	r.store.invoices[cp.ID] = cp
	return nil
}

func (r *memInvoiceRepo) Update(_ context.Context, invoice *billing.Invoice) error {
	stored, ok := r.store.invoices[invoice.ID]
	if !ok {
		return shared.ErrNotFound
	}
	// Domain mutators already incremented the version
	if stored.GetVersion() != invoice.GetVersion()-1 {
		return shared.ErrConcurrencyConflict
	}
	cp := *invoice
	cp.ClearDomainEvents()
	r.store.invoices[cp.ID] = cp
	return nil
}

type memPaymentRepo struct{ store *memStore }

func (r *memPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Payment, error) {
	p, ok := r.store.payments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (r *memPaymentRepo) FindByInvoiceID(_ context.Context, invoiceID uuid.UUID) ([]billing.Payment, error) {
	var out []billing.Payment
	for _, p := range r.store.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) Create(_ context.Context, payment *billing.Payment) error {
	cp := *payment
	cp.ClearDomainEvents()
	r.store.payments[cp.ID] = cp
	return nil
}

func (r *memPaymentRepo) Update(_ context.Context, payment *billing.Payment) error {
	stored, ok := r.store.payments[payment.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.GetVersion() != payment.GetVersion()-1 {
		return shared.ErrConcurrencyConflict
	}
	cp := *payment
	cp.ClearDomainEvents()
	r.store.payments[cp.ID] = cp
	return nil
}

type memProcessedRepo struct{ store *memStore }

func (r *memProcessedRepo) HasBeenProcessed(_ context.Context, eventID uuid.UUID) (bool, error) {
	_, ok := r.store.processed[eventID]
	return ok, nil
}

func (r *memProcessedRepo) MarkProcessed(_ context.Context, eventID uuid.UUID, eventType string) error {
	if _, ok := r.store.processed[eventID]; ok {
		return shared.ErrAlreadyProcessed
	}
	r.store.processed[eventID] = eventType
	return nil
}

type memRepos struct{ store *memStore }

func (r *memRepos) Invoices() billing.InvoiceRepository { return &memInvoiceRepo{store: r.store} }
func (r *memRepos) Payments() billing.PaymentRepository { return &memPaymentRepo{store: r.store} }
func (r *memRepos) ProcessedEvents() billing.ProcessedEventRepository {
	return &memProcessedRepo{store: r.store}
}

// memUnitOfWork snapshots the store before fn and restores it when fn fails,
// mimicking transaction rollback
type memUnitOfWork struct{ store *memStore }

func (u *memUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, repos billing.Repositories) error) error {
	before := u.store.snapshot()
	if err := fn(ctx, &memRepos{store: u.store}); err != nil {
		u.store.restore(before)
		return err
	}
	return nil
}

// capturingPublisher records published events and can be made to fail
type capturingPublisher struct {
	events []shared.DomainEvent
	err    error
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

// billingFixture bundles the fakes every application test needs
type billingFixture struct {
	store     *memStore
	uow       *memUnitOfWork
	publisher *capturingPublisher
}

func newBillingFixture() *billingFixture {
	store := newMemStore()
	return &billingFixture{
		store:     store,
		uow:       &memUnitOfWork{store: store},
		publisher: &capturingPublisher{},
	}
}
