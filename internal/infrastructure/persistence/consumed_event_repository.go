package persistence

import (
	"context"
	"time"

	"github.com/autoshop/billing/internal/domain/billing"
	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormConsumedEventRepository implements billing.ProcessedEventRepository with
// a unique insert into consumed_events. The primary key on event_id makes the
// insert the serialization point: only one transaction per event ID commits.
type GormConsumedEventRepository struct {
	db *gorm.DB
}

// NewGormConsumedEventRepository creates a new GormConsumedEventRepository
func NewGormConsumedEventRepository(db *gorm.DB) *GormConsumedEventRepository {
	return &GormConsumedEventRepository{db: db}
}

// HasBeenProcessed reports whether an event ID has already been recorded
func (r *GormConsumedEventRepository) HasBeenProcessed(ctx context.Context, eventID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&billing.ConsumedEvent{}).
		Where("event_id = ?", eventID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkProcessed inserts the consumed-event record. A duplicate returns
// shared.ErrAlreadyProcessed.
func (r *GormConsumedEventRepository) MarkProcessed(ctx context.Context, eventID uuid.UUID, eventType string) error {
	record := billing.NewConsumedEvent(eventID, eventType)
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyProcessed
		}
		return err
	}
	return nil
}

// DeleteOlderThan removes consumed-event records received before the cutoff.
// Retention must exceed the broker's redelivery horizon or old duplicates can
// slip back in.
func (r *GormConsumedEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("received_at < ?", cutoff).
		Delete(&billing.ConsumedEvent{})
	return result.RowsAffected, result.Error
}

// Ensure GormConsumedEventRepository implements billing.ProcessedEventRepository
var _ billing.ProcessedEventRepository = (*GormConsumedEventRepository)(nil)
