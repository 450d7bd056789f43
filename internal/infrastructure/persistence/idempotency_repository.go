package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tesoreria/backend/internal/domain/idempotency"
	"github.com/tesoreria/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormIdempotencyRepository implements idempotency.Repository using GORM
type GormIdempotencyRepository struct {
	db *gorm.DB
}

// NewGormIdempotencyRepository creates a new GormIdempotencyRepository
func NewGormIdempotencyRepository(db *gorm.DB) *GormIdempotencyRepository {
	return &GormIdempotencyRepository{db: db}
}

// Create inserts a new record. The unique (tenant, operation, key) index
// adjudicates racing duplicates; the loser gets shared.ErrAlreadyExists.
func (r *GormIdempotencyRepository) Create(ctx context.Context, record *idempotency.Record) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Find returns the record for a key, or nil when none exists
func (r *GormIdempotencyRepository) Find(ctx context.Context, tenantID uuid.UUID, op idempotency.OperationType, key string) (*idempotency.Record, error) {
	var record idempotency.Record
	if err := r.db.WithContext(ctx).
		First(&record, "tenant_id = ? AND operation_type = ? AND key = ?", tenantID, op, key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Update persists a status change on an existing record
func (r *GormIdempotencyRepository) Update(ctx context.Context, record *idempotency.Record) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// DeleteOlderThan removes closed records past the retention window
func (r *GormIdempotencyRepository) DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?",
			[]idempotency.RecordStatus{idempotency.StatusCompleted, idempotency.StatusFailed}, cutoff).
		Delete(&idempotency.Record{})
	return result.RowsAffected, result.Error
}

// Ensure GormIdempotencyRepository implements idempotency.Repository
var _ idempotency.Repository = (*GormIdempotencyRepository)(nil)
