package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tesoreria/backend/internal/domain/treasury"
	"gorm.io/gorm"
)

// GormPatternRepository implements PatternRepository using GORM
type GormPatternRepository struct {
	db *gorm.DB
}

// NewGormPatternRepository creates a new GormPatternRepository
func NewGormPatternRepository(db *gorm.DB) *GormPatternRepository {
	return &GormPatternRepository{db: db}
}

// LoadForTenant loads the learned description patterns as a lookup map
func (r *GormPatternRepository) LoadForTenant(ctx context.Context, tenantID uuid.UUID) (treasury.PatternMap, error) {
	var patterns []*treasury.ReconciliationPattern
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&patterns).Error; err != nil {
		return nil, err
	}

	result := make(treasury.PatternMap, len(patterns))
	for _, p := range patterns {
		result[p.NormalizedDescription] = p.CounterpartyID
	}
	return result, nil
}

// Upsert records a confirmed description-to-counterparty association.
// An existing pattern gets its hit count bumped and the counterparty
// overwritten with the latest confirmation.
func (r *GormPatternRepository) Upsert(ctx context.Context, tenantID uuid.UUID, normalizedDescription string, counterpartyID uuid.UUID) error {
	var pattern treasury.ReconciliationPattern
	err := r.db.WithContext(ctx).
		First(&pattern, "tenant_id = ? AND normalized_description = ?", tenantID, normalizedDescription).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		fresh := treasury.NewReconciliationPattern(tenantID, normalizedDescription, counterpartyID)
		return r.db.WithContext(ctx).Create(fresh).Error
	}

	pattern.CounterpartyID = counterpartyID
	pattern.RecordHit()
	return r.db.WithContext(ctx).Save(&pattern).Error
}

// Ensure GormPatternRepository implements PatternRepository
var _ treasury.PatternRepository = (*GormPatternRepository)(nil)
