package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/domain/treasury"
	"gorm.io/gorm"
)

// GormMovementRepository implements MovementRepository using GORM
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// FindByIDForTenant finds a movement by ID for a specific tenant
func (r *GormMovementRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*treasury.TreasuryMovement, error) {
	var movement treasury.TreasuryMovement
	if err := r.db.WithContext(ctx).
		First(&movement, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &movement, nil
}

// FindByRelatedEntity finds the movements attached to a business document
func (r *GormMovementRepository) FindByRelatedEntity(ctx context.Context, tenantID uuid.UUID, entityType treasury.RelatedEntityType, entityID uuid.UUID) ([]*treasury.TreasuryMovement, error) {
	var movements []*treasury.TreasuryMovement
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND related_entity_type = ? AND related_entity_id = ?", tenantID, entityType, entityID).
		Order("created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindAllForAccount lists movements for one account
func (r *GormMovementRepository) FindAllForAccount(ctx context.Context, tenantID uuid.UUID, accountType treasury.AccountType, accountID uuid.UUID, filter shared.Filter) ([]*treasury.TreasuryMovement, int64, error) {
	query := r.db.WithContext(ctx).Model(&treasury.TreasuryMovement{}).
		Where("tenant_id = ? AND account_type = ? AND account_id = ?", tenantID, accountType, accountID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var movements []*treasury.TreasuryMovement
	query = applySort(query, filter, MovementSortFields, "date")
	if err := applyPagination(query, filter).Find(&movements).Error; err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

// SumConfirmedForAccount returns the signed sum of CONFIRMED movements
// dated on or before asOf.
func (r *GormMovementRepository) SumConfirmedForAccount(ctx context.Context, tenantID uuid.UUID, accountType treasury.AccountType, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&treasury.TreasuryMovement{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("tenant_id = ? AND account_type = ? AND account_id = ? AND status = ? AND date <= ?",
			tenantID, accountType, accountID, treasury.MovementStatusConfirmed, asOf).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// Save creates or updates a movement
func (r *GormMovementRepository) Save(ctx context.Context, movement *treasury.TreasuryMovement) error {
	return r.db.WithContext(ctx).Save(movement).Error
}

// Ensure GormMovementRepository implements MovementRepository
var _ treasury.MovementRepository = (*GormMovementRepository)(nil)
