package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/domain/treasury"
	"gorm.io/gorm"
)

// GormBankMovementRepository implements BankMovementRepository using GORM
type GormBankMovementRepository struct {
	db *gorm.DB
}

// NewGormBankMovementRepository creates a new GormBankMovementRepository
func NewGormBankMovementRepository(db *gorm.DB) *GormBankMovementRepository {
	return &GormBankMovementRepository{db: db}
}

// FindByIDForTenant finds a bank movement by ID for a specific tenant
func (r *GormBankMovementRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*treasury.BankMovement, error) {
	var movement treasury.BankMovement
	if err := r.db.WithContext(ctx).
		First(&movement, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &movement, nil
}

// FindPending returns the unreconciled statement lines, oldest first.
// A nil bankAccountID spans all accounts.
func (r *GormBankMovementRepository) FindPending(ctx context.Context, tenantID uuid.UUID, bankAccountID *uuid.UUID) ([]*treasury.BankMovement, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, treasury.ReconciliationStatusPending)
	if bankAccountID != nil {
		query = query.Where("bank_account_id = ?", *bankAccountID)
	}

	var movements []*treasury.BankMovement
	if err := query.Order("date ASC, created_at ASC").Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindAllForTenant lists bank movements with filtering and pagination
func (r *GormBankMovementRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter treasury.BankMovementFilter) ([]*treasury.BankMovement, int64, error) {
	query := r.db.WithContext(ctx).Model(&treasury.BankMovement{}).
		Where("tenant_id = ?", tenantID)

	if filter.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *filter.BankAccountID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Direction != nil {
		query = query.Where("direction = ?", *filter.Direction)
	}
	if filter.DateFrom != nil {
		query = query.Where("date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("date <= ?", *filter.DateTo)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("description LIKE ? OR bank_reference LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var movements []*treasury.BankMovement
	query = applySort(query, filter.Filter, BankMovementSortFields, "date")
	if err := applyPagination(query, filter.Filter).Find(&movements).Error; err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

// Save creates or updates a bank movement
func (r *GormBankMovementRepository) Save(ctx context.Context, movement *treasury.BankMovement) error {
	return r.db.WithContext(ctx).Save(movement).Error
}

// SaveWithLock updates a bank movement with optimistic locking
func (r *GormBankMovementRepository) SaveWithLock(ctx context.Context, movement *treasury.BankMovement) error {
	result := r.db.WithContext(ctx).
		Model(movement).
		Where("id = ? AND version = ?", movement.ID, movement.Version-1).
		Select("*").
		Updates(movement)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormBankMovementRepository implements BankMovementRepository
var _ treasury.BankMovementRepository = (*GormBankMovementRepository)(nil)
