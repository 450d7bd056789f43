package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/domain/treasury"
	"gorm.io/gorm"
)

// GormClosingRepository implements ClosingRepository using GORM
type GormClosingRepository struct {
	db *gorm.DB
}

// NewGormClosingRepository creates a new GormClosingRepository
func NewGormClosingRepository(db *gorm.DB) *GormClosingRepository {
	return &GormClosingRepository{db: db}
}

// FindByIDForTenant finds a closing by ID for a specific tenant
func (r *GormClosingRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*treasury.CashClosing, error) {
	var closing treasury.CashClosing
	if err := r.db.WithContext(ctx).
		First(&closing, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &closing, nil
}

// FindByAccountAndDate finds the closing for one account on one calendar day
func (r *GormClosingRepository) FindByAccountAndDate(ctx context.Context, tenantID, cashAccountID uuid.UUID, date time.Time) (*treasury.CashClosing, error) {
	var closing treasury.CashClosing
	if err := r.db.WithContext(ctx).
		First(&closing, "tenant_id = ? AND cash_account_id = ? AND date = ?", tenantID, cashAccountID, date).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &closing, nil
}

// FindAllForAccount lists closings for one cash account, newest first
func (r *GormClosingRepository) FindAllForAccount(ctx context.Context, tenantID, cashAccountID uuid.UUID, filter shared.Filter) ([]*treasury.CashClosing, int64, error) {
	query := r.db.WithContext(ctx).Model(&treasury.CashClosing{}).
		Where("tenant_id = ? AND cash_account_id = ?", tenantID, cashAccountID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var closings []*treasury.CashClosing
	query = applySort(query, filter, ClosingSortFields, "date")
	if err := applyPagination(query, filter).Find(&closings).Error; err != nil {
		return nil, 0, err
	}
	return closings, total, nil
}

// Save persists a closing. The unique index on (tenant, account, date)
// turns a racing duplicate into shared.ErrDuplicateClosing.
func (r *GormClosingRepository) Save(ctx context.Context, closing *treasury.CashClosing) error {
	if err := r.db.WithContext(ctx).Save(closing).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrDuplicateClosing
		}
		return err
	}
	return nil
}

// Ensure GormClosingRepository implements ClosingRepository
var _ treasury.ClosingRepository = (*GormClosingRepository)(nil)
