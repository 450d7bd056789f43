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

// GormChequeRepository implements ChequeRepository using GORM
type GormChequeRepository struct {
	db *gorm.DB
}

// NewGormChequeRepository creates a new GormChequeRepository
func NewGormChequeRepository(db *gorm.DB) *GormChequeRepository {
	return &GormChequeRepository{db: db}
}

// FindByIDForTenant finds a cheque by ID for a specific tenant
func (r *GormChequeRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*treasury.Cheque, error) {
	var cheque treasury.Cheque
	if err := r.db.WithContext(ctx).
		First(&cheque, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cheque, nil
}

// FindByIDsForTenant finds multiple cheques by their IDs
func (r *GormChequeRepository) FindByIDsForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*treasury.Cheque, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var cheques []*treasury.Cheque
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&cheques).Error; err != nil {
		return nil, err
	}
	return cheques, nil
}

// FindByNumber finds a cheque by bank and number within a tenant
func (r *GormChequeRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, bank, number string) (*treasury.Cheque, error) {
	var cheque treasury.Cheque
	if err := r.db.WithContext(ctx).
		First(&cheque, "tenant_id = ? AND bank = ? AND number = ?", tenantID, bank, number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cheque, nil
}

// FindAllForTenant lists cheques matching the filter
func (r *GormChequeRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter treasury.ChequeFilter) ([]*treasury.Cheque, int64, error) {
	query := r.db.WithContext(ctx).Model(&treasury.Cheque{}).Where("tenant_id = ?", tenantID)

	if filter.State != nil {
		query = query.Where("state = ?", *filter.State)
	}
	if filter.Origin != nil {
		query = query.Where("origin = ?", *filter.Origin)
	}
	if filter.Bank != "" {
		query = query.Where("bank = ?", filter.Bank)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("number LIKE ? OR holder LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var cheques []*treasury.Cheque
	query = applySort(query, filter.Filter, ChequeSortFields, "due_date")
	if err := applyPagination(query, filter.Filter).
		Find(&cheques).Error; err != nil {
		return nil, 0, err
	}
	return cheques, total, nil
}

// SumInPortfolioByCashAccount sums cheque amounts currently held at a cash point
func (r *GormChequeRepository) SumInPortfolioByCashAccount(ctx context.Context, tenantID, cashAccountID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&treasury.Cheque{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("tenant_id = ? AND cash_account_id = ? AND state = ? AND created_at <= ?",
			tenantID, cashAccountID, treasury.ChequeStateInPortfolio, asOf).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// Save creates or updates a cheque
func (r *GormChequeRepository) Save(ctx context.Context, cheque *treasury.Cheque) error {
	return r.db.WithContext(ctx).Save(cheque).Error
}

// SaveWithLock updates a cheque with an optimistic version check
func (r *GormChequeRepository) SaveWithLock(ctx context.Context, cheque *treasury.Cheque) error {
	result := r.db.WithContext(ctx).
		Model(cheque).
		Where("id = ? AND version = ?", cheque.ID, cheque.Version-1).
		Select("*").
		Updates(cheque)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormChequeRepository implements ChequeRepository
var _ treasury.ChequeRepository = (*GormChequeRepository)(nil)
