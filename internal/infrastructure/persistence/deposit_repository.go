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

// GormDepositRepository implements DepositRepository using GORM
type GormDepositRepository struct {
	db *gorm.DB
}

// NewGormDepositRepository creates a new GormDepositRepository
func NewGormDepositRepository(db *gorm.DB) *GormDepositRepository {
	return &GormDepositRepository{db: db}
}

// FindByIDForTenant finds a deposit with its cheque lines preloaded
func (r *GormDepositRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*treasury.CashDeposit, error) {
	var deposit treasury.CashDeposit
	if err := r.db.WithContext(ctx).
		Preload("Cheques").
		First(&deposit, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &deposit, nil
}

// FindAllForTenant lists deposits with filtering and pagination
func (r *GormDepositRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter treasury.DepositFilter) ([]*treasury.CashDeposit, int64, error) {
	query := r.db.WithContext(ctx).Model(&treasury.CashDeposit{}).
		Where("tenant_id = ?", tenantID)

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CashAccountID != nil {
		query = query.Where("cash_account_id = ?", *filter.CashAccountID)
	}
	if filter.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *filter.BankAccountID)
	}
	if filter.DateFrom != nil {
		query = query.Where("deposit_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("deposit_date <= ?", *filter.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var deposits []*treasury.CashDeposit
	query = applySort(query, filter.Filter, DepositSortFields, "deposit_date")
	if err := applyPagination(query, filter.Filter).
		Preload("Cheques").
		Find(&deposits).Error; err != nil {
		return nil, 0, err
	}
	return deposits, total, nil
}

// ExistsPendingWithCheque reports whether any PENDING deposit already
// contains the given cheque.
func (r *GormDepositRepository) ExistsPendingWithCheque(ctx context.Context, tenantID, chequeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&treasury.DepositCheque{}).
		Joins("JOIN cash_deposits ON cash_deposits.id = cash_deposit_cheques.deposit_id").
		Where("cash_deposits.tenant_id = ? AND cash_deposit_cheques.cheque_id = ? AND cash_deposits.status = ?",
			tenantID, chequeID, treasury.DepositStatusPending).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a deposit together with its cheque lines
func (r *GormDepositRepository) Save(ctx context.Context, deposit *treasury.CashDeposit) error {
	return r.db.WithContext(ctx).Save(deposit).Error
}

// TransitionStatus persists a settle decision with a conditional update on
// the previous status. Concurrent settles race on the same row; the loser
// matches zero rows and gets shared.ErrInvalidState. The domain transition
// has already bumped the version, so the aggregate is written as is.
func (r *GormDepositRepository) TransitionStatus(ctx context.Context, deposit *treasury.CashDeposit, from treasury.DepositStatus) error {
	result := r.db.WithContext(ctx).
		Model(&treasury.CashDeposit{}).
		Where("id = ? AND tenant_id = ? AND status = ?", deposit.ID, deposit.TenantID, from).
		Updates(map[string]interface{}{
			"status":        deposit.Status,
			"confirmed_by":  deposit.ConfirmedBy,
			"confirmed_at":  deposit.ConfirmedAt,
			"rejected_by":   deposit.RejectedBy,
			"rejected_at":   deposit.RejectedAt,
			"reject_reason": deposit.RejectReason,
			"updated_at":    time.Now(),
			"version":       deposit.Version,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrInvalidState
	}
	return nil
}

// Ensure GormDepositRepository implements DepositRepository
var _ treasury.DepositRepository = (*GormDepositRepository)(nil)
