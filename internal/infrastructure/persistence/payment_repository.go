package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tesoreria/backend/internal/domain/treasury"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByIDForTenant finds a payment by ID for a specific tenant
func (r *GormPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*treasury.Payment, error) {
	var payment treasury.Payment
	if err := r.db.WithContext(ctx).
		First(&payment, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// FindCandidates returns unreconciled payments inside a date window.
// A nil bankAccountID spans all accounts.
func (r *GormPaymentRepository) FindCandidates(ctx context.Context, tenantID uuid.UUID, bankAccountID *uuid.UUID, from, to time.Time) ([]*treasury.Payment, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND reconciled = ? AND date >= ? AND date <= ?", tenantID, false, from, to)
	if bankAccountID != nil {
		query = query.Where("bank_account_id = ?", *bankAccountID)
	}

	var payments []*treasury.Payment
	if err := query.Order("date ASC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *treasury.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ treasury.PaymentRepository = (*GormPaymentRepository)(nil)
