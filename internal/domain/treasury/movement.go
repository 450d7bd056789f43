package treasury

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tesoreria/backend/internal/domain/shared"
)

// AccountType distinguishes cash points from bank accounts
type AccountType string

const (
	AccountTypeCash AccountType = "CASH"
	AccountTypeBank AccountType = "BANK"
)

// IsValid checks if the account type is valid
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeCash, AccountTypeBank:
		return true
	}
	return false
}

// MovementStatus represents the status of a treasury movement
type MovementStatus string

const (
	MovementStatusPending   MovementStatus = "PENDING"
	MovementStatusConfirmed MovementStatus = "CONFIRMED"
	MovementStatusReversed  MovementStatus = "REVERSED"
)

// IsValid checks if the status is a valid MovementStatus
func (s MovementStatus) IsValid() bool {
	switch s {
	case MovementStatusPending, MovementStatusConfirmed, MovementStatusReversed:
		return true
	}
	return false
}

// String returns the string representation of MovementStatus
func (s MovementStatus) String() string {
	return string(s)
}

// RelatedEntityType identifies the business document a movement belongs to
type RelatedEntityType string

const (
	RelatedEntityCashDeposit RelatedEntityType = "CASH_DEPOSIT"
	RelatedEntityCheque      RelatedEntityType = "CHEQUE"
	RelatedEntityCashClosing RelatedEntityType = "CASH_CLOSING"
	RelatedEntityPayment     RelatedEntityType = "PAYMENT"
	RelatedEntityManual      RelatedEntityType = "MANUAL"
)

// TreasuryMovement represents one money movement on a cash or bank account.
// The ledger is append-mostly: a movement is never edited once CONFIRMED,
// corrections happen by appending a compensating movement and marking the
// original REVERSED. The signed sum of CONFIRMED movements for an account is
// that account's derived balance.
type TreasuryMovement struct {
	shared.TenantAggregateRoot
	AccountType       AccountType       `gorm:"type:varchar(10);not null;index:idx_movement_account,priority:1"`
	AccountID         uuid.UUID         `gorm:"type:uuid;not null;index:idx_movement_account,priority:2"`
	Amount            decimal.Decimal   `gorm:"type:decimal(18,4);not null"` // Signed: inflow positive, outflow negative
	Currency          string            `gorm:"type:varchar(3);not null;default:'ARS'"`
	Status            MovementStatus    `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	RelatedEntityType RelatedEntityType `gorm:"type:varchar(30);not null;index:idx_movement_related,priority:1"`
	RelatedEntityID   uuid.UUID         `gorm:"type:uuid;not null;index:idx_movement_related,priority:2"`
	Date              time.Time         `gorm:"not null;index"`
	Description       string            `gorm:"type:varchar(500)"`
	ReversedAt        *time.Time
}

// TableName returns the table name for GORM
func (TreasuryMovement) TableName() string {
	return "treasury_movements"
}

// NewTreasuryMovement creates a new PENDING movement
func NewTreasuryMovement(
	tenantID uuid.UUID,
	accountType AccountType,
	accountID uuid.UUID,
	amount decimal.Decimal,
	currency string,
	relatedType RelatedEntityType,
	relatedID uuid.UUID,
	date time.Time,
	description string,
) (*TreasuryMovement, error) {
	if !accountType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_TYPE", "Account type is not valid")
	}
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if amount.IsZero() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Movement amount cannot be zero")
	}
	if currency == "" {
		currency = "ARS"
	}
	if date.IsZero() {
		date = time.Now()
	}

	return &TreasuryMovement{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AccountType:         accountType,
		AccountID:           accountID,
		Amount:              amount,
		Currency:            currency,
		Status:              MovementStatusPending,
		RelatedEntityType:   relatedType,
		RelatedEntityID:     relatedID,
		Date:                date,
		Description:         description,
	}, nil
}

// NewConfirmedMovement creates a movement that is CONFIRMED on creation,
// used for compensating reversals and direct postings.
func NewConfirmedMovement(
	tenantID uuid.UUID,
	accountType AccountType,
	accountID uuid.UUID,
	amount decimal.Decimal,
	currency string,
	relatedType RelatedEntityType,
	relatedID uuid.UUID,
	date time.Time,
	description string,
) (*TreasuryMovement, error) {
	m, err := NewTreasuryMovement(tenantID, accountType, accountID, amount, currency, relatedType, relatedID, date, description)
	if err != nil {
		return nil, err
	}
	m.Status = MovementStatusConfirmed
	return m, nil
}

// Confirm transitions the movement PENDING -> CONFIRMED
func (m *TreasuryMovement) Confirm() error {
	if m.Status != MovementStatusPending {
		return shared.NewInvalidStateError("Movement", m.Status.String(), MovementStatusPending.String())
	}

	m.Status = MovementStatusConfirmed
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	return nil
}

// Reverse transitions the movement to REVERSED. Allowed from PENDING and
// from CONFIRMED; never backward from REVERSED.
func (m *TreasuryMovement) Reverse() error {
	if m.Status == MovementStatusReversed {
		return shared.NewInvalidStateError("Movement", m.Status.String(),
			MovementStatusPending.String()+" or "+MovementStatusConfirmed.String())
	}

	now := time.Now()
	m.Status = MovementStatusReversed
	m.ReversedAt = &now
	m.UpdatedAt = now
	m.IncrementVersion()

	return nil
}

// IsInflow returns true when the movement credits the account
func (m *TreasuryMovement) IsInflow() bool {
	return m.Amount.IsPositive()
}
