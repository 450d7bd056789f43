package treasury

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tesoreria/backend/internal/domain/shared"
)

// BankMovementDirection marks a statement line as credit or debit
type BankMovementDirection string

const (
	BankMovementCredit BankMovementDirection = "CREDIT"
	BankMovementDebit  BankMovementDirection = "DEBIT"
)

// IsValid checks if the direction is valid
func (d BankMovementDirection) IsValid() bool {
	return d == BankMovementCredit || d == BankMovementDebit
}

// ReconciliationStatus is the matching state of a statement line
type ReconciliationStatus string

const (
	ReconciliationStatusPending    ReconciliationStatus = "PENDING"
	ReconciliationStatusReconciled ReconciliationStatus = "RECONCILED"
	ReconciliationStatusIgnored    ReconciliationStatus = "IGNORED"
)

// IsValid checks if the status is valid
func (s ReconciliationStatus) IsValid() bool {
	switch s {
	case ReconciliationStatusPending, ReconciliationStatusReconciled, ReconciliationStatusIgnored:
		return true
	}
	return false
}

// String returns the string representation of ReconciliationStatus
func (s ReconciliationStatus) String() string {
	return string(s)
}

// BankMovement is one imported bank statement line awaiting reconciliation
// against an internal payment. Statement lines are facts from the bank and
// are never edited; reconciliation only annotates them.
type BankMovement struct {
	shared.TenantAggregateRoot
	BankAccountID    uuid.UUID             `gorm:"type:uuid;not null;index"`
	Date             time.Time             `gorm:"not null;index"`
	Description      string                `gorm:"type:varchar(500);not null"`
	Amount           decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Direction        BankMovementDirection `gorm:"type:varchar(10);not null"`
	Currency         string                `gorm:"type:varchar(3);not null;default:'ARS'"`
	BankReference    string                `gorm:"type:varchar(100);index"`
	Status           ReconciliationStatus  `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	MatchedPaymentID *uuid.UUID            `gorm:"type:uuid"`
	ReconciledBy     *uuid.UUID            `gorm:"type:uuid"`
	ReconciledAt     *time.Time
}

// TableName returns the table name for GORM
func (BankMovement) TableName() string {
	return "bank_movements"
}

// NewBankMovementInput carries one imported statement line
type NewBankMovementInput struct {
	BankAccountID uuid.UUID
	Date          time.Time
	Description   string
	Amount        decimal.Decimal
	Direction     BankMovementDirection
	Currency      string
	BankReference string
}

// NewBankMovement creates a PENDING statement line
func NewBankMovement(tenantID uuid.UUID, input NewBankMovementInput) (*BankMovement, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if input.BankAccountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Bank account ID cannot be empty")
	}
	if input.Date.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Movement date cannot be empty")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Movement description cannot be empty")
	}
	if !input.Amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Movement amount must be positive")
	}
	if !input.Direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Movement direction must be CREDIT or DEBIT")
	}
	if input.Currency == "" {
		input.Currency = "ARS"
	}

	return &BankMovement{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BankAccountID:       input.BankAccountID,
		Date:                input.Date,
		Description:         strings.TrimSpace(input.Description),
		Amount:              input.Amount,
		Direction:           input.Direction,
		Currency:            input.Currency,
		BankReference:       strings.TrimSpace(input.BankReference),
		Status:              ReconciliationStatusPending,
	}, nil
}

// SignedAmount returns the amount with sign: credits positive, debits negative
func (m *BankMovement) SignedAmount() decimal.Decimal {
	if m.Direction == BankMovementDebit {
		return m.Amount.Neg()
	}
	return m.Amount
}

// Reconcile marks the line as matched to an internal payment
func (m *BankMovement) Reconcile(paymentID, reconciledBy uuid.UUID) error {
	if m.Status != ReconciliationStatusPending {
		return shared.NewInvalidStateError("BankMovement", m.Status.String(), ReconciliationStatusPending.String())
	}
	if paymentID == uuid.Nil {
		return shared.NewDomainError("INVALID_PAYMENT", "Payment ID cannot be empty")
	}
	if reconciledBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Reconciled by user cannot be empty")
	}

	now := time.Now()
	m.Status = ReconciliationStatusReconciled
	m.MatchedPaymentID = &paymentID
	m.ReconciledBy = &reconciledBy
	m.ReconciledAt = &now
	m.UpdatedAt = now
	m.IncrementVersion()

	m.AddDomainEvent(NewBankMovementReconciledEvent(m, paymentID))

	return nil
}

// Ignore marks the line as deliberately excluded from reconciliation,
// used for bank fees and interest the organization books elsewhere.
func (m *BankMovement) Ignore(by uuid.UUID) error {
	if m.Status != ReconciliationStatusPending {
		return shared.NewInvalidStateError("BankMovement", m.Status.String(), ReconciliationStatusPending.String())
	}
	if by == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "User cannot be empty")
	}

	now := time.Now()
	m.Status = ReconciliationStatusIgnored
	m.ReconciledBy = &by
	m.ReconciledAt = &now
	m.UpdatedAt = now
	m.IncrementVersion()

	return nil
}

// Unreconcile reverts a matched line back to PENDING
func (m *BankMovement) Unreconcile() error {
	if m.Status != ReconciliationStatusReconciled {
		return shared.NewInvalidStateError("BankMovement", m.Status.String(), ReconciliationStatusReconciled.String())
	}

	m.Status = ReconciliationStatusPending
	m.MatchedPaymentID = nil
	m.ReconciledBy = nil
	m.ReconciledAt = nil
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	return nil
}

// ReconciliationPattern is a learned association between a normalized
// statement description and a counterparty. Hits accumulate each time a
// confirmed match repeats the pairing and feed a score boost on later
// suggestions.
type ReconciliationPattern struct {
	shared.BaseEntity
	TenantID              uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_pattern_tenant_desc,priority:1"`
	NormalizedDescription string    `gorm:"type:varchar(500);not null;uniqueIndex:idx_pattern_tenant_desc,priority:2"`
	CounterpartyID        uuid.UUID `gorm:"type:uuid;not null"`
	HitCount              int       `gorm:"not null;default:1"`
	LastMatchedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReconciliationPattern) TableName() string {
	return "reconciliation_patterns"
}

// NewReconciliationPattern records a first-seen description/counterparty pair
func NewReconciliationPattern(tenantID uuid.UUID, normalizedDescription string, counterpartyID uuid.UUID) *ReconciliationPattern {
	return &ReconciliationPattern{
		BaseEntity:            shared.NewBaseEntity(),
		TenantID:              tenantID,
		NormalizedDescription: normalizedDescription,
		CounterpartyID:        counterpartyID,
		HitCount:              1,
		LastMatchedAt:         time.Now(),
	}
}

// RecordHit bumps the pattern after another confirmed match
func (p *ReconciliationPattern) RecordHit() {
	p.HitCount++
	p.LastMatchedAt = time.Now()
	p.UpdatedAt = time.Now()
}
