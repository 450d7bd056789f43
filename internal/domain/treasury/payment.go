package treasury

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tesoreria/backend/internal/domain/shared"
)

// PaymentDirection marks a payment as incoming (collection) or outgoing
type PaymentDirection string

const (
	PaymentIncoming PaymentDirection = "INCOMING"
	PaymentOutgoing PaymentDirection = "OUTGOING"
)

// IsValid checks if the direction is valid
func (d PaymentDirection) IsValid() bool {
	return d == PaymentIncoming || d == PaymentOutgoing
}

// Payment is an internal payment record used as a reconciliation candidate
// for bank statement lines. Reconciliation never mutates the payment; it
// only flips the Reconciled flag once a statement line is matched to it.
type Payment struct {
	shared.TenantAggregateRoot
	BankAccountID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	CounterpartyID   uuid.UUID        `gorm:"type:uuid;not null;index"`
	CounterpartyName string           `gorm:"type:varchar(200);not null"`
	Direction        PaymentDirection `gorm:"type:varchar(10);not null"`
	Amount           decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Currency         string           `gorm:"type:varchar(3);not null;default:'ARS'"`
	Date             time.Time        `gorm:"not null;index"`
	Reference        string           `gorm:"type:varchar(100)"`
	Reconciled       bool             `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPaymentInput carries the data to register a payment
type NewPaymentInput struct {
	BankAccountID    uuid.UUID
	CounterpartyID   uuid.UUID
	CounterpartyName string
	Direction        PaymentDirection
	Amount           decimal.Decimal
	Currency         string
	Date             time.Time
	Reference        string
}

// NewPayment creates an unreconciled payment record
func NewPayment(tenantID uuid.UUID, input NewPaymentInput) (*Payment, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if input.BankAccountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Bank account ID cannot be empty")
	}
	if input.CounterpartyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty ID cannot be empty")
	}
	if strings.TrimSpace(input.CounterpartyName) == "" {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty name cannot be empty")
	}
	if !input.Direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Payment direction must be INCOMING or OUTGOING")
	}
	if !input.Amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if input.Date.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Payment date cannot be empty")
	}
	if input.Currency == "" {
		input.Currency = "ARS"
	}

	return &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BankAccountID:       input.BankAccountID,
		CounterpartyID:      input.CounterpartyID,
		CounterpartyName:    strings.TrimSpace(input.CounterpartyName),
		Direction:           input.Direction,
		Amount:              input.Amount,
		Currency:            input.Currency,
		Date:                input.Date,
		Reference:           strings.TrimSpace(input.Reference),
	}, nil
}

// MarkReconciled flags the payment as matched to a statement line
func (p *Payment) MarkReconciled() error {
	if p.Reconciled {
		return shared.NewDomainError("ALREADY_RECONCILED", "Payment is already reconciled")
	}
	p.Reconciled = true
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// MarkUnreconciled reverts the flag when a match is undone
func (p *Payment) MarkUnreconciled() {
	p.Reconciled = false
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}
