package treasury

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tesoreria/backend/internal/domain/shared"
)

// DepositStatus represents the lifecycle status of a cash deposit
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "PENDING"
	DepositStatusConfirmed DepositStatus = "CONFIRMED"
	DepositStatusRejected  DepositStatus = "REJECTED"
)

// IsValid checks if the status is a valid DepositStatus
func (s DepositStatus) IsValid() bool {
	switch s {
	case DepositStatusPending, DepositStatusConfirmed, DepositStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of DepositStatus
func (s DepositStatus) String() string {
	return string(s)
}

// IsTerminal returns true when no further transition is allowed
func (s DepositStatus) IsTerminal() bool {
	return s == DepositStatusConfirmed || s == DepositStatusRejected
}

// DepositCheque is a child row linking a cheque into a deposit slip,
// with the cheque amount frozen at attach time.
type DepositCheque struct {
	shared.BaseEntity
	DepositID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ChequeID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_deposit_cheque"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (DepositCheque) TableName() string {
	return "cash_deposit_cheques"
}

// CashDeposit represents a deposit slip: cash and/or third-party cheques
// moved from a cash point to a bank account. While PENDING it carries a
// paired outbound (cash) and inbound (bank) PENDING movement; confirmation
// or rejection settles both legs and every attached cheque atomically.
type CashDeposit struct {
	shared.TenantAggregateRoot
	DepositNumber      string          `gorm:"type:varchar(30);not null;index:idx_deposit_number"`
	CashAccountID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	BankAccountID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	CashAmount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency           string          `gorm:"type:varchar(3);not null;default:'ARS'"`
	Status             DepositStatus   `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	DepositDate        time.Time       `gorm:"not null"`
	Reference          string          `gorm:"type:varchar(100)"`
	OutboundMovementID *uuid.UUID      `gorm:"type:uuid"`
	InboundMovementID  *uuid.UUID      `gorm:"type:uuid"`
	Cheques            []DepositCheque `gorm:"foreignKey:DepositID"`
	CreatedByUser      uuid.UUID       `gorm:"type:uuid;not null"`
	ConfirmedBy        *uuid.UUID      `gorm:"type:uuid"`
	ConfirmedAt        *time.Time
	RejectedBy         *uuid.UUID `gorm:"type:uuid"`
	RejectedAt         *time.Time
	RejectReason       string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (CashDeposit) TableName() string {
	return "cash_deposits"
}

// NewCashDepositInput carries the data to open a deposit slip
type NewCashDepositInput struct {
	DepositNumber string
	CashAccountID uuid.UUID
	BankAccountID uuid.UUID
	CashAmount    decimal.Decimal
	Currency      string
	DepositDate   time.Time
	Reference     string
	CreatedBy     uuid.UUID
}

// NewCashDeposit creates a PENDING deposit slip. Cheques are attached
// afterward; the slip must end up with a positive total before it can be
// persisted, which the application layer enforces.
func NewCashDeposit(tenantID uuid.UUID, input NewCashDepositInput) (*CashDeposit, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if strings.TrimSpace(input.DepositNumber) == "" {
		return nil, shared.NewDomainError("INVALID_DEPOSIT_NUMBER", "Deposit number cannot be empty")
	}
	if input.CashAccountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Cash account ID cannot be empty")
	}
	if input.BankAccountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Bank account ID cannot be empty")
	}
	if input.CashAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Cash amount cannot be negative")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Created by user cannot be empty")
	}
	if input.Currency == "" {
		input.Currency = "ARS"
	}
	if input.DepositDate.IsZero() {
		input.DepositDate = time.Now()
	}

	d := &CashDeposit{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		DepositNumber:       strings.TrimSpace(input.DepositNumber),
		CashAccountID:       input.CashAccountID,
		BankAccountID:       input.BankAccountID,
		CashAmount:          input.CashAmount,
		Currency:            input.Currency,
		Status:              DepositStatusPending,
		DepositDate:         input.DepositDate,
		Reference:           strings.TrimSpace(input.Reference),
		CreatedByUser:       input.CreatedBy,
	}
	d.CreatedBy = &input.CreatedBy

	d.AddDomainEvent(NewDepositCreatedEvent(d))

	return d, nil
}

// AttachCheque adds a cheque line to a PENDING deposit. The cheque's own
// state transition is handled by Cheque.AttachToDeposit.
func (d *CashDeposit) AttachCheque(chequeID uuid.UUID, amount decimal.Decimal) error {
	if d.Status != DepositStatusPending {
		return shared.NewInvalidStateError("Deposit", d.Status.String(), DepositStatusPending.String())
	}
	if chequeID == uuid.Nil {
		return shared.NewDomainError("INVALID_CHEQUE", "Cheque ID cannot be empty")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Cheque amount must be positive")
	}
	for _, c := range d.Cheques {
		if c.ChequeID == chequeID {
			return shared.NewDomainError("DUPLICATE_CHEQUE", "Cheque is already attached to this deposit")
		}
	}

	d.Cheques = append(d.Cheques, DepositCheque{
		BaseEntity: shared.NewBaseEntity(),
		DepositID:  d.ID,
		ChequeID:   chequeID,
		Amount:     amount,
	})
	d.UpdatedAt = time.Now()

	return nil
}

// LinkMovements records the paired PENDING ledger legs created for this slip
func (d *CashDeposit) LinkMovements(outboundID, inboundID uuid.UUID) {
	d.OutboundMovementID = &outboundID
	d.InboundMovementID = &inboundID
	d.UpdatedAt = time.Now()
}

// TotalAmount returns cash plus the sum of attached cheque amounts
func (d *CashDeposit) TotalAmount() decimal.Decimal {
	total := d.CashAmount
	for _, c := range d.Cheques {
		total = total.Add(c.Amount)
	}
	return total
}

// ChequeIDs returns the IDs of all attached cheques
func (d *CashDeposit) ChequeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(d.Cheques))
	for _, c := range d.Cheques {
		ids = append(ids, c.ChequeID)
	}
	return ids
}

// Confirm settles the slip as accepted by the bank
func (d *CashDeposit) Confirm(confirmedBy uuid.UUID) error {
	if d.Status != DepositStatusPending {
		return shared.NewInvalidStateError("Deposit", d.Status.String(), DepositStatusPending.String())
	}
	if confirmedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Confirmed by user cannot be empty")
	}

	now := time.Now()
	d.Status = DepositStatusConfirmed
	d.ConfirmedBy = &confirmedBy
	d.ConfirmedAt = &now
	d.UpdatedAt = now
	d.IncrementVersion()

	d.AddDomainEvent(NewDepositConfirmedEvent(d))

	return nil
}

// Reject settles the slip as refused by the bank, unwinding its effects
func (d *CashDeposit) Reject(rejectedBy uuid.UUID, reason string) error {
	if d.Status != DepositStatusPending {
		return shared.NewInvalidStateError("Deposit", d.Status.String(), DepositStatusPending.String())
	}
	if rejectedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Rejected by user cannot be empty")
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("INVALID_REASON", "Reject reason cannot be empty")
	}

	now := time.Now()
	d.Status = DepositStatusRejected
	d.RejectedBy = &rejectedBy
	d.RejectedAt = &now
	d.RejectReason = strings.TrimSpace(reason)
	d.UpdatedAt = now
	d.IncrementVersion()

	d.AddDomainEvent(NewDepositRejectedEvent(d))

	return nil
}
