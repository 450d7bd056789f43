package treasury

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tesoreria/backend/internal/domain/shared"
)

// ChequeRecordedEvent is raised when a new cheque is recorded
type ChequeRecordedEvent struct {
	shared.BaseDomainEvent
	ChequeID uuid.UUID       `json:"cheque_id"`
	Number   string          `json:"number"`
	Bank     string          `json:"bank"`
	Origin   ChequeOrigin    `json:"origin"`
	Kind     ChequeKind      `json:"kind"`
	Amount   decimal.Decimal `json:"amount"`
	DueDate  time.Time       `json:"due_date"`
}

// EventType returns the event type name
func (e *ChequeRecordedEvent) EventType() string {
	return "ChequeRecorded"
}

// NewChequeRecordedEvent creates a new ChequeRecordedEvent
func NewChequeRecordedEvent(c *Cheque) *ChequeRecordedEvent {
	return &ChequeRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ChequeRecorded", "Cheque", c.ID, c.TenantID),
		ChequeID:        c.ID,
		Number:          c.Number,
		Bank:            c.Bank,
		Origin:          c.Origin,
		Kind:            c.Kind,
		Amount:          c.Amount,
		DueDate:         c.DueDate,
	}
}

// ChequeClearedEvent is raised when a deposited cheque clears at the bank
type ChequeClearedEvent struct {
	shared.BaseDomainEvent
	ChequeID uuid.UUID       `json:"cheque_id"`
	Number   string          `json:"number"`
	Amount   decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *ChequeClearedEvent) EventType() string {
	return "ChequeCleared"
}

// NewChequeClearedEvent creates a new ChequeClearedEvent
func NewChequeClearedEvent(c *Cheque) *ChequeClearedEvent {
	return &ChequeClearedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ChequeCleared", "Cheque", c.ID, c.TenantID),
		ChequeID:        c.ID,
		Number:          c.Number,
		Amount:          c.Amount,
	}
}

// ChequeBouncedEvent is raised when the bank reports a cheque as bounced
type ChequeBouncedEvent struct {
	shared.BaseDomainEvent
	ChequeID uuid.UUID       `json:"cheque_id"`
	Number   string          `json:"number"`
	Bank     string          `json:"bank"`
	Amount   decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *ChequeBouncedEvent) EventType() string {
	return "ChequeBounced"
}

// NewChequeBouncedEvent creates a new ChequeBouncedEvent
func NewChequeBouncedEvent(c *Cheque) *ChequeBouncedEvent {
	return &ChequeBouncedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ChequeBounced", "Cheque", c.ID, c.TenantID),
		ChequeID:        c.ID,
		Number:          c.Number,
		Bank:            c.Bank,
		Amount:          c.Amount,
	}
}

// ChequeVoidedEvent is raised when a cheque is administratively cancelled
type ChequeVoidedEvent struct {
	shared.BaseDomainEvent
	ChequeID      uuid.UUID   `json:"cheque_id"`
	Number        string      `json:"number"`
	PreviousState ChequeState `json:"previous_state"`
	Reason        string      `json:"reason"`
}

// EventType returns the event type name
func (e *ChequeVoidedEvent) EventType() string {
	return "ChequeVoided"
}

// NewChequeVoidedEvent creates a new ChequeVoidedEvent
func NewChequeVoidedEvent(c *Cheque, previousState ChequeState) *ChequeVoidedEvent {
	return &ChequeVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ChequeVoided", "Cheque", c.ID, c.TenantID),
		ChequeID:        c.ID,
		Number:          c.Number,
		PreviousState:   previousState,
		Reason:          c.VoidReason,
	}
}

// DepositCreatedEvent is raised when a cash deposit is created
type DepositCreatedEvent struct {
	shared.BaseDomainEvent
	DepositID     uuid.UUID       `json:"deposit_id"`
	DepositNumber string          `json:"deposit_number"`
	CashAccountID uuid.UUID       `json:"cash_account_id"`
	BankAccountID uuid.UUID       `json:"bank_account_id"`
	CashAmount    decimal.Decimal `json:"cash_amount"`
	ChequeCount   int             `json:"cheque_count"`
}

// EventType returns the event type name
func (e *DepositCreatedEvent) EventType() string {
	return "DepositCreated"
}

// NewDepositCreatedEvent creates a new DepositCreatedEvent
func NewDepositCreatedEvent(d *CashDeposit) *DepositCreatedEvent {
	return &DepositCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("DepositCreated", "CashDeposit", d.ID, d.TenantID),
		DepositID:       d.ID,
		DepositNumber:   d.DepositNumber,
		CashAccountID:   d.CashAccountID,
		BankAccountID:   d.BankAccountID,
		CashAmount:      d.CashAmount,
		ChequeCount:     len(d.Cheques),
	}
}

// DepositConfirmedEvent is raised when a cash deposit is confirmed
type DepositConfirmedEvent struct {
	shared.BaseDomainEvent
	DepositID     uuid.UUID       `json:"deposit_id"`
	DepositNumber string          `json:"deposit_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ConfirmedBy   uuid.UUID       `json:"confirmed_by"`
	ConfirmedAt   time.Time       `json:"confirmed_at"`
}

// EventType returns the event type name
func (e *DepositConfirmedEvent) EventType() string {
	return "DepositConfirmed"
}

// NewDepositConfirmedEvent creates a new DepositConfirmedEvent
func NewDepositConfirmedEvent(d *CashDeposit) *DepositConfirmedEvent {
	var confirmedBy uuid.UUID
	confirmedAt := time.Now()
	if d.ConfirmedBy != nil {
		confirmedBy = *d.ConfirmedBy
	}
	if d.ConfirmedAt != nil {
		confirmedAt = *d.ConfirmedAt
	}
	return &DepositConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("DepositConfirmed", "CashDeposit", d.ID, d.TenantID),
		DepositID:       d.ID,
		DepositNumber:   d.DepositNumber,
		TotalAmount:     d.TotalAmount(),
		ConfirmedBy:     confirmedBy,
		ConfirmedAt:     confirmedAt,
	}
}

// DepositRejectedEvent is raised when a cash deposit is rejected
type DepositRejectedEvent struct {
	shared.BaseDomainEvent
	DepositID     uuid.UUID `json:"deposit_id"`
	DepositNumber string    `json:"deposit_number"`
	Reason        string    `json:"reason"`
}

// EventType returns the event type name
func (e *DepositRejectedEvent) EventType() string {
	return "DepositRejected"
}

// NewDepositRejectedEvent creates a new DepositRejectedEvent
func NewDepositRejectedEvent(d *CashDeposit) *DepositRejectedEvent {
	return &DepositRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("DepositRejected", "CashDeposit", d.ID, d.TenantID),
		DepositID:       d.ID,
		DepositNumber:   d.DepositNumber,
		Reason:          d.RejectReason,
	}
}

// ClosingCreatedEvent is raised when a cash closing is recorded
type ClosingCreatedEvent struct {
	shared.BaseDomainEvent
	ClosingID     uuid.UUID       `json:"closing_id"`
	CashAccountID uuid.UUID       `json:"cash_account_id"`
	Date          time.Time       `json:"date"`
	Discrepancy   decimal.Decimal `json:"discrepancy"`
	State         ClosingState    `json:"state"`
}

// EventType returns the event type name
func (e *ClosingCreatedEvent) EventType() string {
	return "ClosingCreated"
}

// NewClosingCreatedEvent creates a new ClosingCreatedEvent
func NewClosingCreatedEvent(c *CashClosing) *ClosingCreatedEvent {
	return &ClosingCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ClosingCreated", "CashClosing", c.ID, c.TenantID),
		ClosingID:       c.ID,
		CashAccountID:   c.CashAccountID,
		Date:            c.Date,
		Discrepancy:     c.Discrepancy,
		State:           c.State,
	}
}

// BankMovementReconciledEvent is raised when a bank movement is matched
// against an internal payment
type BankMovementReconciledEvent struct {
	shared.BaseDomainEvent
	BankMovementID uuid.UUID       `json:"bank_movement_id"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	Amount         decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *BankMovementReconciledEvent) EventType() string {
	return "BankMovementReconciled"
}

// NewBankMovementReconciledEvent creates a new BankMovementReconciledEvent
func NewBankMovementReconciledEvent(m *BankMovement, paymentID uuid.UUID) *BankMovementReconciledEvent {
	return &BankMovementReconciledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BankMovementReconciled", "BankMovement", m.ID, m.TenantID),
		BankMovementID:  m.ID,
		PaymentID:       paymentID,
		Amount:          m.SignedAmount(),
	}
}
