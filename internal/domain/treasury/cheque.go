package treasury

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/domain/shared/valueobject"
)

// ChequeOrigin indicates whether the instrument was received from a third
// party or issued by the company itself
type ChequeOrigin string

const (
	ChequeOriginReceived ChequeOrigin = "RECEIVED"
	ChequeOriginIssued   ChequeOrigin = "ISSUED"
)

// IsValid checks if the origin is a valid ChequeOrigin
func (o ChequeOrigin) IsValid() bool {
	switch o {
	case ChequeOriginReceived, ChequeOriginIssued:
		return true
	}
	return false
}

// ChequeKind distinguishes paper instruments from electronic ones (echeq)
type ChequeKind string

const (
	ChequeKindPhysical   ChequeKind = "PHYSICAL"
	ChequeKindElectronic ChequeKind = "ELECTRONIC"
)

// IsValid checks if the kind is a valid ChequeKind
func (k ChequeKind) IsValid() bool {
	switch k {
	case ChequeKindPhysical, ChequeKindElectronic:
		return true
	}
	return false
}

// DocumentClass is the tax/document classification of the instrument.
// Electronic cheques may only be issued as deferred-payment documents;
// the common (at-sight) class is reserved for physical instruments.
type DocumentClass string

const (
	DocumentClassCommon   DocumentClass = "COMMON"
	DocumentClassDeferred DocumentClass = "DEFERRED"
)

// IsValid checks if the class is a valid DocumentClass
func (d DocumentClass) IsValid() bool {
	switch d {
	case DocumentClassCommon, DocumentClassDeferred:
		return true
	}
	return false
}

// ChequeState represents the lifecycle state of a cheque
type ChequeState string

const (
	ChequeStateInPortfolio     ChequeState = "IN_PORTFOLIO"     // Held at a cash point
	ChequeStateDepositPending  ChequeState = "DEPOSIT_PENDING"  // Referenced by a PENDING deposit
	ChequeStateDeposited       ChequeState = "DEPOSITED"        // Deposit confirmed, awaiting clearing
	ChequeStateCleared         ChequeState = "CLEARED"          // Funds credited by the bank
	ChequeStateRejected        ChequeState = "REJECTED"         // Bounced by the bank
	ChequeStateVoid            ChequeState = "VOID"             // Administratively cancelled
)

// IsValid checks if the state is a valid ChequeState
func (s ChequeState) IsValid() bool {
	switch s {
	case ChequeStateInPortfolio, ChequeStateDepositPending, ChequeStateDeposited,
		ChequeStateCleared, ChequeStateRejected, ChequeStateVoid:
		return true
	}
	return false
}

// String returns the string representation of ChequeState
func (s ChequeState) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition is allowed from this state
func (s ChequeState) IsTerminal() bool {
	return s == ChequeStateCleared || s == ChequeStateRejected || s == ChequeStateVoid
}

// CanDeposit returns true if the cheque can be attached to a new deposit
func (s ChequeState) CanDeposit() bool {
	return s == ChequeStateInPortfolio
}

// CanBounce returns true if the bank can still report the cheque as bounced
func (s ChequeState) CanBounce() bool {
	return s == ChequeStateInPortfolio || s == ChequeStateDeposited
}

// Cheque represents a cheque aggregate root. Cheques are financial
// instruments: they are never physically deleted, only moved through
// their state machine.
type Cheque struct {
	shared.TenantAggregateRoot
	Origin             ChequeOrigin    `gorm:"type:varchar(20);not null"`
	Kind               ChequeKind      `gorm:"type:varchar(20);not null"`
	DocumentClass      DocumentClass   `gorm:"type:varchar(20);not null"`
	Number             string          `gorm:"type:varchar(50);not null;index:idx_cheque_bank_number,priority:2"`
	Bank               string          `gorm:"type:varchar(100);not null;index:idx_cheque_bank_number,priority:1"`
	Holder             string          `gorm:"type:varchar(200);not null"`
	Amount             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency           string          `gorm:"type:varchar(3);not null;default:'ARS'"`
	IssueDate          time.Time       `gorm:"not null"`
	DueDate            time.Time       `gorm:"not null"`
	State              ChequeState     `gorm:"type:varchar(20);not null;default:'IN_PORTFOLIO';index"`
	BankAccountID      *uuid.UUID      `gorm:"type:uuid"` // Drawee account for issued cheques
	CashAccountID      *uuid.UUID      `gorm:"type:uuid;index"` // Cash point holding the instrument
	DepositedAccountID *uuid.UUID      `gorm:"type:uuid"` // Bank account it was deposited into
	DepositID          *uuid.UUID      `gorm:"type:uuid;index"` // Open deposit referencing this cheque
	DepositDate        *time.Time
	VoidReason         string     `gorm:"type:varchar(500)"`
	VoidedBy           *uuid.UUID `gorm:"type:uuid"`
	VoidedAt           *time.Time
}

// TableName returns the table name for GORM
func (Cheque) TableName() string {
	return "cheques"
}

// NewChequeInput carries the attributes needed to record a cheque
type NewChequeInput struct {
	Origin        ChequeOrigin
	Kind          ChequeKind
	DocumentClass DocumentClass
	Number        string
	Bank          string
	Holder        string
	Amount        valueobject.Money
	IssueDate     time.Time
	DueDate       time.Time
	BankAccountID *uuid.UUID
	CashAccountID *uuid.UUID
}

// NewCheque records a new cheque in portfolio
func NewCheque(tenantID uuid.UUID, input NewChequeInput) (*Cheque, error) {
	if !input.Origin.IsValid() {
		return nil, shared.NewDomainError("INVALID_ORIGIN", "Cheque origin is not valid")
	}
	if !input.Kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Cheque kind is not valid")
	}
	if !input.DocumentClass.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_CLASS", "Document class is not valid")
	}
	if input.Kind == ChequeKindElectronic && input.DocumentClass != DocumentClassDeferred {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_CLASS",
			"Electronic cheques can only be recorded as deferred-payment documents")
	}
	if input.Number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Cheque number cannot be empty")
	}
	if input.Bank == "" {
		return nil, shared.NewDomainError("INVALID_BANK", "Bank name cannot be empty")
	}
	if input.Holder == "" {
		return nil, shared.NewDomainError("INVALID_HOLDER", "Holder name cannot be empty")
	}
	if input.Amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if input.IssueDate.IsZero() || input.DueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Issue date and due date are required")
	}
	if input.DueDate.Before(input.IssueDate) {
		return nil, shared.NewDomainError("INVALID_DATE", "Due date cannot precede issue date")
	}

	c := &Cheque{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Origin:              input.Origin,
		Kind:                input.Kind,
		DocumentClass:       input.DocumentClass,
		Number:              input.Number,
		Bank:                input.Bank,
		Holder:              input.Holder,
		Amount:              input.Amount.Amount(),
		Currency:            string(input.Amount.Currency()),
		IssueDate:           input.IssueDate,
		DueDate:             input.DueDate,
		State:               ChequeStateInPortfolio,
		BankAccountID:       input.BankAccountID,
		CashAccountID:       input.CashAccountID,
	}

	c.AddDomainEvent(NewChequeRecordedEvent(c))

	return c, nil
}

// AttachToDeposit moves the cheque into DEPOSIT_PENDING under the given
// deposit. Only the deposit orchestrator calls this.
func (c *Cheque) AttachToDeposit(depositID, bankAccountID uuid.UUID, depositDate time.Time) error {
	if !c.State.CanDeposit() {
		return shared.NewInvalidStateError("Cheque "+c.Number, c.State.String(), ChequeStateInPortfolio.String())
	}
	if c.DepositID != nil {
		return shared.NewDomainError("CHEQUE_ALREADY_DEPOSITED",
			fmt.Sprintf("Cheque %s is already referenced by deposit %s", c.Number, c.DepositID))
	}

	c.State = ChequeStateDepositPending
	c.DepositID = &depositID
	c.DepositedAccountID = &bankAccountID
	c.DepositDate = &depositDate
	c.touch()

	return nil
}

// ConfirmDeposit moves the cheque to DEPOSITED when its deposit is confirmed
func (c *Cheque) ConfirmDeposit() error {
	if c.State != ChequeStateDepositPending {
		return shared.NewInvalidStateError("Cheque "+c.Number, c.State.String(), ChequeStateDepositPending.String())
	}

	c.State = ChequeStateDeposited
	c.touch()

	return nil
}

// ReturnToPortfolio is the reversal path used when a deposit is rejected
func (c *Cheque) ReturnToPortfolio() error {
	if c.State != ChequeStateDepositPending {
		return shared.NewInvalidStateError("Cheque "+c.Number, c.State.String(), ChequeStateDepositPending.String())
	}

	c.State = ChequeStateInPortfolio
	c.DepositID = nil
	c.DepositedAccountID = nil
	c.DepositDate = nil
	c.touch()

	return nil
}

// Clear marks a deposited cheque as cleared by the bank. Terminal.
func (c *Cheque) Clear() error {
	if c.State != ChequeStateDeposited {
		return shared.NewInvalidStateError("Cheque "+c.Number, c.State.String(), ChequeStateDeposited.String())
	}

	c.State = ChequeStateCleared
	c.touch()
	c.AddDomainEvent(NewChequeClearedEvent(c))

	return nil
}

// Bounce records a bank-reported rejection. Terminal.
func (c *Cheque) Bounce() error {
	if !c.State.CanBounce() {
		return shared.NewInvalidStateError("Cheque "+c.Number, c.State.String(),
			ChequeStateInPortfolio.String()+" or "+ChequeStateDeposited.String())
	}

	c.State = ChequeStateRejected
	c.touch()
	c.AddDomainEvent(NewChequeBouncedEvent(c))

	return nil
}

// Void administratively cancels the cheque with a mandatory reason. Terminal.
// If the cheque had already posted a confirmed ledger movement, the caller is
// responsible for appending the compensating reversal movement.
func (c *Cheque) Void(voidedBy uuid.UUID, reason string) error {
	if c.State.IsTerminal() {
		return shared.NewInvalidStateError("Cheque "+c.Number, c.State.String(), "a non-terminal state")
	}
	if voidedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Voiding user ID is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Void reason is required")
	}

	previousState := c.State
	now := time.Now()
	c.State = ChequeStateVoid
	c.VoidReason = reason
	c.VoidedBy = &voidedBy
	c.VoidedAt = &now
	c.DepositID = nil
	c.touch()
	c.AddDomainEvent(NewChequeVoidedEvent(c, previousState))

	return nil
}

// GetAmountMoney returns the amount as a Money value object
func (c *Cheque) GetAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(c.Amount, valueobject.Currency(c.Currency))
	return m
}

// IsInPortfolio returns true if the cheque is currently held in portfolio
func (c *Cheque) IsInPortfolio() bool {
	return c.State == ChequeStateInPortfolio
}

func (c *Cheque) touch() {
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}
