package treasury

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tesoreria/backend/internal/domain/shared"
)

// ClosingState classifies a cash closing by its discrepancy
type ClosingState string

const (
	ClosingStateBalanced       ClosingState = "BALANCED"
	ClosingStateWithDifference ClosingState = "WITH_DIFFERENCE"
)

// IsValid checks if the state is a valid ClosingState
func (s ClosingState) IsValid() bool {
	switch s {
	case ClosingStateBalanced, ClosingStateWithDifference:
		return true
	}
	return false
}

// String returns the string representation of ClosingState
func (s ClosingState) String() string {
	return string(s)
}

// CashClosing is the end-of-day count for a cash account, split into cash
// and cheques held at the cash point. At most one closing exists per
// account and calendar date. The record is immutable once written; a wrong
// count is corrected operationally, not by editing the closing.
type CashClosing struct {
	shared.TenantAggregateRoot
	CashAccountID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_closing_account_date,priority:1"`
	Date           time.Time       `gorm:"type:date;not null;uniqueIndex:idx_closing_account_date,priority:2"`
	SystemCash     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SystemCheques  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CountedCash    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CountedCheques decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discrepancy    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	State          ClosingState    `gorm:"type:varchar(20);not null"`
	Notes          string          `gorm:"type:varchar(1000)"`
	ClosedBy       uuid.UUID       `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (CashClosing) TableName() string {
	return "cash_closings"
}

// NewCashClosingInput carries the data to record a closing
type NewCashClosingInput struct {
	CashAccountID  uuid.UUID
	Date           time.Time
	SystemCash     decimal.Decimal
	SystemCheques  decimal.Decimal
	CountedCash    decimal.Decimal
	CountedCheques decimal.Decimal
	Notes          string
	ClosedBy       uuid.UUID
}

// NewCashClosing creates a closing, deriving discrepancy and state.
// Discrepancy is counted total minus system total: positive means surplus
// in the drawer, negative means shortage.
func NewCashClosing(tenantID uuid.UUID, input NewCashClosingInput) (*CashClosing, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if input.CashAccountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Cash account ID cannot be empty")
	}
	if input.Date.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Closing date cannot be empty")
	}
	if input.CountedCash.IsNegative() || input.CountedCheques.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Counted amounts cannot be negative")
	}
	if input.ClosedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Closed by user cannot be empty")
	}

	discrepancy := computeDiscrepancy(input.SystemCash, input.SystemCheques, input.CountedCash, input.CountedCheques)

	c := &CashClosing{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		CashAccountID:       input.CashAccountID,
		Date:                normalizeClosingDate(input.Date),
		SystemCash:          input.SystemCash,
		SystemCheques:       input.SystemCheques,
		CountedCash:         input.CountedCash,
		CountedCheques:      input.CountedCheques,
		Discrepancy:         discrepancy,
		State:               closingStateFor(discrepancy),
		Notes:               strings.TrimSpace(input.Notes),
		ClosedBy:            input.ClosedBy,
	}
	c.CreatedBy = &input.ClosedBy

	c.AddDomainEvent(NewClosingCreatedEvent(c))

	return c, nil
}

// CountedTotal returns counted cash plus counted cheques
func (c *CashClosing) CountedTotal() decimal.Decimal {
	return c.CountedCash.Add(c.CountedCheques)
}

// SystemTotal returns system cash plus system cheques
func (c *CashClosing) SystemTotal() decimal.Decimal {
	return c.SystemCash.Add(c.SystemCheques)
}

// IsBalanced returns true when the count matched the system balance exactly
func (c *CashClosing) IsBalanced() bool {
	return c.State == ClosingStateBalanced
}

// Summary renders a short operator-readable verdict for the closing
func (c *CashClosing) Summary() string {
	if c.IsBalanced() {
		return "Cash closing balanced: counted " + c.CountedTotal().StringFixed(2) +
			" matches system balance"
	}
	return "Cash closing with difference: counted " + c.CountedTotal().StringFixed(2) +
		" vs system " + c.SystemTotal().StringFixed(2) +
		", discrepancy " + c.Discrepancy.StringFixed(2)
}

func computeDiscrepancy(systemCash, systemCheques, countedCash, countedCheques decimal.Decimal) decimal.Decimal {
	return countedCash.Add(countedCheques).Sub(systemCash.Add(systemCheques))
}

func closingStateFor(discrepancy decimal.Decimal) ClosingState {
	if discrepancy.IsZero() {
		return ClosingStateBalanced
	}
	return ClosingStateWithDifference
}

// normalizeClosingDate truncates to the calendar day in UTC so the unique
// index on (account, date) compares dates, not instants.
func normalizeClosingDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ClosingPreview is the computed system balance for a cash account as of a
// date, before any count is recorded.
type ClosingPreview struct {
	CashAccountID uuid.UUID       `json:"cash_account_id"`
	Date          time.Time       `json:"date"`
	SystemCash    decimal.Decimal `json:"system_cash"`
	SystemCheques decimal.Decimal `json:"system_cheques"`
	SystemTotal   decimal.Decimal `json:"system_total"`
}

// NewClosingPreview builds a preview from the computed system balances
func NewClosingPreview(accountID uuid.UUID, date time.Time, systemCash, systemCheques decimal.Decimal) ClosingPreview {
	return ClosingPreview{
		CashAccountID: accountID,
		Date:          normalizeClosingDate(date),
		SystemCash:    systemCash,
		SystemCheques: systemCheques,
		SystemTotal:   systemCash.Add(systemCheques),
	}
}
