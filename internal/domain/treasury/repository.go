package treasury

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tesoreria/backend/internal/domain/shared"
)

// ChequeFilter narrows cheque listings
type ChequeFilter struct {
	shared.Filter
	State  *ChequeState
	Origin *ChequeOrigin
	Bank   string
}

// ChequeRepository defines the interface for cheque persistence
type ChequeRepository interface {
	// FindByIDForTenant finds a cheque by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Cheque, error)

	// FindByIDsForTenant finds multiple cheques by their IDs
	FindByIDsForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Cheque, error)

	// FindByNumber finds a cheque by bank and number within a tenant
	FindByNumber(ctx context.Context, tenantID uuid.UUID, bank, number string) (*Cheque, error)

	// FindAllForTenant lists cheques matching the filter
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ChequeFilter) ([]*Cheque, int64, error)

	// SumInPortfolioByCashAccount sums cheque amounts currently held at a cash point
	SumInPortfolioByCashAccount(ctx context.Context, tenantID, cashAccountID uuid.UUID, asOf time.Time) (decimal.Decimal, error)

	// Save creates or updates a cheque
	Save(ctx context.Context, cheque *Cheque) error

	// SaveWithLock updates a cheque with an optimistic version check
	SaveWithLock(ctx context.Context, cheque *Cheque) error
}

// MovementRepository defines the interface for treasury movement persistence
type MovementRepository interface {
	// FindByIDForTenant finds a movement by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*TreasuryMovement, error)

	// FindByRelatedEntity finds the movements attached to a business document
	FindByRelatedEntity(ctx context.Context, tenantID uuid.UUID, entityType RelatedEntityType, entityID uuid.UUID) ([]*TreasuryMovement, error)

	// FindAllForAccount lists movements for one account
	FindAllForAccount(ctx context.Context, tenantID uuid.UUID, accountType AccountType, accountID uuid.UUID, filter shared.Filter) ([]*TreasuryMovement, int64, error)

	// SumConfirmedForAccount returns the signed sum of CONFIRMED movements
	// dated on or before asOf, which is the account's derived balance.
	SumConfirmedForAccount(ctx context.Context, tenantID uuid.UUID, accountType AccountType, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error)

	// Save creates or updates a movement
	Save(ctx context.Context, movement *TreasuryMovement) error
}

// DepositFilter narrows deposit listings
type DepositFilter struct {
	shared.Filter
	Status        *DepositStatus
	CashAccountID *uuid.UUID
	BankAccountID *uuid.UUID
	DateFrom      *time.Time
	DateTo        *time.Time
}

// DepositRepository defines the interface for cash deposit persistence
type DepositRepository interface {
	// FindByIDForTenant finds a deposit with its cheque lines preloaded
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*CashDeposit, error)

	// FindAllForTenant lists deposits matching the filter
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter DepositFilter) ([]*CashDeposit, int64, error)

	// ExistsPendingWithCheque reports whether any PENDING deposit already
	// references the cheque.
	ExistsPendingWithCheque(ctx context.Context, tenantID, chequeID uuid.UUID) (bool, error)

	// Save creates or updates a deposit and its cheque lines
	Save(ctx context.Context, deposit *CashDeposit) error

	// TransitionStatus atomically moves a deposit out of the expected
	// status. Returns shared.ErrInvalidState when the row was no longer in
	// that status, which serializes concurrent settle attempts.
	TransitionStatus(ctx context.Context, deposit *CashDeposit, from DepositStatus) error
}

// ClosingRepository defines the interface for cash closing persistence
type ClosingRepository interface {
	// FindByIDForTenant finds a closing by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*CashClosing, error)

	// FindByAccountAndDate finds the closing for an account and calendar date
	FindByAccountAndDate(ctx context.Context, tenantID, cashAccountID uuid.UUID, date time.Time) (*CashClosing, error)

	// FindAllForAccount lists closings for a cash account, newest first
	FindAllForAccount(ctx context.Context, tenantID, cashAccountID uuid.UUID, filter shared.Filter) ([]*CashClosing, int64, error)

	// Save persists a closing; the unique (account, date) index makes a
	// duplicate insert fail.
	Save(ctx context.Context, closing *CashClosing) error
}

// BankMovementFilter narrows statement line listings
type BankMovementFilter struct {
	shared.Filter
	BankAccountID *uuid.UUID
	Status        *ReconciliationStatus
	Direction     *BankMovementDirection
	DateFrom      *time.Time
	DateTo        *time.Time
}

// BankMovementRepository defines the interface for bank statement persistence
type BankMovementRepository interface {
	// FindByIDForTenant finds a statement line by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*BankMovement, error)

	// FindPending lists unreconciled lines, optionally for one bank account
	FindPending(ctx context.Context, tenantID uuid.UUID, bankAccountID *uuid.UUID) ([]*BankMovement, error)

	// FindAllForTenant lists statement lines matching the filter
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter BankMovementFilter) ([]*BankMovement, int64, error)

	// Save creates or updates a statement line
	Save(ctx context.Context, movement *BankMovement) error

	// SaveWithLock updates a statement line with an optimistic version check
	SaveWithLock(ctx context.Context, movement *BankMovement) error
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByIDForTenant finds a payment by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)

	// FindCandidates lists unreconciled payments dated within [from, to],
	// optionally restricted to one bank account.
	FindCandidates(ctx context.Context, tenantID uuid.UUID, bankAccountID *uuid.UUID, from, to time.Time) ([]*Payment, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error
}

// PatternRepository defines the interface for learned pattern persistence
type PatternRepository interface {
	// LoadForTenant loads the whole pattern map for one tenant
	LoadForTenant(ctx context.Context, tenantID uuid.UUID) (PatternMap, error)

	// Upsert associates a normalized description with a counterparty,
	// bumping the hit count when the pair already exists and overwriting
	// the counterparty when the key points elsewhere.
	Upsert(ctx context.Context, tenantID uuid.UUID, normalizedDescription string, counterpartyID uuid.UUID) error
}
