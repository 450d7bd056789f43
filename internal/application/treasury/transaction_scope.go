package treasury

import (
	"context"

	"github.com/tesoreria/backend/internal/domain/treasury"
)

// TransactionScope provides transactional access to treasury repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically. Settling a deposit flips the deposit row, both ledger
// movements and every attached cheque, so partial flips must be impossible.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the treasury repositories
// within a transaction. All repositories returned share the same underlying
// database transaction.
type TransactionalRepositories interface {
	// ChequeRepo returns the cheque repository scoped to the current transaction
	ChequeRepo() treasury.ChequeRepository
	// MovementRepo returns the ledger repository scoped to the current transaction
	MovementRepo() treasury.MovementRepository
	// DepositRepo returns the deposit repository scoped to the current transaction
	DepositRepo() treasury.DepositRepository
	// ClosingRepo returns the closing repository scoped to the current transaction
	ClosingRepo() treasury.ClosingRepository
	// BankMovementRepo returns the statement line repository scoped to the current transaction
	BankMovementRepo() treasury.BankMovementRepository
	// PaymentRepo returns the payment repository scoped to the current transaction
	PaymentRepo() treasury.PaymentRepository
}

// NoOpTransactionScope runs the function without a real transaction.
// Useful in tests where the backing store is already a single connection.
type NoOpTransactionScope struct {
	chequeRepo       treasury.ChequeRepository
	movementRepo     treasury.MovementRepository
	depositRepo      treasury.DepositRepository
	closingRepo      treasury.ClosingRepository
	bankMovementRepo treasury.BankMovementRepository
	paymentRepo      treasury.PaymentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories
func NewNoOpTransactionScope(
	chequeRepo treasury.ChequeRepository,
	movementRepo treasury.MovementRepository,
	depositRepo treasury.DepositRepository,
	closingRepo treasury.ClosingRepository,
	bankMovementRepo treasury.BankMovementRepository,
	paymentRepo treasury.PaymentRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		chequeRepo:       chequeRepo,
		movementRepo:     movementRepo,
		depositRepo:      depositRepo,
		closingRepo:      closingRepo,
		bankMovementRepo: bankMovementRepo,
		paymentRepo:      paymentRepo,
	}
}

// Execute runs the function directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ChequeRepo returns the cheque repository
func (s *NoOpTransactionScope) ChequeRepo() treasury.ChequeRepository { return s.chequeRepo }

// MovementRepo returns the ledger repository
func (s *NoOpTransactionScope) MovementRepo() treasury.MovementRepository { return s.movementRepo }

// DepositRepo returns the deposit repository
func (s *NoOpTransactionScope) DepositRepo() treasury.DepositRepository { return s.depositRepo }

// ClosingRepo returns the closing repository
func (s *NoOpTransactionScope) ClosingRepo() treasury.ClosingRepository { return s.closingRepo }

// BankMovementRepo returns the statement line repository
func (s *NoOpTransactionScope) BankMovementRepo() treasury.BankMovementRepository {
	return s.bankMovementRepo
}

// PaymentRepo returns the payment repository
func (s *NoOpTransactionScope) PaymentRepo() treasury.PaymentRepository { return s.paymentRepo }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
