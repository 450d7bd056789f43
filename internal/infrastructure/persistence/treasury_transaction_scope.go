package persistence

import (
	"context"

	apptreasury "github.com/tesoreria/backend/internal/application/treasury"
	"github.com/tesoreria/backend/internal/domain/treasury"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apptreasury.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// ChequeRepo returns the cheque repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ChequeRepo() treasury.ChequeRepository {
	return NewGormChequeRepository(r.tx)
}

// MovementRepo returns the ledger repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MovementRepo() treasury.MovementRepository {
	return NewGormMovementRepository(r.tx)
}

// DepositRepo returns the deposit repository scoped to the current transaction.
func (r *gormTransactionalRepositories) DepositRepo() treasury.DepositRepository {
	return NewGormDepositRepository(r.tx)
}

// ClosingRepo returns the closing repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ClosingRepo() treasury.ClosingRepository {
	return NewGormClosingRepository(r.tx)
}

// BankMovementRepo returns the statement line repository scoped to the current transaction.
func (r *gormTransactionalRepositories) BankMovementRepo() treasury.BankMovementRepository {
	return NewGormBankMovementRepository(r.tx)
}

// PaymentRepo returns the payment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PaymentRepo() treasury.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ apptreasury.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ apptreasury.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
