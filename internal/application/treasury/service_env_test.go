package treasury_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	treasuryapp "github.com/tesoreria/backend/internal/application/treasury"
	"github.com/tesoreria/backend/internal/domain/shared/valueobject"
	"github.com/tesoreria/backend/internal/domain/treasury"
	"github.com/tesoreria/backend/internal/infrastructure/persistence"
)

// serviceEnv wires the application services over an in-memory database so
// service tests exercise the real repositories and transaction scope.
type serviceEnv struct {
	db             *gorm.DB
	chequeRepo     *persistence.GormChequeRepository
	movementRepo   *persistence.GormMovementRepository
	depositRepo    *persistence.GormDepositRepository
	closingRepo    *persistence.GormClosingRepository
	bankRepo       *persistence.GormBankMovementRepository
	paymentRepo    *persistence.GormPaymentRepository
	patternRepo    *persistence.GormPatternRepository
	cheques        *treasuryapp.ChequeService
	deposits       *treasuryapp.DepositService
	closings       *treasuryapp.ClosingService
	reconciliation *treasuryapp.ReconciliationService
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&treasury.Cheque{},
		&treasury.TreasuryMovement{},
		&treasury.CashDeposit{},
		&treasury.DepositCheque{},
		&treasury.CashClosing{},
		&treasury.BankMovement{},
		&treasury.Payment{},
		&treasury.ReconciliationPattern{},
	)
	require.NoError(t, err)

	env := &serviceEnv{
		db:           db,
		chequeRepo:   persistence.NewGormChequeRepository(db),
		movementRepo: persistence.NewGormMovementRepository(db),
		depositRepo:  persistence.NewGormDepositRepository(db),
		closingRepo:  persistence.NewGormClosingRepository(db),
		bankRepo:     persistence.NewGormBankMovementRepository(db),
		paymentRepo:  persistence.NewGormPaymentRepository(db),
		patternRepo:  persistence.NewGormPatternRepository(db),
	}

	txScope := persistence.NewGormTransactionScope(db)
	log := zap.NewNop()

	env.cheques = treasuryapp.NewChequeService(env.chequeRepo, env.depositRepo, txScope, log)
	env.deposits = treasuryapp.NewDepositService(env.depositRepo, txScope, log)
	env.closings = treasuryapp.NewClosingService(env.closingRepo, env.movementRepo, env.chequeRepo, log)
	env.reconciliation = treasuryapp.NewReconciliationService(env.bankRepo, env.paymentRepo, env.patternRepo, txScope, log)

	return env
}

func chequeRequest(number string, amount float64, cashAccountID *uuid.UUID) treasuryapp.CreateChequeRequest {
	money := valueobject.NewMoneyARS(decimal.NewFromFloat(amount))
	return treasuryapp.CreateChequeRequest{
		Origin:        treasury.ChequeOriginReceived,
		Kind:          treasury.ChequeKindPhysical,
		DocumentClass: treasury.DocumentClassCommon,
		Number:        number,
		Bank:          "Banco Nación",
		Holder:        "ACME SA",
		Amount:        money,
		IssueDate:     time.Now().AddDate(0, 0, -5),
		DueDate:       time.Now().AddDate(0, 0, 25),
		CashAccountID: cashAccountID,
	}
}

func (e *serviceEnv) recordCheque(t *testing.T, tenantID uuid.UUID, number string, amount float64, cashAccountID *uuid.UUID) *treasury.Cheque {
	t.Helper()

	cheque, err := e.cheques.CreateCheque(context.Background(), tenantID, chequeRequest(number, amount, cashAccountID))
	require.NoError(t, err)
	return cheque
}

func (e *serviceEnv) openDeposit(t *testing.T, tenantID uuid.UUID, cashAccountID, bankAccountID uuid.UUID, cashAmount float64, chequeIDs ...uuid.UUID) *treasury.CashDeposit {
	t.Helper()

	deposit, err := e.deposits.CreateDeposit(context.Background(), tenantID, treasuryapp.CreateDepositRequest{
		CashAccountID: cashAccountID,
		BankAccountID: bankAccountID,
		ChequeIDs:     chequeIDs,
		CashAmount:    decimal.NewFromFloat(cashAmount),
		Currency:      "ARS",
		DepositDate:   time.Now(),
		CreatedBy:     uuid.New(),
	})
	require.NoError(t, err)
	return deposit
}
