package treasury_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesoreria/backend/internal/domain/treasury"
)

func importLine(bankAccountID uuid.UUID, date time.Time, description string, amount float64, direction treasury.BankMovementDirection) treasury.NewBankMovementInput {
	return treasury.NewBankMovementInput{
		BankAccountID: bankAccountID,
		Date:          date,
		Description:   description,
		Amount:        decimal.NewFromFloat(amount),
		Direction:     direction,
		Currency:      "ARS",
	}
}

func registerPayment(t *testing.T, env *serviceEnv, tenantID, bankAccountID, counterpartyID uuid.UUID, name string, amount float64, direction treasury.PaymentDirection, date time.Time) *treasury.Payment {
	t.Helper()
	payment, err := env.reconciliation.RegisterPayment(context.Background(), tenantID, treasury.NewPaymentInput{
		BankAccountID:    bankAccountID,
		CounterpartyID:   counterpartyID,
		CounterpartyName: name,
		Direction:        direction,
		Amount:           decimal.NewFromFloat(amount),
		Currency:         "ARS",
		Date:             date,
	})
	require.NoError(t, err)
	return payment
}

func TestReconciliationService_ImportBankMovements(t *testing.T) {
	env := newServiceEnv(t)
	tenantID := uuid.New()
	bankAccountID := uuid.New()
	now := time.Now()

	result, err := env.reconciliation.ImportBankMovements(context.Background(), tenantID, []treasury.NewBankMovementInput{
		importLine(bankAccountID, now, "Transferencia recibida ACME SA", 12000, treasury.BankMovementCredit),
		importLine(bankAccountID, now, "Débito automático seguro", 3100.50, treasury.BankMovementDebit),
		importLine(bankAccountID, now, "", 500, treasury.BankMovementCredit),
		importLine(bankAccountID, now, "Importe inválido", -1, treasury.BankMovementCredit),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Len(t, result.Skipped, 2)

	movements, total, err := env.reconciliation.ListBankMovements(context.Background(), tenantID, treasury.BankMovementFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, m := range movements {
		assert.Equal(t, treasury.ReconciliationStatusPending, m.Status)
	}
}

func TestReconciliationService_GetSuggestions(t *testing.T) {
	env := newServiceEnv(t)
	tenantID := uuid.New()
	bankAccountID := uuid.New()
	counterpartyID := uuid.New()
	now := time.Now()
	ctx := context.Background()

	_, err := env.reconciliation.ImportBankMovements(ctx, tenantID, []treasury.NewBankMovementInput{
		importLine(bankAccountID, now, "Transferencia ACME SA factura 1033", 12000, treasury.BankMovementCredit),
	})
	require.NoError(t, err)

	match := registerPayment(t, env, tenantID, bankAccountID, counterpartyID, "ACME SA", 12000, treasury.PaymentIncoming, now.AddDate(0, 0, -2))
	// Same amount but outgoing: direction-incompatible, never suggested
	registerPayment(t, env, tenantID, bankAccountID, uuid.New(), "Proveedor XYZ", 12000, treasury.PaymentOutgoing, now)
	// Amount far outside tolerance
	registerPayment(t, env, tenantID, bankAccountID, uuid.New(), "Otro Cliente", 700, treasury.PaymentIncoming, now)

	suggestions, err := env.reconciliation.GetSuggestions(ctx, tenantID, &bankAccountID)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)

	candidates := suggestions[0].Candidates
	require.Len(t, candidates, 1)
	assert.Equal(t, match.ID, candidates[0].PaymentID)
	assert.Equal(t, counterpartyID, candidates[0].CounterpartyID)
	assert.False(t, candidates[0].PatternHit)
}

func TestReconciliationService_GetSuggestions_NoPendingLines(t *testing.T) {
	env := newServiceEnv(t)

	suggestions, err := env.reconciliation.GetSuggestions(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestReconciliationService_ConfirmMatch(t *testing.T) {
	env := newServiceEnv(t)
	tenantID := uuid.New()
	bankAccountID := uuid.New()
	counterpartyID := uuid.New()
	now := time.Now()
	ctx := context.Background()

	_, err := env.reconciliation.ImportBankMovements(ctx, tenantID, []treasury.NewBankMovementInput{
		importLine(bankAccountID, now, "Transferencia ACME SA", 9000, treasury.BankMovementCredit),
	})
	require.NoError(t, err)
	movements, _, err := env.reconciliation.ListBankMovements(ctx, tenantID, treasury.BankMovementFilter{})
	require.NoError(t, err)
	require.Len(t, movements, 1)

	payment := registerPayment(t, env, tenantID, bankAccountID, counterpartyID, "ACME SA", 9000, treasury.PaymentIncoming, now)

	userID := uuid.New()
	reconciled, err := env.reconciliation.ConfirmMatch(ctx, tenantID, movements[0].ID, payment.ID, userID)
	require.NoError(t, err)

	assert.Equal(t, treasury.ReconciliationStatusReconciled, reconciled.Status)
	require.NotNil(t, reconciled.MatchedPaymentID)
	assert.Equal(t, payment.ID, *reconciled.MatchedPaymentID)

	stored, err := env.paymentRepo.FindByIDForTenant(ctx, tenantID, payment.ID)
	require.NoError(t, err)
	assert.True(t, stored.Reconciled)

	// The description/counterparty association was learned
	patterns, err := env.patternRepo.LoadForTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, counterpartyID, patterns[treasury.NormalizeDescription("Transferencia ACME SA")])

	// A reconciled line is settled for good
	_, err = env.reconciliation.ConfirmMatch(ctx, tenantID, movements[0].ID, payment.ID, userID)
	require.Error(t, err)
}

func TestReconciliationService_PatternBoostsFutureMatches(t *testing.T) {
	env := newServiceEnv(t)
	tenantID := uuid.New()
	bankAccountID := uuid.New()
	counterpartyID := uuid.New()
	now := time.Now()
	ctx := context.Background()

	require.NoError(t, env.patternRepo.Upsert(ctx, tenantID,
		treasury.NormalizeDescription("Debin ACME SA cobranza"), counterpartyID))

	_, err := env.reconciliation.ImportBankMovements(ctx, tenantID, []treasury.NewBankMovementInput{
		importLine(bankAccountID, now, "DEBIN  ACME   SA cobranza", 5000, treasury.BankMovementCredit),
	})
	require.NoError(t, err)

	registerPayment(t, env, tenantID, bankAccountID, counterpartyID, "ACME SA", 5000, treasury.PaymentIncoming, now)

	suggestions, err := env.reconciliation.GetSuggestions(ctx, tenantID, nil)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	require.NotEmpty(t, suggestions[0].Candidates)
	assert.True(t, suggestions[0].Candidates[0].PatternHit)
	assert.Equal(t, treasury.ConfidenceHigh, suggestions[0].Candidates[0].Confidence)
}

func TestReconciliationService_ConfirmMatch_NotFound(t *testing.T) {
	env := newServiceEnv(t)

	_, err := env.reconciliation.ConfirmMatch(context.Background(), uuid.New(), uuid.New(), uuid.New(), uuid.New())
	require.Error(t, err)
}
