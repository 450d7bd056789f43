package treasury

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/domain/shared/valueobject"
)

// Test helpers
func createTestCheque(t *testing.T) *Cheque {
	t.Helper()
	cashAccountID := uuid.New()
	cheque, err := NewCheque(uuid.New(), NewChequeInput{
		Origin:        ChequeOriginReceived,
		Kind:          ChequeKindPhysical,
		DocumentClass: DocumentClassCommon,
		Number:        "00012345",
		Bank:          "Banco Nacion",
		Holder:        "Juan Perez",
		Amount:        valueobject.NewMoneyARSFromFloat(5000),
		IssueDate:     time.Now().AddDate(0, 0, -5),
		DueDate:       time.Now().AddDate(0, 1, 0),
		CashAccountID: &cashAccountID,
	})
	require.NoError(t, err)
	return cheque
}

func attachTestDeposit(t *testing.T, c *Cheque) uuid.UUID {
	t.Helper()
	depositID := uuid.New()
	require.NoError(t, c.AttachToDeposit(depositID, uuid.New(), time.Now()))
	return depositID
}

// ============================================
// ChequeState Tests
// ============================================

func TestChequeState_IsValid(t *testing.T) {
	tests := []struct {
		state   ChequeState
		isValid bool
	}{
		{ChequeStateInPortfolio, true},
		{ChequeStateDepositPending, true},
		{ChequeStateDeposited, true},
		{ChequeStateCleared, true},
		{ChequeStateRejected, true},
		{ChequeStateVoid, true},
		{ChequeState("INVALID"), false},
		{ChequeState(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.state.IsValid())
		})
	}
}

func TestChequeState_IsTerminal(t *testing.T) {
	assert.True(t, ChequeStateCleared.IsTerminal())
	assert.True(t, ChequeStateRejected.IsTerminal())
	assert.True(t, ChequeStateVoid.IsTerminal())
	assert.False(t, ChequeStateInPortfolio.IsTerminal())
	assert.False(t, ChequeStateDepositPending.IsTerminal())
	assert.False(t, ChequeStateDeposited.IsTerminal())
}

// ============================================
// NewCheque Tests
// ============================================

func TestNewCheque(t *testing.T) {
	cheque := createTestCheque(t)

	assert.Equal(t, ChequeStateInPortfolio, cheque.State)
	assert.Equal(t, "00012345", cheque.Number)
	assert.Equal(t, "ARS", cheque.Currency)
	assert.True(t, cheque.IsInPortfolio())
	assert.Len(t, cheque.GetDomainEvents(), 1)
}

func TestNewCheque_ElectronicMustBeDeferred(t *testing.T) {
	_, err := NewCheque(uuid.New(), NewChequeInput{
		Origin:        ChequeOriginReceived,
		Kind:          ChequeKindElectronic,
		DocumentClass: DocumentClassCommon,
		Number:        "E-001",
		Bank:          "Banco Galicia",
		Holder:        "ACME SA",
		Amount:        valueobject.NewMoneyARSFromFloat(1000),
		IssueDate:     time.Now(),
		DueDate:       time.Now().AddDate(0, 2, 0),
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "INVALID_DOCUMENT_CLASS", domainErr.Code)
}

func TestNewCheque_ElectronicDeferredAllowed(t *testing.T) {
	cheque, err := NewCheque(uuid.New(), NewChequeInput{
		Origin:        ChequeOriginReceived,
		Kind:          ChequeKindElectronic,
		DocumentClass: DocumentClassDeferred,
		Number:        "E-001",
		Bank:          "Banco Galicia",
		Holder:        "ACME SA",
		Amount:        valueobject.NewMoneyARSFromFloat(1000),
		IssueDate:     time.Now(),
		DueDate:       time.Now().AddDate(0, 2, 0),
	})

	require.NoError(t, err)
	assert.Equal(t, ChequeKindElectronic, cheque.Kind)
}

func TestNewCheque_Validation(t *testing.T) {
	base := func() NewChequeInput {
		return NewChequeInput{
			Origin:        ChequeOriginReceived,
			Kind:          ChequeKindPhysical,
			DocumentClass: DocumentClassCommon,
			Number:        "100",
			Bank:          "Banco Nacion",
			Holder:        "Juan Perez",
			Amount:        valueobject.NewMoneyARSFromFloat(100),
			IssueDate:     time.Now(),
			DueDate:       time.Now().AddDate(0, 1, 0),
		}
	}

	tests := []struct {
		name     string
		mutate   func(*NewChequeInput)
		wantCode string
	}{
		{"empty number", func(i *NewChequeInput) { i.Number = "" }, "INVALID_NUMBER"},
		{"empty bank", func(i *NewChequeInput) { i.Bank = "" }, "INVALID_BANK"},
		{"empty holder", func(i *NewChequeInput) { i.Holder = "" }, "INVALID_HOLDER"},
		{"zero amount", func(i *NewChequeInput) { i.Amount = valueobject.ZeroARS() }, "INVALID_AMOUNT"},
		{"due before issue", func(i *NewChequeInput) { i.DueDate = i.IssueDate.AddDate(0, 0, -1) }, "INVALID_DATE"},
		{"bad origin", func(i *NewChequeInput) { i.Origin = ChequeOrigin("X") }, "INVALID_ORIGIN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := base()
			tt.mutate(&input)
			_, err := NewCheque(uuid.New(), input)
			require.Error(t, err)
			var domainErr *shared.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, tt.wantCode, domainErr.Code)
		})
	}
}

// ============================================
// State machine Tests
// ============================================

func TestCheque_DepositLifecycle(t *testing.T) {
	cheque := createTestCheque(t)
	depositID := attachTestDeposit(t, cheque)

	assert.Equal(t, ChequeStateDepositPending, cheque.State)
	require.NotNil(t, cheque.DepositID)
	assert.Equal(t, depositID, *cheque.DepositID)

	require.NoError(t, cheque.ConfirmDeposit())
	assert.Equal(t, ChequeStateDeposited, cheque.State)

	require.NoError(t, cheque.Clear())
	assert.Equal(t, ChequeStateCleared, cheque.State)
}

func TestCheque_AttachTwiceFails(t *testing.T) {
	cheque := createTestCheque(t)
	attachTestDeposit(t, cheque)

	err := cheque.AttachToDeposit(uuid.New(), uuid.New(), time.Now())
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
}

func TestCheque_ReturnToPortfolio(t *testing.T) {
	cheque := createTestCheque(t)
	attachTestDeposit(t, cheque)

	require.NoError(t, cheque.ReturnToPortfolio())
	assert.Equal(t, ChequeStateInPortfolio, cheque.State)
	assert.Nil(t, cheque.DepositID)
	assert.Nil(t, cheque.DepositedAccountID)
}

func TestCheque_ClearRequiresDeposited(t *testing.T) {
	cheque := createTestCheque(t)

	err := cheque.Clear()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ChequeStateInPortfolio.String())
	assert.Contains(t, err.Error(), ChequeStateDeposited.String())
}

func TestCheque_Bounce(t *testing.T) {
	cheque := createTestCheque(t)
	attachTestDeposit(t, cheque)
	require.NoError(t, cheque.ConfirmDeposit())

	require.NoError(t, cheque.Bounce())
	assert.Equal(t, ChequeStateRejected, cheque.State)

	// Terminal: no further transition allowed
	assert.Error(t, cheque.Clear())
	assert.Error(t, cheque.AttachToDeposit(uuid.New(), uuid.New(), time.Now()))
}

func TestCheque_Void(t *testing.T) {
	cheque := createTestCheque(t)
	voidedBy := uuid.New()

	require.NoError(t, cheque.Void(voidedBy, "duplicate entry"))
	assert.Equal(t, ChequeStateVoid, cheque.State)
	assert.Equal(t, "duplicate entry", cheque.VoidReason)
	require.NotNil(t, cheque.VoidedBy)
	assert.Equal(t, voidedBy, *cheque.VoidedBy)
}

func TestCheque_VoidRequiresReason(t *testing.T) {
	cheque := createTestCheque(t)

	err := cheque.Void(uuid.New(), "  ")
	require.Error(t, err)
	assert.Equal(t, ChequeStateInPortfolio, cheque.State)
}

func TestCheque_VoidTerminalFails(t *testing.T) {
	cheque := createTestCheque(t)
	require.NoError(t, cheque.Void(uuid.New(), "admin cancellation"))

	err := cheque.Void(uuid.New(), "again")
	require.Error(t, err)
}
