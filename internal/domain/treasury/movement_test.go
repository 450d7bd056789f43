package treasury

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingMovement(t *testing.T, amount int64) *TreasuryMovement {
	t.Helper()
	m, err := NewTreasuryMovement(uuid.New(), AccountTypeCash, uuid.New(),
		decimal.NewFromInt(amount), "ARS", RelatedEntityCashDeposit, uuid.New(),
		time.Now(), "test movement")
	require.NoError(t, err)
	return m
}

func TestNewTreasuryMovement(t *testing.T) {
	m := newPendingMovement(t, -1500)

	assert.Equal(t, MovementStatusPending, m.Status)
	assert.False(t, m.IsInflow())
}

func TestNewTreasuryMovement_ZeroAmountFails(t *testing.T) {
	_, err := NewTreasuryMovement(uuid.New(), AccountTypeBank, uuid.New(),
		decimal.Zero, "ARS", RelatedEntityManual, uuid.New(), time.Now(), "")
	assert.Error(t, err)
}

func TestTreasuryMovement_Confirm(t *testing.T) {
	m := newPendingMovement(t, 100)

	require.NoError(t, m.Confirm())
	assert.Equal(t, MovementStatusConfirmed, m.Status)

	// No second confirm
	assert.Error(t, m.Confirm())
}

func TestTreasuryMovement_Reverse(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*TreasuryMovement)
	}{
		{"from pending", func(m *TreasuryMovement) {}},
		{"from confirmed", func(m *TreasuryMovement) { require.NoError(t, m.Confirm()) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newPendingMovement(t, 100)
			tt.prepare(m)

			require.NoError(t, m.Reverse())
			assert.Equal(t, MovementStatusReversed, m.Status)
			assert.NotNil(t, m.ReversedAt)
		})
	}
}

func TestTreasuryMovement_NeverLeavesReversed(t *testing.T) {
	m := newPendingMovement(t, 100)
	require.NoError(t, m.Reverse())

	assert.Error(t, m.Confirm())
	assert.Error(t, m.Reverse())
	assert.Equal(t, MovementStatusReversed, m.Status)
}

func TestNewConfirmedMovement(t *testing.T) {
	m, err := NewConfirmedMovement(uuid.New(), AccountTypeBank, uuid.New(),
		decimal.NewFromInt(5000), "ARS", RelatedEntityCheque, uuid.New(),
		time.Now(), "compensating reversal")
	require.NoError(t, err)

	assert.Equal(t, MovementStatusConfirmed, m.Status)
	assert.True(t, m.IsInflow())
}

func TestPairedMovementsSumToZero(t *testing.T) {
	amount := decimal.NewFromInt(6500)
	out, err := NewTreasuryMovement(uuid.New(), AccountTypeCash, uuid.New(),
		amount.Neg(), "ARS", RelatedEntityCashDeposit, uuid.New(), time.Now(), "deposit outbound")
	require.NoError(t, err)
	in, err := NewTreasuryMovement(uuid.New(), AccountTypeBank, uuid.New(),
		amount, "ARS", RelatedEntityCashDeposit, uuid.New(), time.Now(), "deposit inbound")
	require.NoError(t, err)

	assert.True(t, out.Amount.Add(in.Amount).IsZero())
}
