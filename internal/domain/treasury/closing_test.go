package treasury

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCashClosing_Balanced(t *testing.T) {
	closing, err := NewCashClosing(uuid.New(), NewCashClosingInput{
		CashAccountID:  uuid.New(),
		Date:           time.Now(),
		SystemCash:     decimal.NewFromInt(1000),
		SystemCheques:  decimal.Zero,
		CountedCash:    decimal.NewFromInt(1000),
		CountedCheques: decimal.Zero,
		ClosedBy:       uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, ClosingStateBalanced, closing.State)
	assert.True(t, closing.Discrepancy.IsZero())
	assert.True(t, closing.IsBalanced())
	assert.Contains(t, closing.Summary(), "balanced")
}

func TestNewCashClosing_Shortage(t *testing.T) {
	closing, err := NewCashClosing(uuid.New(), NewCashClosingInput{
		CashAccountID:  uuid.New(),
		Date:           time.Now(),
		SystemCash:     decimal.NewFromInt(1000),
		SystemCheques:  decimal.Zero,
		CountedCash:    decimal.NewFromInt(950),
		CountedCheques: decimal.Zero,
		ClosedBy:       uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, ClosingStateWithDifference, closing.State)
	assert.True(t, closing.Discrepancy.Equal(decimal.NewFromInt(-50)))
	assert.Contains(t, closing.Summary(), "-50.00")
}

func TestNewCashClosing_ChequesCountTowardTotals(t *testing.T) {
	closing, err := NewCashClosing(uuid.New(), NewCashClosingInput{
		CashAccountID:  uuid.New(),
		Date:           time.Now(),
		SystemCash:     decimal.NewFromInt(800),
		SystemCheques:  decimal.NewFromInt(200),
		CountedCash:    decimal.NewFromInt(700),
		CountedCheques: decimal.NewFromInt(300),
		ClosedBy:       uuid.New(),
	})
	require.NoError(t, err)

	// Totals match even though the split differs
	assert.Equal(t, ClosingStateBalanced, closing.State)
	assert.True(t, closing.CountedTotal().Equal(decimal.NewFromInt(1000)))
	assert.True(t, closing.SystemTotal().Equal(decimal.NewFromInt(1000)))
}

func TestNewCashClosing_NormalizesDate(t *testing.T) {
	instant := time.Date(2026, 3, 15, 18, 42, 11, 0, time.UTC)
	closing, err := NewCashClosing(uuid.New(), NewCashClosingInput{
		CashAccountID: uuid.New(),
		Date:          instant,
		SystemCash:    decimal.NewFromInt(100),
		CountedCash:   decimal.NewFromInt(100),
		ClosedBy:      uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), closing.Date)
}

func TestNewCashClosing_Validation(t *testing.T) {
	valid := func() NewCashClosingInput {
		return NewCashClosingInput{
			CashAccountID: uuid.New(),
			Date:          time.Now(),
			SystemCash:    decimal.NewFromInt(100),
			CountedCash:   decimal.NewFromInt(100),
			ClosedBy:      uuid.New(),
		}
	}

	tests := []struct {
		name   string
		mutate func(*NewCashClosingInput)
	}{
		{"nil account", func(i *NewCashClosingInput) { i.CashAccountID = uuid.Nil }},
		{"zero date", func(i *NewCashClosingInput) { i.Date = time.Time{} }},
		{"negative counted cash", func(i *NewCashClosingInput) { i.CountedCash = decimal.NewFromInt(-1) }},
		{"nil user", func(i *NewCashClosingInput) { i.ClosedBy = uuid.Nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid()
			tt.mutate(&input)
			_, err := NewCashClosing(uuid.New(), input)
			assert.Error(t, err)
		})
	}
}

func TestNewClosingPreview(t *testing.T) {
	accountID := uuid.New()
	preview := NewClosingPreview(accountID, time.Now(), decimal.NewFromInt(750), decimal.NewFromInt(250))

	assert.Equal(t, accountID, preview.CashAccountID)
	assert.True(t, preview.SystemTotal.Equal(decimal.NewFromInt(1000)))
}
