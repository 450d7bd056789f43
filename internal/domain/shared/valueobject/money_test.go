package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(1500.50), ARS)
		require.NoError(t, err)
		assert.Equal(t, ARS, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(1500.50)))
	})

	t.Run("rejects empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(100), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestMoneyConstructors(t *testing.T) {
	m := NewMoneyARS(decimal.NewFromInt(50))
	assert.Equal(t, ARS, m.Currency())

	f := NewMoneyARSFromFloat(75.50)
	assert.True(t, f.Amount().Equal(decimal.NewFromFloat(75.50)))

	z := Zero(USD)
	assert.True(t, z.IsZero())
	assert.Equal(t, USD, z.Currency())

	assert.Equal(t, ARS, ZeroARS().Currency())
}

func TestMoneySignPredicates(t *testing.T) {
	assert.True(t, NewMoneyARSFromFloat(100).IsPositive())
	assert.True(t, NewMoneyARSFromFloat(-100).IsNegative())
	assert.True(t, ZeroARS().IsZero())
	assert.False(t, ZeroARS().IsPositive())
	assert.False(t, ZeroARS().IsNegative())
}

func TestMoneyArithmetic(t *testing.T) {
	t.Run("add same currency", func(t *testing.T) {
		sum, err := NewMoneyARSFromFloat(100.50).Add(NewMoneyARSFromFloat(50.25))
		require.NoError(t, err)
		assert.True(t, sum.Amount().Equal(decimal.NewFromFloat(150.75)))
	})

	t.Run("add rejects mixed currencies", func(t *testing.T) {
		usd, _ := NewMoney(decimal.NewFromInt(50), USD)
		_, err := NewMoneyARSFromFloat(100).Add(usd)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cannot add")
	})

	t.Run("subtract same currency", func(t *testing.T) {
		diff, err := NewMoneyARSFromFloat(100.50).Subtract(NewMoneyARSFromFloat(50.25))
		require.NoError(t, err)
		assert.True(t, diff.Amount().Equal(decimal.NewFromFloat(50.25)))
	})

	t.Run("negate and abs", func(t *testing.T) {
		neg := NewMoneyARSFromFloat(100).Negate()
		assert.True(t, neg.IsNegative())
		assert.True(t, neg.Abs().IsPositive())
	})

	t.Run("round", func(t *testing.T) {
		r := NewMoneyARSFromFloat(100.456).Round(2)
		assert.Equal(t, "100.46 ARS", r.String())
	})
}

func TestMoneyComparisons(t *testing.T) {
	a := NewMoneyARSFromFloat(100)
	b := NewMoneyARSFromFloat(50)

	assert.True(t, a.Equals(NewMoneyARS(decimal.NewFromInt(100))))
	assert.False(t, a.Equals(b))

	lt, err := b.LessThan(a)
	require.NoError(t, err)
	assert.True(t, lt)

	gt, err := a.GreaterThan(b)
	require.NoError(t, err)
	assert.True(t, gt)

	usd, _ := NewMoney(decimal.NewFromInt(100), USD)
	_, err = a.LessThan(usd)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot compare")
}

func TestMoneyJSON(t *testing.T) {
	t.Run("marshal keeps amount as string", func(t *testing.T) {
		data, err := json.Marshal(NewMoneyARSFromFloat(99.99))
		require.NoError(t, err)
		assert.JSONEq(t, `{"amount":"99.99","currency":"ARS"}`, string(data))
	})

	t.Run("unmarshal", func(t *testing.T) {
		var m Money
		err := json.Unmarshal([]byte(`{"amount":"123.45","currency":"USD"}`), &m)
		require.NoError(t, err)
		assert.Equal(t, USD, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(123.45)))
	})

	t.Run("unmarshal rejects bad amount", func(t *testing.T) {
		var m Money
		err := json.Unmarshal([]byte(`{"amount":"abc","currency":"ARS"}`), &m)
		assert.Error(t, err)
	})
}

func TestMoneyScanAndValue(t *testing.T) {
	t.Run("scan string defaults currency", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan("123.45"))
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(123.45)))
		assert.Equal(t, DefaultCurrency, m.Currency())
	})

	t.Run("scan bytes", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan([]byte("99.99")))
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(99.99)))
	})

	t.Run("scan nil yields zero", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan(nil))
		assert.True(t, m.IsZero())
	})

	t.Run("scan rejects unsupported type", func(t *testing.T) {
		var m Money
		assert.Error(t, m.Scan(12345))
	})

	t.Run("value emits the amount only", func(t *testing.T) {
		val, err := NewMoneyARSFromFloat(123.45).Value()
		require.NoError(t, err)
		assert.Equal(t, "123.45", val)
	})
}
