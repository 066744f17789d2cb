package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inr(s string) Money {
	m, err := NewMoneyFromString(s, INR)
	if err != nil {
		panic(err)
	}
	return m
}

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.NewFromFloat(11800.00), INR)
	require.NoError(t, err)
	assert.Equal(t, INR, m.Currency())
	assert.True(t, m.Amount().Equal(decimal.NewFromFloat(11800.00)))

	t.Run("rejects empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(100), "")
		assert.ErrorContains(t, err, "currency cannot be empty")
	})

	t.Run("allows negative amounts for credit notes", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(-250.50), INR)
		require.NoError(t, err)
		assert.True(t, m.IsNegative())
	})
}

func TestNewMoneyFromString(t *testing.T) {
	m, err := NewMoneyFromString("99999.99", USD)
	require.NoError(t, err)
	assert.Equal(t, "99999.99", m.Amount().String())

	_, err = NewMoneyFromString("twelve lakh", INR)
	assert.ErrorContains(t, err, "invalid amount string")
}

func TestZeroAndSignPredicates(t *testing.T) {
	z := Zero(INR)
	assert.True(t, z.IsZero())
	assert.False(t, z.IsPositive())
	assert.False(t, z.IsNegative())

	assert.True(t, inr("500").IsPositive())
	assert.True(t, inr("-500").IsNegative())
}

func TestArithmetic(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		total, err := inr("10000").Add(inr("1800"))
		require.NoError(t, err)
		assert.True(t, total.Equals(inr("11800")))
	})

	t.Run("subtract", func(t *testing.T) {
		balance, err := inr("11800").Subtract(inr("5000"))
		require.NoError(t, err)
		assert.True(t, balance.Equals(inr("6800")))
	})

	t.Run("multiply by quantity", func(t *testing.T) {
		lineTotal := inr("245.50").Multiply(decimal.NewFromInt(40))
		assert.True(t, lineTotal.Equals(inr("9820")))
	})

	t.Run("divide", func(t *testing.T) {
		half, err := inr("9820").Divide(decimal.NewFromInt(2))
		require.NoError(t, err)
		assert.True(t, half.Equals(inr("4910")))

		_, err = inr("9820").Divide(decimal.Zero)
		assert.ErrorContains(t, err, "divide by zero")
	})

	t.Run("negate and abs", func(t *testing.T) {
		variance := inr("-132.75")
		assert.True(t, variance.Negate().Equals(inr("132.75")))
		assert.True(t, variance.Abs().Equals(inr("132.75")))
	})
}

func TestCurrencyMismatch(t *testing.T) {
	usd, err := NewMoney(decimal.NewFromInt(100), USD)
	require.NoError(t, err)

	_, err = inr("100").Add(usd)
	assert.ErrorContains(t, err, "different currencies")

	_, err = inr("100").Subtract(usd)
	assert.ErrorContains(t, err, "different currencies")

	_, err = inr("100").LessThan(usd)
	assert.ErrorContains(t, err, "different currencies")

	assert.False(t, inr("100").Equals(usd))
}

func TestRounding(t *testing.T) {
	gst := inr("1062.455")
	assert.Equal(t, "1062.46", gst.Round(2).Amount().String())
	assert.Equal(t, "1062.45", gst.Truncate(2).Amount().String())
}

func TestComparisons(t *testing.T) {
	billed := inr("11800")
	received := inr("11500")

	cases := map[string]struct {
		got  func() (bool, error)
		want bool
	}{
		"less than":                {func() (bool, error) { return received.LessThan(billed) }, true},
		"less than or equal":       {func() (bool, error) { return billed.LessThanOrEqual(billed) }, true},
		"greater than":             {func() (bool, error) { return billed.GreaterThan(received) }, true},
		"greater than or equal":    {func() (bool, error) { return received.GreaterThanOrEqual(billed) }, false},
		"not less than itself":     {func() (bool, error) { return billed.LessThan(billed) }, false},
		"not greater than itself":  {func() (bool, error) { return billed.GreaterThan(billed) }, false},
		"equal is not strict less": {func() (bool, error) { return received.LessThan(received) }, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ok, err := tc.got()
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestStringRendering(t *testing.T) {
	m := inr("11800.5")
	assert.Equal(t, "11800.50 INR", m.String())
	assert.Equal(t, "11800.500", m.StringFixed(3))
	assert.InDelta(t, 11800.5, m.Float64(), 0.0001)
}

func TestMoneyJSON(t *testing.T) {
	t.Run("marshal keeps amount as string", func(t *testing.T) {
		data, err := json.Marshal(inr("11800.50"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"amount":"11800.5","currency":"INR"}`, string(data))
	})

	t.Run("unmarshal round trip", func(t *testing.T) {
		var m Money
		require.NoError(t, json.Unmarshal([]byte(`{"amount":"245.50","currency":"INR"}`), &m))
		assert.True(t, m.Equals(inr("245.50")))
	})

	t.Run("unmarshal rejects bad amount", func(t *testing.T) {
		var m Money
		err := json.Unmarshal([]byte(`{"amount":"n/a","currency":"INR"}`), &m)
		assert.ErrorContains(t, err, "invalid amount")
	})

	t.Run("parse validates currency", func(t *testing.T) {
		m, err := ParseMoneyFromJSON([]byte(`{"amount":"99.99","currency":"INR"}`))
		require.NoError(t, err)
		assert.True(t, m.Equals(inr("99.99")))

		_, err = ParseMoneyFromJSON([]byte(`{"amount":"99.99","currency":""}`))
		assert.ErrorContains(t, err, "currency cannot be empty")

		_, err = ParseMoneyFromJSON([]byte(`not json`))
		assert.ErrorContains(t, err, "failed to parse money JSON")
	})
}

func TestMoneyDatabaseRoundTrip(t *testing.T) {
	v, err := inr("11800.50").Value()
	require.NoError(t, err)
	assert.Equal(t, "11800.5", v)

	t.Run("scan string", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan("11800.50"))
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(11800.50)))
		assert.Equal(t, DefaultCurrency, m.Currency())
	})

	t.Run("scan bytes keeps preset currency", func(t *testing.T) {
		m := Zero(USD)
		require.NoError(t, m.Scan([]byte("42.00")))
		assert.Equal(t, USD, m.Currency())
	})

	t.Run("scan nil resets to zero", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan(nil))
		assert.True(t, m.IsZero())
		assert.Equal(t, DefaultCurrency, m.Currency())
	})

	t.Run("scan unsupported type", func(t *testing.T) {
		var m Money
		assert.ErrorContains(t, m.Scan(3.14), "cannot scan float64")
	})

	t.Run("scan garbage", func(t *testing.T) {
		var m Money
		assert.ErrorContains(t, m.Scan("not-a-number"), "invalid decimal value")
	})
}
