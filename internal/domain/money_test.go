package domain_test

import (
	"errors"
	"testing"

	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("normalizes currency to upper case", func(t *testing.T) {
		m, err := domain.NewMoney(decimal.RequireFromString("10.50"), "dzd")

		require.NoError(t, err)
		assert.Equal(t, "DZD", m.Currency())
		assert.True(t, m.Amount().Equal(decimal.RequireFromString("10.5")))
	})

	t.Run("rejects invalid currency codes", func(t *testing.T) {
		for _, code := range []string{"", "DZ", "DZDD", "D1D", "€€€"} {
			_, err := domain.NewMoney(decimal.NewFromInt(1), code)
			assert.ErrorIs(t, err, domain.ErrValidation, code)
			assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidCurrency), code)
		}
	})

	t.Run("rejects malformed amount string", func(t *testing.T) {
		_, err := domain.ParseMoney("ten", "DZD")

		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidAmount))
	})
}

func TestMoney_Arithmetic(t *testing.T) {
	a := domain.MustMoney("10.00", "DZD")
	b := domain.MustMoney("5.25", "DZD")

	t.Run("add", func(t *testing.T) {
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.Equal(t, "15.25 DZD", sum.String())
	})

	t.Run("subtract", func(t *testing.T) {
		diff, err := a.Sub(b)
		require.NoError(t, err)
		assert.Equal(t, "4.75 DZD", diff.String())
	})

	t.Run("multiply", func(t *testing.T) {
		assert.Equal(t, "30.00 DZD", a.MulInt(3).String())
		assert.Equal(t, "2.63 DZD", b.Mul(decimal.RequireFromString("0.5")).String())
	})

	t.Run("currency mismatch fails", func(t *testing.T) {
		usd := domain.MustMoney("1.00", "USD")

		_, err := a.Add(usd)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeCurrencyMismatch))

		_, err = a.Sub(usd)
		assert.Error(t, err)

		_, err = a.GreaterThan(usd)
		assert.Error(t, err)
	})

	t.Run("comparison", func(t *testing.T) {
		gt, err := a.GreaterThan(b)
		require.NoError(t, err)
		assert.True(t, gt)

		lt, err := a.LessThan(b)
		require.NoError(t, err)
		assert.False(t, lt)

		assert.True(t, a.Equal(domain.MustMoney("10", "DZD")))
		assert.False(t, a.Equal(domain.MustMoney("10", "USD")))
	})
}

func TestMoney_MinorUnits(t *testing.T) {
	assert.Equal(t, int64(2650), domain.MustMoney("26.50", "DZD").MinorUnits())
	assert.Equal(t, int64(1001), domain.MustMoney("10.005", "DZD").MinorUnits())

	m, err := domain.FromMinorUnits(2650, "dzd")
	require.NoError(t, err)
	assert.Equal(t, "26.50 DZD", m.String())
}

func TestMoney_ErrorKinds(t *testing.T) {
	_, err := domain.NewMoney(decimal.Zero, "x")

	var domainErr *domain.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.False(t, errors.Is(err, domain.ErrInvalidState))
}
