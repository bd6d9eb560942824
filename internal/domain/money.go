package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the Algerian Dinar, the settlement currency of the checkout gateway.
const DefaultCurrency = "DZD"

const minorUnitExponent = 2

// Money is an immutable amount in a single currency. The zero value is not valid; use NewMoney or Zero.
type Money struct {
	amount   decimal.Decimal
	currency string
}

func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if !isCurrencyCode(code) {
		return Money{}, NewValidationError(
			ErrCodeInvalidCurrency,
			fmt.Sprintf("currency must be a 3-letter ISO 4217 code, got %q", currency),
		)
	}
	return Money{amount: amount, currency: code}, nil
}

// ParseMoney builds Money from a decimal string such as "10.50".
func ParseMoney(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, NewValidationError(ErrCodeInvalidAmount, fmt.Sprintf("invalid amount %q", amount))
	}
	return NewMoney(d, currency)
}

// MustMoney panics on invalid input. Intended for constants and tests.
func MustMoney(amount, currency string) Money {
	m, err := ParseMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

func Zero(currency string) Money {
	m, err := NewMoney(decimal.Zero, currency)
	if err != nil {
		return Money{amount: decimal.Zero, currency: DefaultCurrency}
	}
	return m
}

// FromMinorUnits converts an integer amount of cents into Money.
func FromMinorUnits(units int64, currency string) (Money, error) {
	return NewMoney(decimal.New(units, -minorUnitExponent), currency)
}

func (m Money) Amount() decimal.Decimal { return m.amount }

func (m Money) Currency() string { return m.currency }

// MinorUnits rounds half-up to cents.
func (m Money) MinorUnits() int64 {
	return m.amount.Shift(minorUnitExponent).Round(0).IntPart()
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

func (m Money) MulInt(factor int64) Money {
	return m.Mul(decimal.NewFromInt(factor))
}

// Cmp returns -1, 0 or +1. Comparing different currencies is an error.
func (m Money) Cmp(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

func (m Money) GreaterThan(other Money) (bool, error) {
	c, err := m.Cmp(other)
	return c > 0, err
}

func (m Money) LessThan(other Money) (bool, error) {
	c, err := m.Cmp(other)
	return c < 0, err
}

// Equal compares numerically, so 10 and 10.00 are equal.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

func (m Money) IsZero() bool { return m.amount.IsZero() }

func (m Money) IsNegative() bool { return m.amount.IsNegative() }

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(minorUnitExponent), m.currency)
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return NewCurrencyMismatchError(m.currency, other.currency)
	}
	return nil
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
