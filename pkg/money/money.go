// Package money provides an exact, currency-tagged monetary amount.
//
// Amounts are backed by shopspring decimals so arithmetic never goes through
// floating point. Mixing currencies in a binary operation is a programming
// error and panics rather than returning a recoverable error.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount in a single currency. The zero value is
// ready to use as "0 of no currency" and treated as currency-neutral.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// New builds a Money from a decimal amount and a currency code.
func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: NormalizeCurrency(currency)}
}

// FromString parses a decimal string into Money.
func FromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", amount, err)
	}
	return New(d, currency), nil
}

// FromMinorUnits builds Money from an amount expressed in the currency's
// smallest unit (cents for USD, yen for JPY).
func FromMinorUnits(units int64, currency string) Money {
	return New(decimal.New(units, -MinorUnits(currency)), currency)
}

// Zero returns 0 in the given currency.
func Zero(currency string) Money {
	return New(decimal.Zero, currency)
}

func (m Money) assertSameCurrency(other Money) {
	if m.Currency == "" || other.Currency == "" {
		return
	}
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch %s vs %s", m.Currency, other.Currency))
	}
}

func (m Money) currencyOr(other Money) string {
	if m.Currency != "" {
		return m.Currency
	}
	return other.Currency
}

// Add returns m + other. Panics on currency mismatch.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.currencyOr(other)}
}

// Sub returns m - other. Panics on currency mismatch.
func (m Money) Sub(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.currencyOr(other)}
}

// MulInt64 returns m scaled by an integer factor.
func (m Money) MulInt64(factor int64) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(factor)), Currency: m.Currency}
}

// MulDecimal returns m scaled by an exact decimal factor.
func (m Money) MulDecimal(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, +1 if m > other.
// Panics on currency mismatch.
func (m Money) Cmp(other Money) int {
	m.assertSameCurrency(other)
	return m.Amount.Cmp(other.Amount)
}

// Min returns the smaller of m and other. Panics on currency mismatch.
func (m Money) Min(other Money) Money {
	if m.Cmp(other) <= 0 {
		return m
	}
	return other
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.Amount.IsZero() }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

// IsPositive reports whether the amount is above zero.
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }

// ClampZero floors the amount at zero.
func (m Money) ClampZero() Money {
	if m.Amount.IsNegative() {
		return Zero(m.Currency)
	}
	return m
}

// Round rounds half-up to the currency's minor unit. Every amount persisted
// by the engine passes through here first; intermediates stay exact.
func (m Money) Round() Money {
	return Money{
		Amount:   m.Amount.Round(MinorUnits(m.Currency)),
		Currency: m.Currency,
	}
}

// String renders the amount at minor-unit precision, e.g. "108.00 USD".
func (m Money) String() string {
	if m.Currency == "" {
		return m.Amount.String()
	}
	return m.Amount.StringFixed(MinorUnits(m.Currency)) + " " + m.Currency
}
