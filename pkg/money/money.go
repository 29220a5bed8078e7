// Package money provides exact decimal arithmetic for monetary amounts.
// Amounts are kept unrounded while calculations chain; rounding to the
// currency minor unit happens only when a value is persisted or rendered.
package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorUnits is the number of decimal places kept at persistence/display time.
const MinorUnits = 2

// Money is an immutable decimal amount. The zero value is zero currency.
type Money struct {
	amount decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Zero returns the zero amount.
func Zero() Money {
	return Money{}
}

// New wraps a raw decimal.
func New(d decimal.Decimal) Money {
	return Money{amount: d}
}

// FromString parses a decimal string such as "100.00".
func FromString(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, fmt.Errorf("invalid monetary amount %q: %w", value, err)
	}
	return Money{amount: d}, nil
}

// MustFromString parses or panics. Intended for test fixtures and constants.
func MustFromString(value string) Money {
	m, err := FromString(value)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// MulQty multiplies the amount by an integer quantity.
func (m Money) MulQty(qty int64) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(qty))}
}

// PercentOff subtracts pct percent of the amount: m - m*pct/100.
// The division stays exact; no intermediate rounding is applied.
func (m Money) PercentOff(pct decimal.Decimal) Money {
	discount := m.amount.Mul(pct).Div(hundred)
	return Money{amount: m.amount.Sub(discount)}
}

// ClampZero floors negative amounts at zero.
func (m Money) ClampZero() Money {
	if m.amount.IsNegative() {
		return Money{}
	}
	return m
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// Decimal returns the underlying unrounded decimal.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Rounded returns the amount rounded half-up to the currency minor unit.
func (m Money) Rounded() Money {
	return Money{amount: m.amount.Round(MinorUnits)}
}

// String renders the rounded amount with a fixed number of decimals,
// e.g. "90.00". This is the only representation crossing the API boundary.
func (m Money) String() string {
	return m.amount.StringFixed(MinorUnits)
}

// MarshalJSON encodes the amount as a decimal string, never a float.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted decimal strings and bare numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	m.amount = d
	return nil
}

// Value implements driver.Valuer, persisting the rounded amount.
func (m Money) Value() (driver.Value, error) {
	return m.Rounded().amount.Value()
}

// Scan implements sql.Scanner.
func (m *Money) Scan(value any) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	m.amount = d
	return nil
}
