package valueobject

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency represents an ISO-4217 currency code, stored uppercase
type Currency string

const (
	LKR Currency = "LKR" // Sri Lankan Rupee (default)
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	INR Currency = "INR" // Indian Rupee
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = LKR

// NewCurrency normalizes a currency code to its canonical uppercase form.
// Returns an error unless the code is exactly three letters.
func NewCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("invalid currency code %q: must be a 3-letter ISO-4217 code", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("invalid currency code %q: must be a 3-letter ISO-4217 code", code)
		}
	}
	return Currency(code), nil
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}

// minorUnitsPerMajor is the scale used when rendering amounts in major units.
// Every currency the shop bills in uses two decimal places.
const minorUnitsPerMajor = 100

// Money is a value object representing a monetary amount in minor currency
// units (cents). It is immutable - all operations return new Money instances.
type Money struct {
	amount   int64
	currency Currency
}

// NewMoney creates a new Money from an amount in minor units and a currency code
func NewMoney(amount int64, code string) (Money, error) {
	currency, err := NewCurrency(code)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustNewMoney creates Money and panics on an invalid currency code.
// Intended for tests and constants.
func MustNewMoney(amount int64, code string) Money {
	m, err := NewMoney(amount, code)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero-value Money in the given currency
func Zero(currency Currency) Money {
	return Money{amount: 0, currency: currency}
}

// Amount returns the amount in minor units
func (m Money) Amount() int64 {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount == 0
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount > 0
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount < 0
}

// Add returns a new Money with the sum of both amounts.
// Returns an error if currencies don't match.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

// Subtract returns a new Money with the difference.
// Returns an error if currencies don't match.
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot subtract money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount - other.amount, currency: m.currency}, nil
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount == other.amount
}

// MajorUnits returns the amount as a decimal in major currency units
func (m Money) MajorUnits() decimal.Decimal {
	return decimal.NewFromInt(m.amount).Div(decimal.NewFromInt(minorUnitsPerMajor))
}

// String renders the amount in major units with the currency code,
// e.g. "550.00 LKR"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.MajorUnits().StringFixed(2), m.currency)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64    `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount,
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	currency, err := NewCurrency(v.Currency)
	if err != nil {
		return err
	}
	m.amount = v.Amount
	m.currency = currency
	return nil
}
