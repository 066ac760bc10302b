package values

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with currency and precision handling
type Money struct {
	amount   decimal.Decimal
	currency string
}

// Currencies accepted on bills (ISO 4217)
const (
	RSD = "RSD"
	EUR = "EUR"
	USD = "USD"
)

// NewMoney creates a new Money value object
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if err := validateCurrency(currency); err != nil {
		return Money{}, err
	}

	return Money{
		amount:   amount,
		currency: strings.ToUpper(currency),
	}, nil
}

// NewMoneyFromString creates Money from string amount and currency
func NewMoneyFromString(amount, currency string) (Money, error) {
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount: %w", err)
	}

	return NewMoney(dec, currency)
}

// NewMoneyFromFloat creates Money from float64 amount and currency
// Note: Use with caution due to floating point precision issues
func NewMoneyFromFloat(amount float64, currency string) (Money, error) {
	return NewMoney(decimal.NewFromFloat(amount), currency)
}

// MustNewMoney creates Money and panics on error (for constants/tests)
func MustNewMoney(amount decimal.Decimal, currency string) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// MustNewMoneyFromString creates Money from a string and panics on error (for constants/tests)
func MustNewMoneyFromString(amount, currency string) Money {
	m, err := NewMoneyFromString(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero Money value in the given currency
func Zero(currency string) Money {
	return MustNewMoney(decimal.Zero, currency)
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() string {
	return m.currency
}

// String returns the amount with currency code (e.g., "4521.36 RSD")
func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + m.currency
}

// IsZero checks if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive checks if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative checks if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Equal checks if two Money values are equal (same amount and currency)
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount) && m.currency == other.currency
}

// WithinTolerance reports whether other is within an absolute tolerance of
// this amount. Currencies must match; differing currencies never match.
// The tolerance is absolute, not relative to the magnitude of the amount.
func (m Money) WithinTolerance(other Money, tolerance decimal.Decimal) bool {
	if m.currency != other.currency {
		return false
	}
	return m.amount.Sub(other.amount).Abs().LessThanOrEqual(tolerance)
}

// Compare returns -1, 0, or 1 based on comparison with other Money
// Panics if currencies don't match
func (m Money) Compare(other Money) int {
	if m.currency != other.currency {
		panic(fmt.Sprintf("cannot compare different currencies: %s vs %s", m.currency, other.currency))
	}
	return m.amount.Cmp(other.amount)
}

// Add adds two Money values (must have same currency)
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add different currencies: %s and %s", m.currency, other.currency)
	}

	return Money{
		amount:   m.amount.Add(other.amount),
		currency: m.currency,
	}, nil
}

// Sub subtracts other Money from this Money (must have same currency)
func (m Money) Sub(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot subtract different currencies: %s and %s", m.currency, other.currency)
	}

	return Money{
		amount:   m.amount.Sub(other.amount),
		currency: m.currency,
	}, nil
}

// Round rounds the amount to the specified decimal places
func (m Money) Round(places int32) Money {
	return Money{
		amount:   m.amount.Round(places),
		currency: m.currency,
	}
}

// ToFloat64 converts to float64 (use with caution for precision)
func (m Money) ToFloat64() float64 {
	f, _ := m.amount.Float64()
	return f
}

// JSON marshaling
func (m Money) MarshalJSON() ([]byte, error) {
	data := struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}{
		Amount:   m.amount.String(),
		Currency: m.currency,
	}
	return json.Marshal(data)
}

// JSON unmarshaling
func (m *Money) UnmarshalJSON(data []byte) error {
	var temp struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}

	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(temp.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	money, err := NewMoney(amount, temp.Currency)
	if err != nil {
		return err
	}

	*m = money
	return nil
}

// Database scanning (implements sql.Scanner)
func (m *Money) Scan(value interface{}) error {
	if value == nil {
		*m = Money{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return m.scanFromString(string(v))
	case string:
		return m.scanFromString(v)
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
}

// Database value (implements driver.Valuer)
func (m Money) Value() (driver.Value, error) {
	if m.amount.IsZero() && m.currency == "" {
		return nil, nil
	}
	// Store as JSON for PostgreSQL JSONB compatibility
	return m.MarshalJSON()
}

// Helper functions

func validateCurrency(currency string) error {
	if currency == "" {
		return fmt.Errorf("currency cannot be empty")
	}

	currency = strings.ToUpper(currency)

	if len(currency) != 3 {
		return fmt.Errorf("currency code must be 3 characters")
	}

	validCurrencies := map[string]bool{
		RSD: true, EUR: true, USD: true,
		"CHF": true, "GBP": true, "BAM": true, "MKD": true,
	}

	if !validCurrencies[currency] {
		return fmt.Errorf("unsupported currency: %s", currency)
	}

	return nil
}

func (m *Money) scanFromString(s string) error {
	// Try to parse as JSON first
	if strings.HasPrefix(s, "{") {
		return m.UnmarshalJSON([]byte(s))
	}

	// Fall back to simple decimal parsing (assume RSD)
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid money format: %w", err)
	}

	money, err := NewMoney(amount, RSD)
	if err != nil {
		return err
	}

	*m = money
	return nil
}
