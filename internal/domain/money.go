package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits stored for currency fields
const MoneyPlaces = 2

// FormatMoney renders an amount as a fixed two-place decimal string
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}

// ParseMoney parses a currency amount given as a JSON string or number.
// Binary floats never enter the computation: numbers are read from their
// literal text.
func ParseMoney(raw json.RawMessage) (decimal.Decimal, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return decimal.Zero, ErrMissingAmount
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount: %w", err)
		}
		text = strings.TrimSpace(s)
		if text == "" {
			return decimal.Zero, ErrMissingAmount
		}
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", text)
	}
	if d.Exponent() < -MoneyPlaces {
		return decimal.Zero, fmt.Errorf("amount %q has more than %d decimal places", text, MoneyPlaces)
	}
	return d, nil
}

// Money is a decimal that accepts either a JSON string or number on input
// and always marshals to a fixed two-place string.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps a decimal
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(FormatMoney(m.Decimal))
}

func (m *Money) UnmarshalJSON(data []byte) error {
	d, err := ParseMoney(data)
	if err != nil {
		return err
	}
	m.Decimal = d
	return nil
}
