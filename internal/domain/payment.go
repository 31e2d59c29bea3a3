package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentStatus is derived from paid amount against total amount
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusHalfPaid PaymentStatus = "HALF_PAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
)

var (
	// ErrMissingAmount is returned when a required amount is absent
	ErrMissingAmount = errors.New("amount is required")
)

// DerivePaymentStatus maps (paid, total) to a payment status.
// Overpayment is reported as PAID.
func DerivePaymentStatus(paid, total decimal.Decimal) PaymentStatus {
	switch {
	case paid.IsZero():
		return PaymentStatusPending
	case paid.GreaterThanOrEqual(total):
		return PaymentStatusPaid
	default:
		return PaymentStatusHalfPaid
	}
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusHalfPaid, PaymentStatusPaid:
		return true
	}
	return false
}

// ParsePaymentStatus accepts the canonical upper-case value, case-insensitively
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid payment status: %s", s)
	}
	return status, nil
}

// ValidatePaidAmount checks a paid amount supplied by a caller
func ValidatePaidAmount(paid decimal.Decimal) error {
	if paid.IsNegative() {
		return errors.New("Paid amount cannot be negative")
	}
	return nil
}
