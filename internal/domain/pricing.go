package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxDiscountRatio is the share of a service's profit that may be given away as discount
var MaxDiscountRatio = decimal.RequireFromString("0.50")

// DiscountErrorKind identifies which discount rule was violated
type DiscountErrorKind int

const (
	DiscountNegative DiscountErrorKind = iota + 1
	DiscountExceedsProfitCap
	DiscountBelowBaseCost
)

// DiscountError is returned when a discount breaks the ceiling or floor rules
type DiscountError struct {
	Kind       DiscountErrorKind
	MaxAllowed decimal.Decimal
}

func (e *DiscountError) Error() string {
	switch e.Kind {
	case DiscountNegative:
		return "Discount cannot be negative"
	case DiscountExceedsProfitCap:
		return fmt.Sprintf("Discount cannot exceed 50%% of profit (max: %s)", FormatMoney(e.MaxAllowed))
	case DiscountBelowBaseCost:
		return "Discount cannot reduce price below base cost"
	}
	return "invalid discount"
}

// MaxDiscount returns the highest discount the service allows
func MaxDiscount(service *Service) decimal.Decimal {
	return service.Profit.Mul(MaxDiscountRatio)
}

// ValidateDiscount checks a discount against the service's profit ceiling and
// base cost floor. Both rules are evaluated; when both fail the ceiling error
// is returned since it names the allowed maximum.
func ValidateDiscount(service *Service, discount decimal.Decimal) error {
	if discount.IsNegative() {
		return &DiscountError{Kind: DiscountNegative, MaxAllowed: MaxDiscount(service)}
	}

	maxAllowed := MaxDiscount(service)
	exceedsCap := discount.GreaterThan(maxAllowed)

	totalAfterDiscount := service.TotalPrice().Sub(discount)
	belowBaseCost := totalAfterDiscount.LessThan(service.BaseCost)

	switch {
	case exceedsCap:
		return &DiscountError{Kind: DiscountExceedsProfitCap, MaxAllowed: maxAllowed}
	case belowBaseCost:
		return &DiscountError{Kind: DiscountBelowBaseCost, MaxAllowed: maxAllowed}
	}
	return nil
}

// ValidateServicePricing checks the source fields of a service price
func ValidateServicePricing(baseCost, profit decimal.Decimal) *ValidationError {
	verr := NewValidationError()
	if baseCost.IsNegative() {
		verr.Add("baseCost", "Base cost cannot be negative")
	}
	if profit.IsNegative() {
		verr.Add("profit", "Profit cannot be negative")
	}
	return verr.OrNil()
}
