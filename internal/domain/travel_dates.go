package domain

// DateError is returned when the return date precedes the travel date
type DateError struct {
	Departure Date
	Arrival   Date
}

func (e *DateError) Error() string {
	return "Return date must be after travel date"
}

// ValidateTravelDates accepts any pair where a date is missing. When both are
// present the return (arrival) must not precede the travel (departure) date.
// Historical dates are allowed.
func ValidateTravelDates(departure, arrival *Date) error {
	if departure == nil || arrival == nil {
		return nil
	}
	if arrival.Before(*departure) {
		return &DateError{Departure: *departure, Arrival: *arrival}
	}
	return nil
}

// BookingTerms is the set of booking inputs checked against a service
type BookingTerms struct {
	Discount      Money
	DepartureDate *Date
	ArrivalDate   *Date
}

// ValidateBookingTerms runs the discount and travel date rules and collects
// every violation before returning.
func ValidateBookingTerms(service *Service, terms BookingTerms) *ValidationError {
	verr := NewValidationError()
	if err := ValidateDiscount(service, terms.Discount.Decimal); err != nil {
		verr.Add("discount", err.Error())
	}
	if err := ValidateTravelDates(terms.DepartureDate, terms.ArrivalDate); err != nil {
		verr.Add("arrivalDate", err.Error())
	}
	return verr.OrNil()
}
