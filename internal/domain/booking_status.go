package domain

import (
	"fmt"
	"strings"
)

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusRejected  BookingStatus = "rejected"
)

// validBookingTransitions defines allowed booking status transitions
var validBookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusRejected},
	BookingStatusConfirmed: {},
	BookingStatusRejected:  {},
}

func (s BookingStatus) IsValid() bool {
	_, ok := validBookingTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range validBookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transitions leave s
func (s BookingStatus) IsTerminal() bool {
	return len(validBookingTransitions[s]) == 0
}

// ParseBookingStatus parses a booking status string
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}

// InvalidTransitionError is returned when a booking status change is not allowed
type InvalidTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change booking status from %s to %s", e.From, e.To)
}

// ValidateBookingTransition returns nil when from == to or the move is allowed
func ValidateBookingTransition(from, to BookingStatus) error {
	if from == to {
		return nil
	}
	if !from.CanTransitionTo(to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}
