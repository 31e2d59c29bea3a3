package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/agency-api/internal/domain"
)

func TestValidateBookingTransition(t *testing.T) {
	tests := []struct {
		from    domain.BookingStatus
		to      domain.BookingStatus
		allowed bool
	}{
		{domain.BookingStatusPending, domain.BookingStatusConfirmed, true},
		{domain.BookingStatusPending, domain.BookingStatusRejected, true},
		{domain.BookingStatusPending, domain.BookingStatusPending, true},
		{domain.BookingStatusConfirmed, domain.BookingStatusConfirmed, true},
		{domain.BookingStatusConfirmed, domain.BookingStatusPending, false},
		{domain.BookingStatusConfirmed, domain.BookingStatusRejected, false},
		{domain.BookingStatusRejected, domain.BookingStatusConfirmed, false},
		{domain.BookingStatusRejected, domain.BookingStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := domain.ValidateBookingTransition(tt.from, tt.to)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			var terr *domain.InvalidTransitionError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, tt.from, terr.From)
			assert.Equal(t, tt.to, terr.To)
		})
	}
}

func TestBookingStatus_IsTerminal(t *testing.T) {
	assert.False(t, domain.BookingStatusPending.IsTerminal())
	assert.True(t, domain.BookingStatusConfirmed.IsTerminal())
	assert.True(t, domain.BookingStatusRejected.IsTerminal())
}

func TestParseBookingStatus(t *testing.T) {
	status, err := domain.ParseBookingStatus(" Confirmed ")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, status)

	_, err = domain.ParseBookingStatus("cancelled")
	assert.Error(t, err)
}
