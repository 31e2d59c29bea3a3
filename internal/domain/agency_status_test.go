package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/agency-api/internal/domain"
)

func TestCheckTenantActive(t *testing.T) {
	tests := []struct {
		status  domain.AgencyStatus
		wantMsg string
	}{
		{domain.AgencyStatusActive, ""},
		{domain.AgencyStatusInactive, "Your agency account is INACTIVE. Please contact administrator."},
		{domain.AgencyStatusSuspended, "Your agency account is SUSPENDED. Account has been restricted due to policy violations."},
		{domain.AgencyStatusLocked, "Your agency account is LOCKED. Account has been locked for security reasons."},
		{domain.AgencyStatusPending, "Your agency account is PENDING APPROVAL. Please wait for administrator review."},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			err := domain.CheckTenantActive(&domain.Agency{Name: "Skyline Travels", Status: tt.status})
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			var gateErr *domain.TenantGateError
			require.ErrorAs(t, err, &gateErr)
			assert.Equal(t, tt.status, gateErr.Status)
			assert.Equal(t, tt.wantMsg, gateErr.Error())
		})
	}
}

func TestStatusCheckDetail(t *testing.T) {
	assert.Empty(t, domain.StatusCheckDetail(domain.AgencyStatusActive))
	assert.Equal(t, "Agency account is SUSPENDED. Account has been restricted.", domain.StatusCheckDetail(domain.AgencyStatusSuspended))
	assert.Equal(t, "Agency account is LOCKED. Account has been restricted.", domain.StatusCheckDetail(domain.AgencyStatusLocked))
	assert.Equal(t, "No agency associated with this user account.", domain.StatusCheckDetail(domain.AgencyStatusNone))
}

func TestParseAgencyStatus(t *testing.T) {
	status, err := domain.ParseAgencyStatus("LOCKED")
	require.NoError(t, err)
	assert.Equal(t, domain.AgencyStatusLocked, status)
	assert.Equal(t, "Locked", status.Display())

	_, err = domain.ParseAgencyStatus("no_agency")
	assert.Error(t, err)
}
