package domain

import (
	"fmt"
	"strings"
)

// AgencyStatus is the account state of a tenant
type AgencyStatus string

const (
	AgencyStatusActive    AgencyStatus = "active"
	AgencyStatusInactive  AgencyStatus = "inactive"
	AgencyStatusSuspended AgencyStatus = "suspended"
	AgencyStatusLocked    AgencyStatus = "locked"
	AgencyStatusPending   AgencyStatus = "pending"

	// AgencyStatusNone is reported for users that have no agency
	AgencyStatusNone AgencyStatus = "no_agency"
)

func (s AgencyStatus) IsValid() bool {
	switch s {
	case AgencyStatusActive, AgencyStatusInactive, AgencyStatusSuspended, AgencyStatusLocked, AgencyStatusPending:
		return true
	}
	return false
}

// Display returns the human-readable label
func (s AgencyStatus) Display() string {
	switch s {
	case AgencyStatusActive:
		return "Active"
	case AgencyStatusInactive:
		return "Inactive"
	case AgencyStatusSuspended:
		return "Suspended"
	case AgencyStatusLocked:
		return "Locked"
	case AgencyStatusPending:
		return "Pending"
	}
	return string(s)
}

// ParseAgencyStatus parses an agency status string
func ParseAgencyStatus(s string) (AgencyStatus, error) {
	status := AgencyStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid agency status: %s", s)
	}
	return status, nil
}

// TenantGateError blocks authentication for an agency that is not active
type TenantGateError struct {
	Status  AgencyStatus
	Message string
}

func (e *TenantGateError) Error() string {
	return e.Message
}

// loginDenialMessages are shown when a login is refused
var loginDenialMessages = map[AgencyStatus]string{
	AgencyStatusInactive:  "Your agency account is INACTIVE. Please contact administrator.",
	AgencyStatusSuspended: "Your agency account is SUSPENDED. Account has been restricted due to policy violations.",
	AgencyStatusLocked:    "Your agency account is LOCKED. Account has been locked for security reasons.",
	AgencyStatusPending:   "Your agency account is PENDING APPROVAL. Please wait for administrator review.",
}

// CheckTenantActive returns nil for an active agency and a TenantGateError otherwise
func CheckTenantActive(agency *Agency) error {
	if agency.Status == AgencyStatusActive {
		return nil
	}
	msg, ok := loginDenialMessages[agency.Status]
	if !ok {
		msg = fmt.Sprintf("Your agency account status is %s. Account is not active.", strings.ToUpper(string(agency.Status)))
	}
	return &TenantGateError{Status: agency.Status, Message: msg}
}

// StatusCheckDetail is the message reported by the account health check for
// a non-active agency. It is empty for active agencies.
func StatusCheckDetail(status AgencyStatus) string {
	switch status {
	case AgencyStatusActive:
		return ""
	case AgencyStatusInactive:
		return "Agency account is INACTIVE. Please contact administrator."
	case AgencyStatusSuspended, AgencyStatusLocked:
		return fmt.Sprintf("Agency account is %s. Account has been restricted.", strings.ToUpper(string(status)))
	case AgencyStatusPending:
		return "Agency account is PENDING APPROVAL. Please wait for review."
	case AgencyStatusNone:
		return "No agency associated with this user account."
	}
	return fmt.Sprintf("Agency account status: %s. Account is not active.", strings.ToUpper(string(status)))
}
