package domain

import (
	"fmt"
	"strings"
)

// Role is the single role a user holds
type Role string

const (
	RoleSuperUser   Role = "super_user"
	RoleAgencyOwner Role = "agency_owner"
	RoleManager     Role = "manager"
	RoleAgent       Role = "agent"
	RoleAccountant  Role = "accountant"
)

// AllRoles lists every role in privilege order
func AllRoles() []Role {
	return []Role{RoleSuperUser, RoleAgencyOwner, RoleManager, RoleAgent, RoleAccountant}
}

func (r Role) IsValid() bool {
	switch r {
	case RoleSuperUser, RoleAgencyOwner, RoleManager, RoleAgent, RoleAccountant:
		return true
	}
	return false
}

// ParseRole parses a role string
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", fmt.Errorf("invalid role: %s", s)
	}
	return role, nil
}

// ServiceStatus marks a travel package as sellable or not
type ServiceStatus string

const (
	ServiceStatusActive   ServiceStatus = "active"
	ServiceStatusInactive ServiceStatus = "inactive"
)

func (s ServiceStatus) IsValid() bool {
	return s == ServiceStatusActive || s == ServiceStatusInactive
}

// ParseServiceStatus parses a service status string
func ParseServiceStatus(s string) (ServiceStatus, error) {
	status := ServiceStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid service status: %s", s)
	}
	return status, nil
}
