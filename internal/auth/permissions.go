package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/tripdesk/agency-api/internal/domain"
)

// Resource is a kind of record guarded by the access decision
type Resource string

const (
	ResourceClient  Resource = "client"
	ResourceBooking Resource = "booking"
	ResourceService Resource = "service"
	// ResourceServiceCatalog is the read-only view of services used when booking
	ResourceServiceCatalog Resource = "service_catalog"
	ResourceUser           Resource = "user"
	ResourceAgency         Resource = "agency"
	ResourceAnalytics      Resource = "analytics"
)

// Action is an operation on a resource
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionManage covers platform administration such as changing an agency's status
	ActionManage Action = "manage"
)

// Decision is the outcome of a record-level access check
type Decision int

const (
	Allow Decision = iota
	// DenyForbidden means the record exists but the actor may not touch it
	DenyForbidden
	// DenyNotFound means the record is outside the actor's visible scope
	DenyNotFound
)

// OwnedRecord is a tenant-owned record
type OwnedRecord interface {
	OwnerAgencyID() uuid.UUID
	CreatorID() *uuid.UUID
}

// Authorize decides whether the actor's role permits action on resource.
// Record ownership is checked separately by AuthorizeRecord.
func Authorize(u *UserContext, resource Resource, action Action) bool {
	if u == nil {
		return false
	}
	if u.Role != domain.RoleSuperUser && u.AgencyID == nil {
		return false
	}

	switch u.Role {
	case domain.RoleSuperUser:
		return true
	case domain.RoleAgencyOwner, domain.RoleManager:
		switch resource {
		case ResourceAgency:
			return action == ActionRead || action == ActionUpdate
		case ResourceClient, ResourceBooking, ResourceService, ResourceServiceCatalog, ResourceUser, ResourceAnalytics:
			return action != ActionManage
		}
		return false
	case domain.RoleAgent:
		switch resource {
		case ResourceClient, ResourceBooking:
			return action != ActionManage
		case ResourceServiceCatalog, ResourceAnalytics:
			return action == ActionRead
		case ResourceService, ResourceUser, ResourceAgency:
			return false
		}
		return false
	case domain.RoleAccountant:
		return resource == ResourceAnalytics && action == ActionRead
	}
	return false
}

// AuthorizeRecord checks the role permission and then the record's owner.
// A record in another agency is forbidden. A booking an agent did not create
// is reported as not found since it lies outside the agent's scope.
func AuthorizeRecord(u *UserContext, resource Resource, action Action, rec OwnedRecord) Decision {
	if !Authorize(u, resource, action) {
		return DenyForbidden
	}
	if u.IsSuperUser() {
		return Allow
	}
	if !u.BelongsTo(rec.OwnerAgencyID()) {
		return DenyForbidden
	}
	if narrowsToCreator(u, resource) {
		creator := rec.CreatorID()
		if creator == nil || *creator != u.UserID {
			return DenyNotFound
		}
	}
	return Allow
}

// Scope restricts which rows a query may return
type Scope struct {
	// Unrestricted is set for super users without an agency filter
	Unrestricted bool
	AgencyID     *uuid.UUID
	CreatedBy    *uuid.UUID
	// Empty matches no rows
	Empty bool
}

// AgencyOnly drops the creator restriction, for tables without created_by_id
func (s Scope) AgencyOnly() Scope {
	s.CreatedBy = nil
	return s
}

// ScopeFor derives the row scope for an actor reading resource
func ScopeFor(u *UserContext, resource Resource) Scope {
	if u == nil {
		return Scope{Empty: true}
	}
	if u.IsSuperUser() {
		return Scope{Unrestricted: true}
	}
	if u.AgencyID == nil {
		return Scope{Empty: true}
	}

	agencyID := *u.AgencyID
	scope := Scope{AgencyID: &agencyID}
	if narrowsToCreator(u, resource) {
		userID := u.UserID
		scope.CreatedBy = &userID
	}
	return scope
}

// ScopeForContext is ScopeFor with the super user agency filter applied
func ScopeForContext(ctx context.Context, u *UserContext, resource Resource) Scope {
	scope := ScopeFor(u, resource)
	if !scope.Unrestricted {
		return scope
	}
	if filter, ok := AgencyFilterFromContext(ctx); ok && filter.AgencyID != nil {
		agencyID := *filter.AgencyID
		return Scope{AgencyID: &agencyID}
	}
	return scope
}

func narrowsToCreator(u *UserContext, resource Resource) bool {
	return u.Role == domain.RoleAgent && (resource == ResourceBooking || resource == ResourceAnalytics)
}
