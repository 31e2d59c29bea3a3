package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/tripdesk/agency-api/internal/domain"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID   uuid.UUID
	Username string
	Email    string
	Role     domain.Role
	// AgencyID is nil for super users and for accounts not yet attached to an agency
	AgencyID *uuid.UUID
}

type contextKey string

const userContextKey contextKey = "userContext"
const agencyFilterKey contextKey = "agencyFilter"
const actorSlotKey contextKey = "actorSlot"

type actorSlot struct {
	user *UserContext
}

// WithUserContext adds user context to the context and records it in the
// actor slot, if an outer middleware opened one
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	if slot, ok := ctx.Value(actorSlotKey).(*actorSlot); ok {
		slot.user = user
	}
	return context.WithValue(ctx, userContextKey, user)
}

// WithActorSlot lets middleware that runs before authentication learn who
// the request was authenticated as once the handler chain returns
func WithActorSlot(ctx context.Context) context.Context {
	return context.WithValue(ctx, actorSlotKey, &actorSlot{})
}

// RecordedActor returns the user stored by WithUserContext further down the chain
func RecordedActor(ctx context.Context) (*UserContext, bool) {
	slot, ok := ctx.Value(actorSlotKey).(*actorSlot)
	if !ok || slot.user == nil {
		return nil, false
	}
	return slot.user, true
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.Role) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

// IsSuperUser checks if user is a platform administrator
func (u *UserContext) IsSuperUser() bool {
	return u.Role == domain.RoleSuperUser
}

// BelongsTo reports whether the user is a member of the given agency
func (u *UserContext) BelongsTo(agencyID uuid.UUID) bool {
	return u.AgencyID != nil && *u.AgencyID == agencyID
}

// AgencyFilter is the agency a super user asked to narrow their view to.
// Set by middleware from the agency_id query parameter.
type AgencyFilter struct {
	AgencyID *uuid.UUID
}

// WithAgencyFilter adds agency filter to the context
func WithAgencyFilter(ctx context.Context, filter *AgencyFilter) context.Context {
	return context.WithValue(ctx, agencyFilterKey, filter)
}

// AgencyFilterFromContext extracts the agency filter from the context
func AgencyFilterFromContext(ctx context.Context) (*AgencyFilter, bool) {
	filter, ok := ctx.Value(agencyFilterKey).(*AgencyFilter)
	return filter, ok && filter != nil
}
