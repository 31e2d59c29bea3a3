package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/repository"
	"gorm.io/gorm"
)

// Common service errors
var (
	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is returned when email or password do not match
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountDisabled is returned when an inactive user tries to log in
	ErrAccountDisabled = errors.New("user account is disabled")

	// ErrConcurrentUpdate is returned when a booking changed while it was being updated
	ErrConcurrentUpdate = errors.New("booking was modified by another request, please retry")

	// ErrInvalidTransition is returned when a booking status change is not allowed
	ErrInvalidTransition = errors.New("invalid booking status transition")
)

// InputError wraps a user-facing message as ErrInvalidInput
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func invalidInput(format string, args ...interface{}) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

// actorFrom returns the authenticated user or ErrUnauthorized
func actorFrom(ctx context.Context) (*auth.UserContext, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	return actor, nil
}

// requirePermission checks the role part of the access decision
func requirePermission(ctx context.Context, resource auth.Resource, action auth.Action) (*auth.UserContext, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !auth.Authorize(actor, resource, action) {
		return nil, ErrPermissionDenied
	}
	return actor, nil
}

// decisionError converts a record-level access decision into a service error
func decisionError(d auth.Decision) error {
	switch d {
	case auth.Allow:
		return nil
	case auth.DenyNotFound:
		return ErrNotFound
	default:
		return ErrPermissionDenied
	}
}

// notFoundOr maps gorm's missing-row error to ErrNotFound and wraps anything else
func notFoundOr(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// paginated wraps a page of results
func paginated(data interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
