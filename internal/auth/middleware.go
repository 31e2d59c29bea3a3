package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tripdesk/agency-api/internal/domain"
	"go.uber.org/zap"
)

// AgencyStatusChecker looks up the current status of an agency
type AgencyStatusChecker interface {
	AgencyStatus(ctx context.Context, agencyID uuid.UUID) (domain.AgencyStatus, error)
}

// TokenValidator turns an access token into a user context
type TokenValidator interface {
	ValidateToken(token string) (*UserContext, error)
}

// Middleware handles authentication for HTTP requests
type Middleware struct {
	tokens TokenValidator
	status AgencyStatusChecker
	logger *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(tokens TokenValidator, status AgencyStatusChecker, logger *zap.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		status: status,
		logger: logger,
	}
}

// Authenticate validates the bearer token and re-checks the agency status
// gate on every request. Super users are not gated.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return m.authenticate(next, true)
}

// AuthenticateUngated validates the token only. It serves the status check
// endpoint so members of a blocked agency can learn why.
func (m *Middleware) AuthenticateUngated(next http.Handler) http.Handler {
	return m.authenticate(next, false)
}

func (m *Middleware) authenticate(next http.Handler, gated bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "invalid authorization header format")
			return
		}

		userCtx, err := m.tokens.ValidateToken(parts[1])
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, err.Error())
			return
		}

		if gated && !userCtx.IsSuperUser() && userCtx.AgencyID != nil {
			if err := m.checkAgency(r.Context(), *userCtx.AgencyID); err != nil {
				var gateErr *domain.TenantGateError
				if errors.As(err, &gateErr) {
					m.logger.Info("request refused by agency status gate",
						zap.String("user_id", userCtx.UserID.String()),
						zap.String("agency_id", userCtx.AgencyID.String()),
						zap.String("agency_status", string(gateErr.Status)),
					)
					writeError(w, http.StatusForbidden, domain.ErrorTypeTenantGate, gateErr.Message)
					return
				}
				m.logger.Error("agency status lookup failed",
					zap.String("agency_id", userCtx.AgencyID.String()),
					zap.Error(err),
				)
				writeError(w, http.StatusInternalServerError, domain.ErrorTypeInternal, "")
				return
			}
		}

		m.logger.Debug("request authenticated",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("user_id", userCtx.UserID.String()),
			zap.String("role", string(userCtx.Role)),
			zap.Duration("auth_duration", time.Since(start)),
		)

		ctx := WithUserContext(r.Context(), userCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) checkAgency(ctx context.Context, agencyID uuid.UUID) error {
	status, err := m.status.AgencyStatus(ctx, agencyID)
	if err != nil {
		return err
	}
	return domain.CheckTenantActive(&domain.Agency{Status: status})
}

// RequireRole middleware ensures user has one of the given roles
func (m *Middleware) RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusForbidden, domain.ErrorTypeForbidden, "no user context")
				return
			}
			if !userCtx.HasAnyRole(roles...) {
				writeError(w, http.StatusForbidden, domain.ErrorTypeForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission middleware runs the role part of the access decision
func (m *Middleware) RequirePermission(resource Resource, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusForbidden, domain.ErrorTypeForbidden, "no user context")
				return
			}
			if !Authorize(userCtx, resource, action) {
				writeError(w, http.StatusForbidden, domain.ErrorTypeForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, errType, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   errType,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}
