package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/domain"
	"go.uber.org/zap"
)

// AgencyScope lets a super user narrow list and analytics queries to one
// agency with ?agency_id=<uuid>. Everyone else is already confined to their
// own agency; naming a different one is refused.
func AgencyScope(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := auth.FromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			requested := r.URL.Query().Get("agency_id")
			if requested == "" {
				next.ServeHTTP(w, r)
				return
			}

			agencyID, err := uuid.Parse(requested)
			if err != nil {
				writeProblem(w, http.StatusBadRequest, domain.ErrorTypeBadRequest, "invalid agency_id parameter")
				return
			}

			if !userCtx.IsSuperUser() {
				if !userCtx.BelongsTo(agencyID) {
					logger.Warn("user attempted to scope to another agency",
						zap.String("user_id", userCtx.UserID.String()),
						zap.String("requested_agency", requested),
					)
					writeProblem(w, http.StatusForbidden, domain.ErrorTypeForbidden, "you cannot access data for this agency")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.WithAgencyFilter(r.Context(), &auth.AgencyFilter{AgencyID: &agencyID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
