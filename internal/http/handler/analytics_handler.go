package handler

import (
	"net/http"

	"github.com/tripdesk/agency-api/internal/service"
	"go.uber.org/zap"
)

type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
	logger           *zap.Logger
}

func NewAnalyticsHandler(analyticsService *service.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		logger:           logger,
	}
}

// Summary godoc
// @Summary Sales analytics
// @Description Totals, payment and status breakdowns, and per-agent trackers over a window. Agents only see their own bookings.
// @Tags Analytics
// @Produce json
// @Param range query string false "Reporting window" Enums(lifetime, this_week, this_month, last_month, custom) default(lifetime)
// @Param start_date query string false "First day of a custom range (YYYY-MM-DD)"
// @Param end_date query string false "Last day of a custom range (YYYY-MM-DD)"
// @Param agency_id query string false "Agency filter (super users only)" format(uuid)
// @Success 200 {object} domain.AnalyticsDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /analytics [get]
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.analyticsService.Summary(r.Context(), service.AnalyticsQuery{
		Range:     q.Get("range"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	})
	if err != nil {
		handleServiceError(w, h.logger, err, "compute analytics")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
