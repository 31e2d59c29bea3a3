package handler

import (
	"net/http"

	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/repository"
	"github.com/tripdesk/agency-api/internal/service"
	"go.uber.org/zap"
)

// ServiceHandler serves the agency's catalog of travel services
type ServiceHandler struct {
	catalogService *service.CatalogService
	logger         *zap.Logger
}

func NewServiceHandler(catalogService *service.CatalogService, logger *zap.Logger) *ServiceHandler {
	return &ServiceHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// List godoc
// @Summary List services
// @Description Agents receive a summary projection without the include list
// @Tags Services
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param status query string false "Filter by status" Enums(active, inactive)
// @Param destination query string false "Filter by destination"
// @Param search query string false "Search by name"
// @Param agency_id query string false "Agency filter (super users only)" format(uuid)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ServiceDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /services [get]
func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	q := r.URL.Query()

	filter := repository.ServiceFilter{
		Destination: q.Get("destination"),
		Search:      q.Get("search"),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := domain.ParseServiceStatus(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = &status
	}

	result, err := h.catalogService.List(r.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "list services")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get service
// @Tags Services
// @Produce json
// @Param id path string true "Service ID" format(uuid)
// @Success 200 {object} domain.ServiceDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /services/{id} [get]
func (h *ServiceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	svc, err := h.catalogService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get service")
		return
	}
	respondJSON(w, http.StatusOK, svc)
}

// Create godoc
// @Summary Create service
// @Tags Services
// @Accept json
// @Produce json
// @Param request body domain.CreateServiceRequest true "Service"
// @Success 201 {object} domain.ServiceDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /services [post]
func (h *ServiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateServiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	svc, err := h.catalogService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create service")
		return
	}
	respondJSON(w, http.StatusCreated, svc)
}

// Update godoc
// @Summary Update service
// @Description Refused when lowering profit would leave existing booking discounts above the new ceiling
// @Tags Services
// @Accept json
// @Produce json
// @Param id path string true "Service ID" format(uuid)
// @Param request body domain.UpdateServiceRequest true "Service"
// @Success 200 {object} domain.ServiceDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /services/{id} [put]
func (h *ServiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateServiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	svc, err := h.catalogService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update service")
		return
	}
	respondJSON(w, http.StatusOK, svc)
}

// Delete godoc
// @Summary Delete service
// @Description Deletes the service's bookings as well
// @Tags Services
// @Param id path string true "Service ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /services/{id} [delete]
func (h *ServiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.catalogService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete service")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Activate godoc
// @Summary Activate service
// @Tags Services
// @Produce json
// @Param id path string true "Service ID" format(uuid)
// @Success 200 {object} domain.ServiceDTO
// @Security BearerAuth
// @Router /services/{id}/activate [post]
func (h *ServiceHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	svc, err := h.catalogService.Activate(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "activate service")
		return
	}
	respondJSON(w, http.StatusOK, svc)
}

// Deactivate godoc
// @Summary Deactivate service
// @Tags Services
// @Produce json
// @Param id path string true "Service ID" format(uuid)
// @Success 200 {object} domain.ServiceDTO
// @Security BearerAuth
// @Router /services/{id}/deactivate [post]
func (h *ServiceHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	svc, err := h.catalogService.Deactivate(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "deactivate service")
		return
	}
	respondJSON(w, http.StatusOK, svc)
}
