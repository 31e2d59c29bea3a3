package handler

import (
	"fmt"
	"net/http"

	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/service"
	"go.uber.org/zap"
)

type AgencyHandler struct {
	agencyService *service.AgencyService
	maxUploadMB   int64
	logger        *zap.Logger
}

func NewAgencyHandler(agencyService *service.AgencyService, maxUploadMB int64, logger *zap.Logger) *AgencyHandler {
	return &AgencyHandler{
		agencyService: agencyService,
		maxUploadMB:   maxUploadMB,
		logger:        logger,
	}
}

// Get godoc
// @Summary Get own agency
// @Description Agency profile with user and booking counts. Owners and managers only.
// @Tags Agency
// @Produce json
// @Success 200 {object} domain.AgencyDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /agency [get]
func (h *AgencyHandler) Get(w http.ResponseWriter, r *http.Request) {
	agency, err := h.agencyService.Detail(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get agency")
		return
	}
	respondJSON(w, http.StatusOK, agency)
}

// Update godoc
// @Summary Update own agency
// @Tags Agency
// @Accept json
// @Produce json
// @Param request body domain.UpdateAgencyRequest true "Agency profile"
// @Success 200 {object} domain.AgencyDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /agency [put]
func (h *AgencyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateAgencyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	agency, err := h.agencyService.Update(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update agency")
		return
	}
	respondJSON(w, http.StatusOK, agency)
}

// Public godoc
// @Summary Get agency contact details
// @Tags Agency
// @Produce json
// @Success 200 {object} domain.AgencyPublicDTO
// @Security BearerAuth
// @Router /agency/public [get]
func (h *AgencyHandler) Public(w http.ResponseWriter, r *http.Request) {
	agency, err := h.agencyService.Public(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get public agency")
		return
	}
	respondJSON(w, http.StatusOK, agency)
}

// CheckStatus godoc
// @Summary Check agency account status
// @Description Reports whether the caller's agency currently grants access. Reachable while the agency is blocked.
// @Tags Agency
// @Produce json
// @Success 200 {object} domain.AgencyStatusDTO
// @Security BearerAuth
// @Router /agency/check-status [get]
func (h *AgencyHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.agencyService.CheckStatus(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "check agency status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// UploadLogo godoc
// @Summary Upload agency logo
// @Tags Agency
// @Accept multipart/form-data
// @Produce json
// @Param logo formData file true "Logo image"
// @Success 200 {object} domain.AgencyDTO
// @Failure 400 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Security BearerAuth
// @Router /agency/logo [post]
func (h *AgencyHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	limit := h.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: maximum size is %dMB", h.maxUploadMB))
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload: logo field is required")
		return
	}
	defer file.Close()

	agency, err := h.agencyService.UploadLogo(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		handleServiceError(w, h.logger, err, "upload agency logo")
		return
	}
	respondJSON(w, http.StatusOK, agency)
}

// List godoc
// @Summary List agencies
// @Description Platform administration. Super users only.
// @Tags Admin
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search by name or email"
// @Param status query string false "Filter by status" Enums(active, inactive, suspended, locked, pending)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.AgencyDTO}
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/agencies [get]
func (h *AgencyHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	q := r.URL.Query()

	result, err := h.agencyService.List(r.Context(), page, pageSize, q.Get("search"), q.Get("status"))
	if err != nil {
		handleServiceError(w, h.logger, err, "list agencies")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Create agency
// @Description New agencies are pending unless a status is given
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body domain.CreateAgencyRequest true "Agency"
// @Success 201 {object} domain.AgencyDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/agencies [post]
func (h *AgencyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAgencyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	agency, err := h.agencyService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create agency")
		return
	}
	respondJSON(w, http.StatusCreated, agency)
}

// UpdateStatus godoc
// @Summary Change agency status
// @Description Takes effect on the members' next request
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Agency ID" format(uuid)
// @Param request body domain.UpdateAgencyStatusRequest true "New status"
// @Success 200 {object} domain.AgencyDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/agencies/{id}/status [put]
func (h *AgencyHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateAgencyStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	agency, err := h.agencyService.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update agency status")
		return
	}
	respondJSON(w, http.StatusOK, agency)
}
