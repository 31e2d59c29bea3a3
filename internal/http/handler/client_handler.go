package handler

import (
	"net/http"

	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/repository"
	"github.com/tripdesk/agency-api/internal/service"
	"go.uber.org/zap"
)

type ClientHandler struct {
	clientService *service.ClientService
	logger        *zap.Logger
}

func NewClientHandler(clientService *service.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
		logger:        logger,
	}
}

// List godoc
// @Summary List clients
// @Tags Clients
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search name, phone, email, passport or CNIC"
// @Param sortBy query string false "Sort field" Enums(createdAt, updatedAt, name)
// @Param sortOrder query string false "Sort direction" Enums(asc, desc)
// @Param agency_id query string false "Agency filter (super users only)" format(uuid)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ClientDTO}
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /clients [get]
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	q := r.URL.Query()

	sort := repository.DefaultSortConfig()
	if field := q.Get("sortBy"); field != "" {
		sort.Field = field
	}
	if order := q.Get("sortOrder"); order != "" {
		sort.Order = repository.ParseSortOrder(order)
	}

	filter := repository.ClientFilter{Search: q.Get("search"), Sort: sort}
	result, err := h.clientService.List(r.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "list clients")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get client
// @Description Client with notes, newest first
// @Tags Clients
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Success 200 {object} domain.ClientDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id} [get]
func (h *ClientHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	client, err := h.clientService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get client")
		return
	}
	respondJSON(w, http.StatusOK, client)
}

// Create godoc
// @Summary Create client
// @Tags Clients
// @Accept json
// @Produce json
// @Param request body domain.CreateClientRequest true "Client"
// @Success 201 {object} domain.ClientDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /clients [post]
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	client, err := h.clientService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create client")
		return
	}
	respondJSON(w, http.StatusCreated, client)
}

// Update godoc
// @Summary Update client
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Param request body domain.UpdateClientRequest true "Client"
// @Success 200 {object} domain.ClientDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id} [put]
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	client, err := h.clientService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update client")
		return
	}
	respondJSON(w, http.StatusOK, client)
}

// Delete godoc
// @Summary Delete client
// @Description Deletes the client's bookings and notes as well
// @Tags Clients
// @Param id path string true "Client ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id} [delete]
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.clientService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddNote godoc
// @Summary Add client note
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Param request body domain.AddNoteRequest true "Note"
// @Success 201 {object} domain.NoteDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/notes [post]
func (h *ClientHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.AddNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := h.clientService.AddNote(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "add client note")
		return
	}
	respondJSON(w, http.StatusCreated, note)
}

// ListNotes godoc
// @Summary List notes for a client
// @Tags Clients
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Success 200 {array} domain.NoteDTO
// @Security BearerAuth
// @Router /clients/{id}/notes [get]
func (h *ClientHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	notes, err := h.clientService.ListNotes(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "list client notes")
		return
	}
	respondJSON(w, http.StatusOK, notes)
}

// ListAllNotes godoc
// @Summary List client notes across clients
// @Tags Clients
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.NoteDTO}
// @Security BearerAuth
// @Router /client-notes [get]
func (h *ClientHandler) ListAllNotes(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	result, err := h.clientService.ListAllNotes(r.Context(), page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "list client notes")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
