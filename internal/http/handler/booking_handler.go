package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/repository"
	"github.com/tripdesk/agency-api/internal/service"
	"go.uber.org/zap"
)

type BookingHandler struct {
	bookingService *service.BookingService
	logger         *zap.Logger
}

func NewBookingHandler(bookingService *service.BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// parseBookingFilter reads the list filters. Bad values are reported per field.
func parseBookingFilter(r *http.Request) (repository.BookingFilter, error) {
	q := r.URL.Query()
	filter := repository.BookingFilter{Search: q.Get("search")}
	verr := domain.NewValidationError()

	if raw := q.Get("booking_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			verr.Add("bookingId", "Must be a valid UUID")
		} else {
			filter.BookingID = &id
		}
	}
	if raw := q.Get("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			verr.Add("clientId", "Must be a valid UUID")
		} else {
			filter.ClientID = &id
		}
	}
	if raw := q.Get("booking_status"); raw != "" {
		status, err := domain.ParseBookingStatus(raw)
		if err != nil {
			verr.Add("bookingStatus", err.Error())
		} else {
			filter.BookingStatus = &status
		}
	}
	if raw := q.Get("payment_status"); raw != "" {
		status, err := domain.ParsePaymentStatus(raw)
		if err != nil {
			verr.Add("paymentStatus", err.Error())
		} else {
			filter.PaymentStatus = &status
		}
	}
	if raw := q.Get("missing_dates"); raw != "" {
		missing, err := strconv.ParseBool(raw)
		if err != nil {
			verr.Add("missingDates", "Must be true or false")
		} else {
			filter.MissingDates = &missing
		}
	}

	if verr := verr.OrNil(); verr != nil {
		return filter, verr
	}
	return filter, nil
}

// List godoc
// @Summary List bookings
// @Description Newest first. Agents only see bookings they created.
// @Tags Bookings
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param booking_id query string false "Exact booking ID" format(uuid)
// @Param client_id query string false "Bookings of one client" format(uuid)
// @Param booking_status query string false "Filter by booking status" Enums(pending, confirmed, rejected)
// @Param payment_status query string false "Filter by payment status" Enums(PENDING, HALF_PAID, PAID)
// @Param missing_dates query bool false "true: either date missing, false: both dates present"
// @Param search query string false "Search client or service name"
// @Param agency_id query string false "Agency filter (super users only)" format(uuid)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.BookingDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /bookings [get]
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	filter, err := parseBookingFilter(r)
	if err != nil {
		respondValidationError(w, err)
		return
	}

	result, err := h.bookingService.List(r.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "list bookings")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID" format(uuid)
// @Success 200 {object} domain.BookingDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.bookingService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get booking")
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

// Create godoc
// @Summary Create booking
// @Description Snapshots the service price and derives total, remaining and payment status
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body domain.CreateBookingRequest true "Booking"
// @Success 201 {object} domain.BookingDTO
// @Failure 400 {object} domain.APIError "Discount, date or amount rules violated"
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /bookings [post]
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.bookingService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create booking")
		return
	}
	respondJSON(w, http.StatusCreated, booking)
}

// Update godoc
// @Summary Update booking
// @Description Changes discount, status, payment method or dates. Confirmed and rejected bookings cannot change status.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID" format(uuid)
// @Param request body domain.UpdateBookingRequest true "Changes"
// @Success 200 {object} domain.BookingDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /bookings/{id} [put]
func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.bookingService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update booking")
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

// ApplyPayment godoc
// @Summary Record payment
// @Description Sets the total amount paid so far. The amount may be a JSON string or number.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID" format(uuid)
// @Param request body domain.ApplyPaymentRequest true "Payment"
// @Success 200 {object} domain.BookingDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /bookings/{id}/payment [post]
func (h *BookingHandler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.ApplyPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.bookingService.ApplyPayment(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "apply payment")
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

// Delete godoc
// @Summary Delete booking
// @Tags Bookings
// @Param id path string true "Booking ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /bookings/{id} [delete]
func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.bookingService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete booking")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DatesSummary godoc
// @Summary Count bookings with missing dates
// @Tags Bookings
// @Produce json
// @Param agency_id query string false "Agency filter (super users only)" format(uuid)
// @Success 200 {object} domain.DatesSummaryDTO
// @Security BearerAuth
// @Router /bookings/dates-summary [get]
func (h *BookingHandler) DatesSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.bookingService.DatesSummary(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "summarise booking dates")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// AddNote godoc
// @Summary Add booking note
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID" format(uuid)
// @Param request body domain.AddNoteRequest true "Note"
// @Success 201 {object} domain.NoteDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /bookings/{id}/notes [post]
func (h *BookingHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.AddNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := h.bookingService.AddNote(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "add booking note")
		return
	}
	respondJSON(w, http.StatusCreated, note)
}

// ListNotes godoc
// @Summary List notes for a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID" format(uuid)
// @Success 200 {array} domain.NoteDTO
// @Security BearerAuth
// @Router /bookings/{id}/notes [get]
func (h *BookingHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	notes, err := h.bookingService.ListNotes(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "list booking notes")
		return
	}
	respondJSON(w, http.StatusOK, notes)
}

// ListAllNotes godoc
// @Summary List booking notes across bookings
// @Tags Bookings
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.NoteDTO}
// @Security BearerAuth
// @Router /booking-notes [get]
func (h *BookingHandler) ListAllNotes(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	result, err := h.bookingService.ListAllNotes(r.Context(), page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "list booking notes")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Onboard godoc
// @Summary List travellers on the road
// @Description Confirmed bookings ordered by return date
// @Tags Onboard
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param start_date query string false "Return date on or after (YYYY-MM-DD)"
// @Param end_date query string false "Departure date on or before (YYYY-MM-DD)"
// @Param payment_status query string false "Filter by payment status" Enums(PENDING, HALF_PAID, PAID)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.BookingDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /onboard [get]
func (h *BookingHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	var filter repository.OnboardFilter
	verr := domain.NewValidationError()
	if d, err := queryDate(r, "start_date"); err != nil {
		verr.Add("startDate", "Must be a date in YYYY-MM-DD format")
	} else {
		filter.StartDate = d
	}
	if d, err := queryDate(r, "end_date"); err != nil {
		verr.Add("endDate", "Must be a date in YYYY-MM-DD format")
	} else {
		filter.EndDate = d
	}
	if raw := r.URL.Query().Get("payment_status"); raw != "" {
		status, err := domain.ParsePaymentStatus(raw)
		if err != nil {
			verr.Add("paymentStatus", err.Error())
		} else {
			filter.PaymentStatus = &status
		}
	}
	if verr := verr.OrNil(); verr != nil {
		respondValidationError(w, verr)
		return
	}

	result, err := h.bookingService.Onboard(r.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "list onboard bookings")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// OnboardDetail godoc
// @Summary Get an onboard booking
// @Tags Onboard
// @Produce json
// @Param id path string true "Booking ID" format(uuid)
// @Success 200 {object} domain.BookingDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /onboard/{id} [get]
func (h *BookingHandler) OnboardDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.bookingService.OnboardDetail(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get onboard booking")
		return
	}
	respondJSON(w, http.StatusOK, booking)
}
