package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/mapper"
	"github.com/tripdesk/agency-api/internal/metrics"
	"github.com/tripdesk/agency-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BookingService owns the booking lifecycle: pricing checks, status
// transitions, payments and notes
type BookingService struct {
	bookingRepo *repository.BookingRepository
	clientRepo  *repository.ClientRepository
	serviceRepo *repository.ServiceRepository
	metrics     *metrics.Metrics
	clock       Clock
	logger      *zap.Logger
}

func NewBookingService(
	bookingRepo *repository.BookingRepository,
	clientRepo *repository.ClientRepository,
	serviceRepo *repository.ServiceRepository,
	m *metrics.Metrics,
	clock Clock,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		clientRepo:  clientRepo,
		serviceRepo: serviceRepo,
		metrics:     m,
		clock:       clock,
		logger:      logger,
	}
}

func agentView(actor *auth.UserContext) bool {
	return actor.Role == domain.RoleAgent
}

func (s *BookingService) toDTO(actor *auth.UserContext, booking *domain.Booking) *domain.BookingDTO {
	dto := mapper.ToBookingDTO(booking, agentView(actor))
	return &dto
}

func (s *BookingService) load(ctx context.Context, actor *auth.UserContext, id uuid.UUID, action auth.Action) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "get booking")
	}
	if err := decisionError(auth.AuthorizeRecord(actor, auth.ResourceBooking, action, booking)); err != nil {
		return nil, err
	}
	return booking, nil
}

// resolveParties loads the client and service for a new booking. Both must
// be visible to the actor and belong to the same agency.
func (s *BookingService) resolveParties(ctx context.Context, actor *auth.UserContext, clientID, serviceID uuid.UUID) (*domain.Client, *domain.Service, error) {
	client, err := s.clientRepo.GetByID(ctx, clientID)
	if err != nil {
		return nil, nil, notFoundOr(err, "get client")
	}
	if err := decisionError(auth.AuthorizeRecord(actor, auth.ResourceClient, auth.ActionRead, client)); err != nil {
		return nil, nil, err
	}

	service, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, nil, notFoundOr(err, "get service")
	}
	if err := decisionError(auth.AuthorizeRecord(actor, auth.ResourceServiceCatalog, auth.ActionRead, service)); err != nil {
		return nil, nil, err
	}

	if service.AgencyID != client.AgencyID {
		return nil, nil, fmt.Errorf("%w: client and service belong to different agencies", ErrPermissionDenied)
	}
	return client, service, nil
}

// Create validates and stores a new booking stamped with the actor as creator.
// Every validation failure is reported together.
func (s *BookingService) Create(ctx context.Context, req *domain.CreateBookingRequest) (*domain.BookingDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceBooking, auth.ActionCreate)
	if err != nil {
		return nil, err
	}
	if !actor.IsSuperUser() && actor.AgencyID == nil {
		return nil, ErrPermissionDenied
	}

	client, service, err := s.resolveParties(ctx, actor, req.ClientID, req.ServiceID)
	if err != nil {
		return nil, err
	}

	verr := domain.NewValidationError()

	status := domain.BookingStatusPending
	if req.BookingStatus != "" {
		parsed, err := domain.ParseBookingStatus(req.BookingStatus)
		if err != nil {
			verr.Add("bookingStatus", err.Error())
		} else {
			status = parsed
		}
	}

	discount := decimal.Zero
	if req.Discount != nil {
		discount = req.Discount.Decimal
	}
	paid := decimal.Zero
	if req.PaidAmount != nil {
		paid = req.PaidAmount.Decimal
		if err := domain.ValidatePaidAmount(paid); err != nil {
			verr.Add("paidAmount", err.Error())
		}
	}

	verr.Merge(domain.ValidateBookingTerms(service, domain.BookingTerms{
		Discount:      domain.NewMoney(discount),
		DepartureDate: req.DepartureDate,
		ArrivalDate:   req.ArrivalDate,
	}))
	if verr.OrNil() != nil {
		return nil, verr
	}

	userID := actor.UserID
	booking := &domain.Booking{
		AgencyID:      client.AgencyID,
		ClientID:      client.ID,
		ServiceID:     service.ID,
		Service:       service,
		Discount:      discount,
		Status:        status,
		PaidAmount:    paid,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		DepartureDate: req.DepartureDate,
		ArrivalDate:   req.ArrivalDate,
		CreatedByID:   &userID,
		Version:       1,
	}
	if !paid.IsZero() {
		now := s.clock.Now().UTC()
		booking.LastPaymentDate = &now
	}
	booking.Settle()

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	s.metrics.BookingCreated()

	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("agency_id", booking.AgencyID.String()),
		zap.String("total_amount", domain.FormatMoney(booking.TotalAmount())),
		zap.String("payment_status", string(booking.PaymentStatus)),
	)

	created, err := s.bookingRepo.GetByID(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload booking: %w", err)
	}
	return s.toDTO(actor, created), nil
}

func (s *BookingService) GetByID(ctx context.Context, id uuid.UUID) (*domain.BookingDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceBooking, auth.ActionRead)
	if err != nil {
		return nil, err
	}
	booking, err := s.load(ctx, actor, id, auth.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.toDTO(actor, booking), nil
}

func (s *BookingService) List(ctx context.Context, filter repository.BookingFilter, page, pageSize int) (*domain.PaginatedResponse, error) {
	actor, err := requirePermission(ctx, auth.ResourceBooking, auth.ActionRead)
	if err != nil {
		return nil, err
	}

	bookings, total, err := s.bookingRepo.List(ctx, auth.ScopeForContext(ctx, actor, auth.ResourceBooking), filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return paginated(s.toDTOs(actor, bookings), total, page, pageSize), nil
}

func (s *BookingService) toDTOs(actor *auth.UserContext, bookings []domain.Booking) []domain.BookingDTO {
	dtos := make([]domain.BookingDTO, 0, len(bookings))
	for i := range bookings {
		dtos = append(dtos, mapper.ToBookingDTO(&bookings[i], agentView(actor)))
	}
	return dtos
}

// mutate locks the booking, applies fn and writes the result conditional on
// the version read under the lock
func (s *BookingService) mutate(ctx context.Context, actor *auth.UserContext, id uuid.UUID, fn func(booking *domain.Booking) error) error {
	err := s.bookingRepo.Transaction(ctx, func(tx *repository.BookingRepository) error {
		booking, err := tx.LockByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "lock booking")
		}
		if err := decisionError(auth.AuthorizeRecord(actor, auth.ResourceBooking, auth.ActionUpdate, booking)); err != nil {
			return err
		}
		if err := fn(booking); err != nil {
			return err
		}
		booking.Settle()
		return tx.UpdateVersioned(ctx, booking)
	})
	if errors.Is(err, repository.ErrVersionConflict) {
		s.logger.Warn("booking update lost a concurrent race", zap.String("booking_id", id.String()))
		return ErrConcurrentUpdate
	}
	return err
}

func (s *BookingService) reload(ctx context.Context, actor *auth.UserContext, id uuid.UUID) (*domain.BookingDTO, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "reload booking")
	}
	return s.toDTO(actor, booking), nil
}

// Update changes discount, dates, status and payment method. The service
// is fixed once booked and the paid amount changes only through ApplyPayment.
// A disallowed status transition is checked first and fails the whole update
// with ErrInvalidTransition; field errors are collected only once the
// transition is allowed.
func (s *BookingService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateBookingRequest) (*domain.BookingDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceBooking, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}

	var from, to domain.BookingStatus
	err = s.mutate(ctx, actor, id, func(booking *domain.Booking) error {
		verr := domain.NewValidationError()

		from, to = booking.Status, booking.Status
		if req.BookingStatus != nil {
			next, err := domain.ParseBookingStatus(*req.BookingStatus)
			if err != nil {
				verr.Add("bookingStatus", err.Error())
			} else if err := domain.ValidateBookingTransition(booking.Status, next); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
			} else {
				to = next
			}
		}

		if req.Discount != nil {
			booking.Discount = req.Discount.Decimal
		}
		if req.DepartureDate.Set {
			booking.DepartureDate = req.DepartureDate.Date
		}
		if req.ArrivalDate.Set {
			booking.ArrivalDate = req.ArrivalDate.Date
		}
		verr.Merge(domain.ValidateBookingTerms(booking.Service, domain.BookingTerms{
			Discount:      domain.NewMoney(booking.Discount),
			DepartureDate: booking.DepartureDate,
			ArrivalDate:   booking.ArrivalDate,
		}))
		if verr.OrNil() != nil {
			return verr
		}

		booking.Status = to
		if req.PaymentMethod != nil {
			booking.PaymentMethod = strings.TrimSpace(*req.PaymentMethod)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if from != to {
		s.logger.Info("booking status changed",
			zap.String("booking_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.String("changed_by", actor.UserID.String()),
		)
	}
	return s.reload(ctx, actor, id)
}

// ApplyPayment records the total amount paid so far and stamps the payment date
func (s *BookingService) ApplyPayment(ctx context.Context, id uuid.UUID, req *domain.ApplyPaymentRequest) (*domain.BookingDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceBooking, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}

	paid, err := domain.ParseMoney(req.PaidAmount)
	if err != nil {
		if errors.Is(err, domain.ErrMissingAmount) {
			return nil, domain.FieldError("paidAmount", "paid_amount is required")
		}
		return nil, domain.FieldError("paidAmount", err.Error())
	}
	if err := domain.ValidatePaidAmount(paid); err != nil {
		return nil, domain.FieldError("paidAmount", err.Error())
	}

	var status domain.PaymentStatus
	err = s.mutate(ctx, actor, id, func(booking *domain.Booking) error {
		now := s.clock.Now().UTC()
		booking.PaidAmount = paid
		booking.LastPaymentDate = &now
		if req.PaymentMethod != nil {
			booking.PaymentMethod = strings.TrimSpace(*req.PaymentMethod)
		}
		status = booking.CurrentPaymentStatus()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentApplied(string(status))
	s.logger.Info("booking payment applied",
		zap.String("booking_id", id.String()),
		zap.String("paid_amount", domain.FormatMoney(paid)),
		zap.String("payment_status", string(status)),
	)
	return s.reload(ctx, actor, id)
}

// AddNote appends a note to the booking
func (s *BookingService) AddNote(ctx context.Context, id uuid.UUID, req *domain.AddNoteRequest) (*domain.NoteDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceBooking, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Note)
	if text == "" {
		return nil, domain.FieldError("note", "note is required")
	}
	if _, err := s.load(ctx, actor, id, auth.ActionUpdate); err != nil {
		return nil, err
	}

	userID := actor.UserID
	note := &domain.BookingNote{
		BookingID:   id,
		Note:        text,
		CreatedByID: &userID,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.bookingRepo.AddNote(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to add booking note: %w", err)
	}

	dto := mapper.ToBookingNoteDTO(note)
	dto.CreatedByName = actor.Username
	return &dto, nil
}

func (s *BookingService) ListNotes(ctx context.Context, id uuid.UUID) ([]domain.NoteDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceBooking, auth.ActionRead)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, actor, id, auth.ActionRead); err != nil {
		return nil, err
	}

	notes, err := s.bookingRepo.ListNotes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list booking notes: %w", err)
	}
	dtos := make([]domain.NoteDTO, 0, len(notes))
	for i := range notes {
		dtos = append(dtos, mapper.ToBookingNoteDTO(&notes[i]))
	}
	return dtos, nil
}

// ListAllNotes returns notes on every booking the actor can see
func (s *BookingService) ListAllNotes(ctx context.Context, page, pageSize int) (*domain.PaginatedResponse, error) {
	actor, err := requirePermission(ctx, auth.ResourceBooking, auth.ActionRead)
	if err != nil {
		return nil, err
	}

	notes, total, err := s.bookingRepo.ListAllNotes(ctx, auth.ScopeForContext(ctx, actor, auth.ResourceBooking), page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list booking notes: %w", err)
	}
	dtos := make([]domain.NoteDTO, 0, len(notes))
	for i := range notes {
		dtos = append(dtos, mapper.ToBookingNoteDTO(&notes[i]))
	}
	return paginated(dtos, total, page, pageSize), nil
}

// Delete removes the booking and its notes
func (s *BookingService) Delete(ctx context.Context, id uuid.UUID) error {
	actor, err := requirePermission(ctx, auth.ResourceBooking, auth.ActionDelete)
	if err != nil {
		return err
	}
	if _, err := s.load(ctx, actor, id, auth.ActionDelete); err != nil {
		return err
	}
	if err := s.bookingRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	s.logger.Info("booking deleted",
		zap.String("booking_id", id.String()),
		zap.String("deleted_by", actor.UserID.String()),
	)
	return nil
}

// DatesSummary counts visible bookings with missing travel dates
func (s *BookingService) DatesSummary(ctx context.Context) (*domain.DatesSummaryDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceBooking, auth.ActionRead)
	if err != nil {
		return nil, err
	}
	summary, err := s.bookingRepo.DatesSummary(ctx, auth.ScopeForContext(ctx, actor, auth.ResourceBooking))
	if err != nil {
		return nil, fmt.Errorf("failed to summarise booking dates: %w", err)
	}
	return &domain.DatesSummaryDTO{
		MissingAny:       summary.MissingAny,
		MissingArrival:   summary.MissingArrival,
		MissingDeparture: summary.MissingDeparture,
	}, nil
}

// Onboard lists confirmed bookings ordered by return date
func (s *BookingService) Onboard(ctx context.Context, filter repository.OnboardFilter, page, pageSize int) (*domain.PaginatedResponse, error) {
	actor, err := requirePermission(ctx, auth.ResourceBooking, auth.ActionRead)
	if err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, domain.FieldError("endDate", "end_date must not be before start_date")
	}

	bookings, total, err := s.bookingRepo.Onboard(ctx, auth.ScopeForContext(ctx, actor, auth.ResourceBooking), filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list onboard bookings: %w", err)
	}
	return paginated(s.toDTOs(actor, bookings), total, page, pageSize), nil
}

// OnboardDetail returns a single confirmed booking
func (s *BookingService) OnboardDetail(ctx context.Context, id uuid.UUID) (*domain.BookingDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceBooking, auth.ActionRead)
	if err != nil {
		return nil, err
	}
	booking, err := s.load(ctx, actor, id, auth.ActionRead)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusConfirmed {
		return nil, ErrNotFound
	}
	return s.toDTO(actor, booking), nil
}
