package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookingFilter narrows booking lists
type BookingFilter struct {
	BookingID     *uuid.UUID
	ClientID      *uuid.UUID
	BookingStatus *domain.BookingStatus
	PaymentStatus *domain.PaymentStatus
	// MissingDates true keeps bookings lacking either date, false keeps those with both
	MissingDates *bool
	// Search matches client name or service name
	Search string
}

// OnboardFilter narrows the list of confirmed bookings
type OnboardFilter struct {
	// StartDate keeps bookings returning on or after the date
	StartDate *domain.Date
	// EndDate keeps bookings departing on or before the date
	EndDate       *domain.Date
	PaymentStatus *domain.PaymentStatus
}

// DatesSummary counts bookings with incomplete travel dates
type DatesSummary struct {
	MissingAny       int64
	MissingArrival   int64
	MissingDeparture int64
}

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Transaction runs fn with a repository bound to a single transaction
func (r *BookingRepository) Transaction(ctx context.Context, fn func(tx *BookingRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&BookingRepository{db: tx})
	})
}

func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	if booking.Version == 0 {
		booking.Version = 1
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(booking).Error
}

// GetByID loads a booking with its client, service, creator and notes
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	var booking domain.Booking
	err := r.withDetails(r.db.WithContext(ctx)).First(&booking, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// LockByID reads the booking row FOR UPDATE and loads its service.
// Must run inside Transaction.
func (r *BookingRepository) LockByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	var booking domain.Booking
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	var service domain.Service
	if err := r.db.WithContext(ctx).First(&service, "id = ?", booking.ServiceID).Error; err != nil {
		return nil, err
	}
	booking.Service = &service
	return &booking, nil
}

// UpdateVersioned writes the mutable booking fields when the stored version
// still matches booking.Version, then advances the version.
func (r *BookingRepository) UpdateVersioned(ctx context.Context, booking *domain.Booking) error {
	result := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("id = ? AND version = ?", booking.ID, booking.Version).
		Updates(map[string]interface{}{
			"discount":          booking.Discount,
			"booking_status":    booking.Status,
			"paid_amount":       booking.PaidAmount,
			"payment_status":    booking.PaymentStatus,
			"payment_method":    booking.PaymentMethod,
			"last_payment_date": booking.LastPaymentDate,
			"departure_date":    booking.DepartureDate,
			"arrival_date":      booking.ArrivalDate,
			"version":           booking.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	booking.Version++
	return nil
}

// CountDiscountAbove counts bookings on the service whose discount exceeds limit
func (r *BookingRepository) CountDiscountAbove(ctx context.Context, serviceID uuid.UUID, limit decimal.Decimal) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("service_id = ? AND discount > ?", serviceID, limit).
		Count(&count).Error
	return count, err
}

// Reprice saves the service and recomputes the stored payment status of every
// booking sold against it. Returns how many bookings changed status.
// Must run inside Transaction.
func (r *BookingRepository) Reprice(ctx context.Context, service *domain.Service) (int, error) {
	if err := r.db.WithContext(ctx).Save(service).Error; err != nil {
		return 0, err
	}

	var bookings []domain.Booking
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("service_id = ?", service.ID).
		Find(&bookings).Error
	if err != nil {
		return 0, err
	}

	changed := 0
	for i := range bookings {
		booking := &bookings[i]
		booking.Service = service
		previous := booking.PaymentStatus
		booking.Settle()
		if booking.PaymentStatus == previous {
			continue
		}
		err := r.db.WithContext(ctx).Model(&domain.Booking{}).
			Where("id = ?", booking.ID).
			Updates(map[string]interface{}{
				"payment_status": booking.PaymentStatus,
				"version":        gorm.Expr("version + 1"),
			}).Error
		if err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// Delete removes the booking and its notes
func (r *BookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("booking_id = ?", id).Delete(&domain.BookingNote{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Booking{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// List returns bookings within the scope, newest first
func (r *BookingRepository) List(ctx context.Context, scope auth.Scope, filter BookingFilter, page, pageSize int) ([]domain.Booking, int64, error) {
	var bookings []domain.Booking
	var total int64

	query := r.applyFilter(ApplyScope(r.db.WithContext(ctx).Model(&domain.Booking{}), scope), filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.withSummary(Paginate(query, page, pageSize)).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, total, err
}

func (r *BookingRepository) applyFilter(query *gorm.DB, filter BookingFilter) *gorm.DB {
	if filter.BookingID != nil {
		query = query.Where("id = ?", *filter.BookingID)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.BookingStatus != nil {
		query = query.Where("booking_status = ?", *filter.BookingStatus)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.MissingDates != nil {
		if *filter.MissingDates {
			query = query.Where("departure_date IS NULL OR arrival_date IS NULL")
		} else {
			query = query.Where("departure_date IS NOT NULL AND arrival_date IS NOT NULL")
		}
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		clients := r.db.Model(&domain.Client{}).Select("id").Where("LOWER(name) LIKE ?", pattern)
		services := r.db.Model(&domain.Service{}).Select("id").Where("LOWER(service_name) LIKE ?", pattern)
		query = query.Where("client_id IN (?) OR service_id IN (?)", clients, services)
	}
	return query
}

// DatesSummary counts bookings in scope that lack travel dates
func (r *BookingRepository) DatesSummary(ctx context.Context, scope auth.Scope) (*DatesSummary, error) {
	var summary DatesSummary
	base := func() *gorm.DB {
		return ApplyScope(r.db.WithContext(ctx).Model(&domain.Booking{}), scope)
	}
	if err := base().Where("departure_date IS NULL OR arrival_date IS NULL").Count(&summary.MissingAny).Error; err != nil {
		return nil, err
	}
	if err := base().Where("arrival_date IS NULL").Count(&summary.MissingArrival).Error; err != nil {
		return nil, err
	}
	if err := base().Where("departure_date IS NULL").Count(&summary.MissingDeparture).Error; err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListForAnalytics returns bookings in scope created within [start, end).
// Nil bounds are open.
func (r *BookingRepository) ListForAnalytics(ctx context.Context, scope auth.Scope, start, end *time.Time) ([]domain.Booking, error) {
	var bookings []domain.Booking
	query := ApplyScope(r.db.WithContext(ctx).Model(&domain.Booking{}), scope)
	if start != nil {
		query = query.Where("created_at >= ?", start.UTC())
	}
	if end != nil {
		query = query.Where("created_at < ?", end.UTC())
	}
	err := query.Preload("Service").Preload("CreatedBy").Find(&bookings).Error
	return bookings, err
}

// Onboard lists confirmed bookings in scope ordered by return date
func (r *BookingRepository) Onboard(ctx context.Context, scope auth.Scope, filter OnboardFilter, page, pageSize int) ([]domain.Booking, int64, error) {
	var bookings []domain.Booking
	var total int64

	query := ApplyScope(r.db.WithContext(ctx).Model(&domain.Booking{}), scope).
		Where("booking_status = ?", domain.BookingStatusConfirmed)
	if filter.StartDate != nil {
		query = query.Where("arrival_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("departure_date <= ?", *filter.EndDate)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.withSummary(Paginate(query, page, pageSize)).
		Order("arrival_date ASC").
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, total, err
}

// ListDepartingWithoutReturn returns confirmed bookings of every agency
// departing within [from, to] with no return date set
func (r *BookingRepository) ListDepartingWithoutReturn(ctx context.Context, from, to domain.Date) ([]domain.Booking, error) {
	var bookings []domain.Booking
	err := r.db.WithContext(ctx).
		Where("booking_status = ?", domain.BookingStatusConfirmed).
		Where("departure_date >= ? AND departure_date <= ?", from, to).
		Where("arrival_date IS NULL").
		Order("departure_date ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *BookingRepository) AddNote(ctx context.Context, note *domain.BookingNote) error {
	return r.db.WithContext(ctx).Omit("CreatedBy").Create(note).Error
}

func (r *BookingRepository) ListNotes(ctx context.Context, bookingID uuid.UUID) ([]domain.BookingNote, error) {
	var notes []domain.BookingNote
	err := r.db.WithContext(ctx).Preload("CreatedBy").
		Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		Find(&notes).Error
	return notes, err
}

// ListAllNotes returns notes on every booking inside the scope
func (r *BookingRepository) ListAllNotes(ctx context.Context, scope auth.Scope, page, pageSize int) ([]domain.BookingNote, int64, error) {
	var notes []domain.BookingNote
	var total int64

	bookings := ApplyScope(r.db.WithContext(ctx).Model(&domain.Booking{}).Select("id"), scope)
	query := r.db.WithContext(ctx).Model(&domain.BookingNote{}).Where("booking_id IN (?)", bookings)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := Paginate(query, page, pageSize).Preload("CreatedBy").Order("created_at DESC").Find(&notes).Error
	return notes, total, err
}

func (r *BookingRepository) withSummary(query *gorm.DB) *gorm.DB {
	return query.Preload("Client").Preload("Service").Preload("CreatedBy")
}

func (r *BookingRepository) withDetails(query *gorm.DB) *gorm.DB {
	return r.withSummary(query).
		Preload("Notes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Notes.CreatedBy")
}
