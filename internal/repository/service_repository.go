package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/domain"
	"gorm.io/gorm"
)

// ServiceFilter narrows service lists
type ServiceFilter struct {
	Status      *domain.ServiceStatus
	Destination string
	Search      string
}

type ServiceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func (r *ServiceRepository) Create(ctx context.Context, service *domain.Service) error {
	return r.db.WithContext(ctx).Create(service).Error
}

func (r *ServiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	var service domain.Service
	err := r.db.WithContext(ctx).First(&service, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *ServiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ServiceStatus) error {
	return r.db.WithContext(ctx).Model(&domain.Service{}).Where("id = ?", id).Update("status", status).Error
}

// Delete removes the service and every booking sold against it
func (r *ServiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookingIDs := tx.Model(&domain.Booking{}).Select("id").Where("service_id = ?", id)
		if err := tx.Where("booking_id IN (?)", bookingIDs).Delete(&domain.BookingNote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("service_id = ?", id).Delete(&domain.Booking{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Service{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// List returns services within the agency scope, newest first
func (r *ServiceRepository) List(ctx context.Context, scope auth.Scope, filter ServiceFilter, page, pageSize int) ([]domain.Service, int64, error) {
	var services []domain.Service
	var total int64

	query := ApplyScope(r.db.WithContext(ctx).Model(&domain.Service{}), scope.AgencyOnly())
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Destination != "" {
		query = query.Where("LOWER(destination) LIKE ?", likePattern(filter.Destination))
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(service_name) LIKE ? OR LOWER(destination) LIKE ?", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := Paginate(query, page, pageSize).Order("created_at DESC").Find(&services).Error
	return services, total, err
}
