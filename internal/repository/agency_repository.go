package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tripdesk/agency-api/internal/domain"
	"gorm.io/gorm"
)

type AgencyRepository struct {
	db *gorm.DB
}

func NewAgencyRepository(db *gorm.DB) *AgencyRepository {
	return &AgencyRepository{db: db}
}

func (r *AgencyRepository) Create(ctx context.Context, agency *domain.Agency) error {
	return r.db.WithContext(ctx).Create(agency).Error
}

func (r *AgencyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agency, error) {
	var agency domain.Agency
	err := r.db.WithContext(ctx).First(&agency, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &agency, nil
}

// GetStatus reads only the status column, for the per-request gate
func (r *AgencyRepository) GetStatus(ctx context.Context, id uuid.UUID) (domain.AgencyStatus, error) {
	var agency domain.Agency
	err := r.db.WithContext(ctx).Select("id", "status").First(&agency, "id = ?", id).Error
	if err != nil {
		return "", err
	}
	return agency.Status, nil
}

func (r *AgencyRepository) Update(ctx context.Context, agency *domain.Agency) error {
	return r.db.WithContext(ctx).Save(agency).Error
}

func (r *AgencyRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AgencyStatus) error {
	result := r.db.WithContext(ctx).Model(&domain.Agency{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *AgencyRepository) UpdateLogo(ctx context.Context, id uuid.UUID, logo string) error {
	return r.db.WithContext(ctx).Model(&domain.Agency{}).Where("id = ?", id).Update("logo", logo).Error
}

func (r *AgencyRepository) List(ctx context.Context, page, pageSize int, search string, status *domain.AgencyStatus) ([]domain.Agency, int64, error) {
	var agencies []domain.Agency
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Agency{})
	if search != "" {
		pattern := likePattern(search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := Paginate(query, page, pageSize).Order("name ASC").Find(&agencies).Error
	return agencies, total, err
}

func (r *AgencyRepository) CountUsers(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("agency_id = ?", id).Count(&count).Error
	return count, err
}

func (r *AgencyRepository) CountBookings(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Booking{}).Where("agency_id = ?", id).Count(&count).Error
	return count, err
}
