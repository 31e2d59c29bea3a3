package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/domain"
	"gorm.io/gorm"
)

// ClientFilter narrows client lists
type ClientFilter struct {
	Search string
	Sort   SortConfig
}

// clientSortFields maps API field names to client columns
var clientSortFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
}

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(ctx context.Context, client *domain.Client) error {
	return r.db.WithContext(ctx).Omit("CreatedBy", "Notes").Create(client).Error
}

// GetByID loads a client without applying any scope. Callers run the
// record-level access decision on the result.
func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	var client domain.Client
	err := r.db.WithContext(ctx).
		Preload("CreatedBy").
		Preload("Notes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Notes.CreatedBy").
		First(&client, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) Update(ctx context.Context, client *domain.Client) error {
	return r.db.WithContext(ctx).Omit("CreatedBy", "Notes").Save(client).Error
}

// Delete removes the client with its notes, bookings and booking notes
func (r *ClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookingIDs := tx.Model(&domain.Booking{}).Select("id").Where("client_id = ?", id)
		if err := tx.Where("booking_id IN (?)", bookingIDs).Delete(&domain.BookingNote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", id).Delete(&domain.Booking{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", id).Delete(&domain.ClientNote{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Client{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// List returns clients within the scope. Clients are agency-scoped only,
// every agent in an agency shares the client book.
func (r *ClientRepository) List(ctx context.Context, scope auth.Scope, filter ClientFilter, page, pageSize int) ([]domain.Client, int64, error) {
	var clients []domain.Client
	var total int64

	query := ApplyScope(r.db.WithContext(ctx).Model(&domain.Client{}), scope.AgencyOnly())
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(phone_number) LIKE ? OR LOWER(email) LIKE ? OR LOWER(passport_number) LIKE ? OR LOWER(cnic) LIKE ?",
			pattern, pattern, pattern, pattern, pattern,
		)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sort := filter.Sort
	if sort.Field == "" {
		sort = DefaultSortConfig()
	}
	err := Paginate(query, page, pageSize).
		Preload("CreatedBy").
		Order(BuildOrderClause(sort, clientSortFields, "created_at")).
		Find(&clients).Error
	return clients, total, err
}

func (r *ClientRepository) AddNote(ctx context.Context, note *domain.ClientNote) error {
	return r.db.WithContext(ctx).Omit("CreatedBy").Create(note).Error
}

func (r *ClientRepository) ListNotes(ctx context.Context, clientID uuid.UUID) ([]domain.ClientNote, error) {
	var notes []domain.ClientNote
	err := r.db.WithContext(ctx).Preload("CreatedBy").
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&notes).Error
	return notes, err
}

// ListAllNotes returns notes on every client inside the scope
func (r *ClientRepository) ListAllNotes(ctx context.Context, scope auth.Scope, page, pageSize int) ([]domain.ClientNote, int64, error) {
	var notes []domain.ClientNote
	var total int64

	clients := ApplyScope(r.db.WithContext(ctx).Model(&domain.Client{}).Select("id"), scope.AgencyOnly())
	query := r.db.WithContext(ctx).Model(&domain.ClientNote{}).Where("client_id IN (?)", clients)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := Paginate(query, page, pageSize).Preload("CreatedBy").Order("created_at DESC").Find(&notes).Error
	return notes, total, err
}
