package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/mapper"
	"github.com/tripdesk/agency-api/internal/repository"
	"github.com/tripdesk/agency-api/internal/storage"
	"go.uber.org/zap"
)

// logoFolder is the storage folder for agency logos
const logoFolder = "agency-logos"

var logoContentTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,
}

type AgencyService struct {
	agencyRepo *repository.AgencyRepository
	status     *AgencyStatusResolver
	files      storage.Storage
	logger     *zap.Logger
}

func NewAgencyService(
	agencyRepo *repository.AgencyRepository,
	status *AgencyStatusResolver,
	files storage.Storage,
	logger *zap.Logger,
) *AgencyService {
	return &AgencyService{
		agencyRepo: agencyRepo,
		status:     status,
		files:      files,
		logger:     logger,
	}
}

// ownAgency loads the actor's agency after the role check for action
func (s *AgencyService) ownAgency(ctx context.Context, action auth.Action) (*domain.Agency, error) {
	actor, err := requirePermission(ctx, auth.ResourceAgency, action)
	if err != nil {
		return nil, err
	}
	if actor.AgencyID == nil {
		return nil, ErrNotFound
	}
	agency, err := s.agencyRepo.GetByID(ctx, *actor.AgencyID)
	if err != nil {
		return nil, notFoundOr(err, "get agency")
	}
	return agency, nil
}

func (s *AgencyService) detail(ctx context.Context, agency *domain.Agency) (*domain.AgencyDTO, error) {
	users, err := s.agencyRepo.CountUsers(ctx, agency.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	bookings, err := s.agencyRepo.CountBookings(ctx, agency.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	dto := mapper.ToAgencyDTO(agency, users, bookings)
	return &dto, nil
}

// Detail returns the actor's agency with user and booking counts
func (s *AgencyService) Detail(ctx context.Context) (*domain.AgencyDTO, error) {
	agency, err := s.ownAgency(ctx, auth.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, agency)
}

// Public returns the subset of agency data any member may read
func (s *AgencyService) Public(ctx context.Context) (*domain.AgencyPublicDTO, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if actor.AgencyID == nil {
		return nil, ErrNotFound
	}
	agency, err := s.agencyRepo.GetByID(ctx, *actor.AgencyID)
	if err != nil {
		return nil, notFoundOr(err, "get agency")
	}
	dto := mapper.ToAgencyPublicDTO(agency)
	return &dto, nil
}

// CheckStatus reports whether the actor's agency currently grants access
func (s *AgencyService) CheckStatus(ctx context.Context) (*domain.AgencyStatusDTO, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if actor.AgencyID == nil {
		return &domain.AgencyStatusDTO{
			AgencyStatus: domain.AgencyStatusNone,
			HasAccess:    actor.IsSuperUser(),
			Message:      domain.StatusCheckDetail(domain.AgencyStatusNone),
		}, nil
	}

	agency, err := s.agencyRepo.GetByID(ctx, *actor.AgencyID)
	if err != nil {
		return nil, notFoundOr(err, "get agency")
	}
	return &domain.AgencyStatusDTO{
		AgencyID:      &agency.ID,
		AgencyName:    agency.Name,
		AgencyStatus:  agency.Status,
		StatusDisplay: agency.Status.Display(),
		HasAccess:     agency.Status == domain.AgencyStatusActive,
		Message:       domain.StatusCheckDetail(agency.Status),
	}, nil
}

// Update changes the actor's agency profile. Status is changed only by platform administration.
func (s *AgencyService) Update(ctx context.Context, req *domain.UpdateAgencyRequest) (*domain.AgencyDTO, error) {
	agency, err := s.ownAgency(ctx, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}

	agency.Name = strings.TrimSpace(req.Name)
	agency.PhoneNumber = req.PhoneNumber
	agency.Email = req.Email
	agency.Address = req.Address
	agency.Description = req.Description
	if err := s.agencyRepo.Update(ctx, agency); err != nil {
		return nil, fmt.Errorf("failed to update agency: %w", err)
	}

	s.logger.Info("agency updated", zap.String("agency_id", agency.ID.String()))
	return s.detail(ctx, agency)
}

// UploadLogo stores a new logo and removes the previous one
func (s *AgencyService) UploadLogo(ctx context.Context, filename, contentType string, data io.Reader) (*domain.AgencyDTO, error) {
	agency, err := s.ownAgency(ctx, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if !logoContentTypes[strings.ToLower(contentType)] {
		return nil, invalidInput("unsupported logo type %q", contentType)
	}

	path, size, err := s.files.Upload(ctx, logoFolder+"/"+agency.ID.String(), filename, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store logo: %w", err)
	}
	previous := agency.Logo
	if err := s.agencyRepo.UpdateLogo(ctx, agency.ID, path); err != nil {
		_ = s.files.Delete(ctx, path)
		return nil, fmt.Errorf("failed to update agency logo: %w", err)
	}
	agency.Logo = path

	if previous != "" {
		if err := s.files.Delete(ctx, previous); err != nil {
			s.logger.Warn("failed to delete previous logo", zap.String("path", previous), zap.Error(err))
		}
	}

	s.logger.Info("agency logo uploaded",
		zap.String("agency_id", agency.ID.String()),
		zap.String("path", path),
		zap.Int64("size", size),
	)
	return s.detail(ctx, agency)
}

// List returns every agency for platform administration
func (s *AgencyService) List(ctx context.Context, page, pageSize int, search string, status string) (*domain.PaginatedResponse, error) {
	if _, err := requirePermission(ctx, auth.ResourceAgency, auth.ActionManage); err != nil {
		return nil, err
	}

	var statusFilter *domain.AgencyStatus
	if status != "" {
		parsed, err := domain.ParseAgencyStatus(status)
		if err != nil {
			return nil, invalidInput("%s", err.Error())
		}
		statusFilter = &parsed
	}

	agencies, total, err := s.agencyRepo.List(ctx, page, pageSize, search, statusFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list agencies: %w", err)
	}

	dtos := make([]domain.AgencyDTO, 0, len(agencies))
	for i := range agencies {
		dtos = append(dtos, mapper.ToAgencyDTO(&agencies[i], 0, 0))
	}
	return paginated(dtos, total, page, pageSize), nil
}

// Create opens a new agency. New agencies default to pending.
func (s *AgencyService) Create(ctx context.Context, req *domain.CreateAgencyRequest) (*domain.AgencyDTO, error) {
	if _, err := requirePermission(ctx, auth.ResourceAgency, auth.ActionManage); err != nil {
		return nil, err
	}

	status := domain.AgencyStatusPending
	if req.Status != "" {
		parsed, err := domain.ParseAgencyStatus(req.Status)
		if err != nil {
			return nil, invalidInput("%s", err.Error())
		}
		status = parsed
	}

	agency := &domain.Agency{
		Name:        strings.TrimSpace(req.Name),
		Status:      status,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Address:     req.Address,
		Description: req.Description,
	}
	if err := s.agencyRepo.Create(ctx, agency); err != nil {
		return nil, fmt.Errorf("failed to create agency: %w", err)
	}

	s.logger.Info("agency created",
		zap.String("agency_id", agency.ID.String()),
		zap.String("status", string(agency.Status)),
	)
	return s.detail(ctx, agency)
}

// UpdateStatus moves an agency between account states and drops the cached status
func (s *AgencyService) UpdateStatus(ctx context.Context, id uuid.UUID, req *domain.UpdateAgencyStatusRequest) (*domain.AgencyDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceAgency, auth.ActionManage)
	if err != nil {
		return nil, err
	}
	status, err := domain.ParseAgencyStatus(req.Status)
	if err != nil {
		return nil, invalidInput("%s", err.Error())
	}

	if err := s.agencyRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, notFoundOr(err, "update agency status")
	}
	s.status.Invalidate(ctx, id)

	s.logger.Info("agency status changed",
		zap.String("agency_id", id.String()),
		zap.String("status", string(status)),
		zap.String("changed_by", actor.UserID.String()),
	)

	agency, err := s.agencyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "get agency")
	}
	return s.detail(ctx, agency)
}
