package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/mapper"
	"github.com/tripdesk/agency-api/internal/repository"
	"go.uber.org/zap"
)

// CatalogService manages the travel packages an agency sells
type CatalogService struct {
	serviceRepo *repository.ServiceRepository
	bookingRepo *repository.BookingRepository
	logger      *zap.Logger
}

func NewCatalogService(
	serviceRepo *repository.ServiceRepository,
	bookingRepo *repository.BookingRepository,
	logger *zap.Logger,
) *CatalogService {
	return &CatalogService{
		serviceRepo: serviceRepo,
		bookingRepo: bookingRepo,
		logger:      logger,
	}
}

// canManage reports whether the actor gets the full service projection
func canManage(actor *auth.UserContext) bool {
	return auth.Authorize(actor, auth.ResourceService, auth.ActionRead)
}

func (s *CatalogService) load(ctx context.Context, actor *auth.UserContext, id uuid.UUID, resource auth.Resource, action auth.Action) (*domain.Service, error) {
	service, err := s.serviceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "get service")
	}
	if err := decisionError(auth.AuthorizeRecord(actor, resource, action, service)); err != nil {
		return nil, err
	}
	return service, nil
}

// List returns the full projection to managers and the summary projection to agents
func (s *CatalogService) List(ctx context.Context, filter repository.ServiceFilter, page, pageSize int) (*domain.PaginatedResponse, error) {
	actor, err := requirePermission(ctx, auth.ResourceServiceCatalog, auth.ActionRead)
	if err != nil {
		return nil, err
	}

	services, total, err := s.serviceRepo.List(ctx, auth.ScopeForContext(ctx, actor, auth.ResourceServiceCatalog), filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	if !canManage(actor) {
		dtos := make([]domain.ServiceSummaryDTO, 0, len(services))
		for i := range services {
			dtos = append(dtos, mapper.ToServiceSummaryDTO(&services[i]))
		}
		return paginated(dtos, total, page, pageSize), nil
	}

	dtos := make([]domain.ServiceDTO, 0, len(services))
	for i := range services {
		dtos = append(dtos, mapper.ToServiceDTO(&services[i]))
	}
	return paginated(dtos, total, page, pageSize), nil
}

// GetByID returns the full service, includes and all, to anyone who may read the catalog
func (s *CatalogService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ServiceDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceServiceCatalog, auth.ActionRead)
	if err != nil {
		return nil, err
	}
	service, err := s.load(ctx, actor, id, auth.ResourceServiceCatalog, auth.ActionRead)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToServiceDTO(service)
	return &dto, nil
}

func (s *CatalogService) Create(ctx context.Context, req *domain.CreateServiceRequest) (*domain.ServiceDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceService, auth.ActionCreate)
	if err != nil {
		return nil, err
	}
	if actor.AgencyID == nil {
		return nil, invalidInput("No agency associated with this user account.")
	}

	service := &domain.Service{AgencyID: *actor.AgencyID, Status: domain.ServiceStatusActive}
	if err := applyServiceFields(service, req); err != nil {
		return nil, err
	}
	if err := s.serviceRepo.Create(ctx, service); err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	s.logger.Info("service created",
		zap.String("service_id", service.ID.String()),
		zap.String("agency_id", service.AgencyID.String()),
		zap.String("total_price", domain.FormatMoney(service.TotalPrice())),
	)
	dto := mapper.ToServiceDTO(service)
	return &dto, nil
}

// Update changes a service. A pricing change that would leave an existing
// booking's discount above the new ceiling is refused. Bookings on the
// service get their payment status recomputed in the same transaction.
func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateServiceRequest) (*domain.ServiceDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceService, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}
	service, err := s.load(ctx, actor, id, auth.ResourceService, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}

	if err := applyServiceFields(service, req); err != nil {
		return nil, err
	}

	var resettled int
	err = s.bookingRepo.Transaction(ctx, func(tx *repository.BookingRepository) error {
		limit := domain.MaxDiscount(service)
		affected, err := tx.CountDiscountAbove(ctx, service.ID, limit)
		if err != nil {
			return fmt.Errorf("failed to check booking discounts: %w", err)
		}
		if affected > 0 {
			return domain.FieldError("profit",
				fmt.Sprintf("Profit change would put %d booking discount(s) above the allowed maximum of %s", affected, domain.FormatMoney(limit)))
		}

		resettled, err = tx.Reprice(ctx, service)
		if err != nil {
			return fmt.Errorf("failed to update service: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if resettled > 0 {
		s.logger.Info("service repriced",
			zap.String("service_id", service.ID.String()),
			zap.String("total_price", domain.FormatMoney(service.TotalPrice())),
			zap.Int("bookings_resettled", resettled),
		)
	}
	dto := mapper.ToServiceDTO(service)
	return &dto, nil
}

func applyServiceFields(service *domain.Service, req *domain.CreateServiceRequest) error {
	verr := domain.NewValidationError()
	if req.BaseCost == nil {
		verr.Add("baseCost", "baseCost is required")
	}
	if req.Profit == nil {
		verr.Add("profit", "profit is required")
	}
	var status domain.ServiceStatus
	if req.Status != "" {
		status = domain.ServiceStatus(strings.ToLower(req.Status))
		if !status.IsValid() {
			verr.Add("status", "Must be one of: active inactive")
		}
	}
	if verr.OrNil() != nil {
		return verr
	}
	if perr := domain.ValidateServicePricing(req.BaseCost.Decimal, req.Profit.Decimal); perr != nil {
		return perr
	}

	service.Name = strings.TrimSpace(req.Name)
	service.Includes = domain.StringList(req.Includes)
	if service.Includes == nil {
		service.Includes = domain.StringList{}
	}
	service.BaseCost = req.BaseCost.Decimal
	service.Profit = req.Profit.Decimal
	service.Duration = req.Duration
	service.Destination = req.Destination
	if status != "" {
		service.Status = status
	}
	return nil
}

// Delete removes the service together with every booking sold against it
func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	actor, err := requirePermission(ctx, auth.ResourceService, auth.ActionDelete)
	if err != nil {
		return err
	}
	if _, err := s.load(ctx, actor, id, auth.ResourceService, auth.ActionDelete); err != nil {
		return err
	}
	if err := s.serviceRepo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "delete service")
	}

	s.logger.Info("service deleted",
		zap.String("service_id", id.String()),
		zap.String("deleted_by", actor.UserID.String()),
	)
	return nil
}

func (s *CatalogService) Activate(ctx context.Context, id uuid.UUID) (*domain.ServiceDTO, error) {
	return s.setStatus(ctx, id, domain.ServiceStatusActive)
}

func (s *CatalogService) Deactivate(ctx context.Context, id uuid.UUID) (*domain.ServiceDTO, error) {
	return s.setStatus(ctx, id, domain.ServiceStatusInactive)
}

func (s *CatalogService) setStatus(ctx context.Context, id uuid.UUID, status domain.ServiceStatus) (*domain.ServiceDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceService, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}
	service, err := s.load(ctx, actor, id, auth.ResourceService, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if err := s.serviceRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update service status: %w", err)
	}
	service.Status = status

	dto := mapper.ToServiceDTO(service)
	return &dto, nil
}
