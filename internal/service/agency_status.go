package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/repository"
	"go.uber.org/zap"
)

// StatusCache is a best-effort store of agency status values
type StatusCache interface {
	Get(ctx context.Context, agencyID uuid.UUID) (domain.AgencyStatus, bool, error)
	Set(ctx context.Context, agencyID uuid.UUID, status domain.AgencyStatus) error
	Invalidate(ctx context.Context, agencyID uuid.UUID) error
}

// AgencyStatusResolver answers the per-request gate lookup. Cache failures
// are logged and fall through to the database.
type AgencyStatusResolver struct {
	agencyRepo *repository.AgencyRepository
	cache      StatusCache
	logger     *zap.Logger
}

// NewAgencyStatusResolver creates a resolver. cache may be nil.
func NewAgencyStatusResolver(agencyRepo *repository.AgencyRepository, cache StatusCache, logger *zap.Logger) *AgencyStatusResolver {
	return &AgencyStatusResolver{
		agencyRepo: agencyRepo,
		cache:      cache,
		logger:     logger,
	}
}

// AgencyStatus implements auth.AgencyStatusChecker
func (r *AgencyStatusResolver) AgencyStatus(ctx context.Context, agencyID uuid.UUID) (domain.AgencyStatus, error) {
	if r.cache != nil {
		status, hit, err := r.cache.Get(ctx, agencyID)
		if err != nil {
			r.logger.Warn("agency status cache read failed", zap.String("agency_id", agencyID.String()), zap.Error(err))
		} else if hit {
			return status, nil
		}
	}

	status, err := r.agencyRepo.GetStatus(ctx, agencyID)
	if err != nil {
		return "", notFoundOr(err, "get agency status")
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, agencyID, status); err != nil {
			r.logger.Warn("agency status cache write failed", zap.String("agency_id", agencyID.String()), zap.Error(err))
		}
	}
	return status, nil
}

// Invalidate drops a cached status after it changed
func (r *AgencyStatusResolver) Invalidate(ctx context.Context, agencyID uuid.UUID) {
	if r == nil || r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, agencyID); err != nil {
		r.logger.Warn("agency status cache invalidation failed", zap.String("agency_id", agencyID.String()), zap.Error(err))
	}
}
