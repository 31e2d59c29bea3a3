package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/mapper"
	"github.com/tripdesk/agency-api/internal/metrics"
	"github.com/tripdesk/agency-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AuthService struct {
	userRepo *repository.UserRepository
	tokens   *auth.TokenService
	hasher   *auth.PasswordHasher
	metrics  *metrics.Metrics
	clock    Clock
	logger   *zap.Logger
}

func NewAuthService(
	userRepo *repository.UserRepository,
	tokens *auth.TokenService,
	hasher *auth.PasswordHasher,
	m *metrics.Metrics,
	clock Clock,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		hasher:   hasher,
		metrics:  m,
		clock:    clock,
		logger:   logger,
	}
}

// Login checks credentials and the agency status gate, then issues tokens
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.LoginRefused("credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.metrics.LoginRefused("credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.admit(user); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLoginAt = &now

	s.logger.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)
	return s.issue(user)
}

// Refresh exchanges a refresh token for a new token pair. The user must still
// be active and pass the agency gate.
func (s *AuthService) Refresh(ctx context.Context, req *domain.RefreshRequest) (*domain.TokenResponse, error) {
	claims, err := s.tokens.ParseToken(req.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.admit(user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// admit refuses disabled users and users whose agency is not active
func (s *AuthService) admit(user *domain.User) error {
	if !user.IsActive {
		s.metrics.LoginRefused("disabled")
		return ErrAccountDisabled
	}
	if user.Role == domain.RoleSuperUser || user.Agency == nil {
		return nil
	}
	if err := domain.CheckTenantActive(user.Agency); err != nil {
		s.metrics.LoginRefused(string(user.Agency.Status))
		s.logger.Info("login refused by agency status gate",
			zap.String("user_id", user.ID.String()),
			zap.String("agency_id", user.Agency.ID.String()),
			zap.String("agency_status", string(user.Agency.Status)),
		)
		return err
	}
	return nil
}

func (s *AuthService) issue(user *domain.User) (*domain.TokenResponse, error) {
	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &domain.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
		User:         mapper.ToUserDTO(user),
	}, nil
}

// Profile returns the authenticated user
func (s *AuthService) Profile(ctx context.Context) (*domain.UserDTO, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFoundOr(err, "get profile")
	}
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// UpdateProfile changes the authenticated user's own contact details
func (s *AuthService) UpdateProfile(ctx context.Context, req *domain.UpdateProfileRequest) (*domain.UserDTO, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFoundOr(err, "get profile")
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.PhoneNumber = req.PhoneNumber
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// ChangePassword replaces the password after checking the old one
func (s *AuthService) ChangePassword(ctx context.Context, req *domain.ChangePasswordRequest) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return notFoundOr(err, "get user")
	}

	if err := s.hasher.Compare(user.PasswordHash, req.OldPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return domain.FieldError("oldPassword", "Old password is incorrect")
		}
		return err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("password changed", zap.String("user_id", user.ID.String()))
	return nil
}
