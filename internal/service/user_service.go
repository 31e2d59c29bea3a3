package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/mapper"
	"github.com/tripdesk/agency-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UserService struct {
	userRepo   *repository.UserRepository
	agencyRepo *repository.AgencyRepository
	hasher     *auth.PasswordHasher
	logger     *zap.Logger
}

func NewUserService(
	userRepo *repository.UserRepository,
	agencyRepo *repository.AgencyRepository,
	hasher *auth.PasswordHasher,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		agencyRepo: agencyRepo,
		hasher:     hasher,
		logger:     logger,
	}
}

// load fetches a user and runs the record-level decision. Super user
// accounts are invisible to everyone else.
func (s *UserService) load(ctx context.Context, actor *auth.UserContext, id uuid.UUID, action auth.Action) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "get user")
	}
	if user.Role == domain.RoleSuperUser && !actor.IsSuperUser() {
		return nil, ErrNotFound
	}
	if err := decisionError(auth.AuthorizeRecord(actor, auth.ResourceUser, action, user)); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, search, role string, page, pageSize int) (*domain.PaginatedResponse, error) {
	actor, err := requirePermission(ctx, auth.ResourceUser, auth.ActionRead)
	if err != nil {
		return nil, err
	}

	filter := repository.UserFilter{Search: search, HideSuperUsers: !actor.IsSuperUser()}
	if role != "" {
		parsed, err := domain.ParseRole(role)
		if err != nil {
			return nil, invalidInput("%s", err.Error())
		}
		filter.Role = &parsed
	}

	users, total, err := s.userRepo.List(ctx, auth.ScopeForContext(ctx, actor, auth.ResourceUser), filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	dtos := make([]domain.UserDTO, 0, len(users))
	for i := range users {
		dtos = append(dtos, mapper.ToUserDTO(&users[i]))
	}
	return paginated(dtos, total, page, pageSize), nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceUser, auth.ActionRead)
	if err != nil {
		return nil, err
	}
	user, err := s.load(ctx, actor, id, auth.ActionRead)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// Create adds a staff account. Non-super actors always create inside their own agency.
func (s *UserService) Create(ctx context.Context, req *domain.CreateUserRequest) (*domain.UserDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceUser, auth.ActionCreate)
	if err != nil {
		return nil, err
	}

	role := domain.RoleAgent
	if req.Role != "" {
		if role, err = domain.ParseRole(req.Role); err != nil {
			return nil, invalidInput("%s", err.Error())
		}
	}
	if role == domain.RoleSuperUser && !actor.IsSuperUser() {
		return nil, ErrPermissionDenied
	}

	agencyID := actor.AgencyID
	if actor.IsSuperUser() {
		agencyID = req.AgencyID
		if agencyID != nil {
			if _, err := s.agencyRepo.GetByID(ctx, *agencyID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, domain.FieldError("agencyId", "Agency does not exist")
				}
				return nil, fmt.Errorf("failed to get agency: %w", err)
			}
		}
		if role == domain.RoleSuperUser {
			agencyID = nil
		}
	}
	if agencyID == nil && role != domain.RoleSuperUser {
		return nil, domain.FieldError("agencyId", "agencyId is required")
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.userRepo.ExistsByUsernameOrEmail(ctx, username, email, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check user uniqueness: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: username or email already in use", ErrConflict)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		AgencyID:     agencyID,
		Role:         role,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
		zap.String("created_by", actor.UserID.String()),
	)

	created, err := s.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	dto := mapper.ToUserDTO(created)
	return &dto, nil
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateUserRequest) (*domain.UserDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceUser, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}
	user, err := s.load(ctx, actor, id, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}

	if req.Role != "" {
		role, err := domain.ParseRole(req.Role)
		if err != nil {
			return nil, invalidInput("%s", err.Error())
		}
		if role == domain.RoleSuperUser && !actor.IsSuperUser() {
			return nil, ErrPermissionDenied
		}
		user.Role = role
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.userRepo.ExistsByUsernameOrEmail(ctx, user.Username, email, &user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check user uniqueness: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: email already in use", ErrConflict)
	}

	user.Email = email
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.PhoneNumber = req.PhoneNumber
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// Delete removes a user. Records they created stay with no creator.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	actor, err := requirePermission(ctx, auth.ResourceUser, auth.ActionDelete)
	if err != nil {
		return err
	}
	if id == actor.UserID {
		return invalidInput("You cannot delete your own account")
	}
	if _, err := s.load(ctx, actor, id, auth.ActionDelete); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info("user deleted",
		zap.String("user_id", id.String()),
		zap.String("deleted_by", actor.UserID.String()),
	)
	return nil
}

func (s *UserService) Activate(ctx context.Context, id uuid.UUID) (*domain.UserDTO, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate disables login for a user. Agency owners cannot be deactivated.
func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID) (*domain.UserDTO, error) {
	return s.setActive(ctx, id, false)
}

func (s *UserService) setActive(ctx context.Context, id uuid.UUID, active bool) (*domain.UserDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceUser, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}
	user, err := s.load(ctx, actor, id, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if !active && user.Role == domain.RoleAgencyOwner {
		return nil, invalidInput("Cannot deactivate agency owner")
	}

	if err := s.userRepo.SetActive(ctx, user.ID, active); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	user.IsActive = active

	s.logger.Info("user activation changed",
		zap.String("user_id", user.ID.String()),
		zap.Bool("active", active),
		zap.String("changed_by", actor.UserID.String()),
	)
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}
