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

type ClientService struct {
	clientRepo *repository.ClientRepository
	clock      Clock
	logger     *zap.Logger
}

func NewClientService(clientRepo *repository.ClientRepository, clock Clock, logger *zap.Logger) *ClientService {
	return &ClientService{
		clientRepo: clientRepo,
		clock:      clock,
		logger:     logger,
	}
}

func (s *ClientService) load(ctx context.Context, actor *auth.UserContext, id uuid.UUID, action auth.Action) (*domain.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "get client")
	}
	if err := decisionError(auth.AuthorizeRecord(actor, auth.ResourceClient, action, client)); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *ClientService) List(ctx context.Context, filter repository.ClientFilter, page, pageSize int) (*domain.PaginatedResponse, error) {
	actor, err := requirePermission(ctx, auth.ResourceClient, auth.ActionRead)
	if err != nil {
		return nil, err
	}

	clients, total, err := s.clientRepo.List(ctx, auth.ScopeForContext(ctx, actor, auth.ResourceClient), filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	dtos := make([]domain.ClientDTO, 0, len(clients))
	for i := range clients {
		dtos = append(dtos, mapper.ToClientDTO(&clients[i]))
	}
	return paginated(dtos, total, page, pageSize), nil
}

func (s *ClientService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ClientDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceClient, auth.ActionRead)
	if err != nil {
		return nil, err
	}
	client, err := s.load(ctx, actor, id, auth.ActionRead)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToClientDTO(client)
	return &dto, nil
}

// Create adds a client to the actor's agency
func (s *ClientService) Create(ctx context.Context, req *domain.CreateClientRequest) (*domain.ClientDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceClient, auth.ActionCreate)
	if err != nil {
		return nil, err
	}
	if actor.AgencyID == nil {
		return nil, invalidInput("No agency associated with this user account.")
	}

	client := &domain.Client{AgencyID: *actor.AgencyID}
	applyClientFields(client, req)
	userID := actor.UserID
	client.CreatedByID = &userID

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	s.logger.Info("client created",
		zap.String("client_id", client.ID.String()),
		zap.String("agency_id", client.AgencyID.String()),
	)
	return s.GetByID(ctx, client.ID)
}

func (s *ClientService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateClientRequest) (*domain.ClientDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceClient, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}
	client, err := s.load(ctx, actor, id, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}

	applyClientFields(client, req)
	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}

	dto := mapper.ToClientDTO(client)
	return &dto, nil
}

func applyClientFields(client *domain.Client, req *domain.CreateClientRequest) {
	client.Name = strings.TrimSpace(req.Name)
	client.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	client.AlternativeNumber = strings.TrimSpace(req.AlternativeNumber)
	client.Email = strings.TrimSpace(req.Email)
	client.PassportNumber = strings.TrimSpace(req.PassportNumber)
	client.CNIC = strings.TrimSpace(req.CNIC)
	client.Address = req.Address
}

// Delete removes the client together with its notes and bookings
func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	actor, err := requirePermission(ctx, auth.ResourceClient, auth.ActionDelete)
	if err != nil {
		return err
	}
	if _, err := s.load(ctx, actor, id, auth.ActionDelete); err != nil {
		return err
	}
	if err := s.clientRepo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "delete client")
	}

	s.logger.Info("client deleted",
		zap.String("client_id", id.String()),
		zap.String("deleted_by", actor.UserID.String()),
	)
	return nil
}

// AddNote appends a note to the client
func (s *ClientService) AddNote(ctx context.Context, clientID uuid.UUID, req *domain.AddNoteRequest) (*domain.NoteDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceClient, auth.ActionUpdate)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Note)
	if text == "" {
		return nil, domain.FieldError("note", "note is required")
	}
	if _, err := s.load(ctx, actor, clientID, auth.ActionUpdate); err != nil {
		return nil, err
	}

	userID := actor.UserID
	note := &domain.ClientNote{
		ClientID:    clientID,
		Note:        text,
		CreatedByID: &userID,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.clientRepo.AddNote(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to add client note: %w", err)
	}

	dto := mapper.ToClientNoteDTO(note)
	dto.CreatedByName = actor.Username
	return &dto, nil
}

func (s *ClientService) ListNotes(ctx context.Context, clientID uuid.UUID) ([]domain.NoteDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceClient, auth.ActionRead)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, actor, clientID, auth.ActionRead); err != nil {
		return nil, err
	}

	notes, err := s.clientRepo.ListNotes(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list client notes: %w", err)
	}
	dtos := make([]domain.NoteDTO, 0, len(notes))
	for i := range notes {
		dtos = append(dtos, mapper.ToClientNoteDTO(&notes[i]))
	}
	return dtos, nil
}

// ListAllNotes returns notes on every client the actor can see
func (s *ClientService) ListAllNotes(ctx context.Context, page, pageSize int) (*domain.PaginatedResponse, error) {
	actor, err := requirePermission(ctx, auth.ResourceClient, auth.ActionRead)
	if err != nil {
		return nil, err
	}

	notes, total, err := s.clientRepo.ListAllNotes(ctx, auth.ScopeForContext(ctx, actor, auth.ResourceClient), page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list client notes: %w", err)
	}
	dtos := make([]domain.NoteDTO, 0, len(notes))
	for i := range notes {
		dtos = append(dtos, mapper.ToClientNoteDTO(&notes[i]))
	}
	return paginated(dtos, total, page, pageSize), nil
}
