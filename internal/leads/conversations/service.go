// Package conversations manages the append-only interaction log of leads.
// Entries are tombstoned instead of removed, and only the conclusion and
// the profitability outcome can change after creation.
package conversations

import (
	"context"
	"errors"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/management"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgConversationNotFound = "Conversation not found"
	msgLeadNotFound         = "Lead not found"
	msgLeadAccessDenied     = "You do not have access to this lead"
	msgConclusionRequired   = "Conclusion is required"
	msgFollowUpInPast       = "Follow-up date must be in the future"
	msgNothingToUpdate      = "At least one of conclusion or isProfitable is required"
	msgNotAuthor            = "You can only modify your own conversations"
	msgUnauthorizedAccess   = "Unauthorized access"
)

// Repository is the data access the conversation service needs.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	repository.ConversationRecorder
	repository.ConversationStore
}

// Service manages lead conversations.
type Service struct {
	repo Repository
	bus  events.Bus
	log  *logger.Logger
	now  func() time.Time
}

// New creates a conversation service.
func New(repo Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log, now: time.Now}
}

// Create logs a conversation without changing the lead status.
func (s *Service) Create(ctx context.Context, by actor.Actor, leadID uuid.UUID, req transport.CreateConversationRequest) (transport.ConversationResponse, error) {
	conclusion := sanitize.Text(req.Conclusion)
	if conclusion == "" {
		return transport.ConversationResponse{}, apperr.Validation(msgConclusionRequired)
	}

	now := s.now().UTC()
	if req.FollowUpDate != nil && !req.FollowUpDate.After(now) {
		return transport.ConversationResponse{}, apperr.Validation(msgFollowUpInPast)
	}

	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ConversationResponse{}, apperr.NotFound(msgLeadNotFound)
		}
		return transport.ConversationResponse{}, err
	}
	if !domain.VisibleTo(lead.AssignedTo, lead.CreatedBy, by) {
		return transport.ConversationResponse{}, apperr.Forbidden(msgLeadAccessDenied)
	}

	date := now
	if req.Date != nil {
		date = req.Date.UTC()
	}

	params := repository.RecordConversationParams{
		LeadID:       leadID,
		Date:         date,
		Conclusion:   conclusion,
		IsProfitable: req.IsProfitable,
		FollowUpDate: req.FollowUpDate,
		AddedBy:      by.ID,
		AddedByRole:  string(by.Role),
		LastContact:  now,
	}
	if req.FollowUpDate != nil {
		params.AppendFollowUp = domain.FormatFollowUpDate(*req.FollowUpDate)
	}

	conversation, _, err := s.repo.RecordConversation(ctx, params)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ConversationResponse{}, apperr.NotFound(msgLeadNotFound)
		}
		return transport.ConversationResponse{}, err
	}
	return management.ToConversationResponse(conversation), nil
}

// Update changes the conclusion and/or outcome of a conversation. Workers
// may only change conversations they authored.
func (s *Service) Update(ctx context.Context, by actor.Actor, id uuid.UUID, req transport.UpdateConversationRequest) (transport.ConversationResponse, error) {
	if req.Conclusion == nil && req.IsProfitable == nil {
		return transport.ConversationResponse{}, apperr.Validation(msgNothingToUpdate)
	}

	existing, err := s.loadForChange(ctx, by, id)
	if err != nil {
		return transport.ConversationResponse{}, err
	}

	conclusion := sanitize.TextPtr(req.Conclusion)
	if conclusion != nil && *conclusion == "" {
		return transport.ConversationResponse{}, apperr.Validation(msgConclusionRequired)
	}

	updated, err := s.repo.UpdateConversation(ctx, id, conclusion, req.IsProfitable)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return transport.ConversationResponse{}, apperr.NotFound(msgConversationNotFound)
		}
		return transport.ConversationResponse{}, err
	}

	s.bus.Publish(ctx, events.ConversationUpdated{
		BaseEvent:      events.NewBaseEvent(),
		Actor:          by,
		ConversationID: updated.ID,
		LeadID:         updated.LeadID,
		LeadName:       s.leadName(ctx, updated.LeadID),
		Author:         authorOf(existing),
	})

	return management.ToConversationResponse(updated), nil
}

// SoftDelete tombstones a conversation and records who deleted it.
func (s *Service) SoftDelete(ctx context.Context, by actor.Actor, id uuid.UUID) error {
	existing, err := s.loadForChange(ctx, by, id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.SoftDeleteConversation(ctx, id, by.ID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return apperr.NotFound(msgConversationNotFound)
		}
		return err
	}

	s.bus.Publish(ctx, events.ConversationDeleted{
		BaseEvent:      events.NewBaseEvent(),
		Actor:          by,
		ConversationID: deleted.ID,
		LeadID:         deleted.LeadID,
		LeadName:       s.leadName(ctx, deleted.LeadID),
		Author:         authorOf(existing),
	})
	return nil
}

// ListByLead returns the conversations of a lead, newest first. Managers see
// every author and may include tombstoned entries; workers only see their
// own live conversations.
func (s *Service) ListByLead(ctx context.Context, by actor.Actor, leadID uuid.UUID, includeDeleted bool) (transport.ConversationListResponse, error) {
	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ConversationListResponse{}, apperr.NotFound(msgLeadNotFound)
		}
		return transport.ConversationListResponse{}, err
	}

	filter := repository.ConversationFilter{LeadID: &leadID}
	if by.IsManager() {
		filter.IncludeDeleted = includeDeleted
	} else {
		filter.AddedBy = &by.ID
	}

	items, err := s.repo.ListConversations(ctx, filter)
	if err != nil {
		return transport.ConversationListResponse{}, err
	}

	resp := transport.ConversationListResponse{Items: make([]transport.ConversationResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, management.ToConversationResponse(item))
	}
	return resp, nil
}

// ListByWorker returns the live conversations authored by a worker. Only
// managers and the worker themselves may read them.
func (s *Service) ListByWorker(ctx context.Context, by actor.Actor, workerID uuid.UUID) (transport.ConversationOverviewListResponse, error) {
	if !by.IsManager() && by.ID != workerID {
		return transport.ConversationOverviewListResponse{}, apperr.Forbidden(msgUnauthorizedAccess)
	}
	return s.overview(ctx, &workerID)
}

// ListAll returns every live conversation for managers and the actor's own
// conversations for workers, with lead and author details.
func (s *Service) ListAll(ctx context.Context, by actor.Actor) (transport.ConversationOverviewListResponse, error) {
	if by.IsManager() {
		return s.overview(ctx, nil)
	}
	return s.overview(ctx, &by.ID)
}

func (s *Service) overview(ctx context.Context, addedBy *uuid.UUID) (transport.ConversationOverviewListResponse, error) {
	items, err := s.repo.ListConversationsWithMeta(ctx, addedBy)
	if err != nil {
		return transport.ConversationOverviewListResponse{}, err
	}

	resp := transport.ConversationOverviewListResponse{Items: make([]transport.ConversationOverviewResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, management.ToConversationOverview(item))
	}
	return resp, nil
}

func (s *Service) loadForChange(ctx context.Context, by actor.Actor, id uuid.UUID) (repository.Conversation, error) {
	existing, err := s.repo.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return repository.Conversation{}, apperr.NotFound(msgConversationNotFound)
		}
		return repository.Conversation{}, err
	}
	if !by.IsManager() && existing.AddedBy != by.ID {
		return repository.Conversation{}, apperr.Forbidden(msgNotAuthor)
	}
	return existing, nil
}

// leadName is best effort: the lead may have been deleted since the
// conversation was logged.
func (s *Service) leadName(ctx context.Context, leadID uuid.UUID) string {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("load lead for conversation event failed", "leadId", leadID, "error", err)
		}
		return ""
	}
	return lead.Name
}

func authorOf(c repository.Conversation) actor.Actor {
	role, ok := actor.ParseRole(c.AddedByRole)
	if !ok {
		role = actor.RoleWorker
	}
	return actor.New(c.AddedBy, role)
}
