// Package followup records interactions that move a lead through its
// lifecycle: follow-ups, closing conversations and due-date reminders.
package followup

import (
	"context"
	"errors"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/management"
	"leadflow_backend/internal/leads/ports"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgFollowUpRequired  = "Conclusion and either follow-up date or profitability are required"
	msgFollowUpInPast    = "Follow-up date must be in the future"
	msgEndConvoRequired  = "Conclusion and isProfitable are required"
	msgLeadNotFound      = "Lead not found"
	msgLeadAccessDenied  = "You do not have access to this lead"
	msgLeadAlreadyClosed = "Lead is already closed"
)

// Repository is the data access the follow-up service needs.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	repository.ConversationRecorder
}

// Service records follow-ups and conversation outcomes.
type Service struct {
	repo      Repository
	reminders ports.ReminderScheduler
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

// New creates a follow-up service. reminders may be nil when no background
// scheduler is configured.
func New(repo Repository, reminders ports.ReminderScheduler, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, reminders: reminders, bus: bus, log: log, now: time.Now}
}

// RecordFollowUp logs a conversation and either schedules the next contact
// (status follow-up) or closes the lead with a profitability outcome.
func (s *Service) RecordFollowUp(ctx context.Context, by actor.Actor, leadID uuid.UUID, req transport.FollowUpRequest) (transport.FollowUpResponse, error) {
	conclusion := sanitize.Text(req.Conclusion)
	if conclusion == "" || (req.FollowUpDate == nil && req.IsProfitable == nil) {
		return transport.FollowUpResponse{}, apperr.Validation(msgFollowUpRequired)
	}

	now := s.now().UTC()
	if req.FollowUpDate != nil && !req.FollowUpDate.After(now) {
		return transport.FollowUpResponse{}, apperr.Validation(msgFollowUpInPast)
	}

	lead, err := s.load(ctx, by, leadID)
	if err != nil {
		return transport.FollowUpResponse{}, err
	}

	status := domain.StatusAfterFollowUp(req.IsProfitable)
	if !domain.CanTransition(domain.Status(lead.Status), status) {
		return transport.FollowUpResponse{}, apperr.Conflict(msgLeadAlreadyClosed)
	}

	params := repository.RecordConversationParams{
		LeadID:            leadID,
		Date:              now,
		Conclusion:        conclusion,
		IsProfitable:      req.IsProfitable,
		FollowUpDate:      req.FollowUpDate,
		AddedBy:           by.ID,
		AddedByRole:       string(by.Role),
		Status:            statusPtr(status),
		SetLeadProfitable: req.IsProfitable != nil,
		LastContact:       now,
	}
	if req.FollowUpDate != nil {
		params.AppendFollowUp = domain.FormatFollowUpDate(*req.FollowUpDate)
	}

	conversation, updated, err := s.repo.RecordConversation(ctx, params)
	if err != nil {
		return transport.FollowUpResponse{}, recordError(err)
	}

	if req.FollowUpDate != nil && s.reminders != nil {
		if err := s.reminders.ScheduleFollowUpReminder(ctx, leadID, *req.FollowUpDate); err != nil {
			s.log.Error("schedule follow-up reminder failed", "leadId", leadID, "error", err)
		}
	}

	s.bus.Publish(ctx, events.FollowUpRecorded{
		BaseEvent:      events.NewBaseEvent(),
		Actor:          by,
		LeadID:         updated.ID,
		LeadName:       updated.Name,
		ConversationID: conversation.ID,
		Assignee:       management.AssigneeOf(updated),
		FollowUpDate:   req.FollowUpDate,
		Closed:         status == domain.StatusClosed,
	})

	return transport.FollowUpResponse{
		Lead:         management.ToLeadResponse(updated),
		Conversation: management.ToConversationResponse(conversation),
	}, nil
}

// EndConversation closes the lead with a profitability outcome.
func (s *Service) EndConversation(ctx context.Context, by actor.Actor, leadID uuid.UUID, req transport.EndConversationRequest) (transport.FollowUpResponse, error) {
	conclusion := sanitize.Text(req.Conclusion)
	if conclusion == "" || req.IsProfitable == nil {
		return transport.FollowUpResponse{}, apperr.Validation(msgEndConvoRequired)
	}

	if _, err := s.load(ctx, by, leadID); err != nil {
		return transport.FollowUpResponse{}, err
	}

	now := s.now().UTC()
	conversation, updated, err := s.repo.RecordConversation(ctx, repository.RecordConversationParams{
		LeadID:            leadID,
		Date:              now,
		Conclusion:        conclusion,
		IsProfitable:      req.IsProfitable,
		AddedBy:           by.ID,
		AddedByRole:       string(by.Role),
		Status:            statusPtr(domain.StatusClosed),
		SetLeadProfitable: true,
		LastContact:       now,
	})
	if err != nil {
		return transport.FollowUpResponse{}, recordError(err)
	}

	s.bus.Publish(ctx, events.ConversationEnded{
		BaseEvent:      events.NewBaseEvent(),
		Actor:          by,
		LeadID:         updated.ID,
		LeadName:       updated.Name,
		ConversationID: conversation.ID,
		IsProfitable:   *req.IsProfitable,
		Assignee:       management.AssigneeOf(updated),
	})

	return transport.FollowUpResponse{
		Lead:         management.ToLeadResponse(updated),
		Conversation: management.ToConversationResponse(conversation),
	}, nil
}

func recordError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(msgLeadNotFound)
	case errors.Is(err, repository.ErrStatusTransition):
		return apperr.Conflict(msgLeadAlreadyClosed)
	}
	return err
}

// RemindFollowUp notifies the assignee that a scheduled follow-up is due.
// Leads that were deleted, closed, unassigned or rescheduled since the
// reminder was queued are skipped.
func (s *Service) RemindFollowUp(ctx context.Context, leadID uuid.UUID, due time.Time) error {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Info("follow-up reminder skipped, lead gone", "leadId", leadID)
			return nil
		}
		return err
	}

	assignee := management.AssigneeOf(lead)
	if assignee == nil || lead.Status == string(domain.StatusClosed) || !domain.HasFollowUpDate(lead.FollowUpDates, due) {
		s.log.Debug("follow-up reminder skipped", "leadId", leadID, "status", lead.Status)
		return nil
	}

	s.bus.Publish(ctx, events.FollowUpDue{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       lead.ID,
		LeadName:     lead.Name,
		Assignee:     *assignee,
		FollowUpDate: due.UTC(),
	})
	return nil
}

func (s *Service) load(ctx context.Context, by actor.Actor, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound(msgLeadNotFound)
		}
		return repository.Lead{}, err
	}
	if !domain.VisibleTo(lead.AssignedTo, lead.CreatedBy, by) {
		return repository.Lead{}, apperr.Forbidden(msgLeadAccessDenied)
	}
	return lead, nil
}

func statusPtr(s domain.Status) *string {
	value := string(s)
	return &value
}
