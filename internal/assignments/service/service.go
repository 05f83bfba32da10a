// Package service implements the assignment engine: bulk hand-off of leads to
// a single owner with an audit record per call.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/assignments/repository"
	"leadflow_backend/internal/assignments/transport"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/sanitize"
)

const (
	msgNoLeads         = "At least one lead ID must be provided"
	msgInvalidWorker   = "Invalid or missing worker ID"
	msgInvalidPriority = "Invalid priority. Must be one of: low, medium, high, urgent"
	msgDueDateInPast   = "Due date must be in the future"
	msgInvalidCategory = "Invalid category ID"

	defaultPriority = "medium"
	statusActive    = "active"
	statusOverdue   = "overdue"
)

var priorities = map[string]bool{"low": true, "medium": true, "high": true, "urgent": true}

// UserResolver resolves an assignee id to its stored role.
type UserResolver interface {
	ResolveUser(ctx context.Context, id uuid.UUID) (actor.Actor, error)
}

// CategoryChecker confirms a category exists.
type CategoryChecker interface {
	Ensure(ctx context.Context, id uuid.UUID) error
}

// Service assigns leads.
type Service struct {
	repo       repository.Repository
	users      UserResolver
	categories CategoryChecker
	bus        events.Bus
	log        *logger.Logger
	now        func() time.Time
}

// New creates an assignment service.
func New(repo repository.Repository, users UserResolver, categories CategoryChecker, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, users: users, categories: categories, bus: bus, log: log, now: time.Now}
}

// Assign hands every requested lead to one user. Input is validated in full
// before the repository runs its locked ownership check; the batch either
// commits as a whole or leaves no trace.
func (s *Service) Assign(ctx context.Context, by actor.Actor, req transport.AssignRequest) (transport.AssignmentResponse, error) {
	leadIDs, err := parseLeadIDs(req.LeadIDs)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}

	assigneeID, err := uuid.Parse(strings.TrimSpace(req.AssignedTo))
	if err != nil {
		return transport.AssignmentResponse{}, apperr.Validation(msgInvalidWorker)
	}
	assignee, err := s.users.ResolveUser(ctx, assigneeID)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}

	priority := strings.ToLower(strings.TrimSpace(req.Priority))
	if priority == "" {
		priority = defaultPriority
	}
	if !priorities[priority] {
		return transport.AssignmentResponse{}, apperr.Validation(msgInvalidPriority)
	}

	if req.DueDate != nil && !req.DueDate.After(s.now()) {
		return transport.AssignmentResponse{}, apperr.Validation(msgDueDateInPast)
	}

	var categoryID *uuid.UUID
	if req.CategoryID != nil && strings.TrimSpace(*req.CategoryID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*req.CategoryID))
		if err != nil {
			return transport.AssignmentResponse{}, apperr.Validation(msgInvalidCategory)
		}
		if err := s.categories.Ensure(ctx, id); err != nil {
			return transport.AssignmentResponse{}, err
		}
		categoryID = &id
	}

	var dueDate *time.Time
	if req.DueDate != nil {
		d := req.DueDate.UTC()
		dueDate = &d
	}

	assignment, err := s.repo.Assign(ctx, repository.CreateAssignmentParams{
		CreatedBy:    by.ID,
		AssignedTo:   assignee.ID,
		AssignedRole: string(assignee.Role),
		LeadIDs:      leadIDs,
		Priority:     priority,
		DueDate:      dueDate,
		Notes:        sanitize.TextPtr(req.Notes),
		CategoryID:   categoryID,
	})
	if err != nil {
		return transport.AssignmentResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadsAssigned{
		BaseEvent:    events.NewBaseEvent(),
		Actor:        by,
		AssignmentID: assignment.ID,
		Worker:       assignee,
		LeadIDs:      assignment.LeadIDs,
		Priority:     assignment.Priority,
	})

	s.log.Info("leads assigned", "assignmentId", assignment.ID, "assignee", assignee.ID, "leads", len(leadIDs))
	return s.toResponse(assignment), nil
}

// List returns every assignment to a manager and a worker's own otherwise.
func (s *Service) List(ctx context.Context, by actor.Actor) (transport.AssignmentListResponse, error) {
	var scope *uuid.UUID
	if !by.IsManager() {
		scope = &by.ID
	}
	items, err := s.repo.List(ctx, scope)
	if err != nil {
		return transport.AssignmentListResponse{}, err
	}

	resp := transport.AssignmentListResponse{Items: make([]transport.AssignmentResponse, 0, len(items))}
	for _, a := range items {
		resp.Items = append(resp.Items, s.toResponse(a))
	}
	return resp, nil
}

// parseLeadIDs rejects the first malformed id and drops repeats, keeping the
// request order.
func parseLeadIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, apperr.Validation(msgNoLeads)
	}
	seen := make(map[uuid.UUID]struct{}, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("Invalid lead ID: %s", value))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// toResponse reports active assignments past their due date as overdue.
func (s *Service) toResponse(a repository.Assignment) transport.AssignmentResponse {
	status := a.Status
	if status == statusActive && a.DueDate != nil && a.DueDate.Before(s.now()) {
		status = statusOverdue
	}
	leads := a.LeadIDs
	if leads == nil {
		leads = []uuid.UUID{}
	}
	return transport.AssignmentResponse{
		ID:         a.ID,
		CreatedBy:  a.CreatedBy,
		AssignedTo: a.AssignedTo,
		Priority:   a.Priority,
		DueDate:    a.DueDate,
		Status:     status,
		Notes:      a.Notes,
		CategoryID: a.CategoryID,
		Leads:      leads,
		CreatedAt:  a.CreatedAt,
	}
}
