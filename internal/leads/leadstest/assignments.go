package leadstest

import (
	"context"
	"sync"

	assignrepo "leadflow_backend/internal/assignments/repository"

	"github.com/google/uuid"
)

// Assignments is an in-memory assignment repository that hands leads over
// inside a Repo, so assignment and lead services can share one store.
type Assignments struct {
	mu         sync.Mutex
	leads      *Repo
	categories *Categories
	Records    []assignrepo.Assignment
}

func NewAssignments(leads *Repo, categories *Categories) *Assignments {
	return &Assignments{leads: leads, categories: categories}
}

func (a *Assignments) Assign(ctx context.Context, params assignrepo.CreateAssignmentParams) (assignrepo.Assignment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.leads.mu.Lock()
	defer a.leads.mu.Unlock()

	found := make(map[uuid.UUID]assignrepo.LeadOwnership, len(params.LeadIDs))
	for _, id := range params.LeadIDs {
		if lead, ok := a.leads.Leads[id]; ok && !lead.IsDeleted {
			found[id] = assignrepo.LeadOwnership{ID: id, AssignedTo: lead.AssignedTo, Status: lead.Status}
		}
	}
	if err := assignrepo.CheckAssignable(params.LeadIDs, found, params.AssignedTo); err != nil {
		return assignrepo.Assignment{}, err
	}

	if params.CategoryID != nil && a.categories != nil {
		if err := a.categories.Activate(ctx, *params.CategoryID); err != nil {
			return assignrepo.Assignment{}, err
		}
	}

	now := a.leads.tick()
	for _, id := range params.LeadIDs {
		lead := a.leads.Leads[id]
		assignee, role := params.AssignedTo, params.AssignedRole
		lead.AssignedTo = &assignee
		lead.AssignedRole = &role
		lead.Status = "in-progress"
		if params.CategoryID != nil {
			category := *params.CategoryID
			lead.CategoryID = &category
		}
		if params.DueDate != nil {
			due := *params.DueDate
			lead.DueDate = &due
		}
		lead.UpdatedAt = now
	}

	record := assignrepo.Assignment{
		ID:         uuid.New(),
		CreatedBy:  params.CreatedBy,
		AssignedTo: params.AssignedTo,
		Priority:   params.Priority,
		DueDate:    params.DueDate,
		Status:     "active",
		Notes:      params.Notes,
		CategoryID: params.CategoryID,
		LeadIDs:    append([]uuid.UUID(nil), params.LeadIDs...),
		CreatedAt:  now,
	}
	a.Records = append(a.Records, record)
	return record, nil
}

func (a *Assignments) List(_ context.Context, assignedTo *uuid.UUID) ([]assignrepo.Assignment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []assignrepo.Assignment{}
	for i := len(a.Records) - 1; i >= 0; i-- {
		if assignedTo == nil || a.Records[i].AssignedTo == *assignedTo {
			out = append(out, a.Records[i])
		}
	}
	return out, nil
}

var _ assignrepo.Repository = (*Assignments)(nil)
