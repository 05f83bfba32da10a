package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Assignment is the audit record of a batch hand-off of leads to one user.
type Assignment struct {
	ID         uuid.UUID
	CreatedBy  uuid.UUID
	AssignedTo uuid.UUID
	Priority   string
	DueDate    *time.Time
	Status     string
	Notes      *string
	CategoryID *uuid.UUID
	LeadIDs    []uuid.UUID
	CreatedAt  time.Time
}

// CreateAssignmentParams describes one Assign call. LeadIDs is ordered and
// free of duplicates.
type CreateAssignmentParams struct {
	CreatedBy    uuid.UUID
	AssignedTo   uuid.UUID
	AssignedRole string
	LeadIDs      []uuid.UUID
	Priority     string
	DueDate      *time.Time
	Notes        *string
	CategoryID   *uuid.UUID
}

// LeadOwnership is the locked view of a lead checked before assignment.
type LeadOwnership struct {
	ID         uuid.UUID
	AssignedTo *uuid.UUID
	Status     string
}

// Repository persists assignments.
type Repository interface {
	// Assign validates and applies the whole batch atomically. Nothing is
	// written when any lead fails the ownership check.
	Assign(ctx context.Context, params CreateAssignmentParams) (Assignment, error)
	// List returns assignments newest first, optionally limited to one assignee.
	List(ctx context.Context, assignedTo *uuid.UUID) ([]Assignment, error)
}
