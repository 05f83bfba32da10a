package transport

import (
	"time"

	"github.com/google/uuid"
)

// AssignRequest keeps ids as strings so a malformed id can be reported by
// value instead of failing the whole body bind.
type AssignRequest struct {
	LeadIDs    []string   `json:"leadIds"`
	AssignedTo string     `json:"assignedTo"`
	Priority   string     `json:"priority"`
	Notes      *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
	CategoryID *string    `json:"categoryId,omitempty"`
}

type AssignmentResponse struct {
	ID         uuid.UUID   `json:"assignmentId"`
	CreatedBy  uuid.UUID   `json:"createdBy"`
	AssignedTo uuid.UUID   `json:"assignedTo"`
	Priority   string      `json:"priority"`
	DueDate    *time.Time  `json:"dueDate,omitempty"`
	Status     string      `json:"status"`
	Notes      *string     `json:"notes,omitempty"`
	CategoryID *uuid.UUID  `json:"category,omitempty"`
	Leads      []uuid.UUID `json:"leads"`
	CreatedAt  time.Time   `json:"createdAt"`
}

type AssignmentListResponse struct {
	Items []AssignmentResponse `json:"items"`
}
