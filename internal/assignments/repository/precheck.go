package repository

import (
	"fmt"

	"github.com/google/uuid"

	"leadflow_backend/platform/apperr"
)

// CheckAssignable runs the ownership pass over every requested lead before
// any write. found holds the non-deleted leads keyed by id.
func CheckAssignable(leadIDs []uuid.UUID, found map[uuid.UUID]LeadOwnership, assignee uuid.UUID) error {
	for _, id := range leadIDs {
		lead, ok := found[id]
		if !ok {
			return apperr.NotFound(fmt.Sprintf("Lead not found: %s", id))
		}
		if lead.AssignedTo != nil {
			if *lead.AssignedTo == assignee {
				return apperr.Conflict(fmt.Sprintf("Lead %s is already assigned to this worker", id))
			}
			return apperr.Conflict(fmt.Sprintf("Lead %s is already assigned to another worker", id))
		}
		if lead.Status == "closed" {
			return apperr.Conflict(fmt.Sprintf("Lead %s is already closed", id))
		}
	}
	return nil
}
