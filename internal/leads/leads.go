// Package leads provides lead management functionality.
// This file defines the public API of the leads bounded context.
// Only types and interfaces defined here should be imported by other domains.
package leads

import (
	"context"

	"github.com/google/uuid"
)

// Lead represents the minimal lead information that can be shared with other domains.
type Lead struct {
	ID    uuid.UUID
	Name  string
	Email *string
	Phone *string
}

// Directory resolves lead ids for other domains. Deleted leads are never returned.
type Directory interface {
	// GetLeadsByIDs returns the non-deleted leads among ids, in no particular order.
	GetLeadsByIDs(ctx context.Context, ids []uuid.UUID) ([]Lead, error)
}

// Note: The full leads services are intended for use within the HTTP handler
// layer and the background worker only. Other domains should use the minimal
// Directory interface above or define their own interfaces for the specific
// operations they need.
