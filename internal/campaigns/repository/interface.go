package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Campaign statuses.
const (
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusSending   = "sending"
	StatusSent      = "sent"
)

// Campaign is a one-time email or SMS blast to a set of leads.
type Campaign struct {
	ID          uuid.UUID
	Title       string
	Subject     *string
	Description string
	Type        string
	Category    *string
	Status      string
	CreatedBy   uuid.UUID
	ScheduledAt *time.Time
	SentAt      *time.Time
	Delivered   int
	LeadIDs     []uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Editable reports whether the campaign may still be changed or dispatched.
func (c Campaign) Editable() bool {
	return c.Status == StatusDraft || c.Status == StatusScheduled
}

type CreateCampaignParams struct {
	Title       string
	Subject     *string
	Description string
	Type        string
	Category    *string
	CreatedBy   uuid.UUID
	LeadIDs     []uuid.UUID
}

// UpdateCampaignParams carries a partial update. Nil fields keep their value;
// a non-nil LeadIDs replaces the linked lead set.
type UpdateCampaignParams struct {
	ID          uuid.UUID
	Title       *string
	Subject     *string
	Description *string
	Type        *string
	Category    *string
	LeadIDs     []uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, params CreateCampaignParams) (Campaign, error)
	GetByID(ctx context.Context, id uuid.UUID) (Campaign, error)
	ListByCreator(ctx context.Context, createdBy uuid.UUID) ([]Campaign, error)
	// Update applies params while the campaign is editable; it returns a
	// Conflict once the campaign is sending or sent.
	Update(ctx context.Context, params UpdateCampaignParams) (Campaign, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Schedule(ctx context.Context, id uuid.UUID, at time.Time) (Campaign, error)
	// BeginSend moves an editable campaign to sending. It reports false when
	// another dispatch already claimed it or it was sent.
	BeginSend(ctx context.Context, id uuid.UUID) (bool, error)
	FinishSend(ctx context.Context, id uuid.UUID, delivered int, sentAt time.Time) error
	// AbortSend returns a sending campaign to draft after a failed dispatch.
	AbortSend(ctx context.Context, id uuid.UUID) error
}
