package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateCampaignRequest struct {
	Title       string   `json:"title" validate:"max=200"`
	Subject     *string  `json:"subject,omitempty" validate:"omitempty,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Type        string   `json:"type" validate:"omitempty,oneof=mail sms"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,max=100"`
	LeadIDs     []string `json:"leadIds"`
}

// UpdateCampaignRequest has no status field. Status moves only through
// send and schedule.
type UpdateCampaignRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,notblank,max=200"`
	Subject     *string  `json:"subject,omitempty" validate:"omitempty,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,notblank,max=5000"`
	Type        *string  `json:"type,omitempty" validate:"omitempty,oneof=mail sms"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,max=100"`
	LeadIDs     []string `json:"leadIds,omitempty"`
}

type ScheduleCampaignRequest struct {
	SendAt time.Time `json:"sendAt" validate:"required"`
}

type CampaignLead struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email *string   `json:"email,omitempty"`
	Phone *string   `json:"phone,omitempty"`
}

type CampaignResponse struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Subject     *string        `json:"subject,omitempty"`
	Description string         `json:"description"`
	Type        string         `json:"type"`
	Category    *string        `json:"category,omitempty"`
	Status      string         `json:"status"`
	CreatedBy   uuid.UUID      `json:"createdBy"`
	ScheduledAt *time.Time     `json:"scheduledAt,omitempty"`
	SentAt      *time.Time     `json:"sentAt,omitempty"`
	Delivered   int            `json:"delivered"`
	TotalLeads  int            `json:"totalLeads"`
	LeadIDs     []uuid.UUID    `json:"leadIds"`
	Leads       []CampaignLead `json:"leads,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type CampaignListResponse struct {
	Items []CampaignResponse `json:"items"`
}

type SkippedLead struct {
	LeadID uuid.UUID `json:"leadId"`
	Name   string    `json:"name"`
	Reason string    `json:"reason"`
}

// SendResult reports a dispatch. Skipped leads are a normal outcome, not an error.
type SendResult struct {
	SentCount    int           `json:"sentCount"`
	SkippedCount int           `json:"skippedCount"`
	SkippedLeads []SkippedLead `json:"skippedLeads"`
}
