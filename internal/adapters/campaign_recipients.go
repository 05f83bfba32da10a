// Package adapters contains adapters that bridge different bounded contexts.
// These adapters implement interfaces defined by consuming domains while
// wrapping services from providing domains.
package adapters

import (
	"context"

	campaignservice "leadflow_backend/internal/campaigns/service"
	"leadflow_backend/internal/leads"

	"github.com/google/uuid"
)

// CampaignRecipients adapts the leads directory to the campaigns domain's
// LeadSource, so campaigns never read lead tables directly.
type CampaignRecipients struct {
	leads leads.Directory
}

func NewCampaignRecipients(dir leads.Directory) *CampaignRecipients {
	return &CampaignRecipients{leads: dir}
}

// GetRecipients returns the non-deleted leads among ids.
func (a *CampaignRecipients) GetRecipients(ctx context.Context, ids []uuid.UUID) ([]campaignservice.Recipient, error) {
	found, err := a.leads.GetLeadsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]campaignservice.Recipient, 0, len(found))
	for _, lead := range found {
		out = append(out, campaignservice.Recipient{
			ID:    lead.ID,
			Name:  lead.Name,
			Email: lead.Email,
			Phone: lead.Phone,
		})
	}
	return out, nil
}

var _ campaignservice.LeadSource = (*CampaignRecipients)(nil)
