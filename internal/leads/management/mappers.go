package management

import (
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/shared/actor"

	"github.com/google/uuid"
)

// ToLeadResponse maps a stored lead without its linked collections.
func ToLeadResponse(lead repository.Lead) transport.LeadResponse {
	followUps := lead.FollowUpDates
	if followUps == nil {
		followUps = []string{}
	}
	return transport.LeadResponse{
		ID:            lead.ID,
		Name:          lead.Name,
		Email:         lead.Email,
		Phone:         lead.Phone,
		Category:      categoryRef(lead.CategoryID, lead.CategoryTitle, lead.CategoryColor),
		Position:      lead.Position,
		Source:        lead.Source,
		Notes:         lead.Notes,
		Priority:      lead.Priority,
		Status:        lead.Status,
		CreatedBy:     lead.CreatedBy,
		AssignedTo:    lead.AssignedTo,
		IsProfitable:  lead.IsProfitable,
		DueDate:       lead.DueDate,
		FollowUpDates: followUps,
		LastContact:   lead.LastContact,
		CreatedAt:     lead.CreatedAt,
		UpdatedAt:     lead.UpdatedAt,
	}
}

func categoryRef(id *uuid.UUID, title, color *string) *transport.CategoryRef {
	if id == nil {
		return nil
	}
	ref := &transport.CategoryRef{ID: *id}
	if title != nil {
		ref.Title = *title
	}
	if color != nil {
		ref.Color = *color
	}
	return ref
}

// ToConversationResponse maps a stored conversation.
func ToConversationResponse(c repository.Conversation) transport.ConversationResponse {
	return transport.ConversationResponse{
		ID:           c.ID,
		LeadID:       c.LeadID,
		Date:         c.Date,
		Conclusion:   c.Conclusion,
		IsProfitable: c.IsProfitable,
		FollowUpDate: c.FollowUpDate,
		AddedBy:      c.AddedBy,
		AddedByRole:  c.AddedByRole,
		IsDeleted:    c.IsDeleted,
		DeletedBy:    c.DeletedBy,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// ToConversationOverview maps a conversation joined with lead and author data.
func ToConversationOverview(c repository.ConversationWithMeta) transport.ConversationOverviewResponse {
	lead := transport.ConversationLead{
		ID:       c.LeadID,
		Name:     c.LeadName,
		Status:   c.LeadStatus,
		Category: categoryRef(c.CategoryID, c.CategoryTitle, c.CategoryColor),
	}
	if len(c.FollowUpDates) > 0 {
		first := c.FollowUpDates[0]
		lead.FollowUpDate = &first
	}
	return transport.ConversationOverviewResponse{
		ConversationResponse: ToConversationResponse(c.Conversation),
		Lead:                 lead,
		Author: transport.ConversationAuthor{
			ID:   c.AddedBy,
			Name: c.AuthorName,
			Role: c.AddedByRole,
		},
	}
}

// AssigneeOf returns the lead's assignee as an actor, or nil when unassigned.
func AssigneeOf(lead repository.Lead) *actor.Actor {
	if lead.AssignedTo == nil {
		return nil
	}
	role := actor.RoleWorker
	if lead.AssignedRole != nil {
		if parsed, ok := actor.ParseRole(*lead.AssignedRole); ok {
			role = parsed
		}
	}
	a := actor.New(*lead.AssignedTo, role)
	return &a
}

func toDocumentResponse(doc repository.Document) transport.DocumentResponse {
	return transport.DocumentResponse{
		ID:          doc.ID,
		Key:         doc.FileKey,
		FileName:    doc.FileName,
		ContentType: doc.ContentType,
		Size:        doc.SizeBytes,
		Description: doc.Description,
		CreatedAt:   doc.CreatedAt,
	}
}
