package notification

import (
	"context"
	"fmt"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/notification/inapp"
	"leadflow_backend/internal/shared/actor"

	"github.com/google/uuid"
)

func (m *Module) leadCreated(ctx context.Context, e events.LeadCreated) *fanout {
	f := newFanout(e.EventName(), &e.Actor)
	f.toRecordHolder(e.Assignee, notice{
		title:   "New Lead Assigned",
		message: fmt.Sprintf("You have been assigned a new lead %q.", e.LeadName),
		typ:     inapp.TypeLead,
		related: inapp.LeadRef(e.LeadID),
	})
	f.toManagers(m.managerRecipients(ctx, e.EventName()), notice{
		title:   "New Lead Created",
		message: fmt.Sprintf("A new lead %q has been created.", e.LeadName),
		typ:     inapp.TypeNewLead,
		related: inapp.LeadRef(e.LeadID),
	})
	return f
}

func (m *Module) leadUpdated(ctx context.Context, e events.LeadUpdated) *fanout {
	n := notice{
		title:   "Lead Updated",
		message: fmt.Sprintf("The lead %q has been updated.", e.LeadName),
		typ:     inapp.TypeUpdate,
		related: inapp.LeadRef(e.LeadID),
	}
	f := newFanout(e.EventName(), &e.Actor)
	f.toRecordHolder(e.Assignee, n)
	f.toManagers(m.managerRecipients(ctx, e.EventName()), n)
	return f
}

func (m *Module) leadDeleted(ctx context.Context, e events.LeadDeleted) *fanout {
	f := newFanout(e.EventName(), &e.Actor)
	f.toManagers(m.managerRecipients(ctx, e.EventName()), notice{
		title:   "Lead Deleted",
		message: fmt.Sprintf("The lead %q has been deleted.", e.LeadName),
		typ:     inapp.TypeDelete,
		related: inapp.LeadRef(e.LeadID),
	})
	return f
}

func (m *Module) leadsImported(ctx context.Context, e events.LeadsImported) *fanout {
	f := newFanout(e.EventName(), &e.Actor)
	f.toRecordHolder(e.Assignee, notice{
		title:   "New Leads Assigned",
		message: fmt.Sprintf("You have been assigned %d new leads from a bulk import.", e.Successful),
		typ:     inapp.TypeAssignment,
	})
	f.toManagers(m.managerRecipients(ctx, e.EventName()), notice{
		title:   "Leads Imported",
		message: fmt.Sprintf("%d leads have been imported (%d failed).", e.Successful, e.Failed),
		typ:     inapp.TypeNewLead,
	})
	return f
}

func (m *Module) leadsAssigned(e events.LeadsAssigned) *fanout {
	f := newFanout(e.EventName(), &e.Actor)
	worker := e.Worker
	f.toRecordHolder(&worker, notice{
		title:   "New Lead Assignment",
		message: fmt.Sprintf("You have been assigned new leads with priority %s.", e.Priority),
		typ:     inapp.TypeAssignment,
		related: inapp.AssignmentRef(e.AssignmentID),
	})
	return f
}

func (m *Module) followUpRecorded(ctx context.Context, e events.FollowUpRecorded) *fanout {
	f := newFanout(e.EventName(), &e.Actor)
	f.toRecordHolder(e.Assignee, notice{
		title:   "New Follow-up Added",
		message: fmt.Sprintf("A follow-up has been added for lead %q.", e.LeadName),
		typ:     inapp.TypeFollowUp,
		related: inapp.LeadRef(e.LeadID),
	})
	f.toRecordHolder(e.Assignee, notice{
		title:   "Conversation Started",
		message: fmt.Sprintf("A conversation has been started with lead %q.", e.LeadName),
		typ:     inapp.TypeConversation,
		related: inapp.ConversationRef(e.ConversationID),
	})
	f.toManagers(m.managerRecipients(ctx, e.EventName()), notice{
		title:   "New Follow-up Added",
		message: fmt.Sprintf("A follow-up has been added for lead %q.", e.LeadName),
		typ:     inapp.TypeUpdate,
		related: inapp.LeadRef(e.LeadID),
	})
	return f
}

func (m *Module) followUpDue(e events.FollowUpDue) *fanout {
	f := newFanout(e.EventName(), nil)
	assignee := e.Assignee
	f.toRecordHolder(&assignee, notice{
		title:   "Follow-up Due",
		message: fmt.Sprintf("Your follow-up with %q is due on %s.", e.LeadName, e.FollowUpDate.Format("2006-01-02")),
		typ:     inapp.TypeFollowUp,
		related: inapp.LeadRef(e.LeadID),
	})
	return f
}

func (m *Module) conversationEnded(ctx context.Context, e events.ConversationEnded) *fanout {
	n := notice{
		title:   "Conversation Ended",
		message: fmt.Sprintf("The lead %q has been closed with a conclusion.", e.LeadName),
		typ:     inapp.TypeEndConversation,
		related: inapp.ConversationRef(e.ConversationID),
	}
	f := newFanout(e.EventName(), &e.Actor)
	f.toManagers(m.managerRecipients(ctx, e.EventName()), n)
	f.toRecordHolder(e.Assignee, n)
	return f
}

func (m *Module) conversationChanged(ctx context.Context, eventName string, by, author actor.Actor, conversationID uuid.UUID, title, message string, typ inapp.Type) *fanout {
	n := notice{
		title:   title,
		message: message,
		typ:     typ,
		related: inapp.ConversationRef(conversationID),
	}
	f := newFanout(eventName, &by)
	f.toManagers(m.managerRecipients(ctx, eventName), n)
	f.toObserver(author, n)
	return f
}

func (m *Module) campaignSent(e events.CampaignSent) *fanout {
	f := newFanout(e.EventName(), &e.Creator)
	creator := e.Creator
	f.toRecordHolder(&creator, notice{
		title:   "Campaign Sent",
		message: fmt.Sprintf("Campaign %q was sent to %d leads (%d skipped).", e.Title, e.SentCount, e.SkippedCount),
		typ:     inapp.TypeCampaign,
		related: inapp.CampaignRef(e.CampaignID),
	})
	return f
}

func conversationUpdatedMessage(leadName string) string {
	return fmt.Sprintf("A conversation with lead %q has been updated.", leadName)
}

func conversationDeletedMessage(leadName string) string {
	return fmt.Sprintf("A conversation with lead %q has been deleted.", leadName)
}
