// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
//
// Events are published after the state change they describe has been
// persisted. Every event carries the acting user and any explicit recipients
// as {id, role} pairs.
package events

import (
	"time"

	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a lead is created through the API.
type LeadCreated struct {
	BaseEvent
	Actor    actor.Actor  `json:"actor"`
	LeadID   uuid.UUID    `json:"leadId"`
	LeadName string       `json:"leadName"`
	Assignee *actor.Actor `json:"assignee,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadUpdated is published after a partial update of lead fields.
type LeadUpdated struct {
	BaseEvent
	Actor    actor.Actor  `json:"actor"`
	LeadID   uuid.UUID    `json:"leadId"`
	LeadName string       `json:"leadName"`
	Assignee *actor.Actor `json:"assignee,omitempty"`
	Fields   []string     `json:"fields"`
}

func (e LeadUpdated) EventName() string { return "leads.lead.updated" }

// LeadDeleted is published after a lead is soft-deleted.
type LeadDeleted struct {
	BaseEvent
	Actor    actor.Actor `json:"actor"`
	LeadID   uuid.UUID   `json:"leadId"`
	LeadName string      `json:"leadName"`
}

func (e LeadDeleted) EventName() string { return "leads.lead.deleted" }

// LeadsImported is published once per bulk import with at least one created lead.
type LeadsImported struct {
	BaseEvent
	Actor      actor.Actor  `json:"actor"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Assignee   *actor.Actor `json:"assignee,omitempty"`
	CategoryID *uuid.UUID   `json:"categoryId,omitempty"`
}

func (e LeadsImported) EventName() string { return "leads.imported" }

// FollowUpRecorded is published when a follow-up conversation is logged.
type FollowUpRecorded struct {
	BaseEvent
	Actor          actor.Actor  `json:"actor"`
	LeadID         uuid.UUID    `json:"leadId"`
	LeadName       string       `json:"leadName"`
	ConversationID uuid.UUID    `json:"conversationId"`
	Assignee       *actor.Actor `json:"assignee,omitempty"`
	FollowUpDate   *time.Time   `json:"followUpDate,omitempty"`
	Closed         bool         `json:"closed"`
}

func (e FollowUpRecorded) EventName() string { return "leads.followup.recorded" }

// FollowUpDue is published by the reminder job when a scheduled follow-up date arrives.
type FollowUpDue struct {
	BaseEvent
	LeadID       uuid.UUID   `json:"leadId"`
	LeadName     string      `json:"leadName"`
	Assignee     actor.Actor `json:"assignee"`
	FollowUpDate time.Time   `json:"followUpDate"`
}

func (e FollowUpDue) EventName() string { return "leads.followup.due" }

// =============================================================================
// Conversation Domain Events
// =============================================================================

// ConversationEnded is published when a lead's conversation is closed with an outcome.
type ConversationEnded struct {
	BaseEvent
	Actor          actor.Actor  `json:"actor"`
	LeadID         uuid.UUID    `json:"leadId"`
	LeadName       string       `json:"leadName"`
	ConversationID uuid.UUID    `json:"conversationId"`
	IsProfitable   bool         `json:"isProfitable"`
	Assignee       *actor.Actor `json:"assignee,omitempty"`
}

func (e ConversationEnded) EventName() string { return "conversations.ended" }

// ConversationUpdated is published after a conversation's conclusion or outcome changes.
type ConversationUpdated struct {
	BaseEvent
	Actor          actor.Actor `json:"actor"`
	ConversationID uuid.UUID   `json:"conversationId"`
	LeadID         uuid.UUID   `json:"leadId"`
	LeadName       string      `json:"leadName"`
	Author         actor.Actor `json:"author"`
}

func (e ConversationUpdated) EventName() string { return "conversations.updated" }

// ConversationDeleted is published after a conversation is tombstoned.
type ConversationDeleted struct {
	BaseEvent
	Actor          actor.Actor `json:"actor"`
	ConversationID uuid.UUID   `json:"conversationId"`
	LeadID         uuid.UUID   `json:"leadId"`
	LeadName       string      `json:"leadName"`
	Author         actor.Actor `json:"author"`
}

func (e ConversationDeleted) EventName() string { return "conversations.deleted" }

// =============================================================================
// Assignment Domain Events
// =============================================================================

// LeadsAssigned is published after an assignment transaction commits.
type LeadsAssigned struct {
	BaseEvent
	Actor        actor.Actor `json:"actor"`
	AssignmentID uuid.UUID   `json:"assignmentId"`
	Worker       actor.Actor `json:"worker"`
	LeadIDs      []uuid.UUID `json:"leadIds"`
	Priority     string      `json:"priority"`
}

func (e LeadsAssigned) EventName() string { return "assignments.leads_assigned" }

// =============================================================================
// Campaign Domain Events
// =============================================================================

// CampaignSent is published after a campaign dispatch completes.
type CampaignSent struct {
	BaseEvent
	Creator      actor.Actor `json:"creator"`
	CampaignID   uuid.UUID   `json:"campaignId"`
	Title        string      `json:"title"`
	SentCount    int         `json:"sentCount"`
	SkippedCount int         `json:"skippedCount"`
}

func (e CampaignSent) EventName() string { return "campaigns.sent" }
