package inapp

import (
	"time"

	"leadflow_backend/internal/shared/actor"

	"github.com/google/uuid"
)

// Type is the event kind a notification reports.
type Type string

const (
	TypeLead            Type = "lead"
	TypeNewLead         Type = "new-lead"
	TypeUpdate          Type = "update"
	TypeDelete          Type = "delete"
	TypeAssignment      Type = "assignment"
	TypeFollowUp        Type = "follow-up"
	TypeConversation    Type = "conversation"
	TypeEndConversation Type = "end-conversation"
	TypeCampaign        Type = "campaign"
)

// RefKind tags the entity a notification points at.
type RefKind string

const (
	RefLead         RefKind = "lead"
	RefConversation RefKind = "conversation"
	RefAssignment   RefKind = "assignment"
	RefCampaign     RefKind = "campaign"
	RefCategory     RefKind = "category"
)

// Ref is a tagged reference to the entity that triggered a notification.
type Ref struct {
	Kind RefKind   `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

func LeadRef(id uuid.UUID) *Ref         { return &Ref{Kind: RefLead, ID: id} }
func ConversationRef(id uuid.UUID) *Ref { return &Ref{Kind: RefConversation, ID: id} }
func AssignmentRef(id uuid.UUID) *Ref   { return &Ref{Kind: RefAssignment, ID: id} }
func CampaignRef(id uuid.UUID) *Ref     { return &Ref{Kind: RefCampaign, ID: id} }

// Recipient is the user a notification is addressed to, with the role they
// receive it in.
type Recipient = actor.Actor

// Notification is a persisted in-app notification.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	ActorID   *uuid.UUID `json:"actorId,omitempty"`
	Recipient Recipient  `json:"recipient"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      Type       `json:"type"`
	Related   *Ref       `json:"related,omitempty"`
	IsRead    bool       `json:"isRead"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// CreateParams holds the fields for a new notification row.
type CreateParams struct {
	ActorID   *uuid.UUID
	Recipient Recipient
	Title     string
	Message   string
	Type      Type
	Related   *Ref
}
