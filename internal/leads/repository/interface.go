package repository

import (
	"context"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
	ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]Lead, error)
	EmailInUse(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)
}

// LeadWriter provides write operations for lead management.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (bool, error)
}

// LeadLinks lists the ids of entities that reference a lead.
type LeadLinks interface {
	ListConversationIDs(ctx context.Context, leadID uuid.UUID) ([]uuid.UUID, error)
	ListCampaignIDs(ctx context.Context, leadID uuid.UUID) ([]uuid.UUID, error)
}

// DocumentStore manages lead document metadata.
type DocumentStore interface {
	CreateDocument(ctx context.Context, params CreateDocumentParams) (Document, error)
	ListDocuments(ctx context.Context, leadID uuid.UUID) ([]Document, error)
}

// ConversationRecorder logs interactions together with their lead changes.
type ConversationRecorder interface {
	RecordConversation(ctx context.Context, params RecordConversationParams) (Conversation, Lead, error)
}

// ConversationStore manages the conversation log.
type ConversationStore interface {
	GetConversation(ctx context.Context, id uuid.UUID) (Conversation, error)
	UpdateConversation(ctx context.Context, id uuid.UUID, conclusion *string, isProfitable *bool) (Conversation, error)
	SoftDeleteConversation(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID) (Conversation, error)
	ListConversations(ctx context.Context, filter ConversationFilter) ([]Conversation, error)
	ListConversationsWithMeta(ctx context.Context, addedBy *uuid.UUID) ([]ConversationWithMeta, error)
}

// =====================================
// Composite Interface
// =====================================

// LeadsRepository defines the complete interface for leads data operations.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	LeadLinks
	DocumentStore
	ConversationRecorder
	ConversationStore
}

// Ensure Repository implements LeadsRepository
var _ LeadsRepository = (*Repository)(nil)
