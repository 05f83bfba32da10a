package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs
type CreateLeadRequest struct {
	Name       string     `json:"name" validate:"required,notblank,max=200"`
	Email      string     `json:"email,omitempty" validate:"max=254"`
	Phone      string     `json:"phoneNumber,omitempty" validate:"max=32"`
	CategoryID *uuid.UUID `json:"category,omitempty"`
	Position   string     `json:"position,omitempty" validate:"max=200"`
	Source     string     `json:"leadSource,omitempty" validate:"max=200"`
	Notes      string     `json:"notes,omitempty" validate:"max=5000"`
	Priority   string     `json:"priority,omitempty"`
	AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
}

type UpdateLeadRequest struct {
	Name     *string      `json:"name,omitempty" validate:"omitempty,notblank,max=200"`
	Email    *string      `json:"email,omitempty" validate:"omitempty,max=254"`
	Phone    *string      `json:"phoneNumber,omitempty" validate:"omitempty,max=32"`
	Category OptionalUUID `json:"category,omitempty" validate:"-"`
	Position *string      `json:"position,omitempty" validate:"omitempty,max=200"`
	Source   *string      `json:"leadSource,omitempty" validate:"omitempty,max=200"`
	Notes    *string      `json:"notes,omitempty" validate:"omitempty,max=5000"`
	Priority *string      `json:"priority,omitempty"`
	Status   *string      `json:"status,omitempty"`

	// Owned by the assignment engine and SoftDelete. Only their presence is
	// recorded so the request can be refused.
	AssignedTo Present `json:"assignedTo" validate:"-"`
	IsDeleted  Present `json:"isDeleted" validate:"-"`
}

// WritesReservedFields reports whether the body tried to set assignment or
// deletion state.
func (r UpdateLeadRequest) WritesReservedFields() bool {
	return r.AssignedTo.Set || r.IsDeleted.Set
}

// IsEmpty reports whether no field was supplied.
func (r UpdateLeadRequest) IsEmpty() bool {
	return r.Name == nil && r.Email == nil && r.Phone == nil && !r.Category.Set &&
		r.Position == nil && r.Source == nil && r.Notes == nil && r.Priority == nil && r.Status == nil
}

type ListLeadsRequest struct {
	Status   string `form:"status"`
	Priority string `form:"priority"`
	Category string `form:"category" validate:"omitempty,uuid"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	Limit    int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

type FollowUpRequest struct {
	Conclusion   string     `json:"conclusion" validate:"max=5000"`
	FollowUpDate *time.Time `json:"followUpDate,omitempty"`
	IsProfitable *bool      `json:"isProfitable,omitempty"`
}

type EndConversationRequest struct {
	Conclusion   string `json:"conclusion" validate:"max=5000"`
	IsProfitable *bool  `json:"isProfitable"`
}

type CreateConversationRequest struct {
	Conclusion   string     `json:"conclusion" validate:"required,notblank,max=5000"`
	IsProfitable *bool      `json:"isProfitable,omitempty"`
	FollowUpDate *time.Time `json:"followUpDate,omitempty"`
	Date         *time.Time `json:"date,omitempty"`
}

type UpdateConversationRequest struct {
	Conclusion   *string `json:"conclusion,omitempty" validate:"omitempty,notblank,max=5000"`
	IsProfitable *bool   `json:"isProfitable,omitempty"`
}

type ListConversationsRequest struct {
	IncludeDeleted bool `form:"includeDeleted"`
}

// ImportOptions carries the form fields sent alongside an import file.
type ImportOptions struct {
	AssignedTo *uuid.UUID
	CategoryID *uuid.UUID
}

// Response DTOs
type CategoryRef struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Color string    `json:"color"`
}

type DocumentResponse struct {
	ID          uuid.UUID  `json:"documentId"`
	Key         string     `json:"key"`
	FileName    string     `json:"fileName"`
	ContentType string     `json:"contentType"`
	Size        int64      `json:"size"`
	Description *string    `json:"description,omitempty"`
	URL         string     `json:"url,omitempty"`
	URLExpires  *time.Time `json:"urlExpiresAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type LeadResponse struct {
	ID            uuid.UUID          `json:"id"`
	Name          string             `json:"name"`
	Email         *string            `json:"email,omitempty"`
	Phone         *string            `json:"phoneNumber,omitempty"`
	Category      *CategoryRef       `json:"category,omitempty"`
	Position      string             `json:"position"`
	Source        string             `json:"leadSource"`
	Notes         string             `json:"notes"`
	Priority      string             `json:"priority"`
	Status        string             `json:"status"`
	CreatedBy     *uuid.UUID         `json:"createdBy,omitempty"`
	AssignedTo    *uuid.UUID         `json:"assignedTo,omitempty"`
	IsProfitable  *bool              `json:"isProfitable"`
	DueDate       *time.Time         `json:"dueDate,omitempty"`
	FollowUpDates []string           `json:"followUpDates"`
	LastContact   *time.Time         `json:"lastContact,omitempty"`
	Conversations []uuid.UUID        `json:"conversations,omitempty"`
	CampaignSent  []uuid.UUID        `json:"campaignSent,omitempty"`
	Documents     []DocumentResponse `json:"documents,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalLeads  int  `json:"totalLeads"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

type ConversationResponse struct {
	ID           uuid.UUID  `json:"id"`
	LeadID       uuid.UUID  `json:"lead"`
	Date         time.Time  `json:"date"`
	Conclusion   string     `json:"conclusion"`
	IsProfitable *bool      `json:"isProfitable"`
	FollowUpDate *time.Time `json:"followUpDate,omitempty"`
	AddedBy      uuid.UUID  `json:"addedBy"`
	AddedByRole  string     `json:"addedByRole"`
	IsDeleted    bool       `json:"isDeleted"`
	DeletedBy    *uuid.UUID `json:"deletedBy,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type ConversationListResponse struct {
	Items []ConversationResponse `json:"items"`
}

type ConversationLead struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Status       string       `json:"status"`
	FollowUpDate *string      `json:"followUpDate,omitempty"`
	Category     *CategoryRef `json:"category,omitempty"`
}

type ConversationAuthor struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role"`
}

type ConversationOverviewResponse struct {
	ConversationResponse
	Lead   ConversationLead   `json:"leadInfo"`
	Author ConversationAuthor `json:"author"`
}

type ConversationOverviewListResponse struct {
	Items []ConversationOverviewResponse `json:"items"`
}

type FollowUpResponse struct {
	Lead         LeadResponse         `json:"lead"`
	Conversation ConversationResponse `json:"conversation"`
}

type ImportRowError struct {
	Row   int    `json:"row"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Error string `json:"error"`
}

type ImportResult struct {
	TotalProcessed int              `json:"totalProcessed"`
	Successful     int              `json:"successful"`
	Failed         int              `json:"failed"`
	Errors         []ImportRowError `json:"errors"`
}
