// Package management handles lead CRUD operations.
// This is a vertically sliced feature package containing service logic
// for creating, reading, updating, and deleting leads and their documents.
package management

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/ports"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"
	"leadflow_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

const (
	msgLeadNotFound     = "Lead not found"
	msgContactRequired  = "Name, email or phone are required"
	msgInvalidEmail     = "Invalid email format"
	msgDuplicateEmail   = "Lead with this email already exists"
	msgInvalidStatus    = "Invalid status. Must be one of: new, in-progress, follow-up, closed"
	msgInvalidPriority  = "Invalid priority. Must be one of: high, medium, low"
	msgNoFieldsToUpdate = "At least one field is required to update the lead"
	msgReservedFields   = "assignedTo and isDeleted cannot be changed by updating a lead"
	msgLeadAccessDenied = "You do not have access to this lead"
	msgActiveAssignment = "Cannot delete lead with active assignments"
)

// Repository defines the data access interface needed by the management service.
// This is a consumer-driven interface - only what management needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.LeadLinks
	repository.DocumentStore
}

// Config carries the settings management needs.
type Config struct {
	PhoneRegion    string
	DocumentBucket string
}

// Service handles lead management operations (CRUD).
type Service struct {
	repo       Repository
	categories ports.CategoryService
	users      ports.UserDirectory
	storage    ports.DocumentStorage
	bus        events.Bus
	cfg        Config
	log        *logger.Logger
}

// New creates a new lead management service. storage may be nil when object
// storage is not configured.
func New(repo Repository, categories ports.CategoryService, users ports.UserDirectory, storage ports.DocumentStorage, bus events.Bus, cfg Config, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		users:      users,
		storage:    storage,
		bus:        bus,
		cfg:        cfg,
		log:        log,
	}
}

// Create creates a new lead. A worker may name only themselves as assignee;
// without one the lead stays unassigned and is owned by its creator until the
// assignment engine hands it out.
func (s *Service) Create(ctx context.Context, by actor.Actor, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := domain.NormalizeEmail(req.Email)
	phoneNumber := phone.NormalizeE164In(req.Phone, s.cfg.PhoneRegion)

	if name == "" || (email == "" && phoneNumber == "") {
		return transport.LeadResponse{}, apperr.Validation(msgContactRequired)
	}
	if email != "" {
		if !domain.ValidEmail(email) {
			return transport.LeadResponse{}, apperr.Validation(msgInvalidEmail)
		}
		inUse, err := s.repo.EmailInUse(ctx, email, nil)
		if err != nil {
			return transport.LeadResponse{}, err
		}
		if inUse {
			return transport.LeadResponse{}, apperr.Conflict(msgDuplicateEmail)
		}
	}

	priority, ok := domain.ParsePriority(req.Priority)
	if !ok {
		return transport.LeadResponse{}, apperr.Validation(msgInvalidPriority)
	}

	if req.CategoryID != nil {
		if err := s.categories.Ensure(ctx, *req.CategoryID); err != nil {
			return transport.LeadResponse{}, err
		}
	}

	assignee, err := s.resolveCreateAssignee(ctx, by, req.AssignedTo)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	createdBy := by.ID
	params := repository.CreateLeadParams{
		Name:       name,
		Email:      optionalString(email),
		Phone:      optionalString(phoneNumber),
		CategoryID: req.CategoryID,
		Position:   strings.TrimSpace(req.Position),
		Source:     strings.TrimSpace(req.Source),
		Notes:      sanitize.Text(req.Notes),
		Priority:   string(priority),
		Status:     string(domain.StatusNew),
		CreatedBy:  &createdBy,
	}
	if assignee != nil {
		role := string(assignee.Role)
		params.AssignedTo = &assignee.ID
		params.AssignedRole = &role
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return transport.LeadResponse{}, apperr.Conflict(msgDuplicateEmail)
		}
		return transport.LeadResponse{}, err
	}

	if lead.CategoryID != nil {
		s.activateCategory(ctx, *lead.CategoryID)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		Actor:     by,
		LeadID:    lead.ID,
		LeadName:  lead.Name,
		Assignee:  assignee,
	})

	return ToLeadResponse(lead), nil
}

func (s *Service) resolveCreateAssignee(ctx context.Context, by actor.Actor, assignedTo *uuid.UUID) (*actor.Actor, error) {
	if !by.IsManager() {
		if assignedTo == nil {
			return nil, nil
		}
		if *assignedTo != by.ID {
			return nil, apperr.Forbidden("Workers can only create leads assigned to themselves")
		}
		self := by
		return &self, nil
	}
	if assignedTo == nil {
		return nil, nil
	}
	resolved, err := s.users.ResolveUser(ctx, *assignedTo)
	if err != nil {
		return nil, err
	}
	return &resolved, nil
}

// Get retrieves a lead with its conversations, campaigns and documents.
func (s *Service) Get(ctx context.Context, by actor.Actor, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.load(ctx, by, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	resp := ToLeadResponse(lead)

	if resp.Conversations, err = s.repo.ListConversationIDs(ctx, id); err != nil {
		return transport.LeadResponse{}, err
	}
	if resp.CampaignSent, err = s.repo.ListCampaignIDs(ctx, id); err != nil {
		return transport.LeadResponse{}, err
	}

	docs, err := s.repo.ListDocuments(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	resp.Documents = make([]transport.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, s.documentWithURL(ctx, doc))
	}

	return resp, nil
}

// List returns a page of non-deleted leads, newest first. Workers only see
// leads assigned to them.
func (s *Service) List(ctx context.Context, by actor.Actor, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	params := repository.ListParams{Offset: (page - 1) * limit, Limit: limit}
	if !by.IsManager() {
		params.Owner = &by.ID
	}
	if req.Status != "" {
		status, ok := domain.ParseStatus(req.Status)
		if !ok {
			return transport.LeadListResponse{}, apperr.Validation(msgInvalidStatus)
		}
		value := string(status)
		params.Status = &value
	}
	if req.Priority != "" {
		priority, ok := domain.ParsePriority(req.Priority)
		if !ok {
			return transport.LeadListResponse{}, apperr.Validation(msgInvalidPriority)
		}
		value := string(priority)
		params.Priority = &value
	}
	if req.Category != "" {
		categoryID, err := uuid.Parse(req.Category)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("Invalid category ID")
		}
		params.CategoryID = &categoryID
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, ToLeadResponse(lead))
	}

	return transport.LeadListResponse{
		Items:      items,
		Pagination: paginate(page, limit, total),
	}, nil
}

func paginate(page, limit, total int) transport.Pagination {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return transport.Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalLeads:  total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// ListByCategory returns the non-deleted leads of a category visible to the actor.
func (s *Service) ListByCategory(ctx context.Context, by actor.Actor, categoryID uuid.UUID) ([]transport.LeadResponse, error) {
	if err := s.categories.Ensure(ctx, categoryID); err != nil {
		return nil, err
	}

	leads, err := s.repo.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		if !domain.VisibleTo(lead.AssignedTo, lead.CreatedBy, by) {
			continue
		}
		items = append(items, ToLeadResponse(lead))
	}
	return items, nil
}

// Update applies a partial update. Assignment and deletion are not writable here.
func (s *Service) Update(ctx context.Context, by actor.Actor, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	if req.WritesReservedFields() {
		return transport.LeadResponse{}, apperr.Validation(msgReservedFields)
	}
	if req.IsEmpty() {
		return transport.LeadResponse{}, apperr.Validation(msgNoFieldsToUpdate)
	}

	current, err := s.load(ctx, by, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	params, fields, err := s.buildUpdate(ctx, current, req)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err := s.repo.Update(ctx, id, params)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return transport.LeadResponse{}, apperr.NotFound(msgLeadNotFound)
		case errors.Is(err, repository.ErrDuplicateEmail):
			return transport.LeadResponse{}, apperr.Conflict(msgDuplicateEmail)
		}
		return transport.LeadResponse{}, err
	}

	if params.CategoryID != nil {
		s.activateCategory(ctx, *params.CategoryID)
	}

	s.bus.Publish(ctx, events.LeadUpdated{
		BaseEvent: events.NewBaseEvent(),
		Actor:     by,
		LeadID:    lead.ID,
		LeadName:  lead.Name,
		Assignee:  AssigneeOf(lead),
		Fields:    fields,
	})

	return ToLeadResponse(lead), nil
}

func (s *Service) buildUpdate(ctx context.Context, current repository.Lead, req transport.UpdateLeadRequest) (repository.UpdateLeadParams, []string, error) {
	var params repository.UpdateLeadParams
	var fields []string

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return params, nil, apperr.Validation(msgContactRequired)
		}
		params.Name = &name
		fields = append(fields, "name")
	}
	if req.Email != nil {
		email := domain.NormalizeEmail(*req.Email)
		if !domain.ValidEmail(email) {
			return params, nil, apperr.Validation(msgInvalidEmail)
		}
		inUse, err := s.repo.EmailInUse(ctx, email, &current.ID)
		if err != nil {
			return params, nil, err
		}
		if inUse {
			return params, nil, apperr.Conflict(msgDuplicateEmail)
		}
		params.Email = &email
		fields = append(fields, "email")
	}
	if req.Phone != nil {
		normalized := phone.NormalizeE164In(*req.Phone, s.cfg.PhoneRegion)
		if normalized == "" && current.Email == nil && params.Email == nil {
			return params, nil, apperr.Validation(msgContactRequired)
		}
		params.Phone = &normalized
		fields = append(fields, "phoneNumber")
	}
	if req.Category.Set {
		if req.Category.Clears() {
			params.ClearCategory = true
		} else {
			if err := s.categories.Ensure(ctx, *req.Category.Value); err != nil {
				return params, nil, err
			}
			params.CategoryID = req.Category.Value
		}
		fields = append(fields, "category")
	}
	if req.Position != nil {
		position := strings.TrimSpace(*req.Position)
		params.Position = &position
		fields = append(fields, "position")
	}
	if req.Source != nil {
		source := strings.TrimSpace(*req.Source)
		params.Source = &source
		fields = append(fields, "leadSource")
	}
	if req.Notes != nil {
		params.Notes = sanitize.TextPtr(req.Notes)
		fields = append(fields, "notes")
	}
	if req.Priority != nil {
		priority, ok := domain.ParsePriority(*req.Priority)
		if !ok || strings.TrimSpace(*req.Priority) == "" {
			return params, nil, apperr.Validation(msgInvalidPriority)
		}
		value := string(priority)
		params.Priority = &value
		fields = append(fields, "priority")
	}
	if req.Status != nil {
		status, ok := domain.ParseStatus(*req.Status)
		if !ok {
			return params, nil, apperr.Validation(msgInvalidStatus)
		}
		if !domain.CanTransition(domain.Status(current.Status), status) {
			return params, nil, apperr.Conflict(fmt.Sprintf("Cannot change lead status from %s to %s", current.Status, status))
		}
		value := string(status)
		params.Status = &value
		fields = append(fields, "status")
	}

	return params, fields, nil
}

// SoftDelete marks an unassigned lead as deleted. Conversations and
// notifications are kept.
func (s *Service) SoftDelete(ctx context.Context, by actor.Actor, id uuid.UUID) error {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound(msgLeadNotFound)
		}
		return err
	}
	if lead.AssignedTo != nil {
		return apperr.Conflict(msgActiveAssignment)
	}

	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		// Assigned or deleted between the read and the conditional update.
		if _, err := s.repo.GetByID(ctx, id); errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound(msgLeadNotFound)
		}
		return apperr.Conflict(msgActiveAssignment)
	}

	s.bus.Publish(ctx, events.LeadDeleted{
		BaseEvent: events.NewBaseEvent(),
		Actor:     by,
		LeadID:    lead.ID,
		LeadName:  lead.Name,
	})
	return nil
}

// UploadDocumentInput describes a file attached to a lead.
type UploadDocumentInput struct {
	FileName    string
	ContentType string
	Size        int64
	Description *string
	Reader      io.Reader
}

// UploadDocument stores a file in object storage and records its metadata on the lead.
func (s *Service) UploadDocument(ctx context.Context, by actor.Actor, leadID uuid.UUID, in UploadDocumentInput) (transport.DocumentResponse, error) {
	if s.storage == nil {
		return transport.DocumentResponse{}, apperr.BadRequest("Document storage is not configured")
	}
	if _, err := s.load(ctx, by, leadID); err != nil {
		return transport.DocumentResponse{}, err
	}
	if err := s.storage.ValidateContentType(in.ContentType); err != nil {
		return transport.DocumentResponse{}, apperr.Validation(err.Error())
	}
	if err := s.storage.ValidateFileSize(in.Size); err != nil {
		return transport.DocumentResponse{}, apperr.Validation(err.Error())
	}

	folder := "leads/" + leadID.String()
	key, err := s.storage.UploadFile(ctx, s.cfg.DocumentBucket, folder, in.FileName, in.ContentType, in.Reader, in.Size)
	if err != nil {
		return transport.DocumentResponse{}, apperr.Internalf("leads.management.upload_document", err, "store document failed")
	}

	description := sanitize.TextPtr(in.Description)
	if description == nil || *description == "" {
		name := in.FileName
		description = &name
	}

	doc, err := s.repo.CreateDocument(ctx, repository.CreateDocumentParams{
		LeadID:      leadID,
		FileKey:     key,
		FileName:    in.FileName,
		ContentType: in.ContentType,
		SizeBytes:   in.Size,
		Description: description,
	})
	if err != nil {
		if delErr := s.storage.DeleteObject(ctx, s.cfg.DocumentBucket, key); delErr != nil {
			s.log.Warn("remove orphaned document failed", "key", key, "error", delErr)
		}
		return transport.DocumentResponse{}, err
	}

	return s.documentWithURL(ctx, doc), nil
}

func (s *Service) documentWithURL(ctx context.Context, doc repository.Document) transport.DocumentResponse {
	resp := toDocumentResponse(doc)
	if s.storage == nil {
		return resp
	}
	presigned, err := s.storage.GenerateDownloadURL(ctx, s.cfg.DocumentBucket, doc.FileKey)
	if err != nil {
		s.log.Warn("presign document failed", "documentId", doc.ID, "error", err)
		return resp
	}
	expires := presigned.ExpiresAt
	resp.URL = presigned.URL
	resp.URLExpires = &expires
	return resp
}

// load returns a lead the actor may act on.
func (s *Service) load(ctx context.Context, by actor.Actor, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound(msgLeadNotFound)
		}
		return repository.Lead{}, err
	}
	if !domain.VisibleTo(lead.AssignedTo, lead.CreatedBy, by) {
		return repository.Lead{}, apperr.Forbidden(msgLeadAccessDenied)
	}
	return lead, nil
}

// activateCategory flips the category's active flag. The lead write has
// already succeeded, so a failure is logged rather than returned.
func (s *Service) activateCategory(ctx context.Context, id uuid.UUID) {
	if err := s.categories.Activate(ctx, id); err != nil {
		s.log.Error("activate category failed", "categoryId", id, "error", err)
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
