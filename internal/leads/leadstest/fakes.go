// Package leadstest provides in-memory fakes for testing the leads services.
package leadstest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/ports"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/apperr"

	"github.com/google/uuid"
)

// Repo is an in-memory repository.LeadsRepository.
type Repo struct {
	mu            sync.Mutex
	Leads         map[uuid.UUID]*repository.Lead
	Conversations map[uuid.UUID]*repository.Conversation
	Documents     []repository.Document
	CampaignLinks map[uuid.UUID][]uuid.UUID
	Names         map[uuid.UUID]string
	// CreateErr, when set, fails every Create call.
	CreateErr error
	// DocumentErr, when set, fails every CreateDocument call.
	DocumentErr error
	seq       int
}

func NewRepo() *Repo {
	return &Repo{
		Leads:         make(map[uuid.UUID]*repository.Lead),
		Conversations: make(map[uuid.UUID]*repository.Conversation),
		CampaignLinks: make(map[uuid.UUID][]uuid.UUID),
		Names:         make(map[uuid.UUID]string),
	}
}

// tick returns strictly increasing timestamps so ordering is deterministic.
func (r *Repo) tick() time.Time {
	r.seq++
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(r.seq) * time.Second)
}

// Seed stores a lead as-is and returns its id.
func (r *Repo) Seed(lead repository.Lead) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Status == "" {
		lead.Status = "new"
	}
	if lead.Priority == "" {
		lead.Priority = "medium"
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = r.tick()
	}
	copied := lead
	r.Leads[lead.ID] = &copied
	return lead.ID
}

// Lead returns a copy of a stored lead regardless of deletion.
func (r *Repo) Lead(id uuid.UUID) (repository.Lead, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.Leads[id]
	if !ok {
		return repository.Lead{}, false
	}
	return *lead, true
}

func (r *Repo) emailTaken(email string, exclude *uuid.UUID) bool {
	for _, lead := range r.Leads {
		if lead.IsDeleted || lead.Email == nil {
			continue
		}
		if exclude != nil && lead.ID == *exclude {
			continue
		}
		if strings.EqualFold(*lead.Email, email) {
			return true
		}
	}
	return false
}

func (r *Repo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.Leads[id]
	if !ok || lead.IsDeleted {
		return repository.Lead{}, repository.ErrNotFound
	}
	return *lead, nil
}

func (r *Repo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []repository.Lead{}
	for _, id := range ids {
		if lead, ok := r.Leads[id]; ok && !lead.IsDeleted {
			out = append(out, *lead)
		}
	}
	return out, nil
}

func (r *Repo) List(_ context.Context, params repository.ListParams) ([]repository.Lead, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := []repository.Lead{}
	for _, lead := range r.Leads {
		if lead.IsDeleted {
			continue
		}
		if params.Owner != nil {
			owner := domain.Owner(lead.AssignedTo, lead.CreatedBy)
			if owner == nil || *owner != *params.Owner {
				continue
			}
		}
		if params.Status != nil && lead.Status != *params.Status {
			continue
		}
		if params.Priority != nil && lead.Priority != *params.Priority {
			continue
		}
		if params.CategoryID != nil && (lead.CategoryID == nil || *lead.CategoryID != *params.CategoryID) {
			continue
		}
		matched = append(matched, *lead)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	start := params.Offset
	if start > total {
		start = total
	}
	end := start + params.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *Repo) ListByCategory(_ context.Context, categoryID uuid.UUID) ([]repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []repository.Lead{}
	for _, lead := range r.Leads {
		if !lead.IsDeleted && lead.CategoryID != nil && *lead.CategoryID == categoryID {
			out = append(out, *lead)
		}
	}
	return out, nil
}

func (r *Repo) EmailInUse(_ context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.emailTaken(email, excludeID), nil
}

func (r *Repo) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return repository.Lead{}, r.CreateErr
	}
	if params.Email != nil && r.emailTaken(*params.Email, nil) {
		return repository.Lead{}, repository.ErrDuplicateEmail
	}
	now := r.tick()
	lead := &repository.Lead{
		ID:            uuid.New(),
		Name:          params.Name,
		Email:         params.Email,
		Phone:         params.Phone,
		CategoryID:    params.CategoryID,
		Position:      params.Position,
		Source:        params.Source,
		Notes:         params.Notes,
		Priority:      params.Priority,
		Status:        params.Status,
		CreatedBy:     params.CreatedBy,
		AssignedTo:    params.AssignedTo,
		AssignedRole:  params.AssignedRole,
		FollowUpDates: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.Leads[lead.ID] = lead
	return *lead, nil
}

func (r *Repo) Update(_ context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.Leads[id]
	if !ok || lead.IsDeleted {
		return repository.Lead{}, repository.ErrNotFound
	}
	if params.Email != nil && r.emailTaken(*params.Email, &id) {
		return repository.Lead{}, repository.ErrDuplicateEmail
	}
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&lead.Name, params.Name)
	setString(&lead.Position, params.Position)
	setString(&lead.Source, params.Source)
	setString(&lead.Notes, params.Notes)
	setString(&lead.Priority, params.Priority)
	setString(&lead.Status, params.Status)
	if params.Email != nil {
		lead.Email = params.Email
	}
	if params.Phone != nil {
		lead.Phone = params.Phone
	}
	if params.ClearCategory {
		lead.CategoryID = nil
	} else if params.CategoryID != nil {
		lead.CategoryID = params.CategoryID
	}
	lead.UpdatedAt = r.tick()
	return *lead, nil
}

func (r *Repo) SoftDelete(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.Leads[id]
	if !ok || lead.IsDeleted || lead.AssignedTo != nil {
		return false, nil
	}
	lead.IsDeleted = true
	return true, nil
}

func (r *Repo) ListConversationIDs(_ context.Context, leadID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	convs := r.sortedConversations(func(c *repository.Conversation) bool { return c.LeadID == leadID })
	sort.Slice(convs, func(i, j int) bool { return convs[i].CreatedAt.Before(convs[j].CreatedAt) })
	ids := make([]uuid.UUID, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (r *Repo) ListCampaignIDs(_ context.Context, leadID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uuid.UUID(nil), r.CampaignLinks[leadID]...), nil
}

func (r *Repo) CreateDocument(_ context.Context, params repository.CreateDocumentParams) (repository.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.DocumentErr != nil {
		return repository.Document{}, r.DocumentErr
	}
	doc := repository.Document{
		ID:          uuid.New(),
		LeadID:      params.LeadID,
		FileKey:     params.FileKey,
		FileName:    params.FileName,
		ContentType: params.ContentType,
		SizeBytes:   params.SizeBytes,
		Description: params.Description,
		CreatedAt:   r.tick(),
	}
	r.Documents = append(r.Documents, doc)
	return doc, nil
}

func (r *Repo) ListDocuments(_ context.Context, leadID uuid.UUID) ([]repository.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []repository.Document{}
	for _, doc := range r.Documents {
		if doc.LeadID == leadID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *Repo) RecordConversation(_ context.Context, params repository.RecordConversationParams) (repository.Conversation, repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.Leads[params.LeadID]
	if !ok || lead.IsDeleted {
		return repository.Conversation{}, repository.Lead{}, repository.ErrNotFound
	}
	if params.Status != nil && !domain.CanTransition(domain.Status(lead.Status), domain.Status(*params.Status)) {
		return repository.Conversation{}, repository.Lead{}, repository.ErrStatusTransition
	}
	now := r.tick()
	conv := &repository.Conversation{
		ID:           uuid.New(),
		LeadID:       params.LeadID,
		Date:         params.Date,
		Conclusion:   params.Conclusion,
		IsProfitable: params.IsProfitable,
		FollowUpDate: params.FollowUpDate,
		AddedBy:      params.AddedBy,
		AddedByRole:  params.AddedByRole,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.Conversations[conv.ID] = conv

	if params.AppendFollowUp != "" {
		lead.FollowUpDates = append(lead.FollowUpDates, params.AppendFollowUp)
	}
	if params.Status != nil {
		lead.Status = *params.Status
	}
	if params.SetLeadProfitable {
		lead.IsProfitable = params.IsProfitable
	}
	lastContact := params.LastContact
	lead.LastContact = &lastContact
	return *conv, *lead, nil
}

func (r *Repo) GetConversation(_ context.Context, id uuid.UUID) (repository.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.Conversations[id]
	if !ok || conv.IsDeleted {
		return repository.Conversation{}, repository.ErrConversationNotFound
	}
	return *conv, nil
}

func (r *Repo) UpdateConversation(_ context.Context, id uuid.UUID, conclusion *string, isProfitable *bool) (repository.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.Conversations[id]
	if !ok || conv.IsDeleted {
		return repository.Conversation{}, repository.ErrConversationNotFound
	}
	if conclusion != nil {
		conv.Conclusion = *conclusion
	}
	if isProfitable != nil {
		conv.IsProfitable = isProfitable
	}
	conv.UpdatedAt = r.tick()
	return *conv, nil
}

func (r *Repo) SoftDeleteConversation(_ context.Context, id uuid.UUID, deletedBy uuid.UUID) (repository.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.Conversations[id]
	if !ok || conv.IsDeleted {
		return repository.Conversation{}, repository.ErrConversationNotFound
	}
	conv.IsDeleted = true
	conv.DeletedBy = &deletedBy
	return *conv, nil
}

func (r *Repo) ListConversations(_ context.Context, filter repository.ConversationFilter) ([]repository.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedConversations(func(c *repository.Conversation) bool {
		if !filter.IncludeDeleted && c.IsDeleted {
			return false
		}
		if filter.LeadID != nil && c.LeadID != *filter.LeadID {
			return false
		}
		if filter.AddedBy != nil && c.AddedBy != *filter.AddedBy {
			return false
		}
		return true
	}), nil
}

func (r *Repo) ListConversationsWithMeta(_ context.Context, addedBy *uuid.UUID) ([]repository.ConversationWithMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	convs := r.sortedConversations(func(c *repository.Conversation) bool {
		return !c.IsDeleted && (addedBy == nil || c.AddedBy == *addedBy)
	})
	out := make([]repository.ConversationWithMeta, 0, len(convs))
	for _, c := range convs {
		item := repository.ConversationWithMeta{Conversation: c, AuthorName: r.Names[c.AddedBy]}
		if lead, ok := r.Leads[c.LeadID]; ok {
			item.LeadName = lead.Name
			item.LeadStatus = lead.Status
			item.FollowUpDates = lead.FollowUpDates
			item.CategoryID = lead.CategoryID
		}
		out = append(out, item)
	}
	return out, nil
}

// sortedConversations returns matching conversations, newest date first.
func (r *Repo) sortedConversations(keep func(*repository.Conversation) bool) []repository.Conversation {
	out := []repository.Conversation{}
	for _, c := range r.Conversations {
		if keep(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out
}

var _ repository.LeadsRepository = (*Repo)(nil)

// Bus records published events and runs no handlers.
type Bus struct {
	mu     sync.Mutex
	Events []events.Event
}

func (b *Bus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Events = append(b.Events, event)
}

func (b *Bus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *Bus) Subscribe(string, events.Handler) {}

// Names returns the names of the recorded events in publish order.
func (b *Bus) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.Events))
	for _, e := range b.Events {
		names = append(names, e.EventName())
	}
	return names
}

var _ events.Bus = (*Bus)(nil)

// Categories is an in-memory ports.CategoryService.
type Categories struct {
	mu     sync.Mutex
	Active map[uuid.UUID]bool
	// Activations counts Activate calls per category.
	Activations map[uuid.UUID]int
}

func NewCategories(ids ...uuid.UUID) *Categories {
	c := &Categories{Active: make(map[uuid.UUID]bool), Activations: make(map[uuid.UUID]int)}
	for _, id := range ids {
		c.Active[id] = false
	}
	return c
}

func (c *Categories) Ensure(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Active[id]; !ok {
		return apperr.NotFound("Category not found")
	}
	return nil
}

func (c *Categories) Activate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Active[id]; !ok {
		return apperr.NotFound("Category not found")
	}
	c.Active[id] = true
	c.Activations[id]++
	return nil
}

func (c *Categories) IsActive(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Active[id]
}

var _ ports.CategoryService = (*Categories)(nil)

// Users is an in-memory ports.UserDirectory.
type Users struct {
	ByID map[uuid.UUID]actor.Actor
}

func NewUsers(actors ...actor.Actor) *Users {
	u := &Users{ByID: make(map[uuid.UUID]actor.Actor)}
	for _, a := range actors {
		u.ByID[a.ID] = a
	}
	return u
}

func (u *Users) ResolveUser(_ context.Context, id uuid.UUID) (actor.Actor, error) {
	a, ok := u.ByID[id]
	if !ok {
		return actor.Actor{}, apperr.NotFound("Worker not found")
	}
	return a, nil
}

func (u *Users) UserNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if _, ok := u.ByID[id]; ok {
			out[id] = id.String()
		}
	}
	return out, nil
}

var _ ports.UserDirectory = (*Users)(nil)

// Storage is an in-memory ports.DocumentStorage.
type Storage struct {
	Objects map[string][]byte
	MaxSize int64
}

func NewStorage() *Storage {
	return &Storage{Objects: make(map[string][]byte), MaxSize: 1 << 20}
}

func (s *Storage) UploadFile(_ context.Context, bucket, folder, fileName, _ string, reader io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%s", folder, fileName)
	s.Objects[bucket+"/"+key] = data
	return key, nil
}

func (s *Storage) GenerateDownloadURL(_ context.Context, bucket, fileKey string) (ports.PresignedURL, error) {
	return ports.PresignedURL{
		URL:       "https://files.test/" + bucket + "/" + fileKey,
		ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (s *Storage) DeleteObject(_ context.Context, bucket, fileKey string) error {
	delete(s.Objects, bucket+"/"+fileKey)
	return nil
}

func (s *Storage) ValidateContentType(contentType string) error {
	if contentType != "application/pdf" && contentType != "text/plain" {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}

func (s *Storage) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 || sizeBytes > s.MaxSize {
		return fmt.Errorf("file size %d bytes is out of range", sizeBytes)
	}
	return nil
}

var _ ports.DocumentStorage = (*Storage)(nil)

// Reminders records scheduled follow-up reminders.
type Reminders struct {
	mu        sync.Mutex
	Scheduled map[uuid.UUID][]time.Time
}

func NewReminders() *Reminders {
	return &Reminders{Scheduled: make(map[uuid.UUID][]time.Time)}
}

func (r *Reminders) ScheduleFollowUpReminder(_ context.Context, leadID uuid.UUID, due time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Scheduled[leadID] = append(r.Scheduled[leadID], due)
	return nil
}

var _ ports.ReminderScheduler = (*Reminders)(nil)
