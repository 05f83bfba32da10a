// Package service implements campaign management and dispatch. A dispatch
// walks the campaign's lead set once; a lead that cannot be reached is
// reported as skipped and never aborts the run.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/campaigns/repository"
	"leadflow_backend/internal/campaigns/transport"
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/internal/sms"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/sanitize"
)

const (
	msgNoLeads           = "At least one lead ID must be provided"
	msgRequiredFields    = "Title, type and description are required."
	msgInvalidType       = "Invalid campaign type. Must be one of: mail, sms"
	msgNoValidLeads      = "No valid leads found."
	msgAlreadySent       = "Campaign has already been sent."
	msgSendInProgress    = "Campaign is already being sent."
	msgSendAtInPast      = "Send time must be in the future"
	msgSchedulingOff     = "Campaign scheduling is not configured"
	msgSentImmutable     = "Cannot update a campaign that has already been sent."
	reasonMissingAddress = "Missing email or phone number"
	reasonDeliveryFailed = "Delivery failed"

	TypeMail = "mail"
	TypeSMS  = "sms"
)

// Recipient is a lead as seen by campaign dispatch.
type Recipient struct {
	ID    uuid.UUID
	Name  string
	Email *string
	Phone *string
}

// LeadSource resolves lead ids. Deleted leads are never returned.
type LeadSource interface {
	GetRecipients(ctx context.Context, ids []uuid.UUID) ([]Recipient, error)
}

// DispatchLocker serialises dispatches of the same campaign across processes.
type DispatchLocker interface {
	Acquire(ctx context.Context, key string) (func(context.Context) error, error)
}

// DispatchScheduler enqueues a delayed dispatch.
type DispatchScheduler interface {
	ScheduleCampaignDispatch(ctx context.Context, campaignID uuid.UUID, runAt time.Time) error
}

// Dependencies are the collaborators of the campaign service.
// Lock and Scheduler are nil when Redis is not configured.
type Dependencies struct {
	Leads     LeadSource
	Mail      email.Sender
	SMS       sms.Sender
	Lock      DispatchLocker
	Scheduler DispatchScheduler
}

type Service struct {
	repo repository.Repository
	deps Dependencies
	bus  events.Bus
	log  *logger.Logger
	now  func() time.Time
}

func New(repo repository.Repository, deps Dependencies, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, deps: deps, bus: bus, log: log, now: time.Now}
}

// Create stores a draft campaign linked to the non-deleted leads among the
// requested ids.
func (s *Service) Create(ctx context.Context, by actor.Actor, req transport.CreateCampaignRequest) (transport.CampaignResponse, error) {
	ids, err := parseLeadIDs(req.LeadIDs)
	if err != nil {
		return transport.CampaignResponse{}, err
	}

	title := strings.TrimSpace(req.Title)
	description := sanitize.Text(req.Description)
	campaignType := strings.ToLower(strings.TrimSpace(req.Type))
	if title == "" || description == "" || campaignType == "" {
		return transport.CampaignResponse{}, apperr.Validation(msgRequiredFields)
	}
	if !validType(campaignType) {
		return transport.CampaignResponse{}, apperr.Validation(msgInvalidType)
	}

	linked, err := s.resolveLeads(ctx, ids)
	if err != nil {
		return transport.CampaignResponse{}, err
	}

	campaign, err := s.repo.Create(ctx, repository.CreateCampaignParams{
		Title:       title,
		Subject:     trimmedPtr(req.Subject),
		Description: description,
		Type:        campaignType,
		Category:    trimmedPtr(req.Category),
		CreatedBy:   by.ID,
		LeadIDs:     linked,
	})
	if err != nil {
		return transport.CampaignResponse{}, err
	}

	s.log.Info("campaign created", "campaignId", campaign.ID, "leads", len(linked))
	return toResponse(campaign, nil), nil
}

// Update edits a campaign that has not been sent. New lead ids are resolved
// again and replace the linked set.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateCampaignRequest) (transport.CampaignResponse, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.CampaignResponse{}, err
	}
	if !current.Editable() {
		return transport.CampaignResponse{}, apperr.Conflict(msgSentImmutable)
	}

	params := repository.UpdateCampaignParams{
		ID:          id,
		Title:       trimmedPtr(req.Title),
		Subject:     trimmedPtr(req.Subject),
		Description: sanitize.TextPtr(req.Description),
		Category:    trimmedPtr(req.Category),
	}
	if req.Type != nil {
		campaignType := strings.ToLower(strings.TrimSpace(*req.Type))
		if !validType(campaignType) {
			return transport.CampaignResponse{}, apperr.Validation(msgInvalidType)
		}
		params.Type = &campaignType
	}
	if len(req.LeadIDs) > 0 {
		ids, err := parseLeadIDs(req.LeadIDs)
		if err != nil {
			return transport.CampaignResponse{}, err
		}
		linked, err := s.resolveLeads(ctx, ids)
		if err != nil {
			return transport.CampaignResponse{}, err
		}
		params.LeadIDs = linked
	}

	campaign, err := s.repo.Update(ctx, params)
	if err != nil {
		return transport.CampaignResponse{}, err
	}
	return toResponse(campaign, nil), nil
}

// List returns the caller's own campaigns, newest first.
func (s *Service) List(ctx context.Context, by actor.Actor) (transport.CampaignListResponse, error) {
	items, err := s.repo.ListByCreator(ctx, by.ID)
	if err != nil {
		return transport.CampaignListResponse{}, err
	}

	resp := transport.CampaignListResponse{Items: make([]transport.CampaignResponse, 0, len(items))}
	for _, c := range items {
		resp.Items = append(resp.Items, toResponse(c, nil))
	}
	return resp, nil
}

// Get returns one campaign with its currently reachable leads.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.CampaignResponse, error) {
	campaign, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.CampaignResponse{}, err
	}

	recipients, err := s.recipientsInOrder(ctx, campaign.LeadIDs)
	if err != nil {
		return transport.CampaignResponse{}, err
	}
	return toResponse(campaign, recipients), nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	campaign, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if campaign.Status == repository.StatusSending {
		return apperr.Conflict(msgSendInProgress)
	}
	return s.repo.Delete(ctx, id)
}

// Schedule queues the campaign for dispatch at sendAt.
func (s *Service) Schedule(ctx context.Context, id uuid.UUID, sendAt time.Time) (transport.CampaignResponse, error) {
	if s.deps.Scheduler == nil {
		return transport.CampaignResponse{}, apperr.BadRequest(msgSchedulingOff)
	}
	if !sendAt.After(s.now()) {
		return transport.CampaignResponse{}, apperr.Validation(msgSendAtInPast)
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.CampaignResponse{}, err
	}
	if !current.Editable() {
		return transport.CampaignResponse{}, apperr.Conflict(msgAlreadySent)
	}

	sendAt = sendAt.UTC()
	campaign, err := s.repo.Schedule(ctx, id, sendAt)
	if err != nil {
		return transport.CampaignResponse{}, err
	}
	if err := s.deps.Scheduler.ScheduleCampaignDispatch(ctx, id, sendAt); err != nil {
		return transport.CampaignResponse{}, apperr.Internalf("campaigns.Schedule", err, "enqueue campaign dispatch")
	}

	s.log.Info("campaign scheduled", "campaignId", id, "sendAt", sendAt)
	return toResponse(campaign, nil), nil
}

// Send dispatches the campaign now.
func (s *Service) Send(ctx context.Context, by actor.Actor, id uuid.UUID) (transport.SendResult, error) {
	campaign, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.SendResult{}, err
	}
	s.log.Info("campaign send requested", "campaignId", id, "by", by.ID)
	return s.dispatch(ctx, campaign)
}

// DispatchScheduled runs a scheduled dispatch from the background worker.
// Campaigns that were deleted, sent meanwhile, or moved to a later time are
// skipped without error.
func (s *Service) DispatchScheduled(ctx context.Context, id uuid.UUID) error {
	campaign, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.log.Info("scheduled campaign skipped, campaign gone", "campaignId", id)
			return nil
		}
		return err
	}
	if campaign.Status != repository.StatusScheduled {
		s.log.Info("scheduled campaign skipped", "campaignId", id, "status", campaign.Status)
		return nil
	}
	if campaign.ScheduledAt != nil && campaign.ScheduledAt.After(s.now()) {
		s.log.Info("scheduled campaign skipped, rescheduled", "campaignId", id, "scheduledAt", *campaign.ScheduledAt)
		return nil
	}

	_, err = s.dispatch(ctx, campaign)
	if apperr.Is(err, apperr.KindConflict) {
		return nil
	}
	return err
}

func (s *Service) dispatch(ctx context.Context, campaign repository.Campaign) (transport.SendResult, error) {
	if !campaign.Editable() {
		if campaign.Status == repository.StatusSending {
			return transport.SendResult{}, apperr.Conflict(msgSendInProgress)
		}
		return transport.SendResult{}, apperr.Conflict(msgAlreadySent)
	}

	if s.deps.Lock != nil {
		release, err := s.deps.Lock.Acquire(ctx, dispatchLockKey(campaign.ID))
		if err != nil {
			if errors.Is(err, scheduler.ErrLockHeld) {
				return transport.SendResult{}, apperr.Conflict(msgSendInProgress)
			}
			return transport.SendResult{}, apperr.Internalf("campaigns.Send", err, "acquire dispatch lock")
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("release campaign dispatch lock failed", "campaignId", campaign.ID, "error", err)
			}
		}()
	}

	claimed, err := s.repo.BeginSend(ctx, campaign.ID)
	if err != nil {
		return transport.SendResult{}, err
	}
	if !claimed {
		return transport.SendResult{}, apperr.Conflict(msgSendInProgress)
	}

	// Once claimed, the send runs to completion even if the caller goes away.
	sendCtx := context.WithoutCancel(ctx)

	recipients, err := s.recipientsInOrder(sendCtx, campaign.LeadIDs)
	if err != nil {
		if abortErr := s.repo.AbortSend(sendCtx, campaign.ID); abortErr != nil {
			s.log.Error("abort campaign send failed", "campaignId", campaign.ID, "error", abortErr)
		}
		return transport.SendResult{}, err
	}

	result := transport.SendResult{SkippedLeads: []transport.SkippedLead{}}
	for _, r := range recipients {
		if reason := s.deliver(sendCtx, campaign, r); reason != "" {
			result.SkippedLeads = append(result.SkippedLeads, transport.SkippedLead{
				LeadID: r.ID,
				Name:   r.Name,
				Reason: reason,
			})
			continue
		}
		result.SentCount++
	}
	result.SkippedCount = len(result.SkippedLeads)

	if err := s.repo.FinishSend(sendCtx, campaign.ID, result.SentCount, s.now().UTC()); err != nil {
		return transport.SendResult{}, err
	}

	s.bus.Publish(sendCtx, events.CampaignSent{
		BaseEvent:    events.NewBaseEvent(),
		Creator:      actor.New(campaign.CreatedBy, actor.RoleManager),
		CampaignID:   campaign.ID,
		Title:        campaign.Title,
		SentCount:    result.SentCount,
		SkippedCount: result.SkippedCount,
	})

	s.log.Info("campaign sent", "campaignId", campaign.ID, "sent", result.SentCount, "skipped", result.SkippedCount)
	return result, nil
}

// deliver sends the campaign to one lead and returns the skip reason, or ""
// when the message was handed to the provider.
func (s *Service) deliver(ctx context.Context, campaign repository.Campaign, r Recipient) string {
	switch campaign.Type {
	case TypeMail:
		if r.Email == nil || *r.Email == "" {
			return reasonMissingAddress
		}
		msg := email.CampaignMessage{
			To:          *r.Email,
			LeadName:    r.Name,
			Title:       campaign.Title,
			Description: campaign.Description,
		}
		if campaign.Subject != nil {
			msg.Subject = *campaign.Subject
		}
		if err := s.deps.Mail.SendCampaignEmail(ctx, msg); err != nil {
			s.log.Warn("campaign email failed", "campaignId", campaign.ID, "leadId", r.ID, "error", err)
			return reasonDeliveryFailed
		}
	case TypeSMS:
		if r.Phone == nil || *r.Phone == "" {
			return reasonMissingAddress
		}
		body := fmt.Sprintf("%s: %s", campaign.Title, campaign.Description)
		if err := s.deps.SMS.SendSMS(ctx, *r.Phone, body); err != nil {
			s.log.Warn("campaign sms failed", "campaignId", campaign.ID, "leadId", r.ID, "error", err)
			return reasonDeliveryFailed
		}
	default:
		return reasonMissingAddress
	}
	return ""
}

// resolveLeads keeps the ids that name non-deleted leads, in request order.
func (s *Service) resolveLeads(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	recipients, err := s.recipientsInOrder(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, apperr.NotFound(msgNoValidLeads)
	}

	linked := make([]uuid.UUID, 0, len(recipients))
	for _, r := range recipients {
		linked = append(linked, r.ID)
	}
	return linked, nil
}

func (s *Service) recipientsInOrder(ctx context.Context, ids []uuid.UUID) ([]Recipient, error) {
	if len(ids) == 0 {
		return []Recipient{}, nil
	}
	found, err := s.deps.Leads.GetRecipients(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]Recipient, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}
	ordered := make([]Recipient, 0, len(found))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}

func dispatchLockKey(id uuid.UUID) string {
	return "campaign:dispatch:" + id.String()
}

func validType(t string) bool {
	return t == TypeMail || t == TypeSMS
}

func parseLeadIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, apperr.Validation(msgNoLeads)
	}
	seen := make(map[uuid.UUID]struct{}, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("Invalid lead ID: %s", value))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toResponse(c repository.Campaign, leads []Recipient) transport.CampaignResponse {
	resp := transport.CampaignResponse{
		ID:          c.ID,
		Title:       c.Title,
		Subject:     c.Subject,
		Description: c.Description,
		Type:        c.Type,
		Category:    c.Category,
		Status:      c.Status,
		CreatedBy:   c.CreatedBy,
		ScheduledAt: c.ScheduledAt,
		SentAt:      c.SentAt,
		Delivered:   c.Delivered,
		TotalLeads:  len(c.LeadIDs),
		LeadIDs:     c.LeadIDs,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if resp.LeadIDs == nil {
		resp.LeadIDs = []uuid.UUID{}
	}
	for _, l := range leads {
		resp.Leads = append(resp.Leads, transport.CampaignLead{ID: l.ID, Name: l.Name, Email: l.Email, Phone: l.Phone})
	}
	return resp
}
