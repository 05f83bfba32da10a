package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow_backend/internal/campaigns/repository"
	"leadflow_backend/internal/campaigns/transport"
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type memRepo struct {
	campaigns map[uuid.UUID]repository.Campaign
}

func (m *memRepo) Create(_ context.Context, p repository.CreateCampaignParams) (repository.Campaign, error) {
	c := repository.Campaign{
		ID: uuid.New(), Title: p.Title, Subject: p.Subject, Description: p.Description, Type: p.Type,
		Category: p.Category, Status: repository.StatusDraft, CreatedBy: p.CreatedBy, LeadIDs: p.LeadIDs,
		CreatedAt: fixedNow, UpdatedAt: fixedNow,
	}
	m.campaigns[c.ID] = c
	return c, nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return repository.Campaign{}, apperr.NotFound("Campaign not found")
	}
	return c, nil
}

func (m *memRepo) ListByCreator(_ context.Context, createdBy uuid.UUID) ([]repository.Campaign, error) {
	out := []repository.Campaign{}
	for _, c := range m.campaigns {
		if c.CreatedBy == createdBy {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, p repository.UpdateCampaignParams) (repository.Campaign, error) {
	c := m.campaigns[p.ID]
	if !c.Editable() {
		return repository.Campaign{}, apperr.Conflict(msgSentImmutable)
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.LeadIDs != nil {
		c.LeadIDs = p.LeadIDs
	}
	m.campaigns[p.ID] = c
	return c, nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.campaigns, id)
	return nil
}

func (m *memRepo) Schedule(_ context.Context, id uuid.UUID, at time.Time) (repository.Campaign, error) {
	c := m.campaigns[id]
	c.Status = repository.StatusScheduled
	c.ScheduledAt = &at
	m.campaigns[id] = c
	return c, nil
}

func (m *memRepo) BeginSend(_ context.Context, id uuid.UUID) (bool, error) {
	c := m.campaigns[id]
	if !c.Editable() {
		return false, nil
	}
	c.Status = repository.StatusSending
	m.campaigns[id] = c
	return true, nil
}

func (m *memRepo) FinishSend(_ context.Context, id uuid.UUID, delivered int, sentAt time.Time) error {
	c := m.campaigns[id]
	c.Status = repository.StatusSent
	c.Delivered = delivered
	c.SentAt = &sentAt
	m.campaigns[id] = c
	return nil
}

func (m *memRepo) AbortSend(_ context.Context, id uuid.UUID) error {
	c := m.campaigns[id]
	c.Status = repository.StatusDraft
	m.campaigns[id] = c
	return nil
}

type leadSource struct {
	leads map[uuid.UUID]Recipient
	err   error
}

func (l *leadSource) GetRecipients(_ context.Context, ids []uuid.UUID) ([]Recipient, error) {
	if l.err != nil {
		return nil, l.err
	}
	out := []Recipient{}
	for i := len(ids) - 1; i >= 0; i-- {
		if r, ok := l.leads[ids[i]]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type mailer struct {
	mu        sync.Mutex
	sent      []email.CampaignMessage
	fail      map[string]bool
	afterSend func()
}

func (m *mailer) SendCampaignEmail(ctx context.Context, msg email.CampaignMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.fail[msg.To] {
		return errors.New("smtp: 550 mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	if m.afterSend != nil {
		m.afterSend()
	}
	return nil
}

type texter struct {
	to, bodies []string
}

func (t *texter) SendSMS(_ context.Context, to, body string) error {
	t.to = append(t.to, to)
	t.bodies = append(t.bodies, body)
	return nil
}

type enqueuer struct {
	ids []uuid.UUID
	at  []time.Time
}

func (e *enqueuer) ScheduleCampaignDispatch(_ context.Context, id uuid.UUID, runAt time.Time) error {
	e.ids = append(e.ids, id)
	e.at = append(e.at, runAt)
	return nil
}

type recordingBus struct{ events []events.Event }

func (b *recordingBus) Publish(_ context.Context, e events.Event) { b.events = append(b.events, e) }
func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

type fixture struct {
	svc     *Service
	repo    *memRepo
	leads   *leadSource
	mail    *mailer
	sms     *texter
	queue   *enqueuer
	bus     *recordingBus
	lock    *scheduler.DispatchLock
	manager actor.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{
		repo:    &memRepo{campaigns: map[uuid.UUID]repository.Campaign{}},
		leads:   &leadSource{leads: map[uuid.UUID]Recipient{}},
		mail:    &mailer{fail: map[string]bool{}},
		sms:     &texter{},
		queue:   &enqueuer{},
		bus:     &recordingBus{},
		lock:    scheduler.NewDispatchLock(rdb, time.Minute),
		manager: actor.New(uuid.New(), actor.RoleManager),
	}
	f.svc = New(f.repo, Dependencies{
		Leads:     f.leads,
		Mail:      f.mail,
		SMS:       f.sms,
		Lock:      f.lock,
		Scheduler: f.queue,
	}, f.bus, logger.New("test"))
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) seedLead(name string, mail, phone *string) uuid.UUID {
	id := uuid.New()
	f.leads.leads[id] = Recipient{ID: id, Name: name, Email: mail, Phone: phone}
	return id
}

func (f *fixture) create(t *testing.T, campaignType string, ids ...uuid.UUID) transport.CampaignResponse {
	t.Helper()
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}
	resp, err := f.svc.Create(context.Background(), f.manager, transport.CreateCampaignRequest{
		Title:       "Spring offer",
		Subject:     strPtr("20% off"),
		Description: "Book before April",
		Type:        campaignType,
		LeadIDs:     raw,
	})
	require.NoError(t, err)
	return resp
}

func strPtr(s string) *string { return &s }

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead("Ada", strPtr("ada@example.com"), nil)

	cases := []struct {
		name string
		req  transport.CreateCampaignRequest
		kind apperr.Kind
		msg  string
	}{
		{"no leads", transport.CreateCampaignRequest{Title: "t", Description: "d", Type: "mail"}, apperr.KindValidation, msgNoLeads},
		{"bad lead id", transport.CreateCampaignRequest{Title: "t", Description: "d", Type: "mail", LeadIDs: []string{"x"}}, apperr.KindValidation, "Invalid lead ID: x"},
		{"missing title", transport.CreateCampaignRequest{Description: "d", Type: "mail", LeadIDs: []string{lead.String()}}, apperr.KindValidation, msgRequiredFields},
		{"blank description", transport.CreateCampaignRequest{Title: "t", Description: "  ", Type: "mail", LeadIDs: []string{lead.String()}}, apperr.KindValidation, msgRequiredFields},
		{"unknown type", transport.CreateCampaignRequest{Title: "t", Description: "d", Type: "fax", LeadIDs: []string{lead.String()}}, apperr.KindValidation, msgInvalidType},
		{"no live leads", transport.CreateCampaignRequest{Title: "t", Description: "d", Type: "mail", LeadIDs: []string{uuid.NewString()}}, apperr.KindNotFound, msgNoValidLeads},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.manager, tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.GetKind(err))
			assert.Equal(t, tc.msg, err.Error())
		})
	}
}

func TestCreateLinksOnlyLiveLeadsInRequestOrder(t *testing.T) {
	f := newFixture(t)
	a := f.seedLead("Ada", strPtr("ada@example.com"), nil)
	b := f.seedLead("Bob", strPtr("bob@example.com"), nil)
	gone := uuid.New()

	resp := f.create(t, "MAIL", a, gone, b, a)

	assert.Equal(t, repository.StatusDraft, resp.Status)
	assert.Equal(t, "mail", resp.Type)
	assert.Equal(t, []uuid.UUID{a, b}, resp.LeadIDs)
	assert.Equal(t, 2, resp.TotalLeads)
	assert.Equal(t, f.manager.ID, resp.CreatedBy)
}

func TestSendMailSkipsUnreachableLeads(t *testing.T) {
	f := newFixture(t)
	ada := f.seedLead("Ada", strPtr("ada@example.com"), nil)
	noMail := f.seedLead("Phone Only", nil, strPtr("+16502530000"))
	bounced := f.seedLead("Bounce", strPtr("bounce@example.com"), nil)
	f.mail.fail["bounce@example.com"] = true
	campaign := f.create(t, "mail", ada, noMail, bounced)

	result, err := f.svc.Send(context.Background(), f.manager, campaign.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SentCount)
	assert.Equal(t, 2, result.SkippedCount)
	assert.Equal(t, []transport.SkippedLead{
		{LeadID: noMail, Name: "Phone Only", Reason: reasonMissingAddress},
		{LeadID: bounced, Name: "Bounce", Reason: reasonDeliveryFailed},
	}, result.SkippedLeads)

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, email.CampaignMessage{
		To: "ada@example.com", LeadName: "Ada", Subject: "20% off", Title: "Spring offer", Description: "Book before April",
	}, f.mail.sent[0])

	stored := f.repo.campaigns[campaign.ID]
	assert.Equal(t, repository.StatusSent, stored.Status)
	assert.Equal(t, 1, stored.Delivered)

	require.Len(t, f.bus.events, 1)
	sent, ok := f.bus.events[0].(events.CampaignSent)
	require.True(t, ok)
	assert.Equal(t, f.manager, sent.Creator)
	assert.Equal(t, 1, sent.SentCount)
	assert.Equal(t, 2, sent.SkippedCount)
}

func TestSendFinishesAfterCallerCancels(t *testing.T) {
	f := newFixture(t)
	a := f.seedLead("Ada", strPtr("ada@example.com"), nil)
	b := f.seedLead("Bob", strPtr("bob@example.com"), nil)
	c := f.seedLead("Cy", strPtr("cy@example.com"), nil)
	campaign := f.create(t, "mail", a, b, c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.mail.afterSend = cancel

	result, err := f.svc.Send(ctx, f.manager, campaign.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, result.SentCount)
	assert.Empty(t, result.SkippedLeads)
	assert.Len(t, f.mail.sent, 3)
	assert.Equal(t, repository.StatusSent, f.repo.campaigns[campaign.ID].Status)
	assert.Equal(t, 3, f.repo.campaigns[campaign.ID].Delivered)
}

func TestSendSMSUsesTitleAndDescription(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead("Ada", strPtr("ada@example.com"), strPtr("+16502530000"))
	campaign := f.create(t, "sms", lead)

	result, err := f.svc.Send(context.Background(), f.manager, campaign.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SentCount)
	assert.Empty(t, result.SkippedLeads)
	assert.Equal(t, []string{"+16502530000"}, f.sms.to)
	assert.Equal(t, []string{"Spring offer: Book before April"}, f.sms.bodies)
	assert.Empty(t, f.mail.sent)
}

func TestSendTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead("Ada", strPtr("ada@example.com"), nil)
	campaign := f.create(t, "mail", lead)

	_, err := f.svc.Send(context.Background(), f.manager, campaign.ID)
	require.NoError(t, err)

	_, err = f.svc.Send(context.Background(), f.manager, campaign.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Len(t, f.mail.sent, 1)
}

func TestSendWhileLockedConflicts(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead("Ada", strPtr("ada@example.com"), nil)
	campaign := f.create(t, "mail", lead)

	release, err := f.lock.Acquire(context.Background(), dispatchLockKey(campaign.ID))
	require.NoError(t, err)

	_, err = f.svc.Send(context.Background(), f.manager, campaign.ID)
	require.Error(t, err)
	assert.Equal(t, msgSendInProgress, err.Error())
	assert.Equal(t, repository.StatusDraft, f.repo.campaigns[campaign.ID].Status)

	require.NoError(t, release(context.Background()))
	_, err = f.svc.Send(context.Background(), f.manager, campaign.ID)
	require.NoError(t, err)
}

func TestSendLeadLookupFailureRestoresDraft(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead("Ada", strPtr("ada@example.com"), nil)
	campaign := f.create(t, "mail", lead)
	f.leads.err = errors.New("db down")

	_, err := f.svc.Send(context.Background(), f.manager, campaign.ID)
	require.Error(t, err)
	assert.Equal(t, repository.StatusDraft, f.repo.campaigns[campaign.ID].Status)
	assert.Empty(t, f.bus.events)
}

func TestUpdateSentCampaignConflicts(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead("Ada", strPtr("ada@example.com"), nil)
	other := f.seedLead("Bob", strPtr("bob@example.com"), nil)
	campaign := f.create(t, "mail", lead)

	updated, err := f.svc.Update(context.Background(), campaign.ID, transport.UpdateCampaignRequest{
		Title:   strPtr(" Summer offer "),
		LeadIDs: []string{other.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, "Summer offer", updated.Title)
	assert.Equal(t, []uuid.UUID{other}, updated.LeadIDs)

	_, err = f.svc.Send(context.Background(), f.manager, campaign.ID)
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), campaign.ID, transport.UpdateCampaignRequest{Title: strPtr("Late")})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, msgSentImmutable, err.Error())
}

func TestSchedule(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead("Ada", strPtr("ada@example.com"), nil)
	campaign := f.create(t, "mail", lead)

	_, err := f.svc.Schedule(context.Background(), campaign.ID, fixedNow)
	require.Error(t, err)
	assert.Equal(t, msgSendAtInPast, err.Error())

	sendAt := fixedNow.Add(time.Hour)
	resp, err := f.svc.Schedule(context.Background(), campaign.ID, sendAt)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusScheduled, resp.Status)
	assert.Equal(t, []uuid.UUID{campaign.ID}, f.queue.ids)
	assert.True(t, f.queue.at[0].Equal(sendAt))

	f.svc.deps.Scheduler = nil
	_, err = f.svc.Schedule(context.Background(), campaign.ID, sendAt)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestDispatchScheduled(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead("Ada", strPtr("ada@example.com"), nil)
	campaign := f.create(t, "mail", lead)
	sendAt := fixedNow.Add(time.Hour)
	_, err := f.svc.Schedule(context.Background(), campaign.ID, sendAt)
	require.NoError(t, err)

	// Fired early, e.g. the campaign was rescheduled after this task was queued.
	require.NoError(t, f.svc.DispatchScheduled(context.Background(), campaign.ID))
	assert.Empty(t, f.mail.sent)

	f.svc.now = func() time.Time { return sendAt }
	require.NoError(t, f.svc.DispatchScheduled(context.Background(), campaign.ID))
	assert.Len(t, f.mail.sent, 1)
	assert.Equal(t, repository.StatusSent, f.repo.campaigns[campaign.ID].Status)

	// Sent campaigns and deleted ones are skipped quietly.
	require.NoError(t, f.svc.DispatchScheduled(context.Background(), campaign.ID))
	require.NoError(t, f.svc.DispatchScheduled(context.Background(), uuid.New()))
	assert.Len(t, f.mail.sent, 1)
}

func TestGetReturnsLiveLeadsAndDeleteGuardsSending(t *testing.T) {
	f := newFixture(t)
	a := f.seedLead("Ada", strPtr("ada@example.com"), nil)
	b := f.seedLead("Bob", nil, strPtr("+16502530000"))
	campaign := f.create(t, "mail", a, b)
	delete(f.leads.leads, b)

	resp, err := f.svc.Get(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalLeads)
	require.Len(t, resp.Leads, 1)
	assert.Equal(t, "Ada", resp.Leads[0].Name)

	stored := f.repo.campaigns[campaign.ID]
	stored.Status = repository.StatusSending
	f.repo.campaigns[campaign.ID] = stored
	err = f.svc.Delete(context.Background(), campaign.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	stored.Status = repository.StatusSent
	f.repo.campaigns[campaign.ID] = stored
	require.NoError(t, f.svc.Delete(context.Background(), campaign.ID))
	_, err = f.svc.Get(context.Background(), campaign.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListReturnsOwnCampaigns(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead("Ada", strPtr("ada@example.com"), nil)
	f.create(t, "mail", lead)

	other := actor.New(uuid.New(), actor.RoleManager)
	list, err := f.svc.List(context.Background(), other)
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	list, err = f.svc.List(context.Background(), f.manager)
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}
