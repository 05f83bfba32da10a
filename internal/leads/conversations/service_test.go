package conversations

import (
	"context"
	"testing"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/leadstest"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc     *Service
	repo    *leadstest.Repo
	bus     *leadstest.Bus
	manager actor.Actor
	worker  actor.Actor
	leadID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:    leadstest.NewRepo(),
		bus:     &leadstest.Bus{},
		manager: actor.New(uuid.New(), actor.RoleManager),
		worker:  actor.New(uuid.New(), actor.RoleWorker),
	}
	f.leadID = f.repo.Seed(repository.Lead{Name: "Ada", Status: "in-progress", AssignedTo: &f.worker.ID})
	f.svc = New(f.repo, f.bus, logger.New("test"))
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) create(t *testing.T, by actor.Actor, conclusion string) transport.ConversationResponse {
	t.Helper()
	conv, err := f.svc.Create(context.Background(), by, f.leadID, transport.CreateConversationRequest{Conclusion: conclusion})
	require.NoError(t, err)
	return conv
}

func strPtr(s string) *string { return &s }

func TestCreateKeepsLeadStatus(t *testing.T) {
	f := newFixture(t)

	conv := f.create(t, f.worker, "left a voicemail")

	assert.Equal(t, "worker", conv.AddedByRole)
	lead, _ := f.repo.Lead(f.leadID)
	assert.Equal(t, "in-progress", lead.Status)
	assert.NotNil(t, lead.LastContact)
	assert.Empty(t, lead.FollowUpDates)
	assert.Empty(t, f.bus.Events)
}

func TestCreateOnDeletedLeadIsNotFound(t *testing.T) {
	f := newFixture(t)
	deleted := f.repo.Seed(repository.Lead{Name: "Gone", IsDeleted: true})

	_, err := f.svc.Create(context.Background(), f.manager, deleted, transport.CreateConversationRequest{Conclusion: "x"})
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))
}

func TestUpdateRestrictedToAuthorForWorkers(t *testing.T) {
	f := newFixture(t)
	conv := f.create(t, f.manager, "intro call")

	_, err := f.svc.Update(context.Background(), f.worker, conv.ID, transport.UpdateConversationRequest{Conclusion: strPtr("edited")})
	assert.Equal(t, apperr.KindForbidden, apperr.GetKind(err))

	_, err = f.svc.Update(context.Background(), f.manager, conv.ID, transport.UpdateConversationRequest{})
	assert.Equal(t, apperr.KindValidation, apperr.GetKind(err))

	updated, err := f.svc.Update(context.Background(), f.manager, conv.ID, transport.UpdateConversationRequest{Conclusion: strPtr("edited")})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Conclusion)
}

func TestUpdateByManagerNotifiesAuthor(t *testing.T) {
	f := newFixture(t)
	conv := f.create(t, f.worker, "intro call")
	profitable := true

	_, err := f.svc.Update(context.Background(), f.manager, conv.ID, transport.UpdateConversationRequest{IsProfitable: &profitable})
	require.NoError(t, err)

	require.Len(t, f.bus.Events, 1)
	evt := f.bus.Events[0].(events.ConversationUpdated)
	assert.Equal(t, f.worker, evt.Author)
	assert.Equal(t, f.manager, evt.Actor)
	assert.Equal(t, "Ada", evt.LeadName)
}

func TestSoftDeleteTombstones(t *testing.T) {
	f := newFixture(t)
	conv := f.create(t, f.worker, "intro call")

	require.NoError(t, f.svc.SoftDelete(context.Background(), f.worker, conv.ID))

	stored := f.repo.Conversations[conv.ID]
	require.NotNil(t, stored)
	assert.True(t, stored.IsDeleted)
	assert.Equal(t, f.worker.ID, *stored.DeletedBy)
	assert.Equal(t, []string{"conversations.deleted"}, f.bus.Names())

	err := f.svc.SoftDelete(context.Background(), f.worker, conv.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))
}

func TestListByLeadVisibility(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.worker, "worker note")
	f.create(t, f.manager, "manager note")
	deleted := f.create(t, f.worker, "deleted note")
	require.NoError(t, f.svc.SoftDelete(context.Background(), f.worker, deleted.ID))

	workerView, err := f.svc.ListByLead(context.Background(), f.worker, f.leadID, true)
	require.NoError(t, err)
	require.Len(t, workerView.Items, 1)
	assert.Equal(t, "worker note", workerView.Items[0].Conclusion)

	managerView, err := f.svc.ListByLead(context.Background(), f.manager, f.leadID, false)
	require.NoError(t, err)
	assert.Len(t, managerView.Items, 2)

	withDeleted, err := f.svc.ListByLead(context.Background(), f.manager, f.leadID, true)
	require.NoError(t, err)
	assert.Len(t, withDeleted.Items, 3)

	_, err = f.svc.ListByLead(context.Background(), f.manager, uuid.New(), false)
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))
}

func TestListByWorkerAuthorization(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.worker, "worker note")
	f.create(t, f.manager, "manager note")

	_, err := f.svc.ListByWorker(context.Background(), actor.New(uuid.New(), actor.RoleWorker), f.worker.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.GetKind(err))
	assert.Contains(t, err.Error(), "Unauthorized access")

	own, err := f.svc.ListByWorker(context.Background(), f.worker, f.worker.ID)
	require.NoError(t, err)
	require.Len(t, own.Items, 1)
	assert.Equal(t, "Ada", own.Items[0].Lead.Name)

	all, err := f.svc.ListAll(context.Background(), f.manager)
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}
