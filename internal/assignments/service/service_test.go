package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow_backend/internal/assignments/repository"
	"leadflow_backend/internal/assignments/transport"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type memRepo struct {
	leads       map[uuid.UUID]repository.LeadOwnership
	assignments []repository.Assignment
	activated   []uuid.UUID
}

func (m *memRepo) Assign(_ context.Context, p repository.CreateAssignmentParams) (repository.Assignment, error) {
	if err := repository.CheckAssignable(p.LeadIDs, m.leads, p.AssignedTo); err != nil {
		return repository.Assignment{}, err
	}
	a := repository.Assignment{
		ID: uuid.New(), CreatedBy: p.CreatedBy, AssignedTo: p.AssignedTo, Priority: p.Priority,
		DueDate: p.DueDate, Status: "active", Notes: p.Notes, CategoryID: p.CategoryID,
		LeadIDs: p.LeadIDs, CreatedAt: fixedNow,
	}
	m.assignments = append(m.assignments, a)
	if p.CategoryID != nil {
		m.activated = append(m.activated, *p.CategoryID)
	}
	for _, id := range p.LeadIDs {
		lead := m.leads[id]
		assignee := p.AssignedTo
		lead.AssignedTo = &assignee
		lead.Status = "in-progress"
		m.leads[id] = lead
	}
	return a, nil
}

func (m *memRepo) List(_ context.Context, assignedTo *uuid.UUID) ([]repository.Assignment, error) {
	out := []repository.Assignment{}
	for _, a := range m.assignments {
		if assignedTo == nil || a.AssignedTo == *assignedTo {
			out = append(out, a)
		}
	}
	return out, nil
}

type users map[uuid.UUID]actor.Actor

func (u users) ResolveUser(_ context.Context, id uuid.UUID) (actor.Actor, error) {
	a, ok := u[id]
	if !ok {
		return actor.Actor{}, apperr.NotFound("Worker not found")
	}
	return a, nil
}

type categories map[uuid.UUID]bool

func (c categories) Ensure(_ context.Context, id uuid.UUID) error {
	if !c[id] {
		return apperr.NotFound("Category not found")
	}
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
	svc        *Service
	repo       *memRepo
	bus        *recordingBus
	manager    actor.Actor
	worker     actor.Actor
	categoryID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:       &memRepo{leads: map[uuid.UUID]repository.LeadOwnership{}},
		bus:        &recordingBus{},
		manager:    actor.New(uuid.New(), actor.RoleManager),
		worker:     actor.New(uuid.New(), actor.RoleWorker),
		categoryID: uuid.New(),
	}
	dir := users{f.manager.ID: f.manager, f.worker.ID: f.worker}
	f.svc = New(f.repo, dir, categories{f.categoryID: true}, f.bus, logger.New("test"))
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) seedLead(assignedTo *uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.repo.leads[id] = repository.LeadOwnership{ID: id, AssignedTo: assignedTo, Status: "new"}
	return id
}

func strPtr(s string) *string { return &s }

func TestAssignValidation(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead(nil)
	past := fixedNow.Add(-time.Minute)

	cases := []struct {
		name string
		req  transport.AssignRequest
		kind apperr.Kind
		msg  string
	}{
		{"no leads", transport.AssignRequest{AssignedTo: f.worker.ID.String()}, apperr.KindValidation, msgNoLeads},
		{"bad lead id", transport.AssignRequest{LeadIDs: []string{lead.String(), "abc"}, AssignedTo: f.worker.ID.String()}, apperr.KindValidation, "Invalid lead ID: abc"},
		{"bad worker id", transport.AssignRequest{LeadIDs: []string{lead.String()}, AssignedTo: "nope"}, apperr.KindValidation, msgInvalidWorker},
		{"unknown worker", transport.AssignRequest{LeadIDs: []string{lead.String()}, AssignedTo: uuid.NewString()}, apperr.KindNotFound, "Worker not found"},
		{"bad priority", transport.AssignRequest{LeadIDs: []string{lead.String()}, AssignedTo: f.worker.ID.String(), Priority: "asap"}, apperr.KindValidation, msgInvalidPriority},
		{"due date in past", transport.AssignRequest{LeadIDs: []string{lead.String()}, AssignedTo: f.worker.ID.String(), DueDate: &past}, apperr.KindValidation, msgDueDateInPast},
		{"bad category id", transport.AssignRequest{LeadIDs: []string{lead.String()}, AssignedTo: f.worker.ID.String(), CategoryID: strPtr("x")}, apperr.KindValidation, msgInvalidCategory},
		{"unknown category", transport.AssignRequest{LeadIDs: []string{lead.String()}, AssignedTo: f.worker.ID.String(), CategoryID: strPtr(uuid.NewString())}, apperr.KindNotFound, "Category not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Assign(context.Background(), f.manager, tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.GetKind(err))
			assert.Equal(t, tc.msg, err.Error())
		})
	}
	assert.Empty(t, f.repo.assignments)
	assert.Empty(t, f.bus.events)
}

func TestAssignHandsLeadsToWorker(t *testing.T) {
	f := newFixture(t)
	first, second := f.seedLead(nil), f.seedLead(nil)
	due := fixedNow.Add(72 * time.Hour)
	category := f.categoryID.String()

	resp, err := f.svc.Assign(context.Background(), f.manager, transport.AssignRequest{
		LeadIDs:    []string{first.String(), second.String(), first.String()},
		AssignedTo: f.worker.ID.String(),
		Priority:   "URGENT",
		Notes:      strPtr("<script>x</script>call before Friday"),
		DueDate:    &due,
		CategoryID: &category,
	})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{first, second}, resp.Leads)
	assert.Equal(t, "urgent", resp.Priority)
	assert.Equal(t, "active", resp.Status)
	require.NotNil(t, resp.Notes)
	assert.Equal(t, "call before Friday", *resp.Notes)
	assert.Equal(t, []uuid.UUID{f.categoryID}, f.repo.activated)

	for _, id := range []uuid.UUID{first, second} {
		lead := f.repo.leads[id]
		require.NotNil(t, lead.AssignedTo)
		assert.Equal(t, f.worker.ID, *lead.AssignedTo)
		assert.Equal(t, "in-progress", lead.Status)
	}

	require.Len(t, f.bus.events, 1)
	assigned := f.bus.events[0].(events.LeadsAssigned)
	assert.Equal(t, f.worker, assigned.Worker)
	assert.Equal(t, resp.ID, assigned.AssignmentID)
}

func TestAssignIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	other := uuid.New()
	free := f.seedLead(nil)
	taken := f.seedLead(&other)

	_, err := f.svc.Assign(context.Background(), f.manager, transport.AssignRequest{
		LeadIDs:    []string{free.String(), taken.String()},
		AssignedTo: f.worker.ID.String(),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.GetKind(err))
	assert.Contains(t, err.Error(), "already assigned to another worker")

	assert.Nil(t, f.repo.leads[free].AssignedTo)
	assert.Empty(t, f.repo.assignments)
	assert.Empty(t, f.bus.events)
}

func TestAssignToManagerKeepsRole(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead(nil)

	_, err := f.svc.Assign(context.Background(), f.manager, transport.AssignRequest{
		LeadIDs:    []string{lead.String()},
		AssignedTo: f.manager.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, actor.RoleManager, f.bus.events[0].(events.LeadsAssigned).Worker.Role)
}

func TestListScopesWorkersAndFlagsOverdue(t *testing.T) {
	f := newFixture(t)
	overdue := fixedNow.Add(-time.Hour)
	f.repo.assignments = []repository.Assignment{
		{ID: uuid.New(), AssignedTo: f.worker.ID, Status: "active", DueDate: &overdue},
		{ID: uuid.New(), AssignedTo: uuid.New(), Status: "completed"},
	}

	own, err := f.svc.List(context.Background(), f.worker)
	require.NoError(t, err)
	require.Len(t, own.Items, 1)
	assert.Equal(t, "overdue", own.Items[0].Status)
	assert.Equal(t, []uuid.UUID{}, own.Items[0].Leads)

	all, err := f.svc.List(context.Background(), f.manager)
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}
