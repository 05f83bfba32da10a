package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/notification/inapp"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/logger"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

type memStore struct {
	mu      sync.Mutex
	created []inapp.CreateParams
	failFor map[uuid.UUID]bool
}

func (s *memStore) Create(_ context.Context, p inapp.CreateParams) (inapp.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[p.Recipient.ID] {
		return inapp.Notification{}, errors.New("insert failed")
	}
	s.created = append(s.created, p)
	return inapp.Notification{ID: uuid.New(), Recipient: p.Recipient, Title: p.Title, Type: p.Type}, nil
}

func (s *memStore) List(context.Context, inapp.Recipient, int, int) ([]inapp.Notification, int, error) {
	return nil, 0, nil
}
func (s *memStore) CountUnread(context.Context, inapp.Recipient) (int, error) { return 0, nil }
func (s *memStore) MarkRead(context.Context, inapp.Recipient, uuid.UUID) error { return nil }
func (s *memStore) MarkAllRead(context.Context, inapp.Recipient) (int64, error) { return 0, nil }
func (s *memStore) Delete(context.Context, inapp.Recipient, uuid.UUID) error { return nil }
func (s *memStore) DeleteAll(context.Context, inapp.Recipient) (int64, error) { return 0, nil }

type staticManagers struct {
	managers []actor.Actor
	err      error
}

func (m staticManagers) ListManagers(context.Context) ([]actor.Actor, error) {
	return m.managers, m.err
}

type delivered struct {
	To    uuid.UUID
	Type  inapp.Type
	Title string
}

func (s *memStore) delivered() []delivered {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]delivered, 0, len(s.created))
	for _, c := range s.created {
		out = append(out, delivered{To: c.Recipient.ID, Type: c.Type, Title: c.Title})
	}
	return sortDelivered(out)
}

func sortDelivered(d []delivered) []delivered {
	sort.Slice(d, func(i, j int) bool {
		if d[i].To != d[j].To {
			return d[i].To.String() < d[j].To.String()
		}
		return d[i].Type < d[j].Type
	})
	return d
}

func newTestModule(store *memStore, managers ...actor.Actor) *Module {
	return NewWithStore(store, staticManagers{managers: managers}, logger.New("test"))
}

func TestFollowUpRecordedNotifiesAssigneeTwiceAndEveryManager(t *testing.T) {
	store := &memStore{}
	acting := actor.New(uuid.New(), actor.RoleManager)
	other := actor.New(uuid.New(), actor.RoleManager)
	worker := actor.New(uuid.New(), actor.RoleWorker)
	m := newTestModule(store, acting, other)

	err := m.Handle(context.Background(), events.FollowUpRecorded{
		BaseEvent:      events.NewBaseEvent(),
		Actor:          acting,
		LeadID:         uuid.New(),
		LeadName:       "Acme",
		ConversationID: uuid.New(),
		Assignee:       &worker,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	want := sortDelivered([]delivered{
		{To: worker.ID, Type: inapp.TypeFollowUp, Title: "New Follow-up Added"},
		{To: worker.ID, Type: inapp.TypeConversation, Title: "Conversation Started"},
		{To: acting.ID, Type: inapp.TypeUpdate, Title: "New Follow-up Added"},
		{To: other.ID, Type: inapp.TypeUpdate, Title: "New Follow-up Added"},
	})
	if diff := cmp.Diff(want, store.delivered()); diff != "" {
		t.Fatalf("deliveries mismatch (-want +got):\n%s", diff)
	}
}

func TestLeadCreatedByManagerNotifiesThatManagerToo(t *testing.T) {
	store := &memStore{}
	acting := actor.New(uuid.New(), actor.RoleManager)
	other := actor.New(uuid.New(), actor.RoleManager)
	m := newTestModule(store, acting, other)

	_ = m.Handle(context.Background(), events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		Actor:     acting,
		LeadID:    uuid.New(),
		LeadName:  "Acme",
	})

	want := sortDelivered([]delivered{
		{To: acting.ID, Type: inapp.TypeNewLead, Title: "New Lead Created"},
		{To: other.ID, Type: inapp.TypeNewLead, Title: "New Lead Created"},
	})
	if diff := cmp.Diff(want, store.delivered()); diff != "" {
		t.Fatalf("deliveries mismatch (-want +got):\n%s", diff)
	}
}

func TestConversationUpdatedByManagerNotifiesEveryManagerAndAuthor(t *testing.T) {
	store := &memStore{}
	acting := actor.New(uuid.New(), actor.RoleManager)
	other := actor.New(uuid.New(), actor.RoleManager)
	author := actor.New(uuid.New(), actor.RoleWorker)
	m := newTestModule(store, acting, other)

	_ = m.Handle(context.Background(), events.ConversationUpdated{
		BaseEvent:      events.NewBaseEvent(),
		Actor:          acting,
		ConversationID: uuid.New(),
		LeadID:         uuid.New(),
		Author:         author,
	})

	if got := store.delivered(); len(got) != 3 {
		t.Fatalf("expected both managers and the author, got %+v", got)
	}
}

func TestLeadsAssignedNotifiesWorkerOnce(t *testing.T) {
	store := &memStore{}
	manager := actor.New(uuid.New(), actor.RoleManager)
	worker := actor.New(uuid.New(), actor.RoleWorker)
	m := newTestModule(store, manager)

	_ = m.Handle(context.Background(), events.LeadsAssigned{
		BaseEvent:    events.NewBaseEvent(),
		Actor:        manager,
		AssignmentID: uuid.New(),
		Worker:       worker,
		LeadIDs:      []uuid.UUID{uuid.New(), uuid.New()},
		Priority:     "high",
	})

	got := store.delivered()
	if len(got) != 1 || got[0].To != worker.ID || got[0].Type != inapp.TypeAssignment {
		t.Fatalf("deliveries = %+v", got)
	}
}

func TestConversationUpdatedSkipsAuthorWhenAuthorIsActor(t *testing.T) {
	store := &memStore{}
	manager := actor.New(uuid.New(), actor.RoleManager)
	worker := actor.New(uuid.New(), actor.RoleWorker)
	m := newTestModule(store, manager)

	_ = m.Handle(context.Background(), events.ConversationUpdated{
		BaseEvent:      events.NewBaseEvent(),
		Actor:          worker,
		ConversationID: uuid.New(),
		LeadID:         uuid.New(),
		Author:         worker,
	})

	got := store.delivered()
	if len(got) != 1 || got[0].To != manager.ID {
		t.Fatalf("expected only the manager to be notified, got %+v", got)
	}
}

func TestEndConversationNotifiesAssigneeEvenWhenActing(t *testing.T) {
	store := &memStore{}
	manager := actor.New(uuid.New(), actor.RoleManager)
	worker := actor.New(uuid.New(), actor.RoleWorker)
	m := newTestModule(store, manager)

	_ = m.Handle(context.Background(), events.ConversationEnded{
		BaseEvent:      events.NewBaseEvent(),
		Actor:          worker,
		LeadID:         uuid.New(),
		LeadName:       "Acme",
		ConversationID: uuid.New(),
		IsProfitable:   true,
		Assignee:       &worker,
	})

	got := store.delivered()
	if len(got) != 2 {
		t.Fatalf("expected manager and assignee, got %+v", got)
	}
}

func TestDeliveryFailuresAreSwallowed(t *testing.T) {
	manager := actor.New(uuid.New(), actor.RoleManager)
	other := actor.New(uuid.New(), actor.RoleManager)
	store := &memStore{failFor: map[uuid.UUID]bool{manager.ID: true}}
	m := newTestModule(store, manager, other)

	err := m.Handle(context.Background(), events.LeadDeleted{
		BaseEvent: events.NewBaseEvent(),
		Actor:     actor.New(uuid.New(), actor.RoleManager),
		LeadID:    uuid.New(),
		LeadName:  "Gone Inc",
	})
	if err != nil {
		t.Fatalf("Handle must not fail: %v", err)
	}
	got := store.delivered()
	if len(got) != 1 || got[0].To != other.ID {
		t.Fatalf("expected delivery to the healthy recipient, got %+v", got)
	}
}

func TestManagerLookupFailureStillNotifiesAssignee(t *testing.T) {
	store := &memStore{}
	worker := actor.New(uuid.New(), actor.RoleWorker)
	m := NewWithStore(store, staticManagers{err: errors.New("db down")}, logger.New("test"))

	_ = m.Handle(context.Background(), events.LeadUpdated{
		BaseEvent: events.NewBaseEvent(),
		Actor:     actor.New(uuid.New(), actor.RoleManager),
		LeadID:    uuid.New(),
		LeadName:  "Acme",
		Assignee:  &worker,
	})

	got := store.delivered()
	if len(got) != 1 || got[0].To != worker.ID {
		t.Fatalf("deliveries = %+v", got)
	}
}

func TestFollowUpDueHasNoActor(t *testing.T) {
	store := &memStore{}
	worker := actor.New(uuid.New(), actor.RoleWorker)
	m := newTestModule(store)

	_ = m.Handle(context.Background(), events.FollowUpDue{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       uuid.New(),
		LeadName:     "Acme",
		Assignee:     worker,
		FollowUpDate: time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC),
	})

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.created) != 1 || store.created[0].ActorID != nil {
		t.Fatalf("created = %+v", store.created)
	}
	if store.created[0].Message != `Your follow-up with "Acme" is due on 2030-01-02.` {
		t.Errorf("message = %q", store.created[0].Message)
	}
}
