package inapp

import (
	"context"
	"testing"

	"leadflow_backend/internal/notification/sse"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

type stubStore struct {
	Store
	created    []CreateParams
	lastLimit  int
	lastOffset int
}

func (s *stubStore) Create(_ context.Context, p CreateParams) (Notification, error) {
	s.created = append(s.created, p)
	return Notification{ID: uuid.New(), Recipient: p.Recipient, Title: p.Title}, nil
}

func (s *stubStore) List(_ context.Context, _ Recipient, limit, offset int) ([]Notification, int, error) {
	s.lastLimit, s.lastOffset = limit, offset
	return nil, 0, nil
}

type recordingPusher struct {
	users []uuid.UUID
}

func (p *recordingPusher) Publish(userID uuid.UUID, _ sse.Event) {
	p.users = append(p.users, userID)
}

func TestSendPersistsAndPushes(t *testing.T) {
	store := &stubStore{}
	pusher := &recordingPusher{}
	svc := NewService(store, logger.New("test"))
	svc.SetSSE(pusher)

	to := actor.New(uuid.New(), actor.RoleWorker)
	if _, err := svc.Send(context.Background(), SendParams{
		To:      to,
		Title:   " New Lead Assignment ",
		Message: "You have been assigned new leads with priority high.",
		Type:    TypeAssignment,
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(store.created) != 1 || store.created[0].Title != "New Lead Assignment" {
		t.Fatalf("created = %+v", store.created)
	}
	if len(pusher.users) != 1 || pusher.users[0] != to.ID {
		t.Fatalf("pushed = %v", pusher.users)
	}
}

func TestSendRequiresRecipientRole(t *testing.T) {
	svc := NewService(&stubStore{}, logger.New("test"))

	_, err := svc.Send(context.Background(), SendParams{
		To:      actor.Actor{ID: uuid.New()},
		Title:   "t",
		Message: "m",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListClampsPaging(t *testing.T) {
	tests := []struct {
		page, size       int
		wantLimit, wantO int
	}{
		{0, 0, 20, 0},
		{3, 10, 10, 20},
		{1, 500, 100, 0},
	}

	for _, tc := range tests {
		store := &stubStore{}
		svc := NewService(store, logger.New("test"))
		_, _, _ = svc.List(context.Background(), actor.New(uuid.New(), actor.RoleManager), tc.page, tc.size)
		if store.lastLimit != tc.wantLimit || store.lastOffset != tc.wantO {
			t.Errorf("List(%d,%d) limit=%d offset=%d", tc.page, tc.size, store.lastLimit, store.lastOffset)
		}
	}
}
