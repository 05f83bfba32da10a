package adapters

import (
	"context"
	"errors"
	"testing"

	"leadflow_backend/internal/leads"

	"github.com/google/uuid"
)

type stubDirectory struct {
	leads []leads.Lead
	err   error
}

func (s stubDirectory) GetLeadsByIDs(context.Context, []uuid.UUID) ([]leads.Lead, error) {
	return s.leads, s.err
}

func TestCampaignRecipientsCopiesContactFields(t *testing.T) {
	mail := "ada@example.com"
	id := uuid.New()
	adapter := NewCampaignRecipients(stubDirectory{leads: []leads.Lead{{ID: id, Name: "Ada", Email: &mail}}})

	got, err := adapter.GetRecipients(context.Background(), []uuid.UUID{id})
	if err != nil {
		t.Fatalf("GetRecipients: %v", err)
	}
	if len(got) != 1 || got[0].ID != id || got[0].Name != "Ada" || got[0].Email == nil || *got[0].Email != mail || got[0].Phone != nil {
		t.Fatalf("unexpected recipients: %+v", got)
	}
}

func TestCampaignRecipientsPropagatesErrors(t *testing.T) {
	adapter := NewCampaignRecipients(stubDirectory{err: errors.New("db down")})
	if _, err := adapter.GetRecipients(context.Background(), []uuid.UUID{uuid.New()}); err == nil {
		t.Fatal("expected error")
	}
}
