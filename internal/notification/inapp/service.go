package inapp

import (
	"context"
	"strings"

	"leadflow_backend/internal/notification/sse"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence contract the service depends on.
type Store interface {
	Create(ctx context.Context, p CreateParams) (Notification, error)
	List(ctx context.Context, to Recipient, limit, offset int) ([]Notification, int, error)
	CountUnread(ctx context.Context, to Recipient) (int, error)
	MarkRead(ctx context.Context, to Recipient, id uuid.UUID) error
	MarkAllRead(ctx context.Context, to Recipient) (int64, error)
	Delete(ctx context.Context, to Recipient, id uuid.UUID) error
	DeleteAll(ctx context.Context, to Recipient) (int64, error)
}

// Pusher delivers a live event to connected clients of a user.
type Pusher interface {
	Publish(userID uuid.UUID, event sse.Event)
}

type Service struct {
	repo Store
	sse  Pusher
	log  *logger.Logger
}

func NewService(repo Store, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// SetSSE injects the live push channel.
func (s *Service) SetSSE(p Pusher) {
	s.sse = p
}

// SendParams describes one notification addressed to one recipient.
type SendParams struct {
	ActorID *uuid.UUID
	To      Recipient
	Title   string
	Message string
	Type    Type
	Related *Ref
}

// Send persists the notification and pushes it via SSE if the user is online.
func (s *Service) Send(ctx context.Context, p SendParams) (Notification, error) {
	if s == nil || s.repo == nil {
		return Notification{}, apperr.Internal("in-app notification service not configured")
	}
	if p.To.IsZero() || !p.To.Role.Valid() {
		return Notification{}, apperr.Validation("recipient id and role are required")
	}
	p.Title = strings.TrimSpace(p.Title)
	p.Message = strings.TrimSpace(p.Message)
	if p.Title == "" || p.Message == "" {
		return Notification{}, apperr.Validation("title and message are required")
	}

	notif, err := s.repo.Create(ctx, CreateParams{
		ActorID:   p.ActorID,
		Recipient: p.To,
		Title:     p.Title,
		Message:   p.Message,
		Type:      p.Type,
		Related:   p.Related,
	})
	if err != nil {
		return Notification{}, err
	}

	if s.sse != nil {
		s.sse.Publish(p.To.ID, sse.Event{
			Type:    sse.EventNotification,
			Message: notif.Title,
			Data:    notif,
		})
	}

	return notif, nil
}

func (s *Service) List(ctx context.Context, to Recipient, page, pageSize int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize
	return s.repo.List(ctx, to, pageSize, offset)
}

func (s *Service) CountUnread(ctx context.Context, to Recipient) (int, error) {
	return s.repo.CountUnread(ctx, to)
}

func (s *Service) MarkRead(ctx context.Context, to Recipient, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, to, id)
}

func (s *Service) MarkAllRead(ctx context.Context, to Recipient) (int64, error) {
	return s.repo.MarkAllRead(ctx, to)
}

func (s *Service) Delete(ctx context.Context, to Recipient, id uuid.UUID) error {
	return s.repo.Delete(ctx, to, id)
}

func (s *Service) DeleteAll(ctx context.Context, to Recipient) (int64, error) {
	return s.repo.DeleteAll(ctx, to)
}
