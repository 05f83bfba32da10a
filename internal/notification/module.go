// Package notification fans domain events out to in-app notifications.
// Domain modules publish events after their state change commits; this module
// subscribes to them, resolves recipients and persists one notification per
// (event, recipient, type). Delivery failures are logged and never reach the
// operation that produced the event.
package notification

import (
	"context"

	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	notifhandler "leadflow_backend/internal/notification/handler"
	"leadflow_backend/internal/notification/inapp"
	"leadflow_backend/internal/notification/sse"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const maxParallelDeliveries = 8

// ManagerDirectory lists every user acting as a manager.
type ManagerDirectory interface {
	ListManagers(ctx context.Context) ([]actor.Actor, error)
}

// Module handles all notification-related event subscriptions.
type Module struct {
	inAppService *inapp.Service
	inAppHandler *notifhandler.HTTPHandler
	sse          *sse.Service
	managers     ManagerDirectory
	log          *logger.Logger
}

// New creates a new notification module backed by Postgres.
func New(pool *pgxpool.Pool, managers ManagerDirectory, log *logger.Logger) *Module {
	return NewWithStore(inapp.NewRepository(pool), managers, log)
}

// NewWithStore creates a notification module over any notification store.
func NewWithStore(store inapp.Store, managers ManagerDirectory, log *logger.Logger) *Module {
	inAppSvc := inapp.NewService(store, log)
	sseSvc := sse.New(log)
	inAppSvc.SetSSE(sseSvc)

	return &Module{
		inAppService: inAppSvc,
		inAppHandler: notifhandler.NewHTTPHandler(inAppSvc),
		sse:          sseSvc,
		managers:     managers,
		log:          log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes registers notification API routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	notifications := ctx.Protected.Group("/notifications")
	notifications.GET("/stream", m.sse.Handler(func(c *gin.Context) (uuid.UUID, bool) {
		identity := httpkit.GetIdentity(c)
		return identity.UserID(), identity.IsAuthenticated()
	}))
	m.inAppHandler.RegisterRoutes(notifications)
}

// InAppService exposes the in-app notification service for integration points.
func (m *Module) InAppService() *inapp.Service { return m.inAppService }

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	for _, name := range events.AllNames() {
		bus.Subscribe(name, m)
	}
	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	var f *fanout
	switch e := event.(type) {
	case events.LeadCreated:
		f = m.leadCreated(ctx, e)
	case events.LeadUpdated:
		f = m.leadUpdated(ctx, e)
	case events.LeadDeleted:
		f = m.leadDeleted(ctx, e)
	case events.LeadsImported:
		f = m.leadsImported(ctx, e)
	case events.LeadsAssigned:
		f = m.leadsAssigned(e)
	case events.FollowUpRecorded:
		f = m.followUpRecorded(ctx, e)
	case events.FollowUpDue:
		f = m.followUpDue(e)
	case events.ConversationEnded:
		f = m.conversationEnded(ctx, e)
	case events.ConversationUpdated:
		f = m.conversationChanged(ctx, e.EventName(), e.Actor, e.Author, e.ConversationID,
			"Conversation Updated", conversationUpdatedMessage(e.LeadName), inapp.TypeUpdate)
	case events.ConversationDeleted:
		f = m.conversationChanged(ctx, e.EventName(), e.Actor, e.Author, e.ConversationID,
			"Conversation Deleted", conversationDeletedMessage(e.LeadName), inapp.TypeDelete)
	case events.CampaignSent:
		f = m.campaignSent(e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}

	m.deliver(ctx, f)
	return nil
}

// managerRecipients returns all managers. A lookup failure is logged and the
// fan-out continues with the explicit recipients only.
func (m *Module) managerRecipients(ctx context.Context, eventName string) []actor.Actor {
	if m.managers == nil {
		return nil
	}
	managers, err := m.managers.ListManagers(ctx)
	if err != nil {
		m.log.Error("resolve managers for fan-out failed", "event", eventName, "error", err)
		return nil
	}
	return managers
}

// deliver sends every queued notification concurrently. Failures are logged
// per recipient and swallowed.
func (m *Module) deliver(ctx context.Context, f *fanout) {
	if f == nil || len(f.deliveries) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDeliveries)
	for _, d := range f.deliveries {
		g.Go(func() error {
			if _, err := m.inAppService.Send(gctx, d); err != nil {
				m.log.NotificationFailed(f.eventName, d.To.ID.String(), err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

var _ apphttp.Module = (*Module)(nil)
