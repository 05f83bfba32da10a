// Package leads provides the lead management bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"context"

	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/leads/conversations"
	"leadflow_backend/internal/leads/followup"
	"leadflow_backend/internal/leads/handler"
	"leadflow_backend/internal/leads/imports"
	"leadflow_backend/internal/leads/management"
	"leadflow_backend/internal/leads/ports"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies are the collaborators owned by other modules.
// Storage and Reminders may be nil when the integration is not configured.
type Dependencies struct {
	Categories ports.CategoryService
	Users      ports.UserDirectory
	Storage    ports.DocumentStorage
	Reminders  ports.ReminderScheduler
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	repo       *repository.Repository
	management *management.Service
	followUps  *followup.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, deps Dependencies, cfg config.LeadsConfig, documentBucket string, log *logger.Logger) *Module {
	// Create shared repository
	repo := repository.New(pool)

	// Create focused services (vertical slices)
	mgmtSvc := management.New(repo, deps.Categories, deps.Users, deps.Storage, eventBus, management.Config{
		PhoneRegion:    cfg.GetDefaultPhoneRegion(),
		DocumentBucket: documentBucket,
	}, log)
	followUpSvc := followup.New(repo, deps.Reminders, eventBus, log)
	conversationSvc := conversations.New(repo, eventBus, log)
	importSvc := imports.New(repo, deps.Categories, deps.Users, eventBus, imports.Config{
		PhoneRegion: cfg.GetDefaultPhoneRegion(),
		MaxRows:     cfg.GetImportMaxRows(),
	}, log)

	return &Module{
		handler:    handler.New(mgmtSvc, followUpSvc, conversationSvc, importSvc, val),
		repo:       repo,
		management: mgmtSvc,
		followUps:  followUpSvc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// FollowUps exposes the follow-up service to the background worker.
func (m *Module) FollowUps() *followup.Service {
	return m.followUps
}

// Directory returns the public lead lookup used by other domains.
func (m *Module) Directory() Directory {
	return directory{repo: m.repo}
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

type directory struct {
	repo *repository.Repository
}

func (d directory) GetLeadsByIDs(ctx context.Context, ids []uuid.UUID) ([]Lead, error) {
	rows, err := d.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Lead, 0, len(rows))
	for _, row := range rows {
		out = append(out, Lead{ID: row.ID, Name: row.Name, Email: row.Email, Phone: row.Phone})
	}
	return out, nil
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
