// Package campaigns provides the campaigns bounded context module: one-time
// email and SMS blasts to a set of leads.
package campaigns

import (
	"leadflow_backend/internal/campaigns/handler"
	"leadflow_backend/internal/campaigns/repository"
	"leadflow_backend/internal/campaigns/service"
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the campaigns bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, deps service.Dependencies, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), deps, eventBus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "campaigns"
}

// Service exposes dispatch to the background worker.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts campaign routes. Campaigns are manager-only.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Manager.GET("/campaigns", m.handler.List)
	ctx.Manager.POST("/campaigns", m.handler.Create)
	ctx.Manager.GET("/campaigns/:id", m.handler.Get)
	ctx.Manager.PUT("/campaigns/:id", m.handler.Update)
	ctx.Manager.DELETE("/campaigns/:id", m.handler.Delete)
	ctx.Manager.POST("/campaigns/:id/send", m.handler.Send)
	ctx.Manager.POST("/campaigns/:id/schedule", m.handler.Schedule)
}

var _ apphttp.Module = (*Module)(nil)
