// Package assignments provides the assignment engine bounded context module.
package assignments

import (
	"leadflow_backend/internal/assignments/handler"
	"leadflow_backend/internal/assignments/repository"
	"leadflow_backend/internal/assignments/service"
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the assignments bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule wires the assignment engine. users resolves assignee roles and
// categories checks category references; both are owned by other modules.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, users service.UserResolver, categories service.CategoryChecker, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), users, categories, eventBus, log)
	return &Module{handler: handler.New(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "assignments"
}

// RegisterRoutes mounts assignment routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/assignments", m.handler.List)
	ctx.Manager.POST("/assignments", m.handler.Assign)
}

var _ apphttp.Module = (*Module)(nil)
