// Package categories provides the categories bounded context module.
package categories

import (
	"leadflow_backend/internal/categories/handler"
	"leadflow_backend/internal/categories/repository"
	"leadflow_backend/internal/categories/service"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the categories bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the categories module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "categories"
}

// Service returns the service layer for the leads and assignments modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts category routes on the provided router context.
// GET /categories/:id/leads is owned by the leads module.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/categories", m.handler.ListCategories)

	ctx.Manager.GET("/categories/:id", m.handler.GetCategoryByID)
	ctx.Manager.POST("/categories", m.handler.CreateCategory)
	ctx.Manager.PUT("/categories/:id", m.handler.UpdateCategory)
	ctx.Manager.DELETE("/categories/:id", m.handler.DeleteCategory)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
