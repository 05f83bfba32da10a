package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leadflow_backend/internal/assignments/service"
	"leadflow_backend/internal/assignments/transport"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for assignments.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new assignment handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Assign hands a batch of leads to one user.
// POST /api/v1/assignments
func (h *Handler) Assign(c *gin.Context) {
	by, ok := actor.MustGet(c)
	if !ok {
		return
	}

	var req transport.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.svc.Assign(c.Request.Context(), by, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// List returns assignments visible to the caller.
// GET /api/v1/assignments
func (h *Handler) List(c *gin.Context) {
	by, ok := actor.MustGet(c)
	if !ok {
		return
	}

	result, err := h.svc.List(c.Request.Context(), by)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
