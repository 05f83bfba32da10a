package handler

import (
	"net/http"
	"strconv"

	"leadflow_backend/internal/notification/inapp"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidID = "invalid id"

type HTTPHandler struct {
	svc *inapp.Service
}

func NewHTTPHandler(svc *inapp.Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread", h.CountUnread)
	rg.PATCH("/:id/read", h.MarkRead)
	rg.PATCH("/read-all", h.MarkAllRead)
	rg.DELETE("/:id", h.Delete)
	rg.DELETE("", h.DeleteAll)
}

func recipientFrom(c *gin.Context) (inapp.Recipient, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return inapp.Recipient{}, false
	}
	a, ok := actor.FromIdentity(identity)
	if !ok {
		httpkit.Error(c, http.StatusForbidden, "unknown role", nil)
		return inapp.Recipient{}, false
	}
	return a, true
}

func (h *HTTPHandler) List(c *gin.Context) {
	to, ok := recipientFrom(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, total, err := h.svc.List(c.Request.Context(), to, page, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	if page < 1 {
		page = 1
	}
	httpkit.OK(c, gin.H{
		"items": items,
		"total": total,
		"page":  page,
	})
}

func (h *HTTPHandler) CountUnread(c *gin.Context) {
	to, ok := recipientFrom(c)
	if !ok {
		return
	}

	count, err := h.svc.CountUnread(c.Request.Context(), to)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"count": count})
}

func (h *HTTPHandler) MarkRead(c *gin.Context) {
	to, ok := recipientFrom(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), to, id); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "ok"})
}

func (h *HTTPHandler) MarkAllRead(c *gin.Context) {
	to, ok := recipientFrom(c)
	if !ok {
		return
	}

	updated, err := h.svc.MarkAllRead(c.Request.Context(), to)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "ok", "updated": updated})
}

func (h *HTTPHandler) Delete(c *gin.Context) {
	to, ok := recipientFrom(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), to, id); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "ok"})
}

func (h *HTTPHandler) DeleteAll(c *gin.Context) {
	to, ok := recipientFrom(c)
	if !ok {
		return
	}

	deleted, err := h.svc.DeleteAll(c.Request.Context(), to)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "ok", "deleted": deleted})
}
