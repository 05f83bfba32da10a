package handler

import (
	"mime/multipart"
	"net/http"
	"strings"

	"leadflow_backend/internal/leads/conversations"
	"leadflow_backend/internal/leads/followup"
	"leadflow_backend/internal/leads/imports"
	"leadflow_backend/internal/leads/management"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "Invalid lead ID"
	msgInvalidConvoID   = "Invalid conversation ID"
	msgInvalidWorkerID  = "Invalid worker ID"
	msgNoFile           = "No file uploaded"
	maxDocumentsPerLead = 5
)

// Handler serves the lead, follow-up, conversation and import endpoints.
type Handler struct {
	mgmt          *management.Service
	followUps     *followup.Service
	conversations *conversations.Service
	imports       *imports.Service
	val           *validator.Validator
}

func New(mgmt *management.Service, followUps *followup.Service, convs *conversations.Service, importSvc *imports.Service, val *validator.Validator) *Handler {
	return &Handler{
		mgmt:          mgmt,
		followUps:     followUps,
		conversations: convs,
		imports:       importSvc,
		val:           val,
	}
}

// RegisterRoutes mounts the lead routes on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	leads := rg.Group("/leads")
	leads.GET("", h.List)
	leads.POST("", h.Create)
	leads.POST("/import", h.Import)
	leads.GET("/:id", h.GetByID)
	leads.PUT("/:id", h.Update)
	leads.DELETE("/:id", httpkit.RequireRole(string(actor.RoleManager)), h.Delete)
	leads.POST("/:id/follow-up", h.RecordFollowUp)
	leads.POST("/:id/end-conversation", h.EndConversation)
	leads.POST("/:id/documents", h.UploadDocument)
	leads.GET("/:id/conversations", h.ListLeadConversations)
	leads.POST("/:id/conversations", h.CreateConversation)

	rg.GET("/categories/:id/leads", h.ListByCategory)

	rg.GET("/conversations", h.ListConversations)
	rg.PATCH("/conversations/:id", h.UpdateConversation)
	rg.DELETE("/conversations/:id", h.DeleteConversation)
	rg.GET("/workers/:workerId/conversations", h.ListWorkerConversations)
}

// Create creates a lead from a JSON body, or from a multipart form that may
// carry up to five documents.
// POST /api/v1/leads
func (h *Handler) Create(c *gin.Context) {
	by, ok := actor.MustGet(c)
	if !ok {
		return
	}

	var req transport.CreateLeadRequest
	var files []*multipart.FileHeader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		if req, err = createRequestFromForm(form.Value); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		files = form.File["documents"]
		if len(files) > maxDocumentsPerLead {
			httpkit.Error(c, http.StatusBadRequest, "At most 5 documents can be uploaded", nil)
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	lead, err := h.mgmt.Create(c.Request.Context(), by, req)
	if httpkit.HandleError(c, err) {
		return
	}

	description := c.PostForm("description")
	for _, fh := range files {
		doc, err := h.uploadFile(c, by, lead.ID, fh, description)
		if httpkit.HandleError(c, err) {
			return
		}
		lead.Documents = append(lead.Documents, doc)
	}

	httpkit.JSON(c, http.StatusCreated, lead)
}

func createRequestFromForm(values map[string][]string) (transport.CreateLeadRequest, error) {
	get := func(key string) string {
		if v := values[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	optionalID := func(key string) (*uuid.UUID, error) {
		raw := get(key)
		if raw == "" {
			return nil, nil
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		return &id, nil
	}

	req := transport.CreateLeadRequest{
		Name:     get("name"),
		Email:    get("email"),
		Phone:    get("phoneNumber"),
		Position: get("position"),
		Source:   get("leadSource"),
		Notes:    get("notes"),
		Priority: get("priority"),
	}
	var err error
	if req.CategoryID, err = optionalID("category"); err != nil {
		return req, err
	}
	if req.AssignedTo, err = optionalID("assignedTo"); err != nil {
		return req, err
	}
	return req, nil
}

// List returns a page of leads.
// GET /api/v1/leads
func (h *Handler) List(c *gin.Context) {
	by, ok := actor.MustGet(c)
	if !ok {
		return
	}

	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.mgmt.List(c.Request.Context(), by, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID returns a lead with its linked records.
// GET /api/v1/leads/:id
func (h *Handler) GetByID(c *gin.Context) {
	by, id, ok := h.actorAndID(c, "id", msgInvalidID)
	if !ok {
		return
	}

	lead, err := h.mgmt.Get(c.Request.Context(), by, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// Update applies a partial update.
// PUT /api/v1/leads/:id
func (h *Handler) Update(c *gin.Context) {
	by, id, ok := h.actorAndID(c, "id", msgInvalidID)
	if !ok {
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	lead, err := h.mgmt.Update(c.Request.Context(), by, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// Delete soft-deletes an unassigned lead.
// DELETE /api/v1/leads/:id
func (h *Handler) Delete(c *gin.Context) {
	by, id, ok := h.actorAndID(c, "id", msgInvalidID)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.mgmt.SoftDelete(c.Request.Context(), by, id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// ListByCategory lists the leads of a category.
// GET /api/v1/categories/:id/leads
func (h *Handler) ListByCategory(c *gin.Context) {
	by, id, ok := h.actorAndID(c, "id", "Invalid category ID")
	if !ok {
		return
	}

	items, err := h.mgmt.ListByCategory(c.Request.Context(), by, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

// RecordFollowUp logs a follow-up on a lead.
// POST /api/v1/leads/:id/follow-up
func (h *Handler) RecordFollowUp(c *gin.Context) {
	by, id, ok := h.actorAndID(c, "id", msgInvalidID)
	if !ok {
		return
	}

	var req transport.FollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.followUps.RecordFollowUp(c.Request.Context(), by, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// EndConversation closes a lead with an outcome.
// POST /api/v1/leads/:id/end-conversation
func (h *Handler) EndConversation(c *gin.Context) {
	by, id, ok := h.actorAndID(c, "id", msgInvalidID)
	if !ok {
		return
	}

	var req transport.EndConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.followUps.EndConversation(c.Request.Context(), by, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UploadDocument attaches a file to a lead.
// POST /api/v1/leads/:id/documents
func (h *Handler) UploadDocument(c *gin.Context) {
	by, id, ok := h.actorAndID(c, "id", msgInvalidID)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgNoFile, nil)
		return
	}

	doc, err := h.uploadFile(c, by, id, fh, c.PostForm("description"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, doc)
}

func (h *Handler) uploadFile(c *gin.Context, by actor.Actor, leadID uuid.UUID, fh *multipart.FileHeader, description string) (transport.DocumentResponse, error) {
	file, err := fh.Open()
	if err != nil {
		return transport.DocumentResponse{}, apperr.BadRequest("Could not read uploaded file")
	}
	defer func() { _ = file.Close() }()

	var desc *string
	if description != "" {
		desc = &description
	}
	return h.mgmt.UploadDocument(c.Request.Context(), by, leadID, management.UploadDocumentInput{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Description: desc,
		Reader:      file,
	})
}

// Import creates leads in bulk from an uploaded spreadsheet.
// POST /api/v1/leads/import
func (h *Handler) Import(c *gin.Context) {
	by, ok := actor.MustGet(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgNoFile, nil)
		return
	}

	var opts transport.ImportOptions
	if raw := c.PostForm("assignedTo"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "Invalid or missing worker ID", nil)
			return
		}
		opts.AssignedTo = &id
	}
	if raw := c.PostForm("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "Invalid category ID", nil)
			return
		}
		opts.CategoryID = &id
	}

	file, err := fh.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgNoFile, nil)
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.imports.Import(c.Request.Context(), by, fh.Filename, file, opts)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateConversation logs a conversation on a lead.
// POST /api/v1/leads/:id/conversations
func (h *Handler) CreateConversation(c *gin.Context) {
	by, id, ok := h.actorAndID(c, "id", msgInvalidID)
	if !ok {
		return
	}

	var req transport.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.conversations.Create(c.Request.Context(), by, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ListLeadConversations lists the conversations of a lead.
// GET /api/v1/leads/:id/conversations
func (h *Handler) ListLeadConversations(c *gin.Context) {
	by, id, ok := h.actorAndID(c, "id", msgInvalidID)
	if !ok {
		return
	}

	var req transport.ListConversationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.conversations.ListByLead(c.Request.Context(), by, id, req.IncludeDeleted)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListConversations lists the conversation overview.
// GET /api/v1/conversations
func (h *Handler) ListConversations(c *gin.Context) {
	by, ok := actor.MustGet(c)
	if !ok {
		return
	}

	result, err := h.conversations.ListAll(c.Request.Context(), by)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListWorkerConversations lists the conversations a worker authored.
// GET /api/v1/workers/:workerId/conversations
func (h *Handler) ListWorkerConversations(c *gin.Context) {
	by, workerID, ok := h.actorAndID(c, "workerId", msgInvalidWorkerID)
	if !ok {
		return
	}

	result, err := h.conversations.ListByWorker(c.Request.Context(), by, workerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateConversation changes a conversation's conclusion or outcome.
// PATCH /api/v1/conversations/:id
func (h *Handler) UpdateConversation(c *gin.Context) {
	by, id, ok := h.actorAndID(c, "id", msgInvalidConvoID)
	if !ok {
		return
	}

	var req transport.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.conversations.Update(c.Request.Context(), by, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeleteConversation tombstones a conversation.
// DELETE /api/v1/conversations/:id
func (h *Handler) DeleteConversation(c *gin.Context) {
	by, id, ok := h.actorAndID(c, "id", msgInvalidConvoID)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.conversations.SoftDelete(c.Request.Context(), by, id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) actorAndID(c *gin.Context, param, invalidMsg string) (actor.Actor, uuid.UUID, bool) {
	by, ok := actor.MustGet(c)
	if !ok {
		return actor.Actor{}, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, invalidMsg, nil)
		return actor.Actor{}, uuid.Nil, false
	}
	return by, id, true
}
