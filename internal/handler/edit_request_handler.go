package handler

import (
	"context"
	"net/http"
	"strings"

	"shopmaster/internal/middleware"
	"shopmaster/internal/model"
	"shopmaster/internal/service"
	"shopmaster/pkg/pagination"
	"shopmaster/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EditRequestHandler struct {
	approvalService service.ApprovalService
}

func NewEditRequestHandler(approvalService service.ApprovalService) *EditRequestHandler {
	return &EditRequestHandler{approvalService: approvalService}
}

// RegisterRoutes expects router to sit behind middleware.Authenticate.
func (h *EditRequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/edit-requests")
	{
		requests.POST("", h.Submit)
		requests.GET("", h.List)
		requests.GET("/pending", h.ListPending)
		requests.GET("/:id", h.Get)
		requests.PUT("/:id/approve", middleware.RequireRole(model.RoleOwner), h.Approve)
		requests.PUT("/:id/reject", middleware.RequireRole(model.RoleOwner), h.Reject)
	}
}

// Submit files an edit request, or applies it straight away when the caller is an owner
// @Summary      Submit an edit
// @Description  Managers create a PENDING request; owners' edits are applied immediately with a self-approved audit entry
// @Tags         edit-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SubmitEditRequestDTO  true  "Proposed edit"
// @Success      201      {object}  response.Response{data=service.SubmitResult}
// @Success      200      {object}  response.Response{data=service.SubmitResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/edit-requests [post]
func (h *EditRequestHandler) Submit(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var dto service.SubmitEditRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	in, err := dto.Input()
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.approvalService.SubmitEditRequest(c.Request.Context(), actor, in)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Request == nil {
		status = http.StatusOK
	}
	c.JSON(status, response.Success(status, result))
}

// List returns edit requests, optionally filtered by status and entity
// @Summary      List edit requests
// @Tags         edit-requests
// @Produce      json
// @Security     BearerAuth
// @Param        status       query  string  false  "PENDING, APPROVED or REJECTED"
// @Param        entity_type  query  string  false  "SALE or CUSTOMER"
// @Param        entity_id    query  string  false  "Entity UUID"
// @Param        page         query  int     false  "Page"
// @Param        limit        query  int     false  "Page size"
// @Success      200  {object}  response.Response{data=[]model.EditRequest}
// @Router       /api/edit-requests [get]
func (h *EditRequestHandler) List(c *gin.Context) {
	p := pagination.Parse(c)
	filter := service.EditRequestFilter{
		Status:     model.EditStatus(strings.ToUpper(c.Query("status"))),
		EntityType: model.EntityType(strings.ToUpper(c.Query("entity_type"))),
		Page:       p.Page,
		Limit:      p.Limit,
	}
	if s := c.Query("entity_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			badRequest(c, "Invalid entity_id: must be a UUID")
			return
		}
		filter.EntityID = &id
	}

	requests, total, err := h.approvalService.ListRequests(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, requests, p.Meta(total)))
}

// ListPending returns every request still waiting for an owner, oldest first
// @Summary      List pending edit requests
// @Tags         edit-requests
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.EditRequest}
// @Router       /api/edit-requests/pending [get]
func (h *EditRequestHandler) ListPending(c *gin.Context) {
	requests, err := h.approvalService.ListPending(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if requests == nil {
		requests = []model.EditRequest{}
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, requests))
}

func (h *EditRequestHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	req, err := h.approvalService.GetRequest(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, req))
}

// Approve merges a pending request into its record
// @Summary      Approve an edit request
// @Tags         edit-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Edit request ID"
// @Success      200  {object}  response.Response{data=model.EditRequest}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/edit-requests/{id}/approve [put]
func (h *EditRequestHandler) Approve(c *gin.Context) {
	h.decide(c, h.approvalService.Approve)
}

// Reject closes a pending request without touching its record
// @Summary      Reject an edit request
// @Tags         edit-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Edit request ID"
// @Success      200  {object}  response.Response{data=model.EditRequest}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/edit-requests/{id}/reject [put]
func (h *EditRequestHandler) Reject(c *gin.Context) {
	h.decide(c, h.approvalService.Reject)
}

func (h *EditRequestHandler) decide(c *gin.Context, fn func(ctx context.Context, id uuid.UUID, reviewer service.Actor) (*model.EditRequest, error)) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	req, err := fn(c.Request.Context(), id, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, req))
}
