package handler

import (
	"net/http"
	"strings"

	"shopmaster/internal/middleware"
	"shopmaster/internal/model"
	"shopmaster/internal/service"
	"shopmaster/pkg/pagination"
	"shopmaster/pkg/response"

	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	activityService service.ActivityService
}

func NewActivityHandler(activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

func (h *ActivityHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/activity-logs")
	group.Use(middleware.RequireRole(model.RoleOwner))
	{
		group.GET("", h.GetActivityLogs)
	}
}

// GetActivityLogs returns the operational log, newest first
// @Summary      Get activity logs
// @Tags         activity
// @Security     BearerAuth
// @Produce      json
// @Param        action  query     string  false  "Action filter, e.g. APPROVE_EDIT_REQUEST"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=[]service.ActivityLogResponse}
// @Router       /api/activity-logs [get]
func (h *ActivityHandler) GetActivityLogs(c *gin.Context) {
	p := pagination.Parse(c)
	logs, total, err := h.activityService.List(c.Request.Context(), strings.ToUpper(c.Query("action")), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, logs, p.Meta(total)))
}
