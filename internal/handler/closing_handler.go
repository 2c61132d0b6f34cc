package handler

import (
	"net/http"

	"shopmaster/internal/middleware"
	"shopmaster/internal/model"
	"shopmaster/internal/service"
	"shopmaster/pkg/response"

	"github.com/gin-gonic/gin"
)

type CloseDayRequest struct {
	ShopID string `json:"shop_id" binding:"required"`
	Date   string `json:"date" binding:"required"`
}

type ClosingHandler struct {
	closingService service.ClosingService
}

func NewClosingHandler(closingService service.ClosingService) *ClosingHandler {
	return &ClosingHandler{closingService: closingService}
}

func (h *ClosingHandler) RegisterRoutes(router *gin.RouterGroup) {
	closings := router.Group("/api/closings")
	{
		closings.GET("", h.List)
		closings.GET("/preview", h.Preview)
		closings.POST("", h.Close)
		closings.DELETE("/:shop_id/:date", middleware.RequireRole(model.RoleOwner), h.Reopen)
	}
}

// Preview computes a shop's totals for a day without closing it
// @Summary      Preview daily totals
// @Tags         closings
// @Produce      json
// @Security     BearerAuth
// @Param        shop_id  query  string  true  "Shop"
// @Param        date     query  string  true  "YYYY-MM-DD"
// @Success      200  {object}  response.Response{data=model.DailyTotals}
// @Failure      400  {object}  response.Response
// @Router       /api/closings/preview [get]
func (h *ClosingHandler) Preview(c *gin.Context) {
	totals, err := h.closingService.Preview(c.Request.Context(), c.Query("shop_id"), c.Query("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, totals))
}

// Close freezes the day's totals for a shop
// @Summary      Close a day
// @Tags         closings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      CloseDayRequest  true  "Shop and day"
// @Success      201      {object}  response.Response{data=model.DailyClosing}
// @Failure      409      {object}  response.Response
// @Router       /api/closings [post]
func (h *ClosingHandler) Close(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req CloseDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	closing, err := h.closingService.Close(c.Request.Context(), actor, req.ShopID, req.Date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, closing))
}

func (h *ClosingHandler) Reopen(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	shopID, date := c.Param("shop_id"), c.Param("date")
	if err := h.closingService.Reopen(c.Request.Context(), actor, shopID, date); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"shop_id": shopID, "date": date}))
}

func (h *ClosingHandler) List(c *gin.Context) {
	closings, err := h.closingService.List(c.Request.Context(), c.Query("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	if closings == nil {
		closings = []model.DailyClosing{}
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, closings))
}
