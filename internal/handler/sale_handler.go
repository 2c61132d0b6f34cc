package handler

import (
	"net/http"

	"shopmaster/internal/middleware"
	"shopmaster/internal/model"
	"shopmaster/internal/service"
	"shopmaster/pkg/pagination"
	"shopmaster/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SaleHandler struct {
	saleService     service.SaleService
	approvalService service.ApprovalService
}

func NewSaleHandler(saleService service.SaleService, approvalService service.ApprovalService) *SaleHandler {
	return &SaleHandler{saleService: saleService, approvalService: approvalService}
}

func (h *SaleHandler) RegisterRoutes(router *gin.RouterGroup) {
	sales := router.Group("/api/sales")
	{
		sales.GET("", h.List)
		sales.POST("", h.Create)
		sales.GET("/:id", h.Get)
		sales.GET("/:id/history", h.History)
		sales.DELETE("/:id", middleware.RequireRole(model.RoleOwner), h.Delete)
	}
}

// List returns sales newest first
// @Summary      List sales
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        shop_id      query  string  false  "Shop"
// @Param        customer_id  query  string  false  "Customer UUID"
// @Param        from         query  string  false  "First day, YYYY-MM-DD"
// @Param        to           query  string  false  "Last day, YYYY-MM-DD"
// @Success      200  {object}  response.Response{data=[]model.Sale}
// @Router       /api/sales [get]
func (h *SaleHandler) List(c *gin.Context) {
	p := pagination.Parse(c)
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	filter := service.SaleFilter{ShopID: c.Query("shop_id"), From: from, To: to, Page: p.Page, Limit: p.Limit}
	if s := c.Query("customer_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			badRequest(c, "Invalid customer_id: must be a UUID")
			return
		}
		filter.CustomerID = &id
	}

	sales, total, err := h.saleService.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	if sales == nil {
		sales = []model.Sale{}
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, sales, p.Meta(total)))
}

// Create records a sale
// @Summary      Create a sale
// @Description  Due is always total minus paid; the payment type is derived when omitted
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateSaleRequest  true  "Sale"
// @Success      201      {object}  response.Response{data=model.Sale}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/sales [post]
func (h *SaleHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	sale, err := h.saleService.Create(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, sale))
}

func (h *SaleHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sale, err := h.saleService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

func (h *SaleHandler) History(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	history, err := h.approvalService.History(c.Request.Context(), model.EntitySale, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}

func (h *SaleHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.saleService.Delete(c.Request.Context(), actor, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id}))
}
