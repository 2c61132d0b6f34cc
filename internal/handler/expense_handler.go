package handler

import (
	"net/http"

	"shopmaster/internal/middleware"
	"shopmaster/internal/model"
	"shopmaster/internal/repository"
	"shopmaster/internal/service"
	"shopmaster/pkg/pagination"
	"shopmaster/pkg/response"

	"github.com/gin-gonic/gin"
)

type ExpenseHandler struct {
	expenseService service.ExpenseService
}

func NewExpenseHandler(expenseService service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

func (h *ExpenseHandler) RegisterRoutes(router *gin.RouterGroup) {
	expenses := router.Group("/api/expenses")
	{
		expenses.GET("", h.GetExpenses)
		expenses.POST("", h.CreateExpense)
		expenses.DELETE("/:id", middleware.RequireRole(model.RoleOwner), h.DeleteExpense)
	}
}

// GetExpenses returns expense entries, newest first
func (h *ExpenseHandler) GetExpenses(c *gin.Context) {
	p := pagination.Parse(c)
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	expenses, total, err := h.expenseService.List(c.Request.Context(), repository.ExpenseFilter{
		ShopID: c.Query("shop_id"),
		From:   from,
		To:     to,
	}, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if expenses == nil {
		expenses = []model.Expense{}
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, expenses, p.Meta(total)))
}

// CreateExpense books an expense against a shop
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	expense, err := h.expenseService.Create(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, expense))
}

func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.expenseService.Delete(c.Request.Context(), actor, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id}))
}
