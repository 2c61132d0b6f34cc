package service

import (
	"context"
	"strings"
	"time"

	"shopmaster/internal/model"
	"shopmaster/internal/repository"
	ws "shopmaster/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateExpenseRequest struct {
	Date         *time.Time          `json:"date"`
	ShopID       string              `json:"shop_id" binding:"required"`
	Type         string              `json:"type" binding:"required"`
	Amount       decimal.Decimal     `json:"amount"`
	Description  string              `json:"description"`
	SourceType   model.ExpenseSource `json:"source_type"`
	SourceShopID string              `json:"source_shop_id"`
}

type ExpenseService interface {
	Create(ctx context.Context, actor Actor, req CreateExpenseRequest) (*model.Expense, error)
	List(ctx context.Context, filter repository.ExpenseFilter, page, limit int) ([]model.Expense, int64, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type expenseService struct {
	expenses repository.ExpenseRepository
	now      func() time.Time
	CommonDeps
}

func NewExpenseService(expenses repository.ExpenseRepository, deps CommonDeps) ExpenseService {
	return &expenseService{expenses: expenses, now: time.Now, CommonDeps: deps}
}

func (s *expenseService) Create(ctx context.Context, actor Actor, req CreateExpenseRequest) (*model.Expense, error) {
	if !model.ValidShopID(req.ShopID) {
		return nil, invalid("shop_id", "unknown shop %q", req.ShopID)
	}
	if strings.TrimSpace(req.Type) == "" {
		return nil, invalid("type", "is required")
	}
	if !req.Amount.IsPositive() {
		return nil, invalid("amount", "must be greater than 0")
	}
	source := req.SourceType
	if source == "" {
		source = model.SourceShop
	}
	if !source.Valid() {
		return nil, invalid("source_type", "must be SHOP or POCKET")
	}
	if req.SourceShopID != "" && !model.ValidShopID(req.SourceShopID) {
		return nil, invalid("source_shop_id", "unknown shop %q", req.SourceShopID)
	}

	date := s.now().UTC()
	if req.Date != nil && !req.Date.IsZero() {
		date = *req.Date
	}
	expense := &model.Expense{
		ID:           uuid.New(),
		Date:         date,
		ShopID:       req.ShopID,
		Type:         strings.TrimSpace(req.Type),
		Amount:       req.Amount,
		Description:  req.Description,
		SourceType:   source,
		SourceShopID: req.SourceShopID,
		CreatedBy:    actor.Name,
	}

	err := s.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.expenses.Create(txCtx, expense); err != nil {
			return &StoreError{Op: "create expense", Err: err}
		}
		return writeActivity(txCtx, s.Activity, actor, model.ActionCreateExpense, "EXPENSE", expense.ID.String(),
			map[string]interface{}{"shop_id": expense.ShopID, "type": expense.Type, "amount": expense.Amount.String()})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ws.CollectionExpenses, ws.ActionCreated, expense.ID.String())
	return expense, nil
}

func (s *expenseService) List(ctx context.Context, filter repository.ExpenseFilter, page, limit int) ([]model.Expense, int64, error) {
	expenses, total, err := s.expenses.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, &StoreError{Op: "list expenses", Err: err}
	}
	return expenses, total, nil
}

func (s *expenseService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireOwner(actor, "delete expenses"); err != nil {
		return err
	}
	err := s.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		expense, err := s.expenses.FindByID(txCtx, id)
		if err != nil {
			return storeErr("load expense", "expense", id, err)
		}
		if err := s.expenses.Delete(txCtx, id); err != nil {
			return &StoreError{Op: "delete expense", Err: err}
		}
		return writeActivity(txCtx, s.Activity, actor, model.ActionDeleteExpense, "EXPENSE", id.String(),
			map[string]interface{}{"shop_id": expense.ShopID, "amount": expense.Amount.String()})
	})
	if err != nil {
		return err
	}
	s.publish(ws.CollectionExpenses, ws.ActionDeleted, id.String())
	return nil
}
