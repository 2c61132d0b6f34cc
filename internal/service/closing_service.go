package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopmaster/internal/model"
	"shopmaster/internal/repository"
	ws "shopmaster/internal/websocket"

	"gorm.io/gorm"
)

type ClosingService interface {
	// Preview computes the day's totals without persisting them.
	Preview(ctx context.Context, shopID, date string) (model.DailyTotals, error)
	Close(ctx context.Context, actor Actor, shopID, date string) (*model.DailyClosing, error)
	Reopen(ctx context.Context, actor Actor, shopID, date string) error
	List(ctx context.Context, date string) ([]model.DailyClosing, error)
}

type closingService struct {
	closings repository.DailyClosingRepository
	sales    repository.SaleRepository
	expenses repository.ExpenseRepository
	now      func() time.Time
	CommonDeps
}

func NewClosingService(closings repository.DailyClosingRepository, sales repository.SaleRepository, expenses repository.ExpenseRepository, deps CommonDeps) ClosingService {
	return &closingService{closings: closings, sales: sales, expenses: expenses, now: time.Now, CommonDeps: deps}
}

func (s *closingService) Preview(ctx context.Context, shopID, date string) (model.DailyTotals, error) {
	if !model.ValidShopID(shopID) {
		return model.DailyTotals{}, invalid("shop_id", "unknown shop %q", shopID)
	}
	day, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return model.DailyTotals{}, invalid("date", "must be YYYY-MM-DD")
	}
	return s.totals(ctx, shopID, day)
}

func (s *closingService) totals(ctx context.Context, shopID string, day time.Time) (model.DailyTotals, error) {
	from, to := day, day.AddDate(0, 0, 1)

	sales, err := s.sales.SumForShop(ctx, shopID, from, to)
	if err != nil {
		return model.DailyTotals{}, &StoreError{Op: "sum sales", Err: err}
	}
	expense, err := s.expenses.SumForShop(ctx, shopID, from, to)
	if err != nil {
		return model.DailyTotals{}, &StoreError{Op: "sum expenses", Err: err}
	}
	return model.DailyTotals{
		TotalSales:   sales.Total,
		TotalCash:    sales.Paid,
		TotalDue:     sales.Due,
		TotalExpense: expense,
	}, nil
}

func (s *closingService) Close(ctx context.Context, actor Actor, shopID, date string) (*model.DailyClosing, error) {
	if !model.ValidShopID(shopID) {
		return nil, invalid("shop_id", "unknown shop %q", shopID)
	}
	day, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return nil, invalid("date", "must be YYYY-MM-DD")
	}

	var closing *model.DailyClosing
	err = s.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		_, err := s.closings.Find(txCtx, shopID, date)
		if err == nil {
			return fmt.Errorf("%w: shop %s is already closed for %s", ErrConflict, shopID, date)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return &StoreError{Op: "load closing", Err: err}
		}

		totals, err := s.totals(txCtx, shopID, day)
		if err != nil {
			return err
		}
		closing = &model.DailyClosing{
			Date:         date,
			ShopID:       shopID,
			TotalSales:   totals.TotalSales,
			TotalCash:    totals.TotalCash,
			TotalDue:     totals.TotalDue,
			TotalExpense: totals.TotalExpense,
			IsClosed:     true,
			ClosedAt:     s.now().UTC(),
			ClosedBy:     actor.Name,
		}
		if err := s.closings.Create(txCtx, closing); err != nil {
			return &StoreError{Op: "create closing", Err: err}
		}
		return writeActivity(txCtx, s.Activity, actor, model.ActionCloseDay, "DAILY_CLOSING", shopID+"/"+date,
			map[string]interface{}{"shop_id": shopID, "date": date, "total_sales": totals.TotalSales.String()})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ws.CollectionClosings, ws.ActionCreated, shopID+"/"+date)
	s.log().Info("day closed", "shop_id", shopID, "date", date, "by", actor.Name)
	return closing, nil
}

func (s *closingService) Reopen(ctx context.Context, actor Actor, shopID, date string) error {
	if err := requireOwner(actor, "reopen a closed day"); err != nil {
		return err
	}
	err := s.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.closings.Delete(txCtx, shopID, date)
		if err != nil {
			return &StoreError{Op: "delete closing", Err: err}
		}
		if n == 0 {
			return &NotFoundError{Kind: "closing", ID: shopID + "/" + date}
		}
		return writeActivity(txCtx, s.Activity, actor, model.ActionReopenDay, "DAILY_CLOSING", shopID+"/"+date,
			map[string]interface{}{"shop_id": shopID, "date": date})
	})
	if err != nil {
		return err
	}
	s.publish(ws.CollectionClosings, ws.ActionDeleted, shopID+"/"+date)
	return nil
}

func (s *closingService) List(ctx context.Context, date string) ([]model.DailyClosing, error) {
	closings, err := s.closings.ListByDate(ctx, date)
	if err != nil {
		return nil, &StoreError{Op: "list closings", Err: err}
	}
	return closings, nil
}
