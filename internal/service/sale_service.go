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

type CreateSaleRequest struct {
	Date        *time.Time        `json:"date"`
	ShopID      string            `json:"shop_id" binding:"required"`
	CustomerID  *uuid.UUID        `json:"customer_id"`
	Description string            `json:"description"`
	Items       []model.SaleItem  `json:"items"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	PaidAmount  decimal.Decimal   `json:"paid_amount"`
	PaymentType model.PaymentType `json:"payment_type"`
}

type SaleFilter struct {
	ShopID     string
	CustomerID *uuid.UUID
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}

type SaleService interface {
	Create(ctx context.Context, actor Actor, req CreateSaleRequest) (*model.Sale, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, filter SaleFilter) ([]model.Sale, int64, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type saleService struct {
	sales     repository.SaleRepository
	customers repository.CustomerRepository
	now       func() time.Time
	CommonDeps
}

func NewSaleService(sales repository.SaleRepository, customers repository.CustomerRepository, deps CommonDeps) SaleService {
	return &saleService{sales: sales, customers: customers, now: time.Now, CommonDeps: deps}
}

func (s *saleService) Create(ctx context.Context, actor Actor, req CreateSaleRequest) (*model.Sale, error) {
	sale, err := s.buildSale(req)
	if err != nil {
		return nil, err
	}

	err = s.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if sale.CustomerID != nil {
			if _, err := s.customers.FindByID(txCtx, *sale.CustomerID); err != nil {
				return storeErr("load customer", "customer", *sale.CustomerID, err)
			}
		}
		if err := s.sales.Create(txCtx, sale); err != nil {
			return &StoreError{Op: "create sale", Err: err}
		}
		return writeActivity(txCtx, s.Activity, actor, model.ActionCreateSale, string(model.EntitySale), sale.ID.String(),
			map[string]interface{}{
				"shop_id":      sale.ShopID,
				"total_amount": sale.TotalAmount.String(),
				"paid_amount":  sale.PaidAmount.String(),
			})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ws.CollectionSales, ws.ActionCreated, sale.ID.String())
	return sale, nil
}

// buildSale validates the request and settles the amounts: total falls back to the item sum,
// the payment type is derived when omitted and due is always total - paid.
func (s *saleService) buildSale(req CreateSaleRequest) (*model.Sale, error) {
	if !model.ValidShopID(req.ShopID) {
		return nil, invalid("shop_id", "unknown shop %q", req.ShopID)
	}

	total := req.TotalAmount
	if total.IsZero() {
		for _, it := range req.Items {
			total = total.Add(it.Qty.Mul(it.Price))
		}
	}
	if total.IsNegative() {
		return nil, invalid("total_amount", "must not be negative")
	}
	paid := req.PaidAmount
	if paid.IsNegative() {
		return nil, invalid("paid_amount", "must not be negative")
	}

	paymentType := model.PaymentType(strings.ToUpper(string(req.PaymentType)))
	switch paymentType {
	case "":
		paymentType = model.DerivePaymentType(total, paid)
	case model.PaymentCash:
		if paid.IsZero() {
			paid = total
		}
	case model.PaymentBaki:
		paid = decimal.Zero
	case model.PaymentPartial:
	default:
		return nil, invalid("payment_type", "must be CASH, BAKI or PARTIAL")
	}

	if paid.LessThan(total) && req.CustomerID == nil {
		return nil, invalid("customer_id", "a customer is required when part of the sale is on credit")
	}

	date := s.now().UTC()
	if req.Date != nil && !req.Date.IsZero() {
		date = *req.Date
	}

	sale := &model.Sale{
		ID:          uuid.New(),
		Date:        date,
		ShopID:      req.ShopID,
		CustomerID:  req.CustomerID,
		Description: strings.TrimSpace(req.Description),
		TotalAmount: total,
		PaidAmount:  paid,
		PaymentType: paymentType,
		Items:       req.Items,
		EditHistory: model.AuditHistory{},
	}
	sale.RecomputeDue()
	return sale, nil
}

func (s *saleService) Get(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("load sale", "sale", id, err)
	}
	return sale, nil
}

func (s *saleService) List(ctx context.Context, filter SaleFilter) ([]model.Sale, int64, error) {
	sales, total, err := s.sales.List(ctx, repository.SaleFilter{
		ShopID:     filter.ShopID,
		CustomerID: filter.CustomerID,
		From:       filter.From,
		To:         filter.To,
	}, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, &StoreError{Op: "list sales", Err: err}
	}
	return sales, total, nil
}

func (s *saleService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireOwner(actor, "delete sales"); err != nil {
		return err
	}
	err := s.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		sale, err := s.sales.FindByID(txCtx, id)
		if err != nil {
			return storeErr("load sale", "sale", id, err)
		}
		if err := s.sales.Delete(txCtx, id); err != nil {
			return &StoreError{Op: "delete sale", Err: err}
		}
		return writeActivity(txCtx, s.Activity, actor, model.ActionDeleteSale, string(model.EntitySale), id.String(),
			map[string]interface{}{"shop_id": sale.ShopID, "total_amount": sale.TotalAmount.String()})
	})
	if err != nil {
		return err
	}
	s.publish(ws.CollectionSales, ws.ActionDeleted, id.String())
	return nil
}
