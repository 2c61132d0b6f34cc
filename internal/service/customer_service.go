package service

import (
	"context"
	"strings"

	"shopmaster/internal/model"
	"shopmaster/internal/repository"
	ws "shopmaster/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateCustomerRequest struct {
	Name                  string          `json:"name" binding:"required"`
	Mobile                string          `json:"mobile"`
	FatherName            string          `json:"father_name"`
	HouseName             string          `json:"house_name"`
	Village               string          `json:"village"`
	Area                  string          `json:"area"`
	Source                string          `json:"source"`
	Email                 string          `json:"email"`
	Photo                 string          `json:"photo"`
	OpeningDue            decimal.Decimal `json:"opening_due"`
	OpeningDueDescription string          `json:"opening_due_description"`
	Note                  string          `json:"note"`
}

// CustomerResponse adds the customer's outstanding balance.
type CustomerResponse struct {
	model.Customer
	TotalDue decimal.Decimal `json:"total_due"`
}

type CustomerService interface {
	Create(ctx context.Context, actor Actor, req CreateCustomerRequest) (*model.Customer, error)
	Get(ctx context.Context, id uuid.UUID) (*CustomerResponse, error)
	List(ctx context.Context, area, search string, page, limit int) ([]model.Customer, int64, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type customerService struct {
	customers repository.CustomerRepository
	sales     repository.SaleRepository
	CommonDeps
}

func NewCustomerService(customers repository.CustomerRepository, sales repository.SaleRepository, deps CommonDeps) CustomerService {
	return &customerService{customers: customers, sales: sales, CommonDeps: deps}
}

func (s *customerService) Create(ctx context.Context, actor Actor, req CreateCustomerRequest) (*model.Customer, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalid("name", "is required")
	}
	if req.OpeningDue.IsNegative() {
		return nil, invalid("opening_due", "must not be negative")
	}
	area := req.Area
	if area == "" {
		area = model.Areas[0]
	}

	customer := &model.Customer{
		ID:                    uuid.New(),
		Name:                  strings.TrimSpace(req.Name),
		Mobile:                strings.TrimSpace(req.Mobile),
		FatherName:            req.FatherName,
		HouseName:             req.HouseName,
		Village:               req.Village,
		Area:                  area,
		Source:                req.Source,
		Email:                 req.Email,
		Photo:                 req.Photo,
		OpeningDue:            req.OpeningDue,
		OpeningDueDescription: req.OpeningDueDescription,
		Note:                  req.Note,
		AuditHistory:          model.AuditHistory{},
	}

	err := s.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customers.Create(txCtx, customer); err != nil {
			return &StoreError{Op: "create customer", Err: err}
		}
		return writeActivity(txCtx, s.Activity, actor, model.ActionCreateCustomer, string(model.EntityCustomer), customer.ID.String(),
			map[string]interface{}{"name": customer.Name, "mobile": customer.Mobile})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ws.CollectionCustomers, ws.ActionCreated, customer.ID.String())
	return customer, nil
}

func (s *customerService) Get(ctx context.Context, id uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("load customer", "customer", id, err)
	}
	due, err := s.sales.SumDueByCustomer(ctx, id)
	if err != nil {
		return nil, &StoreError{Op: "sum customer due", Err: err}
	}
	return &CustomerResponse{Customer: *customer, TotalDue: customer.OpeningDue.Add(due)}, nil
}

func (s *customerService) List(ctx context.Context, area, search string, page, limit int) ([]model.Customer, int64, error) {
	customers, total, err := s.customers.List(ctx, area, strings.TrimSpace(search), page, limit)
	if err != nil {
		return nil, 0, &StoreError{Op: "list customers", Err: err}
	}
	return customers, total, nil
}

func (s *customerService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireOwner(actor, "delete customers"); err != nil {
		return err
	}
	err := s.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		customer, err := s.customers.FindByID(txCtx, id)
		if err != nil {
			return storeErr("load customer", "customer", id, err)
		}
		if err := s.customers.Delete(txCtx, id); err != nil {
			return &StoreError{Op: "delete customer", Err: err}
		}
		return writeActivity(txCtx, s.Activity, actor, model.ActionDeleteCustomer, string(model.EntityCustomer), id.String(),
			map[string]interface{}{"name": customer.Name})
	})
	if err != nil {
		return err
	}
	s.publish(ws.CollectionCustomers, ws.ActionDeleted, id.String())
	return nil
}
