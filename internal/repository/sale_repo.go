package repository

import (
	"context"
	"time"

	"shopmaster/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleFilter struct {
	ShopID     string
	CustomerID *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// SaleTotals sums a set of sales.
type SaleTotals struct {
	Total decimal.Decimal
	Paid  decimal.Decimal
	Due   decimal.Decimal
}

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, filter SaleFilter, page, limit int) ([]model.Sale, int64, error)
	Update(ctx context.Context, sale *model.Sale) error
	Delete(ctx context.Context, id uuid.UUID) error
	SumDueByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)
	SumForShop(ctx context.Context, shopID string, from, to time.Time) (SaleTotals, error)
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Create(sale).Error
}

func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := forUpdate(GetDB(ctx, r.db)).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) List(ctx context.Context, filter SaleFilter, page, limit int) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	scoped := func(db *gorm.DB) *gorm.DB {
		if filter.ShopID != "" {
			db = db.Where("shop_id = ?", filter.ShopID)
		}
		if filter.CustomerID != nil {
			db = db.Where("customer_id = ?", *filter.CustomerID)
		}
		if filter.From != nil {
			db = db.Where("date >= ?", *filter.From)
		}
		if filter.To != nil {
			db = db.Where("date < ?", *filter.To)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Sale{}).Scopes(scoped).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Scopes(scoped).Order("date DESC, created_at DESC").Offset(offset).Limit(limit).Find(&sales).Error; err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

func (r *saleRepository) Update(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Save(sale).Error
}

func (r *saleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Sale{}).Error
}

func (r *saleRepository) SumDueByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Due decimal.Decimal
	}
	err := GetDB(ctx, r.db).Model(&model.Sale{}).
		Select("COALESCE(SUM(due_amount), 0) AS due").
		Where("customer_id = ?", customerID).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Due, nil
}

func (r *saleRepository) SumForShop(ctx context.Context, shopID string, from, to time.Time) (SaleTotals, error) {
	var totals SaleTotals
	err := GetDB(ctx, r.db).Model(&model.Sale{}).
		Select("COALESCE(SUM(total_amount), 0) AS total, COALESCE(SUM(paid_amount), 0) AS paid, COALESCE(SUM(due_amount), 0) AS due").
		Where("shop_id = ? AND date >= ? AND date < ?", shopID, from, to).
		Scan(&totals).Error
	if err != nil {
		return SaleTotals{}, err
	}
	return totals, nil
}
