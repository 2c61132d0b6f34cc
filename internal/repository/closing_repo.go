package repository

import (
	"context"

	"shopmaster/internal/model"

	"gorm.io/gorm"
)

type DailyClosingRepository interface {
	Create(ctx context.Context, closing *model.DailyClosing) error
	Find(ctx context.Context, shopID, date string) (*model.DailyClosing, error)
	ListByDate(ctx context.Context, date string) ([]model.DailyClosing, error)
	Delete(ctx context.Context, shopID, date string) (int64, error)
}

type dailyClosingRepository struct {
	db *gorm.DB
}

func NewDailyClosingRepository(db *gorm.DB) DailyClosingRepository {
	return &dailyClosingRepository{db: db}
}

func (r *dailyClosingRepository) Create(ctx context.Context, closing *model.DailyClosing) error {
	return GetDB(ctx, r.db).Create(closing).Error
}

func (r *dailyClosingRepository) Find(ctx context.Context, shopID, date string) (*model.DailyClosing, error) {
	var closing model.DailyClosing
	if err := GetDB(ctx, r.db).First(&closing, "shop_id = ? AND date = ?", shopID, date).Error; err != nil {
		return nil, err
	}
	return &closing, nil
}

func (r *dailyClosingRepository) ListByDate(ctx context.Context, date string) ([]model.DailyClosing, error) {
	var closings []model.DailyClosing
	db := GetDB(ctx, r.db)
	if date != "" {
		db = db.Where("date = ?", date)
	}
	if err := db.Order("date DESC, shop_id ASC").Find(&closings).Error; err != nil {
		return nil, err
	}
	return closings, nil
}

func (r *dailyClosingRepository) Delete(ctx context.Context, shopID, date string) (int64, error) {
	res := GetDB(ctx, r.db).Where("shop_id = ? AND date = ?", shopID, date).Delete(&model.DailyClosing{})
	return res.RowsAffected, res.Error
}
