package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseSource says where the money came from.
type ExpenseSource string

const (
	SourceShop   ExpenseSource = "SHOP"
	SourcePocket ExpenseSource = "POCKET" // owner's own money, not counted against the till
)

func (s ExpenseSource) Valid() bool {
	return s == SourceShop || s == SourcePocket
}

// Expense is a cost booked against a shop.
type Expense struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Date         time.Time       `gorm:"not null;index" json:"date"`
	ShopID       string          `gorm:"type:varchar(20);not null;index" json:"shop_id"`
	Type         string          `gorm:"type:varchar(100);not null" json:"type"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Description  string          `gorm:"type:text" json:"description"`
	SourceType   ExpenseSource   `gorm:"type:varchar(10);not null;default:'SHOP'" json:"source_type"`
	SourceShopID string          `gorm:"type:varchar(20)" json:"source_shop_id,omitempty"`
	CreatedBy    string          `gorm:"type:varchar(255)" json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
