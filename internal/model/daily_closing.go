package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar day format used for closings and date filters.
const DateLayout = "2006-01-02"

// Shop is one of the fixed storefronts.
type Shop struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

var Shops = []Shop{
	{ID: "1", Name: "Electric Store", Type: "Electric"},
	{ID: "2", Name: "Kitchen & Pest Control", Type: "Kitchen"},
	{ID: "3", Name: "Tea & Snacks Corner", Type: "Tea Shop"},
}

func ValidShopID(id string) bool {
	for _, s := range Shops {
		if s.ID == id {
			return true
		}
	}
	return false
}

// DailyTotals aggregates one shop's books for a single day.
type DailyTotals struct {
	TotalSales   decimal.Decimal `json:"total_sales"`
	TotalCash    decimal.Decimal `json:"total_cash"`
	TotalDue     decimal.Decimal `json:"total_due"`
	TotalExpense decimal.Decimal `json:"total_expense"`
}

// DailyClosing freezes a shop's totals at the end of a day.
type DailyClosing struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Date         string          `gorm:"type:varchar(10);not null;uniqueIndex:idx_closing_shop_date" json:"date"`
	ShopID       string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_closing_shop_date" json:"shop_id"`
	TotalSales   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_sales"`
	TotalCash    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_cash"`
	TotalDue     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_due"`
	TotalExpense decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_expense"`
	IsClosed     bool            `gorm:"not null;default:true" json:"is_closed"`
	ClosedAt     time.Time       `json:"closed_at"`
	ClosedBy     string          `gorm:"type:varchar(255)" json:"closed_by"`
}
