package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentType enum constants
type PaymentType string

const (
	PaymentCash    PaymentType = "CASH"
	PaymentBaki    PaymentType = "BAKI" // fully on credit
	PaymentPartial PaymentType = "PARTIAL"
)

func (p PaymentType) Valid() bool {
	return p == PaymentCash || p == PaymentBaki || p == PaymentPartial
}

// DerivePaymentType classifies a sale from what was paid against its total.
func DerivePaymentType(total, paid decimal.Decimal) PaymentType {
	switch {
	case paid.LessThanOrEqual(decimal.Zero):
		return PaymentBaki
	case paid.GreaterThanOrEqual(total):
		return PaymentCash
	default:
		return PaymentPartial
	}
}

// SaleItem is one line of a sale.
type SaleItem struct {
	Name  string          `json:"name"`
	Qty   decimal.Decimal `json:"qty"`
	Price decimal.Decimal `json:"price"`
}

type SaleItems []SaleItem

func (s SaleItems) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return valueJSON([]SaleItem(s))
}

func (s *SaleItems) Scan(src interface{}) error {
	var items []SaleItem
	if err := scanJSON(src, &items); err != nil {
		return err
	}
	*s = items
	return nil
}

// Sale is a ledger entry: one transaction of a shop, optionally tied to a customer.
type Sale struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	ShopID      string          `gorm:"type:varchar(20);not null;index" json:"shop_id"`
	CustomerID  *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	Description string          `gorm:"type:text" json:"description"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_amount"`
	PaidAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"paid_amount"`
	DueAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"due_amount"` // always total - paid
	PaymentType PaymentType     `gorm:"type:varchar(20);not null" json:"payment_type"`
	Items       SaleItems       `gorm:"type:jsonb" json:"items"`
	EditHistory AuditHistory    `gorm:"type:jsonb" json:"edit_history"`
	Revision    int64           `gorm:"not null;default:0" json:"revision"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// RecomputeDue restores the due = total - paid invariant.
func (s *Sale) RecomputeDue() {
	s.DueAmount = s.TotalAmount.Sub(s.PaidAmount)
}

// Ledger returns the editable subset of the sale.
func (s *Sale) Ledger() LedgerSnapshot {
	date := s.Date
	total := s.TotalAmount
	paid := s.PaidAmount
	desc := s.Description
	return LedgerSnapshot{Date: &date, TotalAmount: &total, PaidAmount: &paid, Description: &desc}
}
