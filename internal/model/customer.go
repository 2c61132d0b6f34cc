package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Areas lists the delivery areas offered when registering a customer.
var Areas = []string{"Main Market", "Station Road", "Village A", "Village B", "Other"}

// Customer is a buyer with a running due balance.
type Customer struct {
	ID                    uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name                  string          `gorm:"type:varchar(255);not null;index" json:"name"`
	Mobile                string          `gorm:"type:varchar(30);index" json:"mobile"`
	FatherName            string          `gorm:"type:varchar(255)" json:"father_name"`
	HouseName             string          `gorm:"type:varchar(255)" json:"house_name"`
	Village               string          `gorm:"type:varchar(255)" json:"village"`
	Area                  string          `gorm:"type:varchar(100)" json:"area"`
	Source                string          `gorm:"type:varchar(100)" json:"source"`
	Email                 string          `gorm:"type:varchar(255)" json:"email"`
	Photo                 string          `gorm:"type:text" json:"photo"`
	OpeningDue            decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"opening_due"`
	OpeningDueDescription string          `gorm:"type:text" json:"opening_due_description"`
	Note                  string          `gorm:"type:text" json:"note"`
	AuditHistory          AuditHistory    `gorm:"type:jsonb" json:"audit_history"`
	Revision              int64           `gorm:"not null;default:0" json:"revision"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	DeletedAt             gorm.DeletedAt  `gorm:"index" json:"-"`
}
