package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

const (
	ActionSubmitEditRequest = "SUBMIT_EDIT_REQUEST"
	ActionApproveEdit       = "APPROVE_EDIT_REQUEST"
	ActionRejectEdit        = "REJECT_EDIT_REQUEST"
	ActionDirectEdit        = "APPLY_DIRECT_EDIT"

	ActionCreateSale     = "CREATE_SALE"
	ActionDeleteSale     = "DELETE_SALE"
	ActionCreateCustomer = "CREATE_CUSTOMER"
	ActionDeleteCustomer = "DELETE_CUSTOMER"
	ActionCreateExpense  = "CREATE_EXPENSE"
	ActionDeleteExpense  = "DELETE_EXPENSE"
	ActionCloseDay       = "CLOSE_DAY"
	ActionReopenDay      = "REOPEN_DAY"
)

// AuditEntry is one applied change in an entity's history. Entries are never modified once appended.
type AuditEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Field      string    `json:"field"`
	OldValue   JSONValue `json:"old_value"`
	NewValue   JSONValue `json:"new_value"`
	Reason     string    `json:"reason"`
	EditedBy   string    `json:"edited_by"`
	ApprovedBy string    `json:"approved_by"`
}

// AuditHistory is the append-only history stored alongside a sale or customer.
type AuditHistory []AuditEntry

func (h AuditHistory) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	return valueJSON([]AuditEntry(h))
}

func (h *AuditHistory) Scan(src interface{}) error {
	var entries []AuditEntry
	if err := scanJSON(src, &entries); err != nil {
		return err
	}
	*h = entries
	return nil
}

// Append returns the history with e added at the end.
func (h AuditHistory) Append(e AuditEntry) AuditHistory {
	out := make(AuditHistory, len(h), len(h)+1)
	copy(out, h)
	return append(out, e)
}

// ActivityLog tracks who did what and when across the application.
type ActivityLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	UserName   string     `gorm:"type:varchar(255)" json:"user_name"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string     `gorm:"type:varchar(30);index" json:"entity_type"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	Details    JSONValue  `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
