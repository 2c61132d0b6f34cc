package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntityType identifies which record an edit request targets.
type EntityType string

const (
	EntitySale     EntityType = "SALE"
	EntityCustomer EntityType = "CUSTOMER"
)

func (t EntityType) Valid() bool {
	return t == EntitySale || t == EntityCustomer
}

// EditStatus enum constants
type EditStatus string

const (
	EditPending  EditStatus = "PENDING"
	EditApproved EditStatus = "APPROVED"
	EditRejected EditStatus = "REJECTED"
)

const (
	// FieldLedgerEntry is the compound sale correction covering date, amounts and description.
	FieldLedgerEntry = "ledger_entry"
	// AuditFieldLedgerCorrection is recorded in the history in place of FieldLedgerEntry.
	AuditFieldLedgerCorrection = "LEDGER_CORRECTION"
)

// Change is the proposed old/new pair of an edit request.
type Change interface {
	isChange()
}

// ScalarChange edits one plain field.
type ScalarChange struct {
	Old Scalar
	New Scalar
}

// LedgerChange is a partial correction of a sale.
type LedgerChange struct {
	Old LedgerSnapshot
	New LedgerSnapshot
}

func (ScalarChange) isChange() {}
func (LedgerChange) isChange() {}

// EncodeChange serializes the old and new halves of a change for storage.
func EncodeChange(c Change) (JSONValue, JSONValue, error) {
	var oldV, newV interface{}
	switch ch := c.(type) {
	case ScalarChange:
		oldV, newV = ch.Old, ch.New
	case LedgerChange:
		oldV, newV = ch.Old, ch.New
	default:
		return nil, nil, fmt.Errorf("model: unsupported change %T", c)
	}
	o, err := json.Marshal(oldV)
	if err != nil {
		return nil, nil, err
	}
	n, err := json.Marshal(newV)
	if err != nil {
		return nil, nil, err
	}
	return o, n, nil
}

// DecodeChange reads stored values back into the change shape implied by the entity type and field.
func DecodeChange(entityType EntityType, field string, oldV, newV JSONValue) (Change, error) {
	if entityType == EntitySale && field == FieldLedgerEntry {
		var ch LedgerChange
		if err := decodeInto(oldV, &ch.Old); err != nil {
			return nil, fmt.Errorf("old value: %w", err)
		}
		if err := decodeInto(newV, &ch.New); err != nil {
			return nil, fmt.Errorf("new value: %w", err)
		}
		return ch, nil
	}
	var ch ScalarChange
	if err := decodeInto(oldV, &ch.Old); err != nil {
		return nil, fmt.Errorf("old value: %w", err)
	}
	if err := decodeInto(newV, &ch.New); err != nil {
		return nil, fmt.Errorf("new value: %w", err)
	}
	return ch, nil
}

func decodeInto(v JSONValue, dst interface{}) error {
	if v.IsNull() {
		return nil
	}
	return json.Unmarshal(v, dst)
}

// EditRequest is a proposed modification waiting for an owner's decision.
type EditRequest struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EntityType      EntityType `gorm:"type:varchar(20);not null;index:idx_edit_requests_entity" json:"entity_type"`
	EntityID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_edit_requests_entity" json:"entity_id"`
	Field           string     `gorm:"type:varchar(50);not null" json:"field"`
	OldValue        JSONValue  `gorm:"type:jsonb" json:"old_value"`
	NewValue        JSONValue  `gorm:"type:jsonb" json:"new_value"`
	Reason          string     `gorm:"type:text;not null" json:"reason"`
	RequestedBy     string     `gorm:"type:varchar(255);not null" json:"requested_by"`
	RequestedByID   *uuid.UUID `gorm:"type:uuid;index" json:"requested_by_id,omitempty"`
	BaseRevision    int64      `gorm:"not null;default:0" json:"base_revision"`
	Status          EditStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	ReviewedBy      string     `gorm:"type:varchar(255)" json:"reviewed_by,omitempty"`
	ReviewTimestamp *time.Time `json:"review_timestamp,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"timestamp"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (r *EditRequest) IsPending() bool {
	return r.Status == EditPending
}

// Change decodes the stored values.
func (r *EditRequest) Change() (Change, error) {
	return DecodeChange(r.EntityType, r.Field, r.OldValue, r.NewValue)
}
