package service

import (
	"context"
	"fmt"
	"time"

	"shopmaster/internal/model"
	"shopmaster/internal/repository"

	"github.com/google/uuid"
)

// editTarget is a loaded sale or customer that edits are merged into.
type editTarget interface {
	entityType() model.EntityType
	entityID() uuid.UUID
	revision() int64
	history() model.AuditHistory
	// withCurrentOld fills an absent old value from the stored record.
	withCurrentOld(field string, ch model.Change) model.Change
	// merge writes the proposed value. It reports false when there was nothing to apply.
	merge(field string, ch model.Change) (bool, error)
	// record appends e to the history and bumps the revision.
	record(e model.AuditEntry)
	save(ctx context.Context) error
}

type saleTarget struct {
	sale *model.Sale
	repo repository.SaleRepository
}

func (t *saleTarget) entityType() model.EntityType { return model.EntitySale }
func (t *saleTarget) entityID() uuid.UUID          { return t.sale.ID }
func (t *saleTarget) revision() int64              { return t.sale.Revision }
func (t *saleTarget) history() model.AuditHistory  { return t.sale.EditHistory }

func (t *saleTarget) withCurrentOld(field string, ch model.Change) model.Change {
	switch c := ch.(type) {
	case model.LedgerChange:
		if c.Old.IsEmpty() {
			c.Old = t.sale.Ledger()
		}
		return c
	case model.ScalarChange:
		if spec, ok := saleFields[field]; ok && c.Old.IsAbsent() {
			c.Old = spec.get(t.sale)
		}
		return c
	}
	return ch
}

func (t *saleTarget) merge(field string, ch model.Change) (bool, error) {
	var applied bool
	switch c := ch.(type) {
	case model.LedgerChange:
		if field != model.FieldLedgerEntry {
			return false, invalid("field", "%q does not take a ledger correction", field)
		}
		applied = mergeLedger(t.sale, c.New)
	case model.ScalarChange:
		spec, ok := saleFields[field]
		if !ok {
			return false, invalid("field", "%q is not an editable sale field", field)
		}
		var err error
		if applied, err = mergeScalar(spec, t.sale, field, c); err != nil {
			return false, err
		}
	default:
		return false, fmt.Errorf("unsupported change %T", ch)
	}
	t.sale.RecomputeDue()
	return applied, nil
}

func (t *saleTarget) record(e model.AuditEntry) {
	t.sale.EditHistory = t.sale.EditHistory.Append(e)
	t.sale.Revision++
}

func (t *saleTarget) save(ctx context.Context) error {
	return t.repo.Update(ctx, t.sale)
}

type customerTarget struct {
	customer *model.Customer
	repo     repository.CustomerRepository
}

func (t *customerTarget) entityType() model.EntityType { return model.EntityCustomer }
func (t *customerTarget) entityID() uuid.UUID          { return t.customer.ID }
func (t *customerTarget) revision() int64              { return t.customer.Revision }
func (t *customerTarget) history() model.AuditHistory  { return t.customer.AuditHistory }

func (t *customerTarget) withCurrentOld(field string, ch model.Change) model.Change {
	c, ok := ch.(model.ScalarChange)
	if !ok || !c.Old.IsAbsent() {
		return ch
	}
	if spec, ok := customerFields[field]; ok {
		c.Old = spec.get(t.customer)
	}
	return c
}

func (t *customerTarget) merge(field string, ch model.Change) (bool, error) {
	c, ok := ch.(model.ScalarChange)
	if !ok {
		return false, invalid("field", "customers only take single field edits")
	}
	spec, ok := customerFields[field]
	if !ok {
		return false, invalid("field", "%q is not an editable customer field", field)
	}
	return mergeScalar(spec, t.customer, field, c)
}

func (t *customerTarget) record(e model.AuditEntry) {
	t.customer.AuditHistory = t.customer.AuditHistory.Append(e)
	t.customer.Revision++
}

func (t *customerTarget) save(ctx context.Context) error {
	return t.repo.Update(ctx, t.customer)
}

// mergeScalar applies a single field edit. An absent new value leaves the field alone.
// A redacted image placeholder is never written onto the record but still counts as
// applied so the history shows the change.
func mergeScalar[T any](spec fieldSpec[T], entity *T, field string, c model.ScalarChange) (bool, error) {
	if c.New.IsAbsent() {
		return false, nil
	}
	if c.New.Text != nil && *c.New.Text == model.RedactedImage {
		return true, nil
	}
	if err := spec.set(entity, c.New); err != nil {
		return false, invalid(field, "%v", err)
	}
	return true, nil
}

// mergeLedger overlays a partial correction; anything the proposal omits keeps its stored value.
func mergeLedger(sale *model.Sale, n model.LedgerSnapshot) bool {
	if n.IsEmpty() {
		return false
	}
	if n.Date != nil && !n.Date.IsZero() {
		sale.Date = *n.Date
	}
	if n.TotalAmount != nil {
		sale.TotalAmount = *n.TotalAmount
	}
	if n.PaidAmount != nil {
		sale.PaidAmount = *n.PaidAmount
	}
	if n.Description != nil && *n.Description != "" {
		sale.Description = *n.Description
	}
	return true
}

func redactChange(ch model.Change) model.Change {
	if c, ok := ch.(model.ScalarChange); ok {
		return model.ScalarChange{Old: c.Old.Redacted(), New: c.New.Redacted()}
	}
	return ch
}

func auditFieldName(field string) string {
	if field == model.FieldLedgerEntry {
		return model.AuditFieldLedgerCorrection
	}
	return field
}

func newAuditEntry(field string, ch model.Change, reason, editedBy, approvedBy string, at time.Time) (model.AuditEntry, error) {
	oldV, newV, err := model.EncodeChange(redactChange(ch))
	if err != nil {
		return model.AuditEntry{}, fmt.Errorf("failed to encode audit values: %w", err)
	}
	return model.AuditEntry{
		Timestamp:  at,
		Field:      auditFieldName(field),
		OldValue:   oldV,
		NewValue:   newV,
		Reason:     reason,
		EditedBy:   editedBy,
		ApprovedBy: approvedBy,
	}, nil
}
