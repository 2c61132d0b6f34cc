package service

import (
	"testing"
	"time"

	"shopmaster/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeScalar(t *testing.T) {
	spec := customerFields["mobile"]

	t.Run("both absent is a no-op", func(t *testing.T) {
		c := model.Customer{Mobile: "017"}
		applied, err := mergeScalar(spec, &c, "mobile", model.ScalarChange{})
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, "017", c.Mobile)
	})

	t.Run("overwrites verbatim", func(t *testing.T) {
		c := model.Customer{Mobile: "017"}
		applied, err := mergeScalar(spec, &c, "mobile", textChange("017", " 018 "))
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, " 018 ", c.Mobile)

		c = model.Customer{Name: "Abdul"}
		applied, err = mergeScalar(customerFields["name"], &c, "name", textChange("Abdul", "Abdul  Karim\n"))
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, "Abdul  Karim\n", c.Name)
	})

	t.Run("placeholder is not written", func(t *testing.T) {
		c := model.Customer{Photo: "data:image/png;base64,AAAA"}
		applied, err := mergeScalar(customerFields["photo"], &c, "photo", model.ScalarChange{New: model.TextValue(model.RedactedImage)})
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, "data:image/png;base64,AAAA", c.Photo)
	})

	t.Run("required field rejects blank", func(t *testing.T) {
		c := model.Customer{Name: "Abdul"}
		_, err := mergeScalar(customerFields["name"], &c, "name", textChange("Abdul", "  "))
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, "Abdul", c.Name)
	})

	t.Run("amount accepts numeric text", func(t *testing.T) {
		c := model.Customer{}
		applied, err := mergeScalar(customerFields["opening_due"], &c, "opening_due", textChange("0", "250.75"))
		require.NoError(t, err)
		assert.True(t, applied)
		assert.True(t, c.OpeningDue.Equal(dec("250.75")))
	})

	t.Run("amount rejects words", func(t *testing.T) {
		c := model.Customer{}
		_, err := mergeScalar(customerFields["opening_due"], &c, "opening_due", textChange("0", "lots"))
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestMergeLedger(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	desc := "corrected"
	empty := ""

	tests := []struct {
		name     string
		snapshot model.LedgerSnapshot
		want     model.Sale
	}{
		{
			name:     "total only",
			snapshot: model.LedgerSnapshot{TotalAmount: decPtr("1200")},
			want:     model.Sale{TotalAmount: dec("1200"), PaidAmount: dec("600"), DueAmount: dec("600"), Description: "fan"},
		},
		{
			name:     "paid only",
			snapshot: model.LedgerSnapshot{PaidAmount: decPtr("1000")},
			want:     model.Sale{TotalAmount: dec("1000"), PaidAmount: dec("1000"), DueAmount: dec("0"), Description: "fan"},
		},
		{
			name:     "every field",
			snapshot: model.LedgerSnapshot{Date: &date, TotalAmount: decPtr("10"), PaidAmount: decPtr("4"), Description: &desc},
			want:     model.Sale{Date: date, TotalAmount: dec("10"), PaidAmount: dec("4"), DueAmount: dec("6"), Description: "corrected"},
		},
		{
			name:     "empty description is kept",
			snapshot: model.LedgerSnapshot{Description: &empty, PaidAmount: decPtr("0")},
			want:     model.Sale{TotalAmount: dec("1000"), PaidAmount: dec("0"), DueAmount: dec("1000"), Description: "fan"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sale := &model.Sale{TotalAmount: dec("1000"), PaidAmount: dec("600"), Description: "fan"}
			sale.RecomputeDue()
			tgt := &saleTarget{sale: sale}

			applied, err := tgt.merge(model.FieldLedgerEntry, model.LedgerChange{New: tt.snapshot})
			require.NoError(t, err)
			assert.True(t, applied)
			assert.Equal(t, tt.want.Date, sale.Date)
			assert.True(t, tt.want.TotalAmount.Equal(sale.TotalAmount))
			assert.True(t, tt.want.PaidAmount.Equal(sale.PaidAmount))
			assert.True(t, tt.want.DueAmount.Equal(sale.DueAmount))
			assert.Equal(t, tt.want.Description, sale.Description)
		})
	}
}

func TestSaleTarget_RejectsLedgerOnOtherFields(t *testing.T) {
	tgt := &saleTarget{sale: &model.Sale{}}
	_, err := tgt.merge("description", model.LedgerChange{New: model.LedgerSnapshot{TotalAmount: decPtr("1")}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewAuditEntry(t *testing.T) {
	e, err := newAuditEntry(model.FieldLedgerEntry, ledgerChange(decPtr("5"), nil), "typo", "Karim", "Rahim", fixedAt)
	require.NoError(t, err)
	assert.Equal(t, model.AuditFieldLedgerCorrection, e.Field)
	assert.JSONEq(t, `{"total_amount":"5"}`, string(e.NewValue))
	assert.Equal(t, "Karim", e.EditedBy)
	assert.Equal(t, "Rahim", e.ApprovedBy)

	e, err = newAuditEntry("photo", model.ScalarChange{New: model.TextValue("data:image/gif;base64,R0lG")}, "pic", "Rahim", "Rahim", fixedAt)
	require.NoError(t, err)
	assert.Equal(t, "photo", e.Field)
	assert.JSONEq(t, `"[Image Data]"`, string(e.NewValue))
	assert.JSONEq(t, `null`, string(e.OldValue))
}

func TestNormalizeField(t *testing.T) {
	assert.Equal(t, "ledger_entry", normalizeField("ledgerEntry"))
	assert.Equal(t, "father_name", normalizeField(" fatherName "))
	assert.Equal(t, "mobile", normalizeField("mobile"))
	assert.Equal(t, "opening_due_description", normalizeField("openingDueDescription"))
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = parseDate("2024-03-01T10:00:00+06:00")
	require.NoError(t, err)

	_, err = parseDate("yesterday")
	assert.Error(t, err)
}
