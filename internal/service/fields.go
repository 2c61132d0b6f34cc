package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"shopmaster/internal/model"

	"github.com/shopspring/decimal"
)

// fieldSpec reads and writes one editable field of T as a Scalar.
type fieldSpec[T any] struct {
	get func(*T) model.Scalar
	set func(*T, model.Scalar) error
}

func textField[T any](ptr func(*T) *string) fieldSpec[T] {
	return fieldSpec[T]{
		get: func(e *T) model.Scalar { return model.TextValue(*ptr(e)) },
		set: func(e *T, v model.Scalar) error {
			*ptr(e), _ = v.AsText()
			return nil
		},
	}
}

func requiredTextField[T any](ptr func(*T) *string) fieldSpec[T] {
	f := textField(ptr)
	set := f.set
	f.set = func(e *T, v model.Scalar) error {
		if s, _ := v.AsText(); strings.TrimSpace(s) == "" {
			return errors.New("must not be empty")
		}
		return set(e, v)
	}
	return f
}

func amountField[T any](ptr func(*T) *decimal.Decimal) fieldSpec[T] {
	return fieldSpec[T]{
		get: func(e *T) model.Scalar { return model.NumberValue(*ptr(e)) },
		set: func(e *T, v model.Scalar) error {
			d, ok := v.AsNumber()
			if !ok {
				return errors.New("must be a number")
			}
			if d.IsNegative() {
				return errors.New("must not be negative")
			}
			*ptr(e) = d
			return nil
		},
	}
}

var customerFields = map[string]fieldSpec[model.Customer]{
	"name":                    requiredTextField(func(c *model.Customer) *string { return &c.Name }),
	"mobile":                  textField(func(c *model.Customer) *string { return &c.Mobile }),
	"email":                   textField(func(c *model.Customer) *string { return &c.Email }),
	"father_name":             textField(func(c *model.Customer) *string { return &c.FatherName }),
	"house_name":              textField(func(c *model.Customer) *string { return &c.HouseName }),
	"village":                 textField(func(c *model.Customer) *string { return &c.Village }),
	"area":                    textField(func(c *model.Customer) *string { return &c.Area }),
	"source":                  textField(func(c *model.Customer) *string { return &c.Source }),
	"note":                    textField(func(c *model.Customer) *string { return &c.Note }),
	"photo":                   textField(func(c *model.Customer) *string { return &c.Photo }),
	"opening_due_description": textField(func(c *model.Customer) *string { return &c.OpeningDueDescription }),
	"opening_due":             amountField(func(c *model.Customer) *decimal.Decimal { return &c.OpeningDue }),
}

var saleFields = map[string]fieldSpec[model.Sale]{
	"description":  textField(func(s *model.Sale) *string { return &s.Description }),
	"total_amount": amountField(func(s *model.Sale) *decimal.Decimal { return &s.TotalAmount }),
	"paid_amount":  amountField(func(s *model.Sale) *decimal.Decimal { return &s.PaidAmount }),
	"shop_id": {
		get: func(s *model.Sale) model.Scalar { return model.TextValue(s.ShopID) },
		set: func(s *model.Sale, v model.Scalar) error {
			id, _ := v.AsText()
			if !model.ValidShopID(id) {
				return fmt.Errorf("unknown shop %q", id)
			}
			s.ShopID = id
			return nil
		},
	},
	"payment_type": {
		get: func(s *model.Sale) model.Scalar { return model.TextValue(string(s.PaymentType)) },
		set: func(s *model.Sale, v model.Scalar) error {
			text, _ := v.AsText()
			pt := model.PaymentType(strings.ToUpper(strings.TrimSpace(text)))
			if !pt.Valid() {
				return fmt.Errorf("unknown payment type %q", text)
			}
			s.PaymentType = pt
			return nil
		},
	},
	"date": {
		get: func(s *model.Sale) model.Scalar { return model.TextValue(s.Date.Format(time.RFC3339)) },
		set: func(s *model.Sale, v model.Scalar) error {
			text, _ := v.AsText()
			d, err := parseDate(text)
			if err != nil {
				return err
			}
			s.Date = d
			return nil
		},
	},
}

func parseDate(s string) (time.Time, error) {
	return model.ParseDate(s)
}

// normalizeField maps camelCase field names onto the canonical snake_case ones.
func normalizeField(field string) string {
	field = strings.TrimSpace(field)
	var b strings.Builder
	for i, r := range field {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
