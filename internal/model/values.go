package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RedactedImage replaces inline image payloads wherever a value is stored for display.
const RedactedImage = "[Image Data]"

// JSONValue is a raw JSON document persisted in a jsonb column.
type JSONValue json.RawMessage

func (v JSONValue) Value() (driver.Value, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return string(v), nil
}

func (v *JSONValue) Scan(src interface{}) error {
	switch s := src.(type) {
	case nil:
		*v = nil
	case []byte:
		*v = append(JSONValue(nil), s...)
	case string:
		*v = JSONValue(s)
	default:
		return fmt.Errorf("model: cannot scan %T into JSONValue", src)
	}
	return nil
}

func (v JSONValue) MarshalJSON() ([]byte, error) {
	if len(v) == 0 {
		return []byte("null"), nil
	}
	return v, nil
}

func (v *JSONValue) UnmarshalJSON(b []byte) error {
	*v = append(JSONValue(nil), b...)
	return nil
}

// IsNull reports whether the document is empty or the JSON literal null.
func (v JSONValue) IsNull() bool {
	t := bytes.TrimSpace(v)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func scanJSON(src interface{}, dst interface{}) error {
	var raw []byte
	switch s := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = s
	case string:
		raw = []byte(s)
	default:
		return fmt.Errorf("model: cannot scan %T into %T", src, dst)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func valueJSON(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scalar is a single field value: text, number or absent.
type Scalar struct {
	Text   *string
	Number *decimal.Decimal
}

func TextValue(s string) Scalar {
	return Scalar{Text: &s}
}

func NumberValue(d decimal.Decimal) Scalar {
	return Scalar{Number: &d}
}

func (s Scalar) IsAbsent() bool {
	return s.Text == nil && s.Number == nil
}

// AsText renders the value as a string. Numbers use their canonical decimal form.
func (s Scalar) AsText() (string, bool) {
	switch {
	case s.Text != nil:
		return *s.Text, true
	case s.Number != nil:
		return s.Number.String(), true
	}
	return "", false
}

// AsNumber accepts numbers and text holding a decimal literal.
func (s Scalar) AsNumber() (decimal.Decimal, bool) {
	switch {
	case s.Number != nil:
		return *s.Number, true
	case s.Text != nil:
		d, err := decimal.NewFromString(strings.TrimSpace(*s.Text))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

// IsImageData reports whether the value is an inline data:image payload.
func (s Scalar) IsImageData() bool {
	return s.Text != nil && strings.HasPrefix(strings.TrimSpace(*s.Text), "data:image")
}

// Redacted swaps inline image payloads for the RedactedImage placeholder.
func (s Scalar) Redacted() Scalar {
	if s.IsImageData() {
		return TextValue(RedactedImage)
	}
	return s
}

func (s Scalar) Equal(o Scalar) bool {
	switch {
	case s.IsAbsent() || o.IsAbsent():
		return s.IsAbsent() == o.IsAbsent()
	case s.Number != nil && o.Number != nil:
		return s.Number.Equal(*o.Number)
	}
	a, _ := s.AsText()
	b, _ := o.AsText()
	return a == b
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	switch {
	case s.Text != nil:
		return json.Marshal(*s.Text)
	case s.Number != nil:
		return []byte(s.Number.String()), nil
	}
	return []byte("null"), nil
}

func (s *Scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*s = Scalar{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var text string
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		s.Text = &text
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("model: value must be a string, a number or null: %s", b)
	}
	s.Number = &d
	return nil
}

// LedgerSnapshot is the editable subset of a sale. Absent fields fall back to the stored sale on merge.
type LedgerSnapshot struct {
	Date        *time.Time       `json:"date,omitempty"`
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
	PaidAmount  *decimal.Decimal `json:"paid_amount,omitempty"`
	Description *string          `json:"description,omitempty"`
}

// ledgerKeys maps every accepted spelling onto the canonical member name.
var ledgerKeys = map[string]string{
	"date":         "date",
	"total_amount": "total_amount",
	"totalAmount":  "total_amount",
	"paid_amount":  "paid_amount",
	"paidAmount":   "paid_amount",
	"description":  "description",
}

// UnmarshalJSON accepts snake_case and camelCase keys and rejects anything else,
// so a misspelled amount can never be dropped on the way to an approval.
func (l *LedgerSnapshot) UnmarshalJSON(b []byte) error {
	*l = LedgerSnapshot{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("model: ledger entry must be an object: %w", err)
	}
	seen := make(map[string]string, len(raw))
	for key, v := range raw {
		name, ok := ledgerKeys[key]
		if !ok {
			return fmt.Errorf("model: unknown ledger key %q", key)
		}
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("model: ledger keys %q and %q name the same member", prev, key)
		}
		seen[name] = key
		if JSONValue(v).IsNull() {
			continue
		}

		switch name {
		case "date":
			var text string
			if err := json.Unmarshal(v, &text); err != nil {
				return fmt.Errorf("model: ledger date must be a string")
			}
			d, err := ParseDate(text)
			if err != nil {
				return err
			}
			l.Date = &d
		case "total_amount", "paid_amount":
			var d decimal.Decimal
			if err := d.UnmarshalJSON(v); err != nil {
				return fmt.Errorf("model: ledger %s must be a number: %w", name, err)
			}
			if name == "total_amount" {
				l.TotalAmount = &d
			} else {
				l.PaidAmount = &d
			}
		case "description":
			var text string
			if err := json.Unmarshal(v, &text); err != nil {
				return fmt.Errorf("model: ledger description must be a string")
			}
			l.Description = &text
		}
	}
	return nil
}

// ParseDate reads an RFC 3339 timestamp or a bare YYYY-MM-DD day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func (l LedgerSnapshot) IsEmpty() bool {
	return l.Date == nil && l.TotalAmount == nil && l.PaidAmount == nil && l.Description == nil
}
