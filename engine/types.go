/*
Package engine provides the tabular derivation-and-aggregation core.

PURPOSE:
  This package contains domain-agnostic types and algorithms that turn raw,
  per-record business data into derived fields, a status classification and
  grouped summary tables. Whether the rows are home-service leads, income
  invoices or payroll lines, the same engine validates, derives, classifies
  and aggregates them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Value: a cell value (blank, decimal number, text or date)
  - Record: one row, identified by a sequence number that is never reused
  - RawRecord: caller-supplied cell text for the non-derived fields
  - SubEntry: one populated slot of a slot group (category + value)

DESIGN PRINCIPLES:
  1. Precision: numbers are decimal.Decimal, never float64
  2. Blank is a value: a blank cell is distinct from zero
  3. Explicit context: all state lives in an EngineContext, no globals
  4. Recompute on write, aggregate on read: no caches to invalidate

USAGE:
  schema, _ := engine.NewSchema(def)
  ctx := engine.NewContext(schema, store.NewMemory())
  rec, err := ctx.Insert(c, engine.RawRecord{Fields: map[string]string{
      "Timestamp": "2025-01-15 10:30",
      "BaseAmount": "2000",
      "TaxRate": "0.18",
  }})

SEE ALSO:
  - schema.go: field definitions and derivation order
  - aggregate.go: grouped counts and sums
  - context.go: the EngineContext that ties everything together
*/
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VALUE - One cell
// =============================================================================

type ValueKind int

const (
	KindBlank ValueKind = iota
	KindNumber
	KindText
	KindDate
)

func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	default:
		return "blank"
	}
}

// Value is the content of a single field. The zero Value is blank.
type Value struct {
	Kind ValueKind
	Num  decimal.Decimal
	Text string
	Date TimePoint
}

func Blank() Value                    { return Value{} }
func Number(d decimal.Decimal) Value  { return Value{Kind: KindNumber, Num: d} }
func NumberFromInt(n int64) Value     { return Number(decimal.NewFromInt(n)) }
func Text(s string) Value             { return Value{Kind: KindText, Text: s} }
func Date(tp TimePoint) Value         { return Value{Kind: KindDate, Date: tp} }
func (v Value) IsBlank() bool         { return v.Kind == KindBlank }
func (v Value) IsNumber() bool        { return v.Kind == KindNumber }

// Decimal returns the numeric content, or zero for anything else.
func (v Value) Decimal() decimal.Decimal {
	if v.Kind == KindNumber {
		return v.Num
	}
	return decimal.Zero
}

// Truthy is how conditions read a value: non-zero numbers, non-empty text and
// any date are true; blank is false.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNumber:
		return !v.Num.IsZero()
	case KindText:
		return v.Text != ""
	case KindDate:
		return true
	default:
		return false
	}
}

// Equal compares by kind and content. Dates compare by calendar minute/day.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num.Equal(o.Num)
	case KindText:
		return v.Text == o.Text
	case KindDate:
		return v.Date.Equal(o.Date)
	default:
		return true
	}
}

// String is the canonical cell text; parsing it back yields an equal Value.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return v.Num.String()
	case KindText:
		return v.Text
	case KindDate:
		return v.Date.String()
	default:
		return ""
	}
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// RecordID is the insertion sequence number. It starts at 1, is strictly
// increasing, and is never reused or reassigned.
type RecordID int64

// FormatKey renders the human-readable identifier, e.g. ST-0001.
func FormatKey(prefix string, seq RecordID, width int) string {
	if width <= 0 {
		width = 4
	}
	return fmt.Sprintf("%s-%0*d", prefix, width, seq)
}

// =============================================================================
// RECORD - A validated, derived, classified row
// =============================================================================

// SubEntry is one populated slot of a slot group, e.g. Service 2 / Price 2.
type SubEntry struct {
	Category string
	Value    Value
}

// Record is one row of the store. Values holds raw and derived fields keyed by
// field name; blank fields are absent from the map.
type Record struct {
	Seq       RecordID
	Key       string
	Values    map[string]Value
	Slots     map[string][]SubEntry
	Tag       Tag
	Warnings  []DerivationError
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Value returns the field value, blank when unset.
func (r Record) Value(name string) Value {
	return r.Values[name]
}

// Clone returns a deep copy so callers cannot mutate store state.
func (r Record) Clone() Record {
	out := r
	out.Values = make(map[string]Value, len(r.Values))
	for k, v := range r.Values {
		out.Values[k] = v
	}
	out.Slots = make(map[string][]SubEntry, len(r.Slots))
	for k, v := range r.Slots {
		out.Slots[k] = append([]SubEntry(nil), v...)
	}
	out.Warnings = append([]DerivationError(nil), r.Warnings...)
	return out
}

// =============================================================================
// RAW RECORD - Caller input
// =============================================================================

// RawSubEntry is one slot as typed by the user.
type RawSubEntry struct {
	Category string `json:"category" yaml:"category"`
	Value    string `json:"value" yaml:"value"`
}

// RawRecord carries cell text for non-derived fields. On update, only the
// fields present are changed; an empty string clears a field. A slot group
// present in Slots replaces that group's entries wholesale.
type RawRecord struct {
	Fields map[string]string        `json:"fields" yaml:"fields"`
	Slots  map[string][]RawSubEntry `json:"slots,omitempty" yaml:"slots,omitempty"`
}
