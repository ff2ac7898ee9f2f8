package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATE RANGE - Optional inclusive interval over the timestamp field
// =============================================================================

// DateRange is [From, To] inclusive by calendar date. A range missing either
// bound is not selected: queries over it return a "no range" result instead
// of all records or zero.
type DateRange struct {
	From *TimePoint
	To   *TimePoint
}

// NewDateRange parses optional bounds. Empty strings leave a bound unset.
func NewDateRange(from, to string) (DateRange, error) {
	var r DateRange
	if strings.TrimSpace(from) != "" {
		tp, err := ParseTimePoint(from)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: from: %v", ErrInvalidRange, err)
		}
		d := tp.Date()
		r.From = &d
	}
	if strings.TrimSpace(to) != "" {
		tp, err := ParseTimePoint(to)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: to: %v", ErrInvalidRange, err)
		}
		d := tp.Date()
		r.To = &d
	}
	return r, r.Validate()
}

// Selected reports whether both bounds are set.
func (r DateRange) Selected() bool { return r.From != nil && r.To != nil }

func (r DateRange) Validate() error {
	if r.Selected() && r.To.Date().Before(r.From.Date()) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidRange, r.From, r.To)
	}
	return nil
}

// Contains compares calendar dates; the time of day of tp is ignored.
func (r DateRange) Contains(tp TimePoint) bool {
	if !r.Selected() {
		return false
	}
	d := tp.Date()
	return d.AfterOrEqual(r.From.Date()) && d.BeforeOrEqual(r.To.Date())
}

func (r DateRange) String() string {
	if !r.Selected() {
		return "[no range]"
	}
	return "[" + r.From.String() + ", " + r.To.String() + "]"
}

// =============================================================================
// RANGE QUERY ENGINE
// =============================================================================

// RangeResult wraps an aggregation over a date range. When Selected is false
// Result is empty and must be shown as a placeholder, not as zeros.
type RangeResult struct {
	Selected bool
	Range    DateRange
	Result   Result
}

type RangeQueryEngine struct {
	schema *Schema
	agg    *AggregationEngine
}

func NewRangeQueryEngine(schema *Schema, agg *AggregationEngine) *RangeQueryEngine {
	return &RangeQueryEngine{schema: schema, agg: agg}
}

// Filter keeps the records whose timestamp falls in rng. Records with a blank
// timestamp are never in range.
func (q *RangeQueryEngine) Filter(rng DateRange, records []Record) []Record {
	field := q.schema.TimestampField()
	var out []Record
	for _, rec := range records {
		v := rec.Value(field)
		if v.Kind == KindDate && rng.Contains(v.Date) {
			out = append(out, rec)
		}
	}
	return out
}

func (q *RangeQueryEngine) check(rng DateRange) error {
	if q.schema.TimestampField() == "" {
		return fmt.Errorf("%w: schema %q has no timestamp field", ErrInvalidAggregation, q.schema.Name())
	}
	return rng.Validate()
}

// AggregateInRange runs spec over the records inside rng.
func (q *RangeQueryEngine) AggregateInRange(spec AggregationSpec, rng DateRange, records []Record) (RangeResult, error) {
	if err := q.check(rng); err != nil {
		return RangeResult{}, err
	}
	if !rng.Selected() {
		_, err := q.agg.Aggregate(spec, nil)
		return RangeResult{Range: rng}, err
	}
	res, err := q.agg.Aggregate(spec, q.Filter(rng, records))
	if err != nil {
		return RangeResult{}, err
	}
	return RangeResult{Selected: true, Range: rng, Result: res}, nil
}

// TableInRange is AggregateInRange for a multi-column table. The bool is
// false when no range is selected.
func (q *RangeQueryEngine) TableInRange(spec TableSpec, rng DateRange, records []Record) (Table, bool, error) {
	if err := q.check(rng); err != nil {
		return Table{}, false, err
	}
	if err := q.agg.ValidateTable(spec); err != nil {
		return Table{}, false, err
	}
	if !rng.Selected() {
		return Table{}, false, nil
	}
	t, err := q.agg.Table(spec, q.Filter(rng, records))
	return t, true, err
}

// ScalarInRange folds acc over the records inside rng.
func (q *RangeQueryEngine) ScalarInRange(acc Accumulator, filter Predicate, rng DateRange, records []Record) (decimal.Decimal, bool, error) {
	if err := q.check(rng); err != nil {
		return decimal.Zero, false, err
	}
	if !rng.Selected() {
		_, err := q.agg.Scalar(acc, filter, nil)
		return decimal.Zero, false, err
	}
	v, err := q.agg.Scalar(acc, filter, q.Filter(rng, records))
	return v, true, err
}
