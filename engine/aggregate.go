/*
aggregate.go - Grouped counts, sums and averages

PURPOSE:
  Turns the current record set into summary tables. Every call scans the
  records it is given; there is no cache, so a result always reflects the
  store at the moment of the call.

GROUPING:
  - Categorical field: one contribution per record, bucketed by its value.
  - Slot group: one contribution per populated slot, bucketed by the slot's
    category. A record with two Cleaning slots adds two to the Cleaning
    bucket. This double counting is intended.

BUCKET ORDER:
  Enum and slot-group buckets follow the declared domain and are all present,
  even at zero. Text group keys have no domain; their buckets appear in
  first-seen order. Blank group values contribute to no bucket.

TOTAL:
  Count and sum columns total to the column-wise sum of their buckets. An
  average column totals to the average over every contribution.

EXAMPLE:
  table, _ := agg.Table(engine.TableSpec{
      Group: "OrderSource",
      Columns: []engine.Column{
          {Name: "Total", Acc: engine.Count()},
          {Name: "Revenue", Acc: engine.Sum("PaymentValue", engine.Eq("PaymentStatus", "Received"))},
      },
  }, records)
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCUMULATORS
// =============================================================================

type AccKind string

const (
	AccCount AccKind = "count"
	AccSum   AccKind = "sum"
	AccAvg   AccKind = "avg"
)

// Accumulator folds contributions into a number. Field names the numeric
// value for sum/avg; when grouping by a slot group an empty Field means the
// slot's own value. Where, if set, restricts which records contribute.
type Accumulator struct {
	Kind  AccKind
	Field string
	Where Predicate
}

func Count() Accumulator                { return Accumulator{Kind: AccCount} }
func CountWhere(p Predicate) Accumulator { return Accumulator{Kind: AccCount, Where: p} }

func Sum(field string, where Predicate) Accumulator {
	return Accumulator{Kind: AccSum, Field: field, Where: where}
}

func Avg(field string, where Predicate) Accumulator {
	return Accumulator{Kind: AccAvg, Field: field, Where: where}
}

type cell struct {
	sum decimal.Decimal
	n   int64
}

func (c cell) result(kind AccKind) decimal.Decimal {
	switch kind {
	case AccCount:
		return decimal.NewFromInt(c.n)
	case AccAvg:
		if c.n == 0 {
			return decimal.Zero
		}
		return c.sum.DivRound(decimal.NewFromInt(c.n), 2)
	default:
		return c.sum
	}
}

// add folds one contribution. slotValue is used when acc.Field is empty.
func (c *cell) add(acc Accumulator, rec Record, slotValue Value) {
	if acc.Where != nil && !acc.Where.Match(rec) {
		return
	}
	if acc.Kind == AccCount {
		c.n++
		return
	}
	v := slotValue
	if acc.Field != "" {
		v = rec.Value(acc.Field)
	}
	if !v.IsNumber() {
		return
	}
	c.sum = c.sum.Add(v.Num)
	c.n++
}

// =============================================================================
// SPECS AND RESULTS
// =============================================================================

// AggregationSpec is a single-column grouping.
type AggregationSpec struct {
	Name   string
	Group  string
	Filter Predicate
	Acc    Accumulator
}

type Column struct {
	Name string
	Acc  Accumulator
}

// TableSpec groups once and evaluates several accumulators per bucket.
type TableSpec struct {
	Name    string
	Group   string
	Filter  Predicate
	Columns []Column
}

type Row struct {
	Key    string
	Values []decimal.Decimal
}

type Table struct {
	Name    string
	Group   string
	Columns []string
	Rows    []Row
	Total   Row
}

// Cell returns the value at (key, column); key "TOTAL" addresses the total row.
func (t Table) Cell(key, column string) (decimal.Decimal, bool) {
	col := -1
	for i, c := range t.Columns {
		if c == column {
			col = i
		}
	}
	if col < 0 {
		return decimal.Zero, false
	}
	if key == TotalKey {
		return t.Total.Values[col], true
	}
	for _, r := range t.Rows {
		if r.Key == key {
			return r.Values[col], true
		}
	}
	return decimal.Zero, false
}

// TotalKey labels the implicit total row.
const TotalKey = "TOTAL"

type Bucket struct {
	Key   string
	Value decimal.Decimal
}

type Result struct {
	Name    string
	Group   string
	Buckets []Bucket
	Total   decimal.Decimal
}

// Get returns a bucket's value, zero when the key is not a bucket.
func (r Result) Get(key string) decimal.Decimal {
	for _, b := range r.Buckets {
		if b.Key == key {
			return b.Value
		}
	}
	return decimal.Zero
}

// =============================================================================
// AGGREGATION ENGINE
// =============================================================================

type AggregationEngine struct {
	schema *Schema
}

func NewAggregationEngine(schema *Schema) *AggregationEngine {
	return &AggregationEngine{schema: schema}
}

// Aggregate computes one grouped column.
func (a *AggregationEngine) Aggregate(spec AggregationSpec, records []Record) (Result, error) {
	t, err := a.Table(TableSpec{
		Name:    spec.Name,
		Group:   spec.Group,
		Filter:  spec.Filter,
		Columns: []Column{{Name: spec.Name, Acc: spec.Acc}},
	}, records)
	if err != nil {
		return Result{}, err
	}
	res := Result{Name: t.Name, Group: t.Group, Total: t.Total.Values[0]}
	for _, r := range t.Rows {
		res.Buckets = append(res.Buckets, Bucket{Key: r.Key, Value: r.Values[0]})
	}
	return res, nil
}

// Table computes several grouped columns in one scan.
func (a *AggregationEngine) Table(spec TableSpec, records []Record) (Table, error) {
	if err := a.ValidateTable(spec); err != nil {
		return Table{}, err
	}

	group, isSlot := a.schema.SlotGroup(spec.Group)
	keys, fixed := a.schema.Domain(spec.Group)
	index := make(map[string]int, len(keys))
	for i, k := range keys {
		index[k] = i
	}
	cells := make([][]cell, len(keys))
	for i := range cells {
		cells[i] = make([]cell, len(spec.Columns))
	}
	totals := make([]cell, len(spec.Columns))

	bucket := func(key string) int {
		if i, ok := index[key]; ok {
			return i
		}
		if fixed {
			return -1
		}
		keys = append(keys, key)
		cells = append(cells, make([]cell, len(spec.Columns)))
		index[key] = len(keys) - 1
		return len(keys) - 1
	}
	contribute := func(key string, rec Record, slotValue Value) {
		i := bucket(key)
		if i < 0 {
			return
		}
		for c, col := range spec.Columns {
			cells[i][c].add(col.Acc, rec, slotValue)
			totals[c].add(col.Acc, rec, slotValue)
		}
	}

	for _, rec := range records {
		if spec.Filter != nil && !spec.Filter.Match(rec) {
			continue
		}
		if isSlot {
			for _, e := range rec.Slots[group.Name] {
				contribute(e.Category, rec, e.Value)
			}
			continue
		}
		if v := rec.Value(spec.Group); !v.IsBlank() {
			contribute(v.String(), rec, Blank())
		}
	}

	t := Table{Name: spec.Name, Group: spec.Group, Total: Row{Key: TotalKey}}
	for _, col := range spec.Columns {
		t.Columns = append(t.Columns, col.Name)
	}
	for i, k := range keys {
		row := Row{Key: k}
		for c, col := range spec.Columns {
			row.Values = append(row.Values, cells[i][c].result(col.Acc.Kind))
		}
		t.Rows = append(t.Rows, row)
	}
	for c, col := range spec.Columns {
		if col.Acc.Kind == AccAvg {
			t.Total.Values = append(t.Total.Values, totals[c].result(AccAvg))
			continue
		}
		sum := decimal.Zero
		for _, r := range t.Rows {
			sum = sum.Add(r.Values[c])
		}
		t.Total.Values = append(t.Total.Values, sum)
	}
	return t, nil
}

// Scalar folds one accumulator over every record that passes filter.
func (a *AggregationEngine) Scalar(acc Accumulator, filter Predicate, records []Record) (decimal.Decimal, error) {
	if err := a.validateAcc(acc, false); err != nil {
		return decimal.Zero, err
	}
	if err := a.validatePredicate(filter); err != nil {
		return decimal.Zero, err
	}
	var c cell
	for _, rec := range records {
		if filter != nil && !filter.Match(rec) {
			continue
		}
		c.add(acc, rec, Blank())
	}
	return c.result(acc.Kind), nil
}

// ValidateTable checks a spec against the schema without running it.
func (a *AggregationEngine) ValidateTable(spec TableSpec) error {
	_, isSlot := a.schema.SlotGroup(spec.Group)
	if !isSlot {
		f, ok := a.schema.Field(spec.Group)
		if !ok {
			return fmt.Errorf("%w: unknown group %q", ErrInvalidAggregation, spec.Group)
		}
		if !f.GroupKey && f.Name != a.schema.StatusField() {
			return fmt.Errorf("%w: %q is not a group key", ErrInvalidAggregation, spec.Group)
		}
	}
	if len(spec.Columns) == 0 {
		return fmt.Errorf("%w: table %q has no columns", ErrInvalidAggregation, spec.Name)
	}
	if err := a.validatePredicate(spec.Filter); err != nil {
		return err
	}
	for _, col := range spec.Columns {
		if err := a.validateAcc(col.Acc, isSlot); err != nil {
			return fmt.Errorf("column %q: %w", col.Name, err)
		}
	}
	return nil
}

func (a *AggregationEngine) validateAcc(acc Accumulator, slotGroup bool) error {
	switch acc.Kind {
	case AccCount:
	case AccSum, AccAvg:
		if acc.Field == "" {
			if !slotGroup {
				return fmt.Errorf("%w: %s needs a value field", ErrInvalidAggregation, acc.Kind)
			}
			break
		}
		f, ok := a.schema.Field(acc.Field)
		if !ok {
			return fmt.Errorf("%w: unknown value field %q", ErrInvalidAggregation, acc.Field)
		}
		if !f.ValueType().IsNumeric() {
			return fmt.Errorf("%w: %q is not numeric", ErrInvalidAggregation, acc.Field)
		}
	default:
		return fmt.Errorf("%w: unknown accumulator %q", ErrInvalidAggregation, acc.Kind)
	}
	return a.validatePredicate(acc.Where)
}

func (a *AggregationEngine) validatePredicate(p Predicate) error {
	if p == nil {
		return nil
	}
	for _, name := range p.Fields() {
		if _, ok := a.schema.Field(name); !ok {
			return fmt.Errorf("%w: predicate on unknown field %q", ErrInvalidAggregation, name)
		}
	}
	return nil
}
