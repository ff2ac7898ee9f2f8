package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// DASHBOARD - Named tables and KPIs in one snapshot
// =============================================================================

// ColumnRef points at a table column whose TOTAL a KPI must equal.
type ColumnRef struct {
	Table  string
	Column string
}

// KPISpec is a scalar over the whole record set. Reconcile, if set, names
// the table column it is cross-checked against.
type KPISpec struct {
	Name      string
	Acc       Accumulator
	Filter    Predicate
	Reconcile *ColumnRef
}

// RangeSpec is the part of a dashboard restricted to the caller's range.
type RangeSpec struct {
	KPIs   []KPISpec
	Tables []TableSpec
}

type DashboardSpec struct {
	Name   string
	Tables []TableSpec
	KPIs   []KPISpec
	Range  RangeSpec
}

type KPI struct {
	Name      string
	Value     decimal.Decimal
	Reconcile *ColumnRef
}

// RangeSection holds range-restricted values. When Selected is false the
// renderer shows a placeholder and KPIs/Tables are empty.
type RangeSection struct {
	Selected bool
	Range    DateRange
	KPIs     []KPI
	Tables   []Table
}

// Snapshot is one computed dashboard. It is a value: later writes to the
// store do not change it.
type Snapshot struct {
	ID          uuid.UUID
	Name        string
	GeneratedAt time.Time
	RecordCount int
	Tables      []Table
	KPIs        []KPI
	Range       RangeSection
}

func (s Snapshot) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

func (s Snapshot) KPI(name string) (decimal.Decimal, bool) {
	for _, k := range s.KPIs {
		if k.Name == name {
			return k.Value, true
		}
	}
	return decimal.Zero, false
}

// CrossCheck compares every reconciling KPI against its table column TOTAL.
// An empty result means the snapshot is internally consistent.
func (s Snapshot) CrossCheck() []error {
	var errs []error
	for _, k := range s.KPIs {
		if k.Reconcile == nil {
			continue
		}
		t, ok := s.Table(k.Reconcile.Table)
		if !ok {
			errs = append(errs, fmt.Errorf("kpi %q: no table %q", k.Name, k.Reconcile.Table))
			continue
		}
		total, ok := t.Cell(TotalKey, k.Reconcile.Column)
		if !ok {
			errs = append(errs, fmt.Errorf("kpi %q: table %q has no column %q", k.Name, t.Name, k.Reconcile.Column))
			continue
		}
		if !total.Equal(k.Value) {
			errs = append(errs, fmt.Errorf("kpi %q = %s but %s.%s TOTAL = %s",
				k.Name, k.Value, t.Name, k.Reconcile.Column, total))
		}
	}
	return errs
}

// DashboardModel composes aggregation and range results. It holds no state
// beyond its collaborators.
type DashboardModel struct {
	agg    *AggregationEngine
	ranges *RangeQueryEngine
	clock  func() time.Time
}

func NewDashboardModel(agg *AggregationEngine, ranges *RangeQueryEngine, clock func() time.Time) *DashboardModel {
	if clock == nil {
		clock = time.Now
	}
	return &DashboardModel{agg: agg, ranges: ranges, clock: clock}
}

// Build computes spec over records.
func (m *DashboardModel) Build(spec DashboardSpec, records []Record, rng DateRange) (Snapshot, error) {
	if err := rng.Validate(); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		ID:          uuid.New(),
		Name:        spec.Name,
		GeneratedAt: m.clock(),
		RecordCount: len(records),
		Range:       RangeSection{Selected: rng.Selected(), Range: rng},
	}

	for _, ts := range spec.Tables {
		t, err := m.agg.Table(ts, records)
		if err != nil {
			return Snapshot{}, fmt.Errorf("dashboard %q: %w", spec.Name, err)
		}
		snap.Tables = append(snap.Tables, t)
	}
	for _, ks := range spec.KPIs {
		v, err := m.agg.Scalar(ks.Acc, ks.Filter, records)
		if err != nil {
			return Snapshot{}, fmt.Errorf("dashboard %q kpi %q: %w", spec.Name, ks.Name, err)
		}
		snap.KPIs = append(snap.KPIs, KPI{Name: ks.Name, Value: v, Reconcile: ks.Reconcile})
	}

	for _, ks := range spec.Range.KPIs {
		v, selected, err := m.ranges.ScalarInRange(ks.Acc, ks.Filter, rng, records)
		if err != nil {
			return Snapshot{}, fmt.Errorf("dashboard %q range kpi %q: %w", spec.Name, ks.Name, err)
		}
		if selected {
			snap.Range.KPIs = append(snap.Range.KPIs, KPI{Name: ks.Name, Value: v})
		}
	}
	for _, ts := range spec.Range.Tables {
		t, selected, err := m.ranges.TableInRange(ts, rng, records)
		if err != nil {
			return Snapshot{}, fmt.Errorf("dashboard %q range table %q: %w", spec.Name, ts.Name, err)
		}
		if selected {
			snap.Range.Tables = append(snap.Range.Tables, t)
		}
	}
	return snap, nil
}
