/*
Package factory converts schema and dashboard documents into engine types.

PURPOSE:
  Lets a tracker be configured without code changes. A document declares
  the fields, derived expressions, slot groups and dashboard of a table in
  YAML (or JSON), and the factory builds the engine.SchemaDef and
  engine.DashboardSpec from it. The built-in trackers are registered as
  presets, so a document is only needed for custom tables.

DOCUMENT:
  schema:
    name: orders
    key_prefix: ST
    trigger: Timestamp
    timestamp: Timestamp
    status: Status
    fields:
      - {name: Timestamp, type: date}
      - {name: Status, type: enum, domain: [Pending, Completed], required: true}
      - {name: Base, type: currency}
      - {name: Total, type: derived, expr: "Base * 1.18", result: currency}
    slot_groups:
      - {name: Services, max_slots: 4, categories: [Cleaning, Painting]}
  dashboard:
    name: orders
    tables:
      - name: by_status
        group: Status
        columns:
          - {name: Orders, kind: count}
          - {name: Revenue, kind: sum, field: Total, where: {op: eq, field: Status, value: Completed}}
    kpis:
      - {name: Orders, kind: count, reconcile: {table: by_status, column: Orders}}
    range:
      kpis:
        - {name: Orders, kind: count}

PREDICATES:
  {op: eq|ne, field, value}    {op: in, field, values}
  {op: has_value, field}       {op: gt, field, value}
  {op: tag_in, values}         {op: and|or, args}     {op: not, args: [one]}

SEE ALSO:
  - presets.go: built-in leads, income, payroll and contractor trackers
  - engine/schema.go: what NewSchema checks once the document is converted
*/
package factory

import "github.com/warp/tally/engine"

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// Document is one configuration file: a schema and, optionally, its dashboard.
type Document struct {
	Schema    SchemaDoc     `json:"schema" yaml:"schema"`
	Dashboard *DashboardDoc `json:"dashboard,omitempty" yaml:"dashboard,omitempty"`
}

type SchemaDoc struct {
	Name       string         `json:"name" yaml:"name"`
	KeyPrefix  string         `json:"key_prefix" yaml:"key_prefix"`
	KeyWidth   int            `json:"key_width,omitempty" yaml:"key_width,omitempty"`
	Trigger    string         `json:"trigger" yaml:"trigger"`
	Timestamp  string         `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Status     string         `json:"status,omitempty" yaml:"status,omitempty"`
	Fields     []FieldDoc     `json:"fields" yaml:"fields"`
	SlotGroups []SlotGroupDoc `json:"slot_groups,omitempty" yaml:"slot_groups,omitempty"`
}

type FieldDoc struct {
	Name     string   `json:"name" yaml:"name"`
	Type     string   `json:"type" yaml:"type"`
	Domain   []string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Expr     string   `json:"expr,omitempty" yaml:"expr,omitempty"`
	Result   string   `json:"result,omitempty" yaml:"result,omitempty"`
	Required bool     `json:"required,omitempty" yaml:"required,omitempty"`
	GroupKey bool     `json:"group_key,omitempty" yaml:"group_key,omitempty"`
}

type SlotGroupDoc struct {
	Name       string   `json:"name" yaml:"name"`
	MaxSlots   int      `json:"max_slots" yaml:"max_slots"`
	Categories []string `json:"categories" yaml:"categories"`
	ValueType  string   `json:"value_type,omitempty" yaml:"value_type,omitempty"`
}

type DashboardDoc struct {
	Name   string     `json:"name" yaml:"name"`
	Tables []TableDoc `json:"tables,omitempty" yaml:"tables,omitempty"`
	KPIs   []KPIDoc   `json:"kpis,omitempty" yaml:"kpis,omitempty"`
	Range  RangeDoc   `json:"range,omitempty" yaml:"range,omitempty"`
}

type RangeDoc struct {
	KPIs   []KPIDoc   `json:"kpis,omitempty" yaml:"kpis,omitempty"`
	Tables []TableDoc `json:"tables,omitempty" yaml:"tables,omitempty"`
}

type TableDoc struct {
	Name    string        `json:"name" yaml:"name"`
	Group   string        `json:"group" yaml:"group"`
	Filter  *PredicateDoc `json:"filter,omitempty" yaml:"filter,omitempty"`
	Columns []ColumnDoc   `json:"columns" yaml:"columns"`
}

// AccDoc is an accumulator: kind count, sum or avg.
type AccDoc struct {
	Kind  string        `json:"kind" yaml:"kind"`
	Field string        `json:"field,omitempty" yaml:"field,omitempty"`
	Where *PredicateDoc `json:"where,omitempty" yaml:"where,omitempty"`
}

type ColumnDoc struct {
	Name   string `json:"name" yaml:"name"`
	AccDoc `json:",inline" yaml:",inline"`
}

type KPIDoc struct {
	Name      string        `json:"name" yaml:"name"`
	AccDoc    `json:",inline" yaml:",inline"`
	Filter    *PredicateDoc `json:"filter,omitempty" yaml:"filter,omitempty"`
	Reconcile *ColumnRefDoc `json:"reconcile,omitempty" yaml:"reconcile,omitempty"`
}

type ColumnRefDoc struct {
	Table  string `json:"table" yaml:"table"`
	Column string `json:"column" yaml:"column"`
}

type PredicateDoc struct {
	Op     string         `json:"op" yaml:"op"`
	Field  string         `json:"field,omitempty" yaml:"field,omitempty"`
	Value  string         `json:"value,omitempty" yaml:"value,omitempty"`
	Values []string       `json:"values,omitempty" yaml:"values,omitempty"`
	Args   []PredicateDoc `json:"args,omitempty" yaml:"args,omitempty"`
}

// RecordsDoc is a batch of raw records, e.g. for the dashboard command.
type RecordsDoc struct {
	Records []engine.RawRecord `json:"records" yaml:"records"`
}
