/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Records travel as cell
  text: every value is the canonical string the engine parses, so a client
  can send back exactly what it received. Display strings are extra.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Schema:     SchemaDTO, FieldDTO, SlotGroupDTO
  Records:    RecordDTO, SlotDTO, CreateRecordRequest, UpdateRecordRequest
  Dashboard:  SnapshotDTO, TableDTO, KPIDTO, RangeDTO
  Aggregate:  AggregateRequest
  Scenarios:  ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request shape is checked with validator struct tags. Cell content is
  checked by the engine, whose ValidationError becomes a 422.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/document.go: TableDoc, PredicateDoc
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/tally/engine"
	"github.com/warp/tally/factory"
)

const dateLayout = "2006-01-02"

// =============================================================================
// SCHEMA
// =============================================================================

type SchemaDTO struct {
	Name         string         `json:"name"`
	KeyPrefix    string         `json:"key_prefix"`
	Trigger      string         `json:"trigger"`
	Timestamp    string         `json:"timestamp,omitempty"`
	Status       string         `json:"status,omitempty"`
	Fields       []FieldDTO     `json:"fields"`
	SlotGroups   []SlotGroupDTO `json:"slot_groups,omitempty"`
	DerivedOrder []string       `json:"derived_order"`
	Tags         []string       `json:"tags"`
}

type FieldDTO struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Result   string   `json:"result,omitempty"`
	Domain   []string `json:"domain,omitempty"`
	Expr     string   `json:"expr,omitempty"`
	Required bool     `json:"required,omitempty"`
	GroupKey bool     `json:"group_key,omitempty"`
}

type SlotGroupDTO struct {
	Name       string   `json:"name"`
	MaxSlots   int      `json:"max_slots"`
	Categories []string `json:"categories"`
	ValueType  string   `json:"value_type"`
}

// =============================================================================
// RECORDS
// =============================================================================

// RecordDTO is one row of the render feed.
type RecordDTO struct {
	Seq       int64                `json:"seq"`
	Key       string               `json:"key"`
	Tag       string               `json:"tag"`
	Values    map[string]string    `json:"values"`
	Display   map[string]string    `json:"display,omitempty"`
	Slots     map[string][]SlotDTO `json:"slots,omitempty"`
	Warnings  []string             `json:"warnings,omitempty"`
	CreatedAt string               `json:"created_at"`
	UpdatedAt string               `json:"updated_at"`
}

type SlotDTO struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

// CreateRecordRequest carries the cell text of a new record.
type CreateRecordRequest struct {
	Fields map[string]string    `json:"fields" validate:"required,min=1"`
	Slots  map[string][]SlotDTO `json:"slots,omitempty"`
}

// UpdateRecordRequest changes the listed fields only; "" clears a field. A
// slot group that is present replaces the group's entries.
type UpdateRecordRequest struct {
	Fields map[string]string    `json:"fields" validate:"required_without=Slots"`
	Slots  map[string][]SlotDTO `json:"slots,omitempty"`
}

type ListRecordsResponse struct {
	Records []RecordDTO `json:"records"`
	Count   int         `json:"count"`
}

// =============================================================================
// DASHBOARD
// =============================================================================

type SnapshotDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	GeneratedAt string     `json:"generated_at"`
	RecordCount int        `json:"record_count"`
	KPIs        []KPIDTO   `json:"kpis"`
	Tables      []TableDTO `json:"tables"`
	Range       RangeDTO   `json:"range"`
	CrossCheck  []string   `json:"cross_check,omitempty"`
}

type KPIDTO struct {
	Name    string          `json:"name"`
	Value   decimal.Decimal `json:"value"`
	Display string          `json:"display"`
}

type TableDTO struct {
	Name    string   `json:"name"`
	Group   string   `json:"group"`
	Columns []string `json:"columns"`
	Rows    []RowDTO `json:"rows"`
	Total   RowDTO   `json:"total"`
}

type RowDTO struct {
	Key    string            `json:"key"`
	Values []decimal.Decimal `json:"values"`
}

// RangeDTO is the date-range section. Selected false means "no range
// chosen", which a renderer shows as a placeholder rather than zeros.
type RangeDTO struct {
	Selected bool       `json:"selected"`
	From     string     `json:"from,omitempty"`
	To       string     `json:"to,omitempty"`
	KPIs     []KPIDTO   `json:"kpis,omitempty"`
	Tables   []TableDTO `json:"tables,omitempty"`
}

// =============================================================================
// AGGREGATE
// =============================================================================

// AggregateRequest is an ad-hoc table. With from and to set it is restricted
// to that date range.
type AggregateRequest struct {
	Name    string                `json:"name"`
	Group   string                `json:"group" validate:"required"`
	Filter  *factory.PredicateDoc `json:"filter,omitempty"`
	Columns []factory.ColumnDoc   `json:"columns" validate:"required,min=1,dive"`
	From    string                `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To      string                `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (r AggregateRequest) tableDoc() factory.TableDoc {
	name := r.Name
	if name == "" {
		name = "adhoc"
	}
	return factory.TableDoc{Name: name, Group: r.Group, Filter: r.Filter, Columns: r.Columns}
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Records     int    `json:"records"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// ValidationErrorDTO is the body of a 422: which field of which record was
// rejected and why.
type ValidationErrorDTO struct {
	Kind    string `json:"kind"`
	Field   string `json:"field"`
	Record  int64  `json:"record,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// ValidationDetail describes one malformed request field.
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toRawRecord(fields map[string]string, slots map[string][]SlotDTO) engine.RawRecord {
	raw := engine.RawRecord{Fields: fields}
	if raw.Fields == nil {
		raw.Fields = map[string]string{}
	}
	if slots != nil {
		raw.Slots = make(map[string][]engine.RawSubEntry, len(slots))
		for name, entries := range slots {
			out := make([]engine.RawSubEntry, len(entries))
			for i, e := range entries {
				out[i] = engine.RawSubEntry{Category: e.Category, Value: e.Value}
			}
			raw.Slots[name] = out
		}
	}
	return raw
}

func toSchemaDTO(s *engine.Schema, tags []engine.Tag) SchemaDTO {
	dto := SchemaDTO{
		Name:      s.Name(),
		KeyPrefix: s.KeyPrefix(),
		Trigger:   s.TriggerField(),
		Timestamp: s.TimestampField(),
		Status:    s.StatusField(),
		Fields:    []FieldDTO{},
		Tags:      []string{},
	}
	for _, f := range s.Fields() {
		fd := FieldDTO{
			Name:     f.Name,
			Type:     string(f.Type),
			Domain:   f.Domain,
			Required: f.Required,
			GroupKey: f.GroupKey,
		}
		if f.IsDerived() {
			fd.Expr = f.Compiled().String()
			fd.Result = string(f.ValueType())
		}
		dto.Fields = append(dto.Fields, fd)
	}
	for _, g := range s.SlotGroups() {
		dto.SlotGroups = append(dto.SlotGroups, SlotGroupDTO{
			Name:       g.Name,
			MaxSlots:   g.MaxSlots,
			Categories: g.CategoryDomain,
			ValueType:  string(g.ValueType),
		})
	}
	for _, f := range s.DerivedOrder() {
		dto.DerivedOrder = append(dto.DerivedOrder, f.Name)
	}
	for _, t := range tags {
		dto.Tags = append(dto.Tags, string(t))
	}
	return dto
}

func toTableDTO(t engine.Table) TableDTO {
	dto := TableDTO{
		Name:    t.Name,
		Group:   t.Group,
		Columns: t.Columns,
		Rows:    make([]RowDTO, len(t.Rows)),
		Total:   RowDTO{Key: engine.TotalKey, Values: t.Total.Values},
	}
	for i, r := range t.Rows {
		dto.Rows[i] = RowDTO{Key: r.Key, Values: r.Values}
	}
	return dto
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
