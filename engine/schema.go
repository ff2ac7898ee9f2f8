/*
schema.go - Field definitions and derivation order

PURPOSE:
  A Schema is the static description of one table: its fields, their types,
  enum domains, derivation expressions and slot groups. It is built once,
  validated completely, and never changes afterwards.

BUILD-TIME GUARANTEES:
  - Field and slot-group names are unique identifiers
  - Every enum has a non-empty domain without duplicates
  - Every derivation parses and references only known names
  - Slot groups appear only as arguments of sum/count/avg/min/max
  - The derived fields form a DAG; DerivedOrder() is a topological order

  Any violation is a *SchemaError and the Schema is not returned.

SEE ALSO:
  - expr.go: the expression language
  - derive.go: evaluates DerivedOrder() per record
*/
package engine

import (
	"fmt"
	"strings"
)

type FieldType string

const (
	TypeText     FieldType = "text"
	TypeNumber   FieldType = "number"
	TypeCurrency FieldType = "currency"
	TypePercent  FieldType = "percent"
	TypeDate     FieldType = "date"
	TypeEnum     FieldType = "enum"
	TypeDerived  FieldType = "derived"
)

// IsNumeric reports whether values of this type are decimals.
func (t FieldType) IsNumeric() bool {
	return t == TypeNumber || t == TypeCurrency || t == TypePercent
}

// =============================================================================
// DEFINITIONS - What callers hand to NewSchema
// =============================================================================

// FieldDef declares one field. Domain applies to enums, Expr and Result to
// derived fields (Result defaults to number).
type FieldDef struct {
	Name     string
	Type     FieldType
	Domain   []string
	Expr     string
	Result   FieldType
	Required bool
	GroupKey bool
}

// SlotGroupDef declares a repeated (category, value) sub-entry, e.g. up to
// four Service/Price pairs. ValueType defaults to currency.
type SlotGroupDef struct {
	Name           string
	MaxSlots       int
	CategoryDomain []string
	ValueType      FieldType
}

// SchemaDef is the complete, unvalidated table definition.
type SchemaDef struct {
	Name string

	// KeyPrefix and KeyWidth shape the human-readable key, e.g. ST-0001.
	KeyPrefix string
	KeyWidth  int

	// TriggerField must be non-blank for a record to be accepted and to
	// consume a sequence number.
	TriggerField string

	// TimestampField is the date field range queries filter on.
	TimestampField string

	// StatusField is the enum the classifier reads.
	StatusField string

	Fields     []FieldDef
	SlotGroups []SlotGroupDef
}

// =============================================================================
// SCHEMA - Validated and compiled
// =============================================================================

type Field struct {
	FieldDef
	expr  *Expr
	deps  []string
	index int
}

func (f *Field) IsDerived() bool { return f.Type == TypeDerived }

// ValueType is the declared type for raw fields and the result type for
// derived fields.
func (f *Field) ValueType() FieldType {
	if f.IsDerived() {
		return f.Result
	}
	return f.Type
}

// Compiled returns the parsed derivation, nil for raw fields.
func (f *Field) Compiled() *Expr { return f.expr }

// Deps lists the derived fields this field reads.
func (f *Field) Deps() []string { return f.deps }

type SlotGroup struct {
	SlotGroupDef
	domain map[string]bool
}

func (g *SlotGroup) InDomain(category string) bool { return g.domain[category] }

type Schema struct {
	def       SchemaDef
	fields    []*Field
	byName    map[string]*Field
	groups    []*SlotGroup
	groupByNm map[string]*SlotGroup
	domains   map[string]map[string]bool
	order     []*Field
}

// NewSchema validates def and compiles its derivations.
func NewSchema(def SchemaDef) (*Schema, error) {
	s := &Schema{
		def:       def,
		byName:    make(map[string]*Field),
		groupByNm: make(map[string]*SlotGroup),
		domains:   make(map[string]map[string]bool),
	}
	if def.KeyWidth <= 0 {
		s.def.KeyWidth = 4
	}
	if strings.TrimSpace(def.KeyPrefix) == "" {
		return nil, &SchemaError{Kind: SchemaInvalidField, Detail: "key prefix is required"}
	}

	for i, fd := range def.Fields {
		if err := s.addField(i, fd); err != nil {
			return nil, err
		}
	}
	for _, gd := range def.SlotGroups {
		if err := s.addSlotGroup(gd); err != nil {
			return nil, err
		}
	}
	if err := s.checkRoles(); err != nil {
		return nil, err
	}
	for _, f := range s.fields {
		if f.IsDerived() {
			if err := s.compile(f); err != nil {
				return nil, err
			}
		}
	}
	if err := s.sortDerived(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Schema) taken(name string) bool {
	_, f := s.byName[name]
	_, g := s.groupByNm[name]
	return f || g
}

func (s *Schema) addField(i int, fd FieldDef) error {
	if !IsIdentifier(fd.Name) {
		return &SchemaError{Kind: SchemaInvalidField, Field: fd.Name, Detail: "name must be an identifier"}
	}
	if s.taken(fd.Name) {
		return &SchemaError{Kind: SchemaDuplicateField, Field: fd.Name, Detail: "declared twice"}
	}

	switch fd.Type {
	case TypeText, TypeNumber, TypeCurrency, TypePercent, TypeDate:
	case TypeEnum:
		set, err := domainSet(fd.Domain)
		if err != nil {
			return &SchemaError{Kind: SchemaInvalidField, Field: fd.Name, Detail: err.Error()}
		}
		s.domains[fd.Name] = set
	case TypeDerived:
		if strings.TrimSpace(fd.Expr) == "" {
			return &SchemaError{Kind: SchemaInvalidExpression, Field: fd.Name, Detail: "derived field without expression"}
		}
		if fd.Result == "" {
			fd.Result = TypeNumber
		}
		switch fd.Result {
		case TypeText, TypeNumber, TypeCurrency, TypePercent, TypeDate:
		default:
			return &SchemaError{Kind: SchemaInvalidField, Field: fd.Name, Detail: fmt.Sprintf("unsupported result type %q", fd.Result)}
		}
		if fd.Required {
			return &SchemaError{Kind: SchemaInvalidField, Field: fd.Name, Detail: "derived fields cannot be required"}
		}
	default:
		return &SchemaError{Kind: SchemaInvalidField, Field: fd.Name, Detail: fmt.Sprintf("unknown type %q", fd.Type)}
	}
	if fd.Type != TypeEnum && len(fd.Domain) > 0 {
		return &SchemaError{Kind: SchemaInvalidField, Field: fd.Name, Detail: "only enum fields carry a domain"}
	}
	if fd.Type != TypeDerived && fd.Expr != "" {
		return &SchemaError{Kind: SchemaInvalidField, Field: fd.Name, Detail: "only derived fields carry an expression"}
	}

	f := &Field{FieldDef: fd, index: i}
	if f.GroupKey && f.ValueType() != TypeEnum && f.ValueType() != TypeText {
		return &SchemaError{Kind: SchemaInvalidField, Field: fd.Name, Detail: "group keys must be enum or text"}
	}
	s.fields = append(s.fields, f)
	s.byName[fd.Name] = f
	return nil
}

func (s *Schema) addSlotGroup(gd SlotGroupDef) error {
	if !IsIdentifier(gd.Name) {
		return &SchemaError{Kind: SchemaInvalidSlotGroup, Field: gd.Name, Detail: "name must be an identifier"}
	}
	if s.taken(gd.Name) {
		return &SchemaError{Kind: SchemaDuplicateField, Field: gd.Name, Detail: "declared twice"}
	}
	if gd.MaxSlots <= 0 {
		return &SchemaError{Kind: SchemaInvalidSlotGroup, Field: gd.Name, Detail: "max slots must be positive"}
	}
	if gd.ValueType == "" {
		gd.ValueType = TypeCurrency
	}
	if !gd.ValueType.IsNumeric() {
		return &SchemaError{Kind: SchemaInvalidSlotGroup, Field: gd.Name, Detail: "slot values must be numeric"}
	}
	set, err := domainSet(gd.CategoryDomain)
	if err != nil {
		return &SchemaError{Kind: SchemaInvalidSlotGroup, Field: gd.Name, Detail: err.Error()}
	}
	g := &SlotGroup{SlotGroupDef: gd, domain: set}
	s.groups = append(s.groups, g)
	s.groupByNm[gd.Name] = g
	s.domains[gd.Name] = set
	return nil
}

func domainSet(values []string) (map[string]bool, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("empty domain")
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" {
			return nil, fmt.Errorf("empty domain value")
		}
		if set[v] {
			return nil, fmt.Errorf("duplicate domain value %q", v)
		}
		set[v] = true
	}
	return set, nil
}

func (s *Schema) checkRoles() error {
	trig, ok := s.byName[s.def.TriggerField]
	if !ok {
		return &SchemaError{Kind: SchemaUnknownField, Field: s.def.TriggerField, Detail: "trigger field is not declared"}
	}
	if trig.IsDerived() {
		return &SchemaError{Kind: SchemaInvalidField, Field: trig.Name, Detail: "trigger field cannot be derived"}
	}
	trig.Required = true

	if name := s.def.TimestampField; name != "" {
		f, ok := s.byName[name]
		if !ok {
			return &SchemaError{Kind: SchemaUnknownField, Field: name, Detail: "timestamp field is not declared"}
		}
		if f.ValueType() != TypeDate {
			return &SchemaError{Kind: SchemaInvalidField, Field: name, Detail: "timestamp field must be a date"}
		}
	}
	if name := s.def.StatusField; name != "" {
		f, ok := s.byName[name]
		if !ok {
			return &SchemaError{Kind: SchemaUnknownField, Field: name, Detail: "status field is not declared"}
		}
		if f.Type != TypeEnum {
			return &SchemaError{Kind: SchemaInvalidField, Field: name, Detail: "status field must be an enum"}
		}
	}
	return nil
}

// compile parses a derivation and resolves its references.
func (s *Schema) compile(f *Field) error {
	expr, err := ParseExpr(f.Expr)
	if err != nil {
		return &SchemaError{Kind: SchemaInvalidExpression, Field: f.Name, Detail: err.Error()}
	}
	if err := s.checkNode(f.Name, expr.root, false); err != nil {
		return err
	}
	f.expr = expr
	for _, ref := range expr.Refs() {
		if dep, ok := s.byName[ref]; ok && dep.IsDerived() {
			f.deps = append(f.deps, ref)
		}
	}
	return nil
}

func (s *Schema) checkNode(owner string, n node, spreadArg bool) error {
	switch n := n.(type) {
	case *identNode:
		if _, ok := s.groupByNm[n.name]; ok {
			if !spreadArg {
				return &SchemaError{Kind: SchemaInvalidSlotGroup, Field: owner,
					Detail: fmt.Sprintf("slot group %s is only allowed inside sum, count, avg, min or max", n.name)}
			}
			return nil
		}
		if _, ok := s.byName[n.name]; !ok {
			return &SchemaError{Kind: SchemaUnknownField, Field: owner,
				Detail: fmt.Sprintf("references unknown field %s", n.name)}
		}
		return nil
	case *callNode:
		if err := checkCall(n); err != nil {
			return &SchemaError{Kind: SchemaInvalidExpression, Field: owner, Detail: err.Error()}
		}
		spread := functions[n.name].spread
		for _, a := range n.args {
			if err := s.checkNode(owner, a, spread); err != nil {
				return err
			}
		}
		return nil
	}
	for _, c := range n.children() {
		if err := s.checkNode(owner, c, false); err != nil {
			return err
		}
	}
	return nil
}

// sortDerived computes a topological order of the derived fields. Ties are
// broken by declaration order so the result is deterministic.
func (s *Schema) sortDerived() error {
	pending := make(map[string]int)
	var derived []*Field
	for _, f := range s.fields {
		if f.IsDerived() {
			derived = append(derived, f)
			pending[f.Name] = len(f.deps)
		}
	}

	done := make(map[string]bool)
	for len(s.order) < len(derived) {
		progressed := false
		for _, f := range derived {
			if done[f.Name] || pending[f.Name] > 0 {
				continue
			}
			done[f.Name] = true
			s.order = append(s.order, f)
			progressed = true
			for _, other := range derived {
				for _, d := range other.deps {
					if d == f.Name {
						pending[other.Name]--
					}
				}
			}
			break
		}
		if !progressed {
			var stuck []string
			for _, f := range derived {
				if !done[f.Name] {
					stuck = append(stuck, f.Name)
				}
			}
			return &SchemaError{Kind: SchemaCycle, Field: stuck[0],
				Detail: "derivation cycle among " + strings.Join(stuck, ", ")}
		}
	}
	return nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

func (s *Schema) Name() string           { return s.def.Name }
func (s *Schema) KeyPrefix() string      { return s.def.KeyPrefix }
func (s *Schema) TriggerField() string   { return s.def.TriggerField }
func (s *Schema) TimestampField() string { return s.def.TimestampField }
func (s *Schema) StatusField() string    { return s.def.StatusField }
func (s *Schema) Fields() []*Field       { return s.fields }
func (s *Schema) SlotGroups() []*SlotGroup {
	return s.groups
}

// DerivedOrder is the cached evaluation order of derived fields.
func (s *Schema) DerivedOrder() []*Field { return s.order }

// FormatKey renders the record key for a sequence number.
func (s *Schema) FormatKey(seq RecordID) string {
	return FormatKey(s.def.KeyPrefix, seq, s.def.KeyWidth)
}

func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

func (s *Schema) SlotGroup(name string) (*SlotGroup, bool) {
	g, ok := s.groupByNm[name]
	return g, ok
}

// Domain returns the declared values of an enum field or the category domain
// of a slot group, in declaration order.
func (s *Schema) Domain(name string) ([]string, bool) {
	if g, ok := s.groupByNm[name]; ok {
		return g.CategoryDomain, true
	}
	if f, ok := s.byName[name]; ok && f.Type == TypeEnum {
		return f.Domain, true
	}
	return nil, false
}

// InDomain reports whether value is allowed in the enum field or slot group.
func (s *Schema) InDomain(name, value string) bool {
	return s.domains[name][value]
}
