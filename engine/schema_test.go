package engine_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tally/engine"
)

func baseDef(fields ...engine.FieldDef) engine.SchemaDef {
	return engine.SchemaDef{
		Name:         "t",
		KeyPrefix:    "T",
		TriggerField: "Key",
		Fields:       append([]engine.FieldDef{{Name: "Key", Type: engine.TypeText}}, fields...),
		SlotGroups: []engine.SlotGroupDef{
			{Name: "items", MaxSlots: 2, CategoryDomain: []string{"a", "b"}},
		},
	}
}

func derived(name, expr string) engine.FieldDef {
	return engine.FieldDef{Name: name, Type: engine.TypeDerived, Expr: expr}
}

func TestSchema_Errors(t *testing.T) {
	tests := []struct {
		name string
		def  engine.SchemaDef
		kind engine.SchemaErrorKind
	}{
		{
			name: "duplicate field",
			def:  baseDef(engine.FieldDef{Name: "Key", Type: engine.TypeNumber}),
			kind: engine.SchemaDuplicateField,
		},
		{
			name: "field shadows slot group",
			def:  baseDef(engine.FieldDef{Name: "items", Type: engine.TypeNumber}),
			kind: engine.SchemaDuplicateField,
		},
		{
			name: "unknown reference",
			def:  baseDef(derived("Total", "Price * 2")),
			kind: engine.SchemaUnknownField,
		},
		{
			name: "two-field cycle",
			def:  baseDef(derived("A", "B + 1"), derived("B", "A + 1")),
			kind: engine.SchemaCycle,
		},
		{
			name: "self reference",
			def:  baseDef(derived("A", "A + 1")),
			kind: engine.SchemaCycle,
		},
		{
			name: "slot group outside an aggregate",
			def:  baseDef(derived("A", "items + 1")),
			kind: engine.SchemaInvalidSlotGroup,
		},
		{
			name: "slot group nested inside an aggregate argument",
			def:  baseDef(derived("A", "sum(items * 2)")),
			kind: engine.SchemaInvalidSlotGroup,
		},
		{
			name: "unknown function",
			def:  baseDef(derived("A", "median(items)")),
			kind: engine.SchemaInvalidExpression,
		},
		{
			name: "wrong arity",
			def:  baseDef(derived("A", "if(1, 2)")),
			kind: engine.SchemaInvalidExpression,
		},
		{
			name: "syntax error",
			def:  baseDef(derived("A", "Key *")),
			kind: engine.SchemaInvalidExpression,
		},
		{
			name: "derived without expression",
			def:  baseDef(derived("A", "")),
			kind: engine.SchemaInvalidExpression,
		},
		{
			name: "enum without domain",
			def:  baseDef(engine.FieldDef{Name: "S", Type: engine.TypeEnum}),
			kind: engine.SchemaInvalidField,
		},
		{
			name: "enum with duplicate values",
			def:  baseDef(engine.FieldDef{Name: "S", Type: engine.TypeEnum, Domain: []string{"x", "x"}}),
			kind: engine.SchemaInvalidField,
		},
		{
			name: "numeric group key",
			def:  baseDef(engine.FieldDef{Name: "N", Type: engine.TypeNumber, GroupKey: true}),
			kind: engine.SchemaInvalidField,
		},
		{
			name: "name is not an identifier",
			def:  baseDef(engine.FieldDef{Name: "Total Value", Type: engine.TypeNumber}),
			kind: engine.SchemaInvalidField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.NewSchema(tt.def)

			require.Error(t, err)
			assert.True(t, errors.Is(err, engine.ErrSchema))
			var serr *engine.SchemaError
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, tt.kind, serr.Kind)
		})
	}
}

func TestSchema_RoleErrors(t *testing.T) {
	def := baseDef(engine.FieldDef{Name: "When", Type: engine.TypeText})
	def.TimestampField = "When"
	_, err := engine.NewSchema(def)
	assert.ErrorIs(t, err, engine.ErrSchema)

	def = baseDef()
	def.TriggerField = "Missing"
	_, err = engine.NewSchema(def)
	assert.ErrorIs(t, err, engine.ErrSchema)

	def = baseDef(engine.FieldDef{Name: "State", Type: engine.TypeText})
	def.StatusField = "State"
	_, err = engine.NewSchema(def)
	assert.ErrorIs(t, err, engine.ErrSchema)

	def = baseDef()
	def.KeyPrefix = ""
	_, err = engine.NewSchema(def)
	assert.ErrorIs(t, err, engine.ErrSchema)
}

func TestSchema_DerivedOrderIsTopological(t *testing.T) {
	// GIVEN: Derived fields declared in reverse dependency order
	def := baseDef(
		engine.FieldDef{Name: "Base", Type: engine.TypeCurrency},
		derived("Net", "Gross - Deductions"),
		derived("Deductions", "PF + ESI"),
		derived("ESI", "round(Gross * 0.0075)"),
		derived("PF", "round(Base * 0.12)"),
		derived("Gross", "Base"),
	)

	// WHEN: The schema is built
	s, err := engine.NewSchema(def)
	require.NoError(t, err)

	// THEN: Every field comes after the fields it reads
	pos := make(map[string]int)
	for i, f := range s.DerivedOrder() {
		pos[f.Name] = i
	}
	require.Len(t, pos, 5)
	for _, f := range s.DerivedOrder() {
		for _, dep := range f.Deps() {
			assert.Less(t, pos[dep], pos[f.Name], "%s must follow %s", f.Name, dep)
		}
	}

	// Ties resolve in declaration order
	var names []string
	for _, f := range s.DerivedOrder() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"PF", "Gross", "ESI", "Deductions", "Net"}, names)
}

func TestSchema_Accessors(t *testing.T) {
	s := testSchema(t)

	domain, ok := s.Domain("Status")
	require.True(t, ok)
	assert.Equal(t, testStatuses, domain)

	domain, ok = s.Domain("services")
	require.True(t, ok)
	assert.Equal(t, []string{"Cleaning", "Painting", "Plumbing"}, domain)

	_, ok = s.Domain("Customer")
	assert.False(t, ok)

	f, ok := s.Field("Timestamp")
	require.True(t, ok)
	assert.True(t, f.Required, "the trigger field is implicitly required")

	f, ok = s.Field("TaxAmount")
	require.True(t, ok)
	assert.Equal(t, engine.TypeCurrency, f.ValueType())
	assert.Equal(t, "BaseAmount * TaxRate", f.Expr, "declared text stays reachable next to the compiled form")
	assert.Equal(t, "BaseAmount * TaxRate", f.Compiled().String())
	assert.Equal(t, []string{"BaseAmount", "TaxRate"}, f.Compiled().Refs())

	assert.Equal(t, "ST-0042", s.FormatKey(42))
	assert.Equal(t, "ST-12345", s.FormatKey(12345))
}

func TestParseExpr_Strings(t *testing.T) {
	e, err := engine.ParseExpr(`if(Status == "Say \"hi\"", 1, 0)`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Status"}, e.Refs())

	_, err = engine.ParseExpr(`"open`)
	assert.Error(t, err)

	_, err = engine.ParseExpr(`A $ B`)
	assert.Error(t, err)
}
