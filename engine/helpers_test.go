package engine_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tally/engine"
	"github.com/warp/tally/engine/store"
)

// =============================================================================
// TEST SCHEMA - A small order table exercising every engine feature
// =============================================================================

var testStatuses = []string{"Confirmed", "Pending", "Cancelled", "Completed"}

func testSchemaDef() engine.SchemaDef {
	return engine.SchemaDef{
		Name:           "orders",
		KeyPrefix:      "ST",
		TriggerField:   "Timestamp",
		TimestampField: "Timestamp",
		StatusField:    "Status",
		Fields: []engine.FieldDef{
			{Name: "Timestamp", Type: engine.TypeDate},
			{Name: "Customer", Type: engine.TypeText},
			{Name: "Status", Type: engine.TypeEnum, Domain: testStatuses, Required: true},
			{Name: "Area", Type: engine.TypeEnum, Domain: []string{"North", "South"}, GroupKey: true},
			{Name: "Source", Type: engine.TypeText, GroupKey: true},
			{Name: "BaseAmount", Type: engine.TypeCurrency},
			{Name: "TaxRate", Type: engine.TypePercent},
			{Name: "TaxAmount", Type: engine.TypeDerived, Expr: "BaseAmount * TaxRate", Result: engine.TypeCurrency},
			{Name: "GrandTotal", Type: engine.TypeDerived, Expr: "BaseAmount + TaxAmount", Result: engine.TypeCurrency},
			{Name: "Advance", Type: engine.TypeCurrency},
			{Name: "PaymentStatus", Type: engine.TypeEnum, Domain: []string{"Received", "Pending"}},
			{Name: "PendingBalance", Type: engine.TypeDerived, Result: engine.TypeCurrency,
				Expr: `if(isblank(GrandTotal), blank(), if(PaymentStatus == "Received", 0, GrandTotal - coalesce(Advance, 0)))`},
			{Name: "ServiceTotal", Type: engine.TypeDerived, Expr: "sum(services)", Result: engine.TypeCurrency},
			{Name: "ServiceCount", Type: engine.TypeDerived, Expr: "count(services)"},
			{Name: "Invoice", Type: engine.TypeDerived, Expr: `seqid("INV")`, Result: engine.TypeText},
		},
		SlotGroups: []engine.SlotGroupDef{
			{Name: "services", MaxSlots: 4, CategoryDomain: []string{"Cleaning", "Painting", "Plumbing"}},
		},
	}
}

func testSchema(t *testing.T) *engine.Schema {
	t.Helper()
	s, err := engine.NewSchema(testSchemaDef())
	require.NoError(t, err)
	return s
}

func newTestContext(t *testing.T, opts ...engine.Option) *engine.EngineContext {
	t.Helper()
	return engine.NewContext(testSchema(t), store.NewMemory(), opts...)
}

// =============================================================================
// HELPERS
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func slot(category, value string) engine.RawSubEntry {
	return engine.RawSubEntry{Category: category, Value: value}
}

func raw(fields map[string]string, slots ...engine.RawSubEntry) engine.RawRecord {
	r := engine.RawRecord{Fields: fields}
	if len(slots) > 0 {
		r.Slots = map[string][]engine.RawSubEntry{"services": slots}
	}
	return r
}

func mustInsert(t *testing.T, c *engine.EngineContext, fields map[string]string, slots ...engine.RawSubEntry) engine.Record {
	t.Helper()
	rec, err := c.Insert(context.Background(), raw(fields, slots...))
	require.NoError(t, err)
	return rec
}

func assertNumber(t *testing.T, want string, got engine.Value) {
	t.Helper()
	require.True(t, got.IsNumber(), "expected a number, got %s %q", got.Kind, got.String())
	assert.True(t, dec(want).Equal(got.Num), "want %s, got %s", want, got.Num)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func assertSameValues(t *testing.T, want, got engine.Record) {
	t.Helper()
	require.Len(t, got.Values, len(want.Values))
	for name, v := range want.Values {
		assert.True(t, v.Equal(got.Value(name)), "field %s: %q vs %q", name, v, got.Value(name))
	}
	assert.Equal(t, want.Tag, got.Tag)
	assert.Len(t, got.Warnings, len(want.Warnings))
}
