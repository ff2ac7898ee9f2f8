package factory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tally/engine"
	"github.com/warp/tally/engine/store"
	"github.com/warp/tally/factory"
	"gopkg.in/yaml.v3"
)

const ordersYAML = `
schema:
  name: orders
  key_prefix: ORD
  trigger: Timestamp
  timestamp: Timestamp
  status: Status
  fields:
    - {name: Timestamp, type: date}
    - {name: Status, type: enum, domain: [Pending, Completed], required: true}
    - {name: Base, type: currency}
    - {name: Total, type: derived, expr: "round(Base * 1.18, 2)", result: currency}
  slot_groups:
    - {name: Services, max_slots: 2, categories: [Cleaning, Painting]}
dashboard:
  name: orders
  tables:
    - name: by_status
      group: Status
      columns:
        - {name: Orders, kind: count}
        - name: Revenue
          kind: sum
          field: Total
          where: {op: eq, field: Status, value: Completed}
    - name: by_service
      group: Services
      columns:
        - {name: Slots, kind: count}
        - {name: Value, kind: sum}
  kpis:
    - {name: Orders, kind: count, reconcile: {table: by_status, column: Orders}}
    - name: Big orders
      kind: count
      filter: {op: and, args: [{op: gt, field: Base, value: "1000"}, {op: not, args: [{op: tag_in, values: [Pending]}]}]}
  range:
    kpis:
      - {name: Orders, kind: count}
`

func buildOrders(t *testing.T) (*engine.Schema, engine.DashboardSpec) {
	t.Helper()
	f := factory.NewFactory()
	doc, err := f.ParseDocument([]byte(ordersYAML))
	require.NoError(t, err)
	schema, spec, err := f.Build(doc)
	require.NoError(t, err)
	return schema, spec
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func TestBuild_YAMLDocument(t *testing.T) {
	// GIVEN: A schema and dashboard declared in YAML
	schema, spec := buildOrders(t)
	c := engine.NewContext(schema, store.NewMemory())
	ctx := context.Background()

	// WHEN: Records are inserted
	for _, r := range []engine.RawRecord{
		{Fields: map[string]string{"Timestamp": "2025-01-01", "Status": "Completed", "Base": "2000"},
			Slots: map[string][]engine.RawSubEntry{"Services": {{Category: "Cleaning", Value: "2000"}}}},
		{Fields: map[string]string{"Timestamp": "2025-01-02", "Status": "Pending", "Base": "5000"}},
	} {
		_, err := c.Insert(ctx, r)
		require.NoError(t, err)
	}

	// THEN: Derived values and the dashboard follow the document
	rec, err := c.FindByKey(ctx, "ORD-0001")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("2360").Equal(rec.Value("Total").Num))

	snap, err := c.Dashboard(ctx, spec, engine.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, snap.CrossCheck())
	big, ok := snap.KPI("Big orders")
	require.True(t, ok)
	assert.True(t, big.Equal(decimal.NewFromInt(1)))
	byStatus, _ := snap.Table("by_status")
	revenue, _ := byStatus.Cell(engine.TotalKey, "Revenue")
	assert.True(t, revenue.Equal(decimal.NewFromInt(2360)))
}

func TestParseDocument_AcceptsJSON(t *testing.T) {
	doc, err := factory.NewFactory().ParseDocument([]byte(`{
  "schema": {
    "name": "notes", "key_prefix": "N", "trigger": "Title",
    "fields": [{"name": "Title", "type": "text"}, {"name": "Hours", "type": "number"}]
  }
}`))
	require.NoError(t, err)

	schema, spec, err := factory.NewFactory().Build(doc)
	require.NoError(t, err)
	assert.Equal(t, "N", schema.KeyPrefix())
	assert.Equal(t, "notes", spec.Name)
	assert.Empty(t, spec.Tables)
}

func TestBuild_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name:    "unknown field type",
			doc:     "schema: {name: x, key_prefix: X, trigger: A, fields: [{name: A, type: money}]}",
			wantErr: engine.ErrSchema,
		},
		{
			name:    "expression cycle",
			doc:     "schema: {name: x, key_prefix: X, trigger: A, fields: [{name: A, type: text}, {name: B, type: derived, expr: C}, {name: C, type: derived, expr: B}]}",
			wantErr: engine.ErrSchema,
		},
		{
			name: "unknown accumulator",
			doc: `
schema: {name: x, key_prefix: X, trigger: A, status: S, fields: [{name: A, type: text}, {name: S, type: enum, domain: [a]}]}
dashboard: {name: x, kpis: [{name: k, kind: median}]}`,
			wantErr: engine.ErrInvalidAggregation,
		},
		{
			name: "unknown predicate",
			doc: `
schema: {name: x, key_prefix: X, trigger: A, fields: [{name: A, type: text}]}
dashboard: {name: x, kpis: [{name: k, kind: count, filter: {op: like, field: A}}]}`,
			wantErr: engine.ErrInvalidAggregation,
		},
		{
			name: "group on a non-key field",
			doc: `
schema: {name: x, key_prefix: X, trigger: A, fields: [{name: A, type: text}]}
dashboard: {name: x, tables: [{name: t, group: A, columns: [{name: n, kind: count}]}]}`,
			wantErr: engine.ErrInvalidAggregation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := factory.NewFactory()
			doc, err := f.ParseDocument([]byte(tt.doc))
			require.NoError(t, err)

			_, _, err = f.Build(doc)

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseDocument_RejectsUnknownKeys(t *testing.T) {
	_, err := factory.NewFactory().ParseDocument([]byte("schema: {name: x, key_prefx: X}"))
	assert.Error(t, err)
}

func TestParseRecords(t *testing.T) {
	recs, err := factory.NewFactory().ParseRecords([]byte(`
records:
  - fields: {Timestamp: "2025-01-01", Status: Completed}
    slots:
      Services:
        - {category: Cleaning, value: "500"}
  - fields: {Timestamp: "2025-01-02", Status: Pending}
`))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Cleaning", recs[0].Slots["Services"][0].Category)
	assert.Equal(t, "Pending", recs[1].Fields["Status"])
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ordersYAML), 0o600))

	doc, err := factory.NewFactory().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ORD", doc.Schema.KeyPrefix)

	_, err = factory.NewFactory().LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// =============================================================================
// PRESETS
// =============================================================================

func TestPresets_AllBuildAndValidate(t *testing.T) {
	for _, name := range factory.PresetNames() {
		t.Run(name, func(t *testing.T) {
			schema, spec, err := factory.Resolve(name, "")
			require.NoError(t, err)
			assert.NoError(t, factory.ValidateDashboard(schema, spec))
		})
	}
	assert.Equal(t, []string{"contractor", "income", "leads", "payroll"}, factory.PresetNames())

	_, _, err := factory.Resolve("inventory", "")
	assert.Error(t, err)
}

func TestPreset_DocumentRebuildsSameSchema(t *testing.T) {
	// GIVEN: The leads preset exported as a YAML document
	p, err := factory.LookupPreset("leads")
	require.NoError(t, err)
	out, err := yaml.Marshal(p.Document())
	require.NoError(t, err)

	// WHEN: The document is loaded back as a schema file
	path := filepath.Join(t.TempDir(), "leads.yaml")
	require.NoError(t, os.WriteFile(path, out, 0o600))
	schema, _, err := factory.Resolve("", path)
	require.NoError(t, err)

	// THEN: It compiles to the same derivation order
	want, err := engine.NewSchema(p.Schema())
	require.NoError(t, err)
	require.Len(t, schema.DerivedOrder(), len(want.DerivedOrder()))
	for i, f := range want.DerivedOrder() {
		assert.Equal(t, f.Name, schema.DerivedOrder()[i].Name)
	}
	assert.Len(t, schema.Fields(), len(want.Fields()))
}
