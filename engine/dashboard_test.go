package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tally/engine"
)

func testDashboard() engine.DashboardSpec {
	received := engine.Eq("PaymentStatus", "Received")
	return engine.DashboardSpec{
		Name: "orders",
		Tables: []engine.TableSpec{
			{Name: "by_status", Group: "Status", Columns: []engine.Column{{Name: "Orders", Acc: engine.Count()}}},
			{Name: "by_service", Group: "services", Columns: []engine.Column{
				{Name: "Slots", Acc: engine.Count()},
				{Name: "Revenue", Acc: engine.Sum("", received)},
			}},
			{Name: "by_area", Group: "Area", Columns: []engine.Column{
				{Name: "Orders", Acc: engine.Count()},
				{Name: "Revenue", Acc: engine.Sum("GrandTotal", received)},
			}},
		},
		KPIs: []engine.KPISpec{
			{Name: "Total Orders", Acc: engine.Count(), Reconcile: &engine.ColumnRef{Table: "by_status", Column: "Orders"}},
			{Name: "Slot Revenue", Acc: engine.Sum("ServiceTotal", received), Reconcile: &engine.ColumnRef{Table: "by_service", Column: "Revenue"}},
			{Name: "Pending", Acc: engine.Sum("PendingBalance", nil)},
		},
		Range: engine.RangeSpec{
			KPIs: []engine.KPISpec{
				{Name: "Orders", Acc: engine.Count()},
				{Name: "Completed", Acc: engine.CountWhere(engine.TagIn("Completed"))},
			},
			Tables: []engine.TableSpec{
				{Name: "range_by_status", Group: "Status", Columns: []engine.Column{{Name: "Orders", Acc: engine.Count()}}},
			},
		},
	}
}

func seedDashboard(t *testing.T, c *engine.EngineContext) {
	t.Helper()
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-05", "Status": "Completed", "Area": "North",
		"BaseAmount": "800", "TaxRate": "0", "PaymentStatus": "Received"},
		slot("Cleaning", "500"), slot("Painting", "300"))
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-15", "Status": "Pending", "Area": "South",
		"BaseAmount": "300", "TaxRate": "0"},
		slot("Cleaning", "300"))
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-25", "Status": "Completed", "Area": "South",
		"PaymentStatus": "Received"},
		slot("Plumbing", "200"))
}

func TestDashboard_BuildAndCrossCheck(t *testing.T) {
	// GIVEN: Three orders
	fixed := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	c := newTestContext(t, engine.WithClock(func() time.Time { return fixed }))
	seedDashboard(t, c)

	// WHEN: Building the dashboard without a range
	snap, err := c.Dashboard(context.Background(), testDashboard(), engine.DateRange{})
	require.NoError(t, err)

	// THEN: KPIs agree with their tables
	assert.NotEqual(t, uuid.Nil, snap.ID)
	assert.Equal(t, fixed, snap.GeneratedAt)
	assert.Equal(t, 3, snap.RecordCount)
	assert.Empty(t, snap.CrossCheck())

	orders, ok := snap.KPI("Total Orders")
	require.True(t, ok)
	byStatus, ok := snap.Table("by_status")
	require.True(t, ok)
	total, _ := byStatus.Cell(engine.TotalKey, "Orders")
	assertDecimal(t, "3", orders)
	assert.True(t, total.Equal(orders))

	revenue, _ := snap.KPI("Slot Revenue")
	assertDecimal(t, "1000", revenue)

	pending, _ := snap.KPI("Pending")
	assertDecimal(t, "300", pending)

	// AND: The range section is a placeholder
	assert.False(t, snap.Range.Selected)
	assert.Empty(t, snap.Range.KPIs)
	assert.Empty(t, snap.Range.Tables)
}

func TestDashboard_RangeSection(t *testing.T) {
	c := newTestContext(t)
	seedDashboard(t, c)

	snap, err := c.Dashboard(context.Background(), testDashboard(), mustRange(t, "2025-01-10", "2025-01-31"))
	require.NoError(t, err)

	require.True(t, snap.Range.Selected)
	require.Len(t, snap.Range.KPIs, 2)
	assertDecimal(t, "2", snap.Range.KPIs[0].Value)
	assertDecimal(t, "1", snap.Range.KPIs[1].Value)
	require.Len(t, snap.Range.Tables, 1)
	assertDecimal(t, "2", snap.Range.Tables[0].Total.Values[0])

	// Whole-set KPIs are unaffected by the range
	orders, _ := snap.KPI("Total Orders")
	assertDecimal(t, "3", orders)
}

func TestDashboard_CrossCheckReportsMismatch(t *testing.T) {
	c := newTestContext(t)
	seedDashboard(t, c)

	spec := testDashboard()
	spec.KPIs = append(spec.KPIs,
		engine.KPISpec{Name: "Completed only", Acc: engine.CountWhere(engine.TagIn("Completed")),
			Reconcile: &engine.ColumnRef{Table: "by_status", Column: "Orders"}},
		engine.KPISpec{Name: "Dangling", Acc: engine.Count(),
			Reconcile: &engine.ColumnRef{Table: "missing", Column: "Orders"}},
	)

	snap, err := c.Dashboard(context.Background(), spec, engine.DateRange{})
	require.NoError(t, err)

	assert.Len(t, snap.CrossCheck(), 2)
}

func TestDashboard_SnapshotIsAValue(t *testing.T) {
	c := newTestContext(t)
	seedDashboard(t, c)
	snap, err := c.Dashboard(context.Background(), testDashboard(), engine.DateRange{})
	require.NoError(t, err)

	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-30", "Status": "Pending"})

	assert.Equal(t, 3, snap.RecordCount)
	next, err := c.Dashboard(context.Background(), testDashboard(), engine.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, 4, next.RecordCount)
	assert.NotEqual(t, snap.ID, next.ID)
}

func TestDashboard_InvalidSpec(t *testing.T) {
	c := newTestContext(t)
	spec := testDashboard()
	spec.Tables = append(spec.Tables, engine.TableSpec{Name: "bad", Group: "Customer",
		Columns: []engine.Column{{Name: "n", Acc: engine.Count()}}})

	assert.ErrorIs(t, c.ValidateDashboard(spec), engine.ErrInvalidAggregation)
	assert.NoError(t, c.ValidateDashboard(testDashboard()))
}
