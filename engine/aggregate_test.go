package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tally/engine"
)

// =============================================================================
// SLOT GROUPS
// =============================================================================

func TestAggregate_CleaningExample(t *testing.T) {
	// GIVEN: Two Cleaning records, one Completed at 500 and one Pending at 300
	c := newTestContext(t)
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Completed"}, slot("Cleaning", "500"))
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-02", "Status": "Pending"}, slot("Cleaning", "300"))

	// WHEN: Summing completed slot values and counting slots
	revenue, err := c.Aggregate(context.Background(), engine.AggregationSpec{
		Name:  "revenue",
		Group: "services",
		Acc:   engine.Sum("", engine.Eq("Status", "Completed")),
	})
	require.NoError(t, err)
	count, err := c.Aggregate(context.Background(), engine.AggregationSpec{
		Name:  "count",
		Group: "services",
		Acc:   engine.Count(),
	})
	require.NoError(t, err)

	// THEN: Cleaning revenue is 500 and its count is 2
	assertDecimal(t, "500", revenue.Get("Cleaning"))
	assertDecimal(t, "2", count.Get("Cleaning"))
}

func TestAggregate_SlotCountsAreNotRecordCounts(t *testing.T) {
	// GIVEN: One record with two Cleaning slots and a Painting slot, one with a
	// single Plumbing slot, and one with no slots at all
	c := newTestContext(t)
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Completed"},
		slot("Cleaning", "100"), slot("Cleaning", "150"), slot("Painting", "900"))
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-02", "Status": "Pending"}, slot("Plumbing", ""))
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-03", "Status": "Pending"})

	// WHEN: Counting by service
	res, err := c.Aggregate(context.Background(), engine.AggregationSpec{Group: "services", Acc: engine.Count()})
	require.NoError(t, err)

	// THEN: Each slot is one contribution, summing to the number of populated slots
	assertDecimal(t, "2", res.Get("Cleaning"))
	assertDecimal(t, "1", res.Get("Painting"))
	assertDecimal(t, "1", res.Get("Plumbing"))

	populated := 0
	records, err := c.All(context.Background())
	require.NoError(t, err)
	for _, r := range records {
		populated += len(r.Slots["services"])
	}
	assertDecimal(t, "4", res.Total)
	assert.Equal(t, int64(populated), res.Total.IntPart())
}

func TestAggregate_SlotBucketsUseRecordFields(t *testing.T) {
	// GIVEN: A received payment on a record with two slots
	c := newTestContext(t)
	mustInsert(t, c, map[string]string{
		"Timestamp": "2025-01-01", "Status": "Completed", "PaymentStatus": "Received",
	}, slot("Cleaning", "100"), slot("Painting", "200"))
	mustInsert(t, c, map[string]string{
		"Timestamp": "2025-01-01", "Status": "Completed", "PaymentStatus": "Pending",
	}, slot("Cleaning", "700"))

	// WHEN: Summing slot prices where the payment was received
	res, err := c.Aggregate(context.Background(), engine.AggregationSpec{
		Group: "services",
		Acc:   engine.Sum("", engine.Eq("PaymentStatus", "Received")),
	})
	require.NoError(t, err)

	// THEN: Only the received record's slots contribute
	assertDecimal(t, "100", res.Get("Cleaning"))
	assertDecimal(t, "200", res.Get("Painting"))
	assertDecimal(t, "300", res.Total)
}

// =============================================================================
// ORDERING AND TOTALS
// =============================================================================

func TestAggregate_DomainOrderWithZeroBuckets(t *testing.T) {
	c := newTestContext(t)
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Completed"})
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-02", "Status": "Pending"})
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-03", "Status": "Completed"})

	res, err := c.Aggregate(context.Background(), engine.AggregationSpec{Group: "Status", Acc: engine.Count()})
	require.NoError(t, err)

	var keys []string
	for _, b := range res.Buckets {
		keys = append(keys, b.Key)
	}
	assert.Equal(t, testStatuses, keys, "buckets follow the declared domain")
	assertDecimal(t, "0", res.Get("Confirmed"))
	assertDecimal(t, "2", res.Get("Completed"))
	assert.Equal(t, int64(c.Len()), res.Total.IntPart(), "TOTAL equals the record count")
}

func TestAggregate_TextGroupKeyFirstSeenOrder(t *testing.T) {
	c := newTestContext(t)
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Pending", "Source": "Website"})
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Pending", "Source": "Referral"})
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Pending", "Source": "Website"})
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Pending"})

	res, err := c.Aggregate(context.Background(), engine.AggregationSpec{Group: "Source", Acc: engine.Count()})
	require.NoError(t, err)

	require.Len(t, res.Buckets, 2)
	assert.Equal(t, "Website", res.Buckets[0].Key)
	assert.Equal(t, "Referral", res.Buckets[1].Key)
	assertDecimal(t, "3", res.Total) // the blank source contributes to no bucket
}

func TestAggregate_TableColumns(t *testing.T) {
	// GIVEN: Orders across two areas
	c := newTestContext(t)
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Completed", "Area": "North",
		"BaseAmount": "1000", "TaxRate": "0.1", "PaymentStatus": "Received"})
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-02", "Status": "Confirmed", "Area": "North",
		"BaseAmount": "500", "TaxRate": "0.1"})
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-03", "Status": "Completed", "Area": "South",
		"BaseAmount": "300", "TaxRate": "0", "PaymentStatus": "Received"})

	// WHEN: Building an area table
	table, err := c.Table(context.Background(), engine.TableSpec{
		Name:  "by_area",
		Group: "Area",
		Columns: []engine.Column{
			{Name: "Total", Acc: engine.Count()},
			{Name: "Completed", Acc: engine.CountWhere(engine.TagIn("Completed"))},
			{Name: "Revenue", Acc: engine.Sum("GrandTotal", engine.Eq("PaymentStatus", "Received"))},
			{Name: "AvgBase", Acc: engine.Avg("BaseAmount", nil)},
		},
	})
	require.NoError(t, err)

	// THEN: Each column is folded per area and totalled
	cell := func(key, col string) string {
		v, ok := table.Cell(key, col)
		require.True(t, ok, "%s/%s", key, col)
		return v.String()
	}
	assert.Equal(t, "2", cell("North", "Total"))
	assert.Equal(t, "1", cell("North", "Completed"))
	assert.Equal(t, "1100", cell("North", "Revenue"))
	assert.Equal(t, "750", cell("North", "AvgBase"))
	assert.Equal(t, "300", cell("South", "Revenue"))
	assert.Equal(t, "3", cell(engine.TotalKey, "Total"))
	assert.Equal(t, "1400", cell(engine.TotalKey, "Revenue"))
	assert.Equal(t, "600", cell(engine.TotalKey, "AvgBase"), "average totals average every contribution")
}

func TestAggregate_EmptyGroupIsZero(t *testing.T) {
	c := newTestContext(t)

	res, err := c.Aggregate(context.Background(), engine.AggregationSpec{
		Group: "Area", Acc: engine.Avg("BaseAmount", nil),
	})

	require.NoError(t, err)
	assertDecimal(t, "0", res.Get("North"))
	assertDecimal(t, "0", res.Total)
}

// =============================================================================
// PREDICATES
// =============================================================================

func TestAggregate_Predicates(t *testing.T) {
	c := newTestContext(t)
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Completed", "Advance": "100"})
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Cancelled", "Advance": "0"})
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Pending"})

	tests := []struct {
		name string
		pred engine.Predicate
		want string
	}{
		{"eq", engine.Eq("Status", "Completed"), "1"},
		{"in", engine.In("Status", "Completed", "Pending"), "2"},
		{"not eq includes blanks", engine.NotEq("Status", "Completed"), "2"},
		{"has value", engine.HasValue("Advance"), "2"},
		{"greater than", engine.GreaterThan("Advance", dec("0")), "1"},
		{"tag in", engine.TagIn("Cancelled"), "1"},
		{"eq compares numbers by value", engine.Eq("Advance", "100.00"), "1"},
		{"in compares numbers by value", engine.In("Advance", "0.0", "7"), "1"},
		{"eq compares dates by value", engine.Eq("Timestamp", "01-Jan-2025"), "3"},
		{"eq with unparsable number", engine.Eq("Advance", "lots"), "0"},
		{"and", engine.And(engine.HasValue("Advance"), engine.Not(engine.Eq("Status", "Completed"))), "1"},
		{"or", engine.Or(engine.Eq("Status", "Pending"), engine.GreaterThan("Advance", dec("50"))), "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := c.Scalar(context.Background(), engine.CountWhere(tt.pred), nil)
			require.NoError(t, err)
			assertDecimal(t, tt.want, v)
		})
	}
}

// =============================================================================
// INVALID SPECS
// =============================================================================

func TestAggregate_InvalidSpecs(t *testing.T) {
	c := newTestContext(t)

	tests := []struct {
		name string
		spec engine.AggregationSpec
	}{
		{"unknown group", engine.AggregationSpec{Group: "Planet", Acc: engine.Count()}},
		{"field that is not a group key", engine.AggregationSpec{Group: "Customer", Acc: engine.Count()}},
		{"sum of a text field", engine.AggregationSpec{Group: "Area", Acc: engine.Sum("Customer", nil)}},
		{"sum without field outside a slot group", engine.AggregationSpec{Group: "Area", Acc: engine.Sum("", nil)}},
		{"predicate on unknown field", engine.AggregationSpec{Group: "Area", Acc: engine.CountWhere(engine.Eq("Planet", "Mars"))}},
		{"unknown accumulator", engine.AggregationSpec{Group: "Area", Acc: engine.Accumulator{Kind: "median"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Aggregate(context.Background(), tt.spec)
			assert.ErrorIs(t, err, engine.ErrInvalidAggregation)
			assert.True(t, engine.IsClientError(err))
		})
	}
}

// =============================================================================
// FRESHNESS
// =============================================================================

func TestAggregate_ReflectsLatestWrites(t *testing.T) {
	c := newTestContext(t)
	rec := mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Pending"})
	spec := engine.AggregationSpec{Group: "Status", Acc: engine.Count()}

	before, err := c.Aggregate(context.Background(), spec)
	require.NoError(t, err)
	assertDecimal(t, "1", before.Get("Pending"))

	_, err = c.Update(context.Background(), rec.Seq, raw(map[string]string{"Status": "Completed"}))
	require.NoError(t, err)

	after, err := c.Aggregate(context.Background(), spec)
	require.NoError(t, err)
	assertDecimal(t, "0", after.Get("Pending"))
	assertDecimal(t, "1", after.Get("Completed"))
}
