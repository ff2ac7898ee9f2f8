package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tally/engine"
)

func TestValidation_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input engine.RawRecord
		kind  engine.ValidationKind
		field string
	}{
		{
			name:  "missing trigger field",
			input: raw(map[string]string{"Status": "Pending"}),
			kind:  engine.ValidationMissingRequired,
			field: "Timestamp",
		},
		{
			name:  "missing required status",
			input: raw(map[string]string{"Timestamp": "2025-01-01"}),
			kind:  engine.ValidationMissingRequired,
			field: "Status",
		},
		{
			name:  "enum value outside the domain",
			input: raw(map[string]string{"Timestamp": "2025-01-01", "Status": "Lost"}),
			kind:  engine.ValidationOutOfDomain,
			field: "Status",
		},
		{
			name:  "text in a currency field",
			input: raw(map[string]string{"Timestamp": "2025-01-01", "Status": "Pending", "BaseAmount": "two thousand"}),
			kind:  engine.ValidationNotNumeric,
			field: "BaseAmount",
		},
		{
			name:  "sub-paisa currency",
			input: raw(map[string]string{"Timestamp": "2025-01-01", "Status": "Pending", "BaseAmount": "10.005"}),
			kind:  engine.ValidationPrecision,
			field: "BaseAmount",
		},
		{
			name:  "rate above one",
			input: raw(map[string]string{"Timestamp": "2025-01-01", "Status": "Pending", "TaxRate": "18"}),
			kind:  engine.ValidationOutOfRange,
			field: "TaxRate",
		},
		{
			name:  "unparseable date",
			input: raw(map[string]string{"Timestamp": "yesterday", "Status": "Pending"}),
			kind:  engine.ValidationInvalidDate,
			field: "Timestamp",
		},
		{
			name:  "write to a derived field",
			input: raw(map[string]string{"Timestamp": "2025-01-01", "Status": "Pending", "TaxAmount": "5"}),
			kind:  engine.ValidationDerivedWrite,
			field: "TaxAmount",
		},
		{
			name:  "unknown field",
			input: raw(map[string]string{"Timestamp": "2025-01-01", "Status": "Pending", "Colour": "red"}),
			kind:  engine.ValidationUnknownField,
			field: "Colour",
		},
		{
			name: "too many slots",
			input: raw(map[string]string{"Timestamp": "2025-01-01", "Status": "Pending"},
				slot("Cleaning", "1"), slot("Cleaning", "1"), slot("Cleaning", "1"), slot("Cleaning", "1"), slot("Cleaning", "1")),
			kind:  engine.ValidationTooManySlots,
			field: "services",
		},
		{
			name:  "slot value without category",
			input: raw(map[string]string{"Timestamp": "2025-01-01", "Status": "Pending"}, slot("", "300")),
			kind:  engine.ValidationOrphanSlotValue,
			field: "services",
		},
		{
			name:  "slot category outside the domain",
			input: raw(map[string]string{"Timestamp": "2025-01-01", "Status": "Pending"}, slot("Gardening", "300")),
			kind:  engine.ValidationOutOfDomain,
			field: "services",
		},
		{
			name:  "non-numeric slot value",
			input: raw(map[string]string{"Timestamp": "2025-01-01", "Status": "Pending"}, slot("Cleaning", "abc")),
			kind:  engine.ValidationNotNumeric,
			field: "services",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestContext(t)

			_, err := c.Insert(context.Background(), tt.input)

			require.Error(t, err)
			assert.True(t, engine.IsClientError(err))
			var verr *engine.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.kind, verr.Kind)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, engine.RecordID(0), verr.Record)
			assert.Equal(t, 0, c.Len(), "a rejected insert leaves the store unchanged")
		})
	}
}

func TestValidation_RejectedInsertDoesNotConsumeSequence(t *testing.T) {
	// GIVEN: A failed insert (no timestamp)
	c := newTestContext(t)
	_, err := c.Insert(context.Background(), raw(map[string]string{"Status": "Pending"}))
	require.Error(t, err)

	// WHEN: A valid record follows
	rec := mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Pending"})

	// THEN: It gets the first sequence number
	assert.Equal(t, engine.RecordID(1), rec.Seq)
	assert.Equal(t, "ST-0001", rec.Key)
	assert.Equal(t, "INV-0001", rec.Value("Invoice").String())
}

func TestValidation_UpdateErrorCarriesRecord(t *testing.T) {
	c := newTestContext(t)
	rec := mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Pending", "BaseAmount": "100"})

	_, err := c.Update(context.Background(), rec.Seq, raw(map[string]string{"Status": "Lost"}))

	var verr *engine.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, rec.Seq, verr.Record)

	// The stored record is untouched
	stored, err := c.Get(context.Background(), rec.Seq)
	require.NoError(t, err)
	assert.Equal(t, "Pending", stored.Value("Status").String())
}

func TestValidation_PartialUpdate(t *testing.T) {
	// GIVEN: A record with an amount, an advance and two slots
	c := newTestContext(t)
	rec := mustInsert(t, c,
		map[string]string{"Timestamp": "2025-01-01", "Status": "Pending", "BaseAmount": "1000", "TaxRate": "0", "Advance": "100"},
		slot("Cleaning", "400"), slot("Painting", "600"),
	)

	// WHEN: Only the status changes and the advance is cleared
	updated, err := c.Update(context.Background(), rec.Seq, raw(map[string]string{"Status": "Completed", "Advance": ""}))
	require.NoError(t, err)

	// THEN: Untouched fields and slots survive, the cleared one is blank
	assert.Equal(t, "Completed", updated.Value("Status").String())
	assertNumber(t, "1000", updated.Value("BaseAmount"))
	assert.True(t, updated.Value("Advance").IsBlank())
	assertNumber(t, "1000", updated.Value("PendingBalance"))
	assertNumber(t, "1000", updated.Value("ServiceTotal"))
	assert.Equal(t, engine.Tag("Completed"), updated.Tag)
}

func TestValidation_SlotGroupReplacedWholesale(t *testing.T) {
	c := newTestContext(t)
	rec := mustInsert(t, c,
		map[string]string{"Timestamp": "2025-01-01", "Status": "Pending"},
		slot("Cleaning", "400"), slot("Painting", "600"),
	)

	updated, err := c.Update(context.Background(), rec.Seq, raw(nil, slot("Plumbing", "250")))
	require.NoError(t, err)

	require.Len(t, updated.Slots["services"], 1)
	assert.Equal(t, "Plumbing", updated.Slots["services"][0].Category)
	assertNumber(t, "250", updated.Value("ServiceTotal"))
}

func TestValidation_NumberFormats(t *testing.T) {
	c := newTestContext(t)
	rec := mustInsert(t, c, map[string]string{
		"Timestamp":  "15-Jan-2025 09:45",
		"Status":     "Pending",
		"BaseAmount": " 1,25,000.50 ",
	})

	assertNumber(t, "125000.50", rec.Value("BaseAmount"))
	assert.Equal(t, "2025-01-15 09:45", rec.Value("Timestamp").String())
}
