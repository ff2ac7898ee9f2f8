package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tally/engine"
	"github.com/warp/tally/engine/store"
)

// =============================================================================
// IDENTITY
// =============================================================================

func TestContext_IdentityIsStableAcrossUpdates(t *testing.T) {
	// GIVEN: Three inserted records
	c := newTestContext(t)
	var recs []engine.Record
	for _, ts := range []string{"2025-01-01", "2025-01-02", "2025-01-03"} {
		recs = append(recs, mustInsert(t, c, map[string]string{"Timestamp": ts, "Status": "Pending"}))
	}
	for i, r := range recs {
		assert.Equal(t, engine.RecordID(i+1), r.Seq)
	}
	assert.Equal(t, "ST-0003", recs[2].Key)

	// WHEN: The middle one is updated several times, including its timestamp
	ctx := context.Background()
	for _, patch := range []map[string]string{
		{"Status": "Confirmed"},
		{"Timestamp": "2025-03-01"},
		{"Status": "Completed", "BaseAmount": "10"},
	} {
		_, err := c.Update(ctx, recs[1].Seq, raw(patch))
		require.NoError(t, err)
	}

	// THEN: Its sequence number, key and derived id never change
	got, err := c.FindByKey(ctx, "ST-0002")
	require.NoError(t, err)
	assert.Equal(t, engine.RecordID(2), got.Seq)
	assert.Equal(t, "INV-0002", got.Value("Invoice").String())
	assert.Equal(t, engine.Tag("Completed"), got.Tag)

	all, err := c.All(ctx)
	require.NoError(t, err)
	for i, r := range all {
		assert.Equal(t, recs[i].Seq, r.Seq)
		assert.Equal(t, recs[i].Key, r.Key)
	}
}

func TestContext_Lookup(t *testing.T) {
	c := newTestContext(t)
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Pending"})
	ctx := context.Background()

	byKey, err := c.Lookup(ctx, "ST-0001")
	require.NoError(t, err)
	bySeq, err := c.Lookup(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, byKey.Key, bySeq.Key)

	_, err = c.Lookup(ctx, "ST-0099")
	assert.True(t, engine.IsNotFound(err))
	_, err = c.Update(ctx, 42, raw(map[string]string{"Status": "Pending"}))
	assert.True(t, engine.IsNotFound(err))
}

// =============================================================================
// CAPACITY
// =============================================================================

func TestContext_Capacity(t *testing.T) {
	c := newTestContext(t, engine.WithMaxRecords(2))
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Pending"})
	mustInsert(t, c, map[string]string{"Timestamp": "2025-01-02", "Status": "Pending"})

	_, err := c.Insert(context.Background(), raw(map[string]string{"Timestamp": "2025-01-03", "Status": "Pending"}))

	assert.ErrorIs(t, err, engine.ErrCapacityExceeded)
	assert.Equal(t, 2, c.Len())
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

func TestContext_TransitionsAreUnguardedByDefault(t *testing.T) {
	c := newTestContext(t)
	rec := mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Completed"})

	updated, err := c.Update(context.Background(), rec.Seq, raw(map[string]string{"Status": "Pending"}))

	require.NoError(t, err)
	assert.Equal(t, engine.Tag("Pending"), updated.Tag)
}

func TestContext_TransitionGuard(t *testing.T) {
	// GIVEN: Completed and Cancelled are terminal
	c := newTestContext(t, engine.WithTransitionGuard(engine.ForbidFrom("Completed", "Cancelled")))
	rec := mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Completed"})

	// WHEN: Moving back to Pending
	_, err := c.Update(context.Background(), rec.Seq, raw(map[string]string{"Status": "Pending"}))

	// THEN: The update is rejected and the record keeps its tag
	assert.ErrorIs(t, err, engine.ErrTransitionRejected)
	assert.True(t, engine.IsClientError(err))
	stored, err := c.Get(context.Background(), rec.Seq)
	require.NoError(t, err)
	assert.Equal(t, engine.Tag("Completed"), stored.Tag)

	// Non-status edits on a terminal record are still allowed
	_, err = c.Update(context.Background(), rec.Seq, raw(map[string]string{"Customer": "Asha"}))
	assert.NoError(t, err)
}

func TestContext_CustomClassifier(t *testing.T) {
	open := engine.ClassifierFunc(func(r engine.Record) engine.Tag {
		if r.Value("Status").String() == "Completed" || r.Value("Status").String() == "Cancelled" {
			return "closed"
		}
		return "open"
	})
	c := newTestContext(t, engine.WithClassifier(open))

	rec := mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Cancelled"})
	assert.Equal(t, engine.Tag("closed"), rec.Tag)
	assert.Equal(t, []engine.Tag{"Confirmed", "Pending", "Cancelled", "Completed"}, c.Tags())
}

// =============================================================================
// JOURNAL
// =============================================================================

type memJournal struct {
	mu      sync.Mutex
	entries map[engine.RecordID]engine.JournalEntry
	fail    bool
}

func newMemJournal() *memJournal {
	return &memJournal{entries: make(map[engine.RecordID]engine.JournalEntry)}
}

func (j *memJournal) Save(_ context.Context, e engine.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errors.New("disk full")
	}
	j.entries[e.Seq] = e
	return nil
}

func (j *memJournal) Load(_ context.Context) ([]engine.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []engine.JournalEntry
	for seq := engine.RecordID(1); len(out) < len(j.entries); seq++ {
		if e, ok := j.entries[seq]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestContext_RestoreFromJournal(t *testing.T) {
	// GIVEN: A context writing through a journal
	ctx := context.Background()
	journal := newMemJournal()
	first := newTestContext(t, engine.WithJournal(journal))
	mustInsert(t, first, map[string]string{"Timestamp": "2025-01-01", "Status": "Pending", "BaseAmount": "2000", "TaxRate": "0.18"},
		slot("Cleaning", "500"))
	rec := mustInsert(t, first, map[string]string{"Timestamp": "2025-01-02", "Status": "Pending"})
	_, err := first.Update(ctx, rec.Seq, raw(map[string]string{"Status": "Completed"}))
	require.NoError(t, err)

	// WHEN: A fresh context restores from it
	second := engine.NewContext(testSchema(t), store.NewMemory(), engine.WithJournal(journal))
	n, err := second.Restore(ctx)
	require.NoError(t, err)

	// THEN: Records, derived values and tags are rebuilt
	assert.Equal(t, 2, n)
	want, err := first.All(ctx)
	require.NoError(t, err)
	got, err := second.All(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range want {
		assert.Equal(t, want[i].Key, got[i].Key)
		assertSameValues(t, want[i], got[i])
	}

	// AND: New inserts continue the sequence
	next := mustInsert(t, second, map[string]string{"Timestamp": "2025-01-03", "Status": "Pending"})
	assert.Equal(t, "ST-0003", next.Key)
}

func TestContext_RestoreRefusesJournalOverCapacity(t *testing.T) {
	// GIVEN: A journal written under a larger capacity
	ctx := context.Background()
	journal := newMemJournal()
	first := newTestContext(t, engine.WithJournal(journal))
	for i := 0; i < 3; i++ {
		mustInsert(t, first, map[string]string{"Timestamp": "2025-01-01", "Status": "Pending"})
	}

	// WHEN: A context limited to two records restores from it
	second := engine.NewContext(testSchema(t), store.NewMemory(),
		engine.WithJournal(journal), engine.WithMaxRecords(2))
	n, err := second.Restore(ctx)

	// THEN: The replay is refused and the store stays empty
	require.ErrorIs(t, err, engine.ErrCapacityExceeded)
	assert.Contains(t, err.Error(), "journal holds 3 records")
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, second.Len())

	// AND: A capacity that fits the journal restores it
	third := engine.NewContext(testSchema(t), store.NewMemory(),
		engine.WithJournal(journal), engine.WithMaxRecords(3))
	n, err = third.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestContext_JournalFailureRejectsWrite(t *testing.T) {
	journal := newMemJournal()
	journal.fail = true
	c := newTestContext(t, engine.WithJournal(journal))

	_, err := c.Insert(context.Background(), raw(map[string]string{"Timestamp": "2025-01-01", "Status": "Pending"}))

	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())

	// The failed write did not consume a sequence number
	journal.fail = false
	rec := mustInsert(t, c, map[string]string{"Timestamp": "2025-01-01", "Status": "Pending"})
	assert.Equal(t, engine.RecordID(1), rec.Seq)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestContext_ConcurrentInsertsKeepSequenceDense(t *testing.T) {
	c := newTestContext(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Insert(context.Background(), raw(map[string]string{"Timestamp": "2025-01-01", "Status": "Pending"}))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := c.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 20)
	for i, r := range all {
		assert.Equal(t, engine.RecordID(i+1), r.Seq)
	}
}
