/*
context.go - EngineContext, the owner of Schema and RecordStore

PURPOSE:
  Every operation goes through an EngineContext. It validates input, assigns
  identity, derives and classifies records, and answers aggregation queries.
  Nothing is process-global; two contexts never share state.

WRITE PATH (Insert / Update):
  1. Schema.Apply parses and merges raw input (ValidationError on failure)
  2. A sequence number is assigned (inserts only)
  3. DerivationEngine recomputes every derived field
  4. ClassificationEngine sets the tag (and the guard, if any, vetoes)
  5. The journal, if any, saves the raw state
  6. The store appends or replaces the record

  Steps 1-5 touch no shared state, so a rejected write leaves the store and
  the sequence counter untouched.

READ PATH:
  Aggregate, Table, AggregateInRange and Dashboard scan a consistent copy of
  the records taken under the read lock. Reads run concurrently.

CONCURRENCY:
  Writes are serialized by a mutex. That keeps derivation atomic with the
  fields it reads and keeps sequence numbers strictly increasing.
*/
package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type EngineContext struct {
	mu sync.RWMutex

	schema     *Schema
	store      RecordStore
	journal    Journal
	logger     *zap.Logger
	maxRecords int
	clock      func() time.Time

	derive   *DerivationEngine
	classify *ClassificationEngine
	agg      *AggregationEngine
	ranges   *RangeQueryEngine
	dash     *DashboardModel

	classifier Classifier
	guard      TransitionGuard
}

type Option func(*EngineContext)

func WithLogger(l *zap.Logger) Option { return func(c *EngineContext) { c.logger = l } }

// WithMaxRecords bounds the store; 0 means unbounded.
func WithMaxRecords(n int) Option { return func(c *EngineContext) { c.maxRecords = n } }

func WithClassifier(cl Classifier) Option { return func(c *EngineContext) { c.classifier = cl } }

// WithTransitionGuard installs a veto on tag changes. The default is none.
func WithTransitionGuard(g TransitionGuard) Option { return func(c *EngineContext) { c.guard = g } }

func WithJournal(j Journal) Option { return func(c *EngineContext) { c.journal = j } }

func WithClock(now func() time.Time) Option { return func(c *EngineContext) { c.clock = now } }

func NewContext(schema *Schema, store RecordStore, opts ...Option) *EngineContext {
	c := &EngineContext{
		schema: schema,
		store:  store,
		logger: zap.NewNop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.derive = NewDerivationEngine(schema, c.logger)
	c.classify = NewClassificationEngine(schema, c.classifier, c.guard)
	c.agg = NewAggregationEngine(schema)
	c.ranges = NewRangeQueryEngine(schema, c.agg)
	c.dash = NewDashboardModel(c.agg, c.ranges, c.clock)
	return c
}

func (c *EngineContext) Schema() *Schema { return c.schema }

// Tags is the classification domain.
func (c *EngineContext) Tags() []Tag { return c.classify.Tags() }

// =============================================================================
// WRITES
// =============================================================================

// Insert validates raw, assigns the next sequence number and key, and stores
// the derived, classified record.
func (c *EngineContext) Insert(ctx context.Context, raw RawRecord) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxRecords > 0 && c.store.Len() >= c.maxRecords {
		return Record{}, fmt.Errorf("insert: %w (max %d)", ErrCapacityExceeded, c.maxRecords)
	}
	rec, err := c.schema.Apply(nil, raw)
	if err != nil {
		return Record{}, err
	}

	now := c.clock()
	rec.Seq = c.store.LastID() + 1
	rec.Key = c.schema.FormatKey(rec.Seq)
	rec.CreatedAt = now
	rec.UpdatedAt = now
	c.derive.Derive(&rec)
	c.classify.Classify(&rec)

	if err := c.persist(ctx, rec); err != nil {
		return Record{}, err
	}
	if err := c.store.Append(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("insert %s: %w", rec.Key, err)
	}
	c.logger.Debug("record inserted",
		zap.String("key", rec.Key),
		zap.String("tag", string(rec.Tag)),
		zap.Int("warnings", len(rec.Warnings)),
	)
	return rec, nil
}

// Update applies a partial raw update to an existing record and recomputes
// its derived fields and tag. Seq and Key never change.
func (c *EngineContext) Update(ctx context.Context, id RecordID, raw RawRecord) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	base, err := c.store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	return c.updateLocked(ctx, base, raw)
}

// UpdateByRef is Update addressed by key or sequence number.
func (c *EngineContext) UpdateByRef(ctx context.Context, ref string, raw RawRecord) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	base, err := c.lookup(ctx, ref)
	if err != nil {
		return Record{}, err
	}
	return c.updateLocked(ctx, base, raw)
}

func (c *EngineContext) updateLocked(ctx context.Context, base Record, raw RawRecord) (Record, error) {
	rec, err := c.schema.Apply(&base, raw)
	if err != nil {
		return Record{}, err
	}
	rec.UpdatedAt = c.clock()
	c.derive.Derive(&rec)
	c.classify.Classify(&rec)
	if err := c.classify.CheckTransition(base.Tag, rec.Tag); err != nil {
		return Record{}, fmt.Errorf("update %s: %w", base.Key, err)
	}

	if err := c.persist(ctx, rec); err != nil {
		return Record{}, err
	}
	if err := c.store.Replace(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("update %s: %w", rec.Key, err)
	}
	c.logger.Debug("record updated",
		zap.String("key", rec.Key),
		zap.String("from", string(base.Tag)),
		zap.String("to", string(rec.Tag)),
	)
	return rec, nil
}

func (c *EngineContext) persist(ctx context.Context, rec Record) error {
	if c.journal == nil {
		return nil
	}
	if err := c.journal.Save(ctx, c.schema.EntryOf(rec)); err != nil {
		return fmt.Errorf("journal %s: %w", rec.Key, err)
	}
	return nil
}

// Restore replays the journal into an empty store. Derived values and tags
// are recomputed from the journaled raw state. A journal larger than the
// configured capacity is refused and nothing is restored.
func (c *EngineContext) Restore(ctx context.Context) (int, error) {
	if c.journal == nil {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store.Len() > 0 {
		return 0, fmt.Errorf("restore: store already holds %d records", c.store.Len())
	}
	entries, err := c.journal.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore: %w", err)
	}
	if c.maxRecords > 0 && len(entries) > c.maxRecords {
		return 0, fmt.Errorf("restore: journal holds %d records: %w (max %d)", len(entries), ErrCapacityExceeded, c.maxRecords)
	}
	for _, e := range entries {
		rec, err := c.schema.Apply(nil, e.Raw)
		if err != nil {
			return 0, fmt.Errorf("restore %s: %w", e.Key, err)
		}
		rec.Seq = e.Seq
		rec.Key = c.schema.FormatKey(e.Seq)
		rec.CreatedAt = e.CreatedAt
		rec.UpdatedAt = e.UpdatedAt
		c.derive.Derive(&rec)
		c.classify.Classify(&rec)
		if err := c.store.Append(ctx, rec); err != nil {
			return 0, fmt.Errorf("restore %s: %w", rec.Key, err)
		}
	}
	c.logger.Info("journal restored", zap.Int("records", len(entries)))
	return len(entries), nil
}

// Recompute re-derives and re-classifies every stored record. On unchanged
// input it is a no-op.
func (c *EngineContext) Recompute(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.store.All(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		c.derive.Derive(&rec)
		c.classify.Classify(&rec)
		if err := c.store.Replace(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

func (c *EngineContext) Get(ctx context.Context, id RecordID) (Record, error) {
	return c.store.Get(ctx, id)
}

func (c *EngineContext) FindByKey(ctx context.Context, key string) (Record, error) {
	return c.store.GetByKey(ctx, key)
}

// Lookup accepts either a key (ST-0001) or a bare sequence number.
func (c *EngineContext) Lookup(ctx context.Context, ref string) (Record, error) {
	return c.lookup(ctx, ref)
}

func (c *EngineContext) lookup(ctx context.Context, ref string) (Record, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return c.store.Get(ctx, RecordID(n))
	}
	return c.store.GetByKey(ctx, ref)
}

// All is the render feed: every record, raw and derived values plus tag, in
// insertion order.
func (c *EngineContext) All(ctx context.Context) ([]Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.All(ctx)
}

func (c *EngineContext) Len() int { return c.store.Len() }

func (c *EngineContext) Aggregate(ctx context.Context, spec AggregationSpec) (Result, error) {
	records, err := c.All(ctx)
	if err != nil {
		return Result{}, err
	}
	return c.agg.Aggregate(spec, records)
}

func (c *EngineContext) Table(ctx context.Context, spec TableSpec) (Table, error) {
	records, err := c.All(ctx)
	if err != nil {
		return Table{}, err
	}
	return c.agg.Table(spec, records)
}

func (c *EngineContext) Scalar(ctx context.Context, acc Accumulator, filter Predicate) (decimal.Decimal, error) {
	records, err := c.All(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return c.agg.Scalar(acc, filter, records)
}

func (c *EngineContext) AggregateInRange(ctx context.Context, spec AggregationSpec, rng DateRange) (RangeResult, error) {
	records, err := c.All(ctx)
	if err != nil {
		return RangeResult{}, err
	}
	return c.ranges.AggregateInRange(spec, rng, records)
}

// TableInRange builds spec over the records inside rng. The bool is false
// when rng has no bounds.
func (c *EngineContext) TableInRange(ctx context.Context, spec TableSpec, rng DateRange) (Table, bool, error) {
	records, err := c.All(ctx)
	if err != nil {
		return Table{}, false, err
	}
	return c.ranges.TableInRange(spec, rng, records)
}

func (c *EngineContext) Dashboard(ctx context.Context, spec DashboardSpec, rng DateRange) (Snapshot, error) {
	records, err := c.All(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return c.dash.Build(spec, records, rng)
}

// ValidateDashboard checks every table and KPI of spec against the schema.
func (c *EngineContext) ValidateDashboard(spec DashboardSpec) error {
	_, err := c.dash.Build(spec, nil, DateRange{})
	return err
}
