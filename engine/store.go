/*
store.go - Record storage interfaces

PURPOSE:
  Defines the boundary between the EngineContext and where records live.
  The engine owns validation, derivation and classification; a RecordStore
  only keeps the resulting rows in insertion order.

KEY INTERFACES:
  RecordStore: ordered in-memory rows with sequence identity
  Journal:     optional durable copy of the raw input, replayed on restart

SEQUENCE CONTRACT:
  - Append() only accepts rec.Seq == LastID()+1 during normal operation,
    or any Seq > LastID() when restoring from a journal
  - Replace() never changes Seq or Key
  - There is no Delete(); records persist for audit and aggregation

IMPLEMENTATIONS:
  - engine/store/memory.go: RWMutex guarded slice
  - store/sqlite/sqlite.go: Journal backed by SQLite

SEE ALSO:
  - context.go: the only writer
*/
package engine

import (
	"context"
	"time"
)

// =============================================================================
// RECORD STORE
// =============================================================================

type RecordStore interface {
	// Append adds a new record. Its Seq must exceed LastID().
	Append(ctx context.Context, rec Record) error

	// Replace overwrites an existing record with the same Seq.
	Replace(ctx context.Context, rec Record) error

	Get(ctx context.Context, id RecordID) (Record, error)
	GetByKey(ctx context.Context, key string) (Record, error)

	// All returns every record in insertion order.
	All(ctx context.Context) ([]Record, error)

	Len() int
	LastID() RecordID
}

// =============================================================================
// JOURNAL - Raw input persistence
// =============================================================================

// JournalEntry is the raw state of one record. Derived values are not stored;
// they are recomputed on replay.
type JournalEntry struct {
	Seq       RecordID
	Key       string
	Raw       RawRecord
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Journal interface {
	// Save upserts the entry by Seq.
	Save(ctx context.Context, entry JournalEntry) error

	// Load returns every entry ordered by Seq.
	Load(ctx context.Context) ([]JournalEntry, error)
}

// RawOf renders a record's raw fields and slots back into cell text. Applying
// the result to an empty record reproduces the same raw state.
func (s *Schema) RawOf(rec Record) RawRecord {
	raw := RawRecord{Fields: make(map[string]string)}
	for _, f := range s.fields {
		if f.IsDerived() {
			continue
		}
		if v := rec.Value(f.Name); !v.IsBlank() {
			raw.Fields[f.Name] = v.String()
		}
	}
	for _, g := range s.groups {
		entries := rec.Slots[g.Name]
		if len(entries) == 0 {
			continue
		}
		if raw.Slots == nil {
			raw.Slots = make(map[string][]RawSubEntry)
		}
		for _, e := range entries {
			raw.Slots[g.Name] = append(raw.Slots[g.Name], RawSubEntry{Category: e.Category, Value: e.Value.String()})
		}
	}
	return raw
}

// EntryOf builds the journal entry for a stored record.
func (s *Schema) EntryOf(rec Record) JournalEntry {
	return JournalEntry{
		Seq:       rec.Seq,
		Key:       rec.Key,
		Raw:       s.RawOf(rec),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
