/*
Package sqlite provides a SQLite-backed engine.Journal.

PURPOSE:
  Keeps the raw state of every record on disk so a process can rebuild its
  EngineContext after a restart. Only caller input is stored; derived
  values and tags are recomputed by EngineContext.Restore.

KEY TABLE:
  records: one row per record, upserted by sequence number
    seq        INTEGER PRIMARY KEY (the engine's RecordID)
    key        TEXT UNIQUE         (e.g. ST-0001)
    raw_json   TEXT                (engine.RawRecord)
    created_at, updated_at         (RFC3339Nano, UTC)

CONCURRENCY:
  Writes are serialized by a mutex and the pool is limited to a single
  connection, which also keeps a ":memory:" database alive for the life of
  the Journal.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging) so readers do
  not block the writer.

USAGE:
  journal, err := sqlite.New("./data/tally.db")
  if err != nil {
      log.Fatal(err)
  }
  defer journal.Close()

  ctx := engine.NewContext(schema, store.NewMemory(), engine.WithJournal(journal))
  n, err := ctx.Restore(context.Background())

SEE ALSO:
  - engine/store.go: Journal interface
  - engine/context.go: Restore
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/tally/engine"
)

const timeLayout = time.RFC3339Nano

// Journal implements engine.Journal using SQLite.
type Journal struct {
	db *sql.DB
	mu sync.Mutex
}

var _ engine.Journal = (*Journal)(nil)

// New opens (or creates) the journal at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Journal, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		seq INTEGER PRIMARY KEY,
		key TEXT NOT NULL UNIQUE,
		raw_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := j.db.Exec(schema)
	return err
}

// =============================================================================
// JOURNAL (engine.Journal interface)
// =============================================================================

// Save upserts the entry by sequence number. Key and created_at are kept
// from the first save.
func (j *Journal) Save(ctx context.Context, entry engine.JournalEntry) error {
	if entry.Seq <= 0 {
		return fmt.Errorf("failed to save journal entry: invalid sequence %d", entry.Seq)
	}
	rawJSON, err := json.Marshal(entry.Raw)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", entry.Key, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	query := `
		INSERT INTO records (seq, key, raw_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO UPDATE SET
			raw_json = excluded.raw_json,
			updated_at = excluded.updated_at
	`
	_, err = j.db.ExecContext(ctx, query,
		int64(entry.Seq),
		entry.Key,
		string(rawJSON),
		formatTime(entry.CreatedAt),
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", entry.Key, err)
	}
	return nil
}

// Load returns every entry ordered by sequence number.
func (j *Journal) Load(ctx context.Context) ([]engine.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, key, raw_json, created_at, updated_at
		FROM records
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var entries []engine.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of journaled records.
func (j *Journal) Count(ctx context.Context) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

func scanEntry(rows *sql.Rows) (engine.JournalEntry, error) {
	var (
		seq                  int64
		key, rawJSON         string
		createdAt, updatedAt string
	)
	if err := rows.Scan(&seq, &key, &rawJSON, &createdAt, &updatedAt); err != nil {
		return engine.JournalEntry{}, fmt.Errorf("failed to scan record: %w", err)
	}

	e := engine.JournalEntry{Seq: engine.RecordID(seq), Key: key}
	if err := json.Unmarshal([]byte(rawJSON), &e.Raw); err != nil {
		return engine.JournalEntry{}, fmt.Errorf("failed to decode record %s: %w", key, err)
	}
	var err error
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return engine.JournalEntry{}, fmt.Errorf("record %s created_at: %w", key, err)
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return engine.JournalEntry{}, fmt.Errorf("record %s updated_at: %w", key, err)
	}
	return e, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
