// Package store provides RecordStore implementations.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/warp/tally/engine"
)

// =============================================================================
// MEMORY STORE - In-memory rows in insertion order
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records []engine.Record
	bySeq   map[engine.RecordID]int
	byKey   map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		bySeq: make(map[engine.RecordID]int),
		byKey: make(map[string]int),
	}
}

func (m *Memory) Append(_ context.Context, rec engine.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.Seq <= m.lastLocked() {
		return fmt.Errorf("append sequence %d: last is %d", rec.Seq, m.lastLocked())
	}
	if _, dup := m.byKey[rec.Key]; dup {
		return fmt.Errorf("append key %q: already present", rec.Key)
	}
	m.records = append(m.records, rec.Clone())
	m.bySeq[rec.Seq] = len(m.records) - 1
	m.byKey[rec.Key] = len(m.records) - 1
	return nil
}

func (m *Memory) Replace(_ context.Context, rec engine.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.bySeq[rec.Seq]
	if !ok {
		return fmt.Errorf("replace %d: %w", rec.Seq, engine.ErrRecordNotFound)
	}
	if m.records[i].Key != rec.Key {
		return fmt.Errorf("replace %d: key changed from %q to %q", rec.Seq, m.records[i].Key, rec.Key)
	}
	m.records[i] = rec.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, id engine.RecordID) (engine.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.bySeq[id]
	if !ok {
		return engine.Record{}, fmt.Errorf("record %d: %w", id, engine.ErrRecordNotFound)
	}
	return m.records[i].Clone(), nil
}

func (m *Memory) GetByKey(_ context.Context, key string) (engine.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byKey[key]
	if !ok {
		return engine.Record{}, fmt.Errorf("record %s: %w", key, engine.ErrRecordNotFound)
	}
	return m.records[i].Clone(), nil
}

// All returns copies; the caller may keep them across later writes.
func (m *Memory) All(_ context.Context) ([]engine.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]engine.Record, len(m.records))
	for i, r := range m.records {
		out[i] = r.Clone()
	}
	return out, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *Memory) LastID() engine.RecordID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLocked()
}

func (m *Memory) lastLocked() engine.RecordID {
	if len(m.records) == 0 {
		return 0
	}
	return m.records[len(m.records)-1].Seq
}
