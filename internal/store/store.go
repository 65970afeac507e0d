// Package store persists the medication collection as one blob under a single key.
package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/hpungsan/dose/internal/db"
)

// Adapter is a flat keyed blob store. Writes always replace the whole value.
type Adapter interface {
	// Load returns the blob under key. found is false for a key never written.
	Load(ctx context.Context, key string) (blob []byte, found bool, err error)
	Save(ctx context.Context, key string, blob []byte) error
}

// SQLite stores blobs in the collections table.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite returns an adapter over an initialized database.
func NewSQLite(database *sql.DB) *SQLite {
	return &SQLite{db: database, now: time.Now}
}

// Load implements Adapter.
func (s *SQLite) Load(ctx context.Context, key string) ([]byte, bool, error) {
	value, found, err := db.GetCollection(ctx, s.db, key)
	if err != nil || !found {
		return nil, found, err
	}
	return []byte(value), true, nil
}

// Save implements Adapter.
func (s *SQLite) Save(ctx context.Context, key string, blob []byte) error {
	return db.PutCollection(ctx, s.db, key, string(blob), s.now().Unix())
}

// Memory is an in-process adapter for tests and dry runs.
// LoadErr and SaveErr, when set, are returned instead of touching the data.
type Memory struct {
	mu      sync.Mutex
	data    map[string][]byte
	LoadErr error
	SaveErr error
	saves   int
}

// NewMemory returns an empty in-memory adapter.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Load implements Adapter.
func (m *Memory) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, false, m.LoadErr
	}
	blob, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), blob...), true, nil
}

// Save implements Adapter.
func (m *Memory) Save(_ context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.data[key] = append([]byte(nil), blob...)
	m.saves++
	return nil
}

// Put seeds a blob without counting it as a save.
func (m *Memory) Put(key string, blob []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), blob...)
}

// Get returns the current blob for key.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.data[key]
	return append([]byte(nil), blob...), ok
}

// Saves reports how many successful saves have happened.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// SetFailures sets the injected load and save errors.
func (m *Memory) SetFailures(loadErr, saveErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadErr = loadErr
	m.SaveErr = saveErr
}
