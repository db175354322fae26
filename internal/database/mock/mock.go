// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"

	"github.com/kozaktomas/faceauth/internal/database"
)

// MockRecordStore is an in-memory implementation of database.RecordWriter
type MockRecordStore struct {
	mu       sync.RWMutex
	records  map[string]*database.UserRecord
	missing  bool
	putCalls int

	// Error injection
	GetError    error
	KeysError   error
	AllError    error
	PutError    error
	DeleteError error
}

// NewMockRecordStore creates a new, provisioned mock store
func NewMockRecordStore() *MockRecordStore {
	return &MockRecordStore{
		records: make(map[string]*database.UserRecord),
	}
}

// NewUnprovisionedStore creates a mock store that behaves like a missing directory until written
func NewUnprovisionedStore() *MockRecordStore {
	m := NewMockRecordStore()
	m.missing = true
	return m
}

// AddRecord adds a record to the mock store without validation
func (m *MockRecordStore) AddRecord(rec *database.UserRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.UserID] = rec.Clone()
	m.missing = false
}

// PutCalls returns how many times Put succeeded
func (m *MockRecordStore) PutCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.putCalls
}

// Exists reports whether the store is provisioned
func (m *MockRecordStore) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.missing
}

func (m *MockRecordStore) unavailable() error {
	return fmt.Errorf("%w: mock store not provisioned", database.ErrStoreUnavailable)
}

// Get retrieves a copy of a record by user ID
func (m *MockRecordStore) Get(ctx context.Context, userID string) (*database.UserRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.missing {
		return nil, m.unavailable()
	}
	rec, ok := m.records[userID]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", userID, database.ErrNotFound)
	}
	return rec.Clone(), nil
}

// Keys yields user IDs in sorted order
func (m *MockRecordStore) Keys(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if m.KeysError != nil {
			yield("", m.KeysError)
			return
		}
		m.mu.RLock()
		if m.missing {
			m.mu.RUnlock()
			yield("", m.unavailable())
			return
		}
		ids := make([]string, 0, len(m.records))
		for id := range m.records {
			ids = append(ids, id)
		}
		m.mu.RUnlock()

		sort.Strings(ids)
		for _, id := range ids {
			if !yield(id, nil) {
				return
			}
		}
	}
}

// All returns copies of every record
func (m *MockRecordStore) All(ctx context.Context) (map[string]*database.UserRecord, error) {
	if m.AllError != nil {
		return nil, m.AllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.missing {
		return nil, m.unavailable()
	}
	out := make(map[string]*database.UserRecord, len(m.records))
	for id, rec := range m.records {
		out[id] = rec.Clone()
	}
	return out, nil
}

// Put stores a copy of rec
func (m *MockRecordStore) Put(ctx context.Context, rec *database.UserRecord) error {
	if m.PutError != nil {
		return m.PutError
	}
	if rec.SampleCount != len(rec.Samples) {
		return fmt.Errorf("%w: sample_count mismatch", database.ErrValidation)
	}
	if err := database.ValidateSamples(rec.Samples, 0); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.UserID] = rec.Clone()
	m.missing = false
	m.putCalls++
	return nil
}

// Delete removes a record
func (m *MockRecordStore) Delete(ctx context.Context, userID string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.missing {
		return m.unavailable()
	}
	if _, ok := m.records[userID]; !ok {
		return fmt.Errorf("user %q: %w", userID, database.ErrNotFound)
	}
	delete(m.records, userID)
	return nil
}

var _ database.RecordWriter = (*MockRecordStore)(nil)
