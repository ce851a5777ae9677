package persistence

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sync"
)

// MemoryRecordStore keeps collections in process memory. It backs the
// "memory" store driver and tests.
type MemoryRecordStore struct {
	mu          sync.RWMutex
	collections map[string][]byte
	versions    map[string]int64
}

// NewMemoryRecordStore creates an empty store
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		collections: make(map[string][]byte),
		versions:    make(map[string]int64),
	}
}

// Load returns a copy of the stored records
func (s *MemoryRecordStore) Load(_ context.Context, collection string) ([]json.RawMessage, error) {
	s.mu.RLock()
	payload, ok := s.collections[collection]
	s.mu.RUnlock()
	if !ok {
		return []json.RawMessage{}, nil
	}
	return decodeCollection(collection, payload)
}

// SaveAll replaces collection with a copy of records
func (s *MemoryRecordStore) SaveAll(_ context.Context, collection string, records []json.RawMessage) error {
	payload, err := encodeCollection(records)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = payload
	s.versions[collection]++
	return nil
}

// Versions returns how many times each collection was saved
func (s *MemoryRecordStore) Versions(context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.versions), nil
}

// Names lists stored collections in name order
func (s *MemoryRecordStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.collections))
}
