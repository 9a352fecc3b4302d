// Package state owns the long-lived application state: the flat records of
// the last aggregation, the query, and the persisted connection, group
// selection and theme. Derived data (tree, view, options) is recomputed from
// it on read after any change.
package state

import (
	"log"
	"sync"

	"github.com/goccy/go-json"
)

// Storage is a key/value blob store. db.DB and MemoryStorage implement it.
type Storage interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
}

// MemoryStorage keeps blobs in process memory
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStorage creates an empty MemoryStorage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: map[string][]byte{}}
}

func (m *MemoryStorage) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	return value, ok, nil
}

func (m *MemoryStorage) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// load decodes the blob under key into a T. Missing, unreadable or
// malformed blobs yield ok=false.
func load[T any](storage Storage, key string) (value T, ok bool) {
	raw, found, err := storage.Get(key)
	if err != nil {
		log.Printf("Warning: failed to read %s: %v", key, err)
		return value, false
	}
	if !found {
		return value, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		log.Printf("Warning: ignoring malformed %s: %v", key, err)
		var zero T
		return zero, false
	}
	return value, true
}

// save stores value under key. Failures are logged and otherwise ignored.
func save(storage Storage, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("Warning: failed to encode %s: %v", key, err)
		return
	}
	if err := storage.Set(key, raw); err != nil {
		log.Printf("Warning: failed to save %s: %v", key, err)
	}
}

func remove(storage Storage, key string) {
	if err := storage.Remove(key); err != nil {
		log.Printf("Warning: failed to remove %s: %v", key, err)
	}
}
