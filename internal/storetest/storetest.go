// Package storetest provides in-memory stand-ins for the two stores so
// coordinator logic can be tested without postgres or S3
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"bitwise74/paste-api/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB opens a fresh in-memory sqlite database with the paste tables
// migrated
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())

	db, err := gorm.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(model.Paste{}, model.Document{}, model.PasteToken{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// Memory is an object store kept in a map. It mirrors the real store's
// contract: deletes are idempotent, fetches of unknown keys fail
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte

	// FailPuts makes every put fail, used to exercise rollback paths
	FailPuts bool
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) PutDocument(_ context.Context, key, _ string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPuts {
		return fmt.Errorf("put %s: injected failure", key)
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	m.objects[key] = buf

	return nil
}

func (m *Memory) FetchDocument(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("fetch %s: no such key", key)
	}

	return data, nil
}

func (m *Memory) DeleteDocument(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	return nil
}

// Has reports whether content exists for the key
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.objects[key]
	return ok
}

// Len returns the number of stored objects
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.objects)
}
