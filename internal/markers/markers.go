// Package markers stores small keyed values that outlive a widget session,
// such as the date recurring to-do items were last injected.
package markers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pagewidgets/pagewidgets-server/internal/markers/badgerstore"
	"github.com/pagewidgets/pagewidgets-server/internal/markers/sqlite"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// Store is a string key/value store. Get reports false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// RecurringKey is the marker key recording the last date recurring items
// were added to a database.
func RecurringKey(databaseID string) string {
	return "recurring-added:" + databaseID
}

// Open opens a store with the named driver. path is ignored for memory.
func Open(driver, path string, logger *slog.Logger) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverSQLite:
		return sqlite.Open(path, logger)
	case DriverBadger:
		return badgerstore.Open(path, logger)
	default:
		return nil, fmt.Errorf("unknown marker store driver %q", driver)
	}
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Close() error { return nil }
