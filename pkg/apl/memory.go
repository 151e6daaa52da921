// pkg/apl/memory.go
package apl

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryAPL keeps records in a process-local map. Used for development and
// tests; credentials do not survive a restart.
type MemoryAPL struct {
	log *zap.SugaredLogger

	mu      sync.RWMutex
	records map[string]AuthData
	touched bool // whether the store was ever written to
}

func NewMemoryAPL(log *zap.SugaredLogger) *MemoryAPL {
	return &MemoryAPL{log: log.Named("apl.memory"), records: map[string]AuthData{}}
}

func (m *MemoryAPL) Get(ctx context.Context, saleorAPIURL string) (AuthData, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.records[saleorAPIURL]
	return d, ok
}

func (m *MemoryAPL) Set(ctx context.Context, data AuthData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[data.SaleorAPIURL] = data
	m.touched = true
	return nil
}

func (m *MemoryAPL) Delete(ctx context.Context, saleorAPIURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, saleorAPIURL)
	return nil
}

func (m *MemoryAPL) GetAll(ctx context.Context) []AuthData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AuthData, 0, len(m.records))
	for _, d := range m.records {
		out = append(out, d)
	}
	return out
}

// IsConfigured mirrors the file backend: an untouched store is "configurable"
// (true); a store that was written and is now empty is not configured.
func (m *MemoryAPL) IsConfigured(ctx context.Context) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.records) > 0 {
		return true
	}
	return !m.touched
}
