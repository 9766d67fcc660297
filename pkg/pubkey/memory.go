package pubkey

import (
	"context"
	"sync"
)

type memoryBackend struct {
	mu      sync.RWMutex
	records map[string]Record
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{records: make(map[string]Record)}
}

func (m *memoryBackend) Get(ctx context.Context, address string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[address]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memoryBackend) Put(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Address] = rec
	return nil
}

func (m *memoryBackend) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memoryBackend) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]Record)
	return nil
}
