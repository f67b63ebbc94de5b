package local

import (
	"context"
	"sync"
)

// MemoryProvider keeps device stores in process memory.
type MemoryProvider struct {
	mu      sync.Mutex
	devices map[string]*MemoryStore
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{devices: make(map[string]*MemoryStore)}
}

// ForDevice returns the store for deviceID, creating it on first use.
func (p *MemoryProvider) ForDevice(deviceID string) (Store, error) {
	if err := ValidateDeviceID(deviceID); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	store, ok := p.devices[deviceID]
	if !ok {
		store = NewMemoryStore()
		p.devices[deviceID] = store
	}
	return store, nil
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, slot string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.slots[slot]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Set(_ context.Context, slot string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[slot] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, slot)
	return nil
}
