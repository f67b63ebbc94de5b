package remote

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is a process-local Store used in development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

// Get returns a copy of the document at collection/key, or nil when it
// does not exist.
func (s *MemoryStore) Get(_ context.Context, collection, key string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[collection+"/"+key]
	if !ok {
		return nil, nil
	}
	return doc.clone(), nil
}

// Set merges fields into the document at collection/key, creating it when
// missing. Top-level fields in fields replace stored ones.
func (s *MemoryStore) Set(_ context.Context, collection, key string, fields Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := collection + "/" + key
	s.docs[id] = s.docs[id].merge(fields.clone())
	return nil
}

func (d Document) clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
