package ledger

import (
	"context"
	"strings"
	"sync"
)

// InMemoryStore keeps documents in process memory. It is the reference
// implementation for tests and local runs; it deep-copies on every read and
// write so callers can never mutate stored state through a shared map.
type InMemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{collections: make(map[string]map[string]Document)}
}

func (s *InMemoryStore) GetByKey(_ context.Context, collection, key string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if doc, ok := s.collections[collection][key]; ok {
		return deepCopy(doc), nil
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) Upsert(_ context.Context, collection, key string, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]Document)
		s.collections[collection] = coll
	}
	coll[key] = deepCopy(doc)
	return nil
}

func (s *InMemoryStore) UpdateFields(_ context.Context, collection, key string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[collection][key]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		doc[k] = copyValue(v)
	}
	return nil
}

func (s *InMemoryStore) QueryByPrefix(_ context.Context, collection, field, prefix string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Document
	for _, doc := range s.collections[collection] {
		if v, ok := doc[field].(string); ok && strings.HasPrefix(v, prefix) {
			out = append(out, deepCopy(doc))
		}
	}
	return out, nil
}

func deepCopy(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case Document:
		return deepCopy(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
