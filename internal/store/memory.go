package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryDocumentStore is an in-memory DocumentStore used by tests and local
// development. It applies the same containment semantics as the Postgres
// implementation.
type MemoryDocumentStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
}

// Ensure MemoryDocumentStore implements the DocumentStore interface
var _ DocumentStore = (*MemoryDocumentStore)(nil)

// NewMemoryDocumentStore creates an empty in-memory store.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{collections: make(map[string]map[string]Document)}
}

// FetchOne implements DocumentStore.FetchOne.
func (s *MemoryDocumentStore) FetchOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.collections[collection] {
		if matchesFilter(doc, filter) {
			return doc, nil
		}
	}
	return nil, ErrNotFound
}

// FetchAll implements DocumentStore.FetchAll.
func (s *MemoryDocumentStore) FetchAll(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Document
	for _, doc := range s.collections[collection] {
		if matchesFilter(doc, filter) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Insert implements DocumentStore.Insert.
func (s *MemoryDocumentStore) Insert(ctx context.Context, collection string, doc Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID() == "" {
		doc[IDField] = uuid.NewString()
	}
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]Document)
	}
	s.collections[collection][doc.ID()] = doc
	return doc, nil
}

// Update implements DocumentStore.Update.
func (s *MemoryDocumentStore) Update(ctx context.Context, collection string, id string, doc Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return nil, ErrNotFound
	}
	doc[IDField] = id
	s.collections[collection][id] = doc
	return doc, nil
}

// Delete implements DocumentStore.Delete.
func (s *MemoryDocumentStore) Delete(ctx context.Context, collection string, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.collections[collection], id)
	return doc, nil
}

// matchesFilter applies containment semantics: every filter entry must be
// contained in the document.
func matchesFilter(doc Document, filter Filter) bool {
	for key, want := range filter {
		got, ok := doc[key]
		if !ok || !contains(got, want) {
			return false
		}
	}
	return true
}

// contains reports whether got contains want: scalars by equality, maps by
// recursive key containment, and slices when every wanted element is
// contained in some element of got.
func contains(got, want any) bool {
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok {
			return false
		}
		for key, value := range w {
			nested, ok := g[key]
			if !ok || !contains(nested, value) {
				return false
			}
		}
		return true
	case Filter:
		return contains(got, map[string]any(w))
	case []any:
		g, ok := got.([]any)
		if !ok {
			return false
		}
		for _, wanted := range w {
			found := false
			for _, candidate := range g {
				if contains(candidate, wanted) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return got == want
	}
}
