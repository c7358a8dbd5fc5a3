package repository

import (
	"context"
	"sync"

	authsync "github.com/goliatone/go-authsync"
)

// MemoryStore is a process local DocumentStore. Documents are copied on the
// way in and out so callers never share maps with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]authsync.Document
}

var _ authsync.DocumentStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: map[string]map[string]authsync.Document{},
	}
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (authsync.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[collection][id]
	if !ok {
		return nil, nil
	}
	return doc.Clone(), nil
}

func (m *MemoryStore) Set(ctx context.Context, collection, id string, doc authsync.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.docs[collection] == nil {
		m.docs[collection] = map[string]authsync.Document{}
	}

	stored := doc.Clone()
	if stored == nil {
		stored = authsync.Document{}
	}
	m.docs[collection][id] = stored
	return nil
}

func (m *MemoryStore) Create(ctx context.Context, collection, id string, doc authsync.Document) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[collection][id]; ok {
		return false, nil
	}

	if m.docs[collection] == nil {
		m.docs[collection] = map[string]authsync.Document{}
	}

	stored := doc.Clone()
	if stored == nil {
		stored = authsync.Document{}
	}
	m.docs[collection][id] = stored
	return true, nil
}

func (m *MemoryStore) Update(ctx context.Context, collection, id string, fields authsync.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[collection][id]
	if !ok {
		return authsync.ErrDocumentNotFound.Clone().WithMetadata(map[string]any{
			"collection": collection,
			"id":         id,
		})
	}

	m.docs[collection][id] = doc.Merge(fields)
	return nil
}

// Len returns how many documents a collection holds.
func (m *MemoryStore) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs[collection])
}
