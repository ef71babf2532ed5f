package journal

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps documents in a map. It backs the "memory" store type
// and the tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

var _ Documents = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (m *MemoryStore) Get(ctx context.Context, path string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[path]
	if !ok {
		return Document{}, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return doc, nil
}

func (m *MemoryStore) Put(ctx context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[path] = Document{
		Path:       path,
		Collection: collectionOf(path),
		Data:       string(data),
		UpdatedAt:  time.Now().UTC(),
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[path]; !ok {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	delete(m.docs, path)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Document
	for _, d := range m.docs {
		if d.Collection == collection {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b Document) int {
		return strings.Compare(a.Path, b.Path)
	})
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
