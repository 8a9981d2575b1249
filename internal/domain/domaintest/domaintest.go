// Package domaintest provides in-memory collaborators for tests.
package domaintest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"jerseyprint/internal/domain"
)

// MemStore is an in-memory DocumentStore that keeps insertion order.
type MemStore struct {
	mu    sync.Mutex
	docs  map[string]map[string]map[string]any
	order map[string][]string
	seq   int

	// Err, when set, is returned by every call.
	Err error
}

func NewMemStore() *MemStore {
	return &MemStore{docs: map[string]map[string]map[string]any{}, order: map[string][]string{}}
}

func (m *MemStore) Create(ctx context.Context, collection, id string, fields map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if id == "" {
		m.seq++
		id = "doc" + strconv.Itoa(m.seq)
	}
	if m.docs[collection] == nil {
		m.docs[collection] = map[string]map[string]any{}
	}
	if _, ok := m.docs[collection][id]; ok {
		return "", fmt.Errorf("duplicate %s/%s", collection, id)
	}
	m.docs[collection][id] = copyFields(fields)
	m.order[collection] = append(m.order[collection], id)
	return id, nil
}

func (m *MemStore) Get(ctx context.Context, collection, id string) (domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return domain.Document{}, m.Err
	}
	f, ok := m.docs[collection][id]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: %s/%s", domain.ErrNotFound, collection, id)
	}
	return domain.Document{ID: id, Fields: copyFields(f)}, nil
}

func (m *MemStore) List(ctx context.Context, collection string) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]domain.Document, 0, len(m.order[collection]))
	for _, id := range m.order[collection] {
		out = append(out, domain.Document{ID: id, Fields: copyFields(m.docs[collection][id])})
	}
	return out, nil
}

func (m *MemStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cur, ok := m.docs[collection][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", domain.ErrNotFound, collection, id)
	}
	for k, v := range fields {
		cur[k] = v
	}
	return nil
}

// Count returns the number of documents in collection.
func (m *MemStore) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order[collection])
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// MemObjects is an in-memory ObjectStore.
type MemObjects struct {
	mu      sync.Mutex
	Objects map[string][]byte
	BaseURL string

	// FailPaths makes Put fail for the listed paths.
	FailPaths map[string]bool
}

func NewMemObjects() *MemObjects {
	return &MemObjects{Objects: map[string][]byte{}, BaseURL: "https://files.test", FailPaths: map[string]bool{}}
}

func (o *MemObjects) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.FailPaths[path] {
		return "", fmt.Errorf("%w: %s", domain.ErrUpload, path)
	}
	o.Objects[path] = append([]byte(nil), data...)
	return o.BaseURL + "/" + path, nil
}

// Has reports whether path was stored.
func (o *MemObjects) Has(path string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.Objects[path]
	return ok
}

// MapFetcher serves bytes by URL; unknown URLs fail.
type MapFetcher map[string][]byte

func (f MapFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	if b, ok := f[url]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("GET %s: 404 Not Found", url)
}
