package domain

import "context"

// Document is a stored record: an id plus its field mapping.
type Document struct {
	ID     string
	Fields map[string]any
}

// DocumentStore persists field-mapping documents grouped by collection.
type DocumentStore interface {
	Create(ctx context.Context, collection, id string, fields map[string]any) (string, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string) ([]Document, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
}

// ObjectStore publishes bytes under a path and returns a resolvable URL.
type ObjectStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// Fetcher retrieves raw bytes by URL.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// FontSource yields the bytes of the decoration font.
type FontSource interface {
	Bytes(ctx context.Context) ([]byte, error)
}
