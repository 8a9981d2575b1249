package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/xid"

	"jerseyprint/internal/domain"
)

const documentsDDL = `CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);`

const documentsIndexDDL = `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (collection, created_at);`

// DocumentStore keeps field mappings as JSONB rows keyed by collection and id.
type DocumentStore struct {
	DB  *DB
	DSN string

	schemaMu    sync.Mutex
	schemaReady bool
}

func NewDocumentStore(db *DB, dsn string) *DocumentStore {
	return &DocumentStore{DB: db, DSN: dsn}
}

var _ domain.DocumentStore = (*DocumentStore)(nil)

func (s *DocumentStore) conn(ctx context.Context) (*sql.DB, error) {
	db, err := s.DB.Get(s.DSN)
	if err != nil {
		return nil, err
	}

	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return db, nil
	}
	if _, err := db.ExecContext(ctx, documentsDDL); err != nil {
		return nil, fmt.Errorf("ensure documents table: %w", err)
	}
	if _, err := db.ExecContext(ctx, documentsIndexDDL); err != nil {
		return nil, fmt.Errorf("ensure documents index: %w", err)
	}
	s.schemaReady = true
	return db, nil
}

// Create inserts a document. An empty id is replaced by a generated one.
func (s *DocumentStore) Create(ctx context.Context, collection, id string, fields map[string]any) (string, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = xid.New().String()
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb);`,
		collection, id, string(data)); err != nil {
		return "", fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	return id, nil
}

// Get reads one document; a missing row yields domain.ErrNotFound.
func (s *DocumentStore) Get(ctx context.Context, collection, id string) (domain.Document, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return domain.Document{}, err
	}
	var raw []byte
	err = db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2;`,
		collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, fmt.Errorf("%w: %s/%s", domain.ErrNotFound, collection, id)
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("select %s/%s: %w", collection, id, err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return domain.Document{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return domain.Document{ID: id, Fields: fields}, nil
}

// List returns the documents of a collection, oldest first.
func (s *DocumentStore) List(ctx context.Context, collection string) ([]domain.Document, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE collection = $1 ORDER BY created_at, id;`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		out = append(out, domain.Document{ID: id, Fields: fields})
	}
	return out, rows.Err()
}

// Update merges fields into an existing document.
func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	res, err := db.ExecContext(ctx,
		`UPDATE documents SET data = data || $3::jsonb, updated_at = now() WHERE collection = $1 AND id = $2;`,
		collection, id, string(data))
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", domain.ErrNotFound, collection, id)
	}
	return nil
}

func decodeFields(raw []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
