// Package postgres stores documents and admin tokens in PostgreSQL through the
// pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"jerseyprint/internal/config"
)

const defaultPort = 5432

// DSN builds a postgres:// URL from the config. A host that already is a URL
// is returned unchanged.
func DSN(cfg config.PostgresConfig) (string, error) {
	if strings.HasPrefix(cfg.Host, "postgres://") || strings.HasPrefix(cfg.Host, "postgresql://") {
		return cfg.Host, nil
	}
	switch {
	case cfg.Host == "":
		return "", fmt.Errorf("postgres host is empty")
	case cfg.Database == "":
		return "", fmt.Errorf("postgres database is empty")
	case cfg.User == "":
		return "", fmt.Errorf("postgres user is empty")
	}

	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	host := cfg.Host
	switch {
	case strings.HasPrefix(host, "["):
		if !strings.Contains(host, "]:") {
			host = fmt.Sprintf("%s:%d", host, port)
		}
	case strings.Count(host, ":") >= 2:
		// bare IPv6
		host = fmt.Sprintf("[%s]:%d", host, port)
	case !strings.Contains(host, ":"):
		host = fmt.Sprintf("%s:%d", host, port)
	}

	u := &url.URL{Scheme: "postgres", Host: host, Path: "/" + cfg.Database, User: url.User(cfg.User)}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String(), nil
}

// DB hands out one *sql.DB per DSN and replaces it when the DSN changes.
type DB struct {
	mu  sync.Mutex
	dsn string
	db  *sql.DB
}

func NewDB() *DB { return &DB{} }

// Get opens the pool lazily. Connectivity is checked by the first query.
func (p *DB) Get(dsn string) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil && p.dsn == dsn {
		return p.db, nil
	}
	if p.db != nil {
		_ = p.db.Close()
		p.db, p.dsn = nil, ""
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	p.db, p.dsn = db, dsn
	return db, nil
}

// Close releases the pool.
func (p *DB) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db, p.dsn = nil, ""
	return err
}

// Ping checks connectivity within timeout.
func Ping(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return db.PingContext(ctx)
}
