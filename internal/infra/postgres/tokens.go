package postgres

import (
	"context"
	"fmt"
	"time"
)

const tokensDDL = `CREATE TABLE IF NOT EXISTS tokens (
	token TEXT PRIMARY KEY,
	rate_limit INTEGER NOT NULL DEFAULT 60,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	comment TEXT
);`

// TokenRepository reads admin API keys and their per-key rate limits.
type TokenRepository struct {
	DB      *DB
	DSN     string
	Timeout time.Duration
}

func NewTokenRepository(db *DB, dsn string) *TokenRepository {
	return &TokenRepository{DB: db, DSN: dsn, Timeout: 5 * time.Second}
}

// LoadTokens returns token -> requests per interval.
func (r *TokenRepository) LoadTokens(ctx context.Context) (map[string]int, error) {
	db, err := r.DB.Get(r.DSN)
	if err != nil {
		return nil, err
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	if _, err := db.ExecContext(ctx, tokensDDL); err != nil {
		return nil, fmt.Errorf("ensure tokens table: %w", err)
	}
	rows, err := db.QueryContext(ctx, `SELECT token, rate_limit FROM tokens;`)
	if err != nil {
		return nil, fmt.Errorf("select tokens: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			token string
			limit int
		)
		if err := rows.Scan(&token, &limit); err != nil {
			return nil, err
		}
		out[token] = limit
	}
	return out, rows.Err()
}
