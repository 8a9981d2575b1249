// Package auth keeps the admin API keys in memory and refreshes them from the
// token repository.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"jerseyprint/internal/infra/logging"
)

var (
	// ErrInvalidAPIKey signals that the provided API key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrTokenStoreNotReady signals that tokens were never loaded, e.g. the
	// database was down at startup.
	ErrTokenStoreNotReady = errors.New("token store not ready")
)

// Cache maps admin keys to their per-interval request limit.
type Cache struct {
	mu     sync.RWMutex
	tokens map[string]int
}

func NewCache() *Cache { return &Cache{} }

// Replace swaps in a copy of m.
func (c *Cache) Replace(m map[string]int) {
	cp := make(map[string]int, len(m))
	for k, v := range m {
		cp[k] = v
	}
	c.mu.Lock()
	c.tokens = cp
	c.mu.Unlock()
}

// Ready reports whether the cache was loaded at least once.
func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens != nil
}

// Validate checks a key, distinguishing an unloaded cache from a bad key.
func (c *Cache) Validate(key string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil {
		return ErrTokenStoreNotReady
	}
	if _, ok := c.tokens[key]; !ok {
		return ErrInvalidAPIKey
	}
	return nil
}

// RateLimit returns the limit of key; 0 means unlimited or unknown.
func (c *Cache) RateLimit(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens[key]
}

// Repository loads the full token table.
type Repository interface {
	LoadTokens(ctx context.Context) (map[string]int, error)
}

// Reloader refreshes a Cache from a Repository.
type Reloader struct {
	repo     Repository
	cache    *Cache
	interval time.Duration
}

func NewReloader(repo Repository, cache *Cache, interval time.Duration) *Reloader {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reloader{repo: repo, cache: cache, interval: interval}
}

// LoadOnce replaces the cache on success and leaves it untouched on error.
func (r *Reloader) LoadOnce(ctx context.Context) error {
	m, err := r.repo.LoadTokens(ctx)
	if err != nil {
		return err
	}
	r.cache.Replace(m)
	logging.Debug("Admin tokens loaded", "count", len(m))
	return nil
}

// Start reloads every interval until ctx is done.
func (r *Reloader) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.LoadOnce(ctx); err != nil {
					logging.Error("Failed to reload admin tokens", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
