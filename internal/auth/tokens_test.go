package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	m   map[string]int
	err error
}

func (r fakeRepo) LoadTokens(ctx context.Context) (map[string]int, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.m, nil
}

func TestCache_Validate(t *testing.T) {
	c := NewCache()
	assert.False(t, c.Ready())
	assert.ErrorIs(t, c.Validate("a"), ErrTokenStoreNotReady)

	c.Replace(map[string]int{"a": 5, "b": 0})
	assert.True(t, c.Ready())
	assert.NoError(t, c.Validate("a"))
	assert.NoError(t, c.Validate("b"))
	assert.ErrorIs(t, c.Validate("c"), ErrInvalidAPIKey)
	assert.Equal(t, 5, c.RateLimit("a"))
	assert.Equal(t, 0, c.RateLimit("c"))
}

func TestCache_ReplaceCopies(t *testing.T) {
	m := map[string]int{"a": 1}
	c := NewCache()
	c.Replace(m)
	m["a"] = 99
	assert.Equal(t, 1, c.RateLimit("a"))

	c.Replace(map[string]int{})
	assert.True(t, c.Ready(), "an empty table still counts as loaded")
	assert.ErrorIs(t, c.Validate("a"), ErrInvalidAPIKey)
}

func TestReloader_LoadOnce(t *testing.T) {
	c := NewCache()
	r := NewReloader(fakeRepo{m: map[string]int{"k": 3}}, c, time.Hour)
	require.NoError(t, r.LoadOnce(context.Background()))
	assert.Equal(t, 3, c.RateLimit("k"))

	failing := NewReloader(fakeRepo{err: errors.New("boom")}, c, time.Hour)
	assert.Error(t, failing.LoadOnce(context.Background()))
	assert.Equal(t, 3, c.RateLimit("k"), "cache unchanged on error")
}

type sequenceRepo struct {
	mu    sync.Mutex
	steps []fakeRepo
	idx   int
	calls atomic.Int32
}

func (r *sequenceRepo) LoadTokens(ctx context.Context) (map[string]int, error) {
	r.calls.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.steps[min(r.idx, len(r.steps)-1)]
	r.idx++
	return cur.LoadTokens(ctx)
}

func TestReloader_Start_Refreshes(t *testing.T) {
	c := NewCache()
	repo := &sequenceRepo{steps: []fakeRepo{
		{m: map[string]int{"k": 1}},
		{m: map[string]int{"k": 5}},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewReloader(repo, c, 20*time.Millisecond).Start(ctx)

	assert.Eventually(t, func() bool { return c.RateLimit("k") == 5 }, time.Second, 10*time.Millisecond)
}

func TestReloader_Start_DBDownKeepsCache(t *testing.T) {
	c := NewCache()
	c.Replace(map[string]int{"keep": 9})
	repo := &sequenceRepo{steps: []fakeRepo{{err: errors.New("db unavailable")}}}

	ctx, cancel := context.WithCancel(context.Background())
	NewReloader(repo, c, 20*time.Millisecond).Start(ctx)
	assert.Eventually(t, func() bool { return repo.calls.Load() > 0 }, time.Second, 10*time.Millisecond)
	cancel()

	assert.Equal(t, 9, c.RateLimit("keep"))
}

func TestNewReloader_DefaultInterval(t *testing.T) {
	r := NewReloader(fakeRepo{}, NewCache(), 0)
	assert.Equal(t, time.Minute, r.interval)
}
