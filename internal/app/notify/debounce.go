package notify

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Debouncer admits a key at most once per window.
type Debouncer interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

// ─── Redis ──────────────────────────────────────────────────────────────────

// RedisDebouncer shares debounce state between processes via SET NX.
type RedisDebouncer struct {
	r      redis.UniversalClient
	prefix string
}

// NewRedisDebouncer wraps a go-redis client.
func NewRedisDebouncer(r redis.UniversalClient) *RedisDebouncer {
	return &RedisDebouncer{r: r, prefix: "notify:"}
}

// Allow sets the key with the window as TTL; true when the key was new.
func (d *RedisDebouncer) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	return d.r.SetNX(ctx, d.prefix+key, "1", window).Result()
}

// ─── In-memory ──────────────────────────────────────────────────────────────

// MemoryDebouncer keeps debounce state in process. Expired keys are pruned
// lazily on Allow.
type MemoryDebouncer struct {
	mu     sync.Mutex
	seen   map[string]time.Time // key → expiry
	now    func() time.Time
	pruned time.Time
}

// NewMemoryDebouncer creates an empty in-process debouncer.
func NewMemoryDebouncer() *MemoryDebouncer {
	return &MemoryDebouncer{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// SetClock overrides the clock; for tests.
func (d *MemoryDebouncer) SetClock(now func() time.Time) {
	d.mu.Lock()
	d.now = now
	d.mu.Unlock()
}

// Allow reports whether key has not been admitted within window.
func (d *MemoryDebouncer) Allow(_ context.Context, key string, window time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if now.Sub(d.pruned) >= window {
		for k, exp := range d.seen {
			if !now.Before(exp) {
				delete(d.seen, k)
			}
		}
		d.pruned = now
	}

	if exp, ok := d.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	d.seen[key] = now.Add(window)
	return true, nil
}
