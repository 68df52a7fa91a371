package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptStore counts failed login attempts per key within a rolling window.
type AttemptStore interface {
	// Increment bumps the counter for key, starting the window on first
	// failure, and returns the new count.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	// Count returns the current counter without modifying it.
	Count(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// Lockout refuses further login attempts for an email+IP pair once the
// failure threshold is reached, until the window elapses.
type Lockout struct {
	store     AttemptStore
	threshold int64
	window    time.Duration
}

func NewLockout(store AttemptStore, threshold int, window time.Duration) *Lockout {
	return &Lockout{store: store, threshold: int64(threshold), window: window}
}

func lockoutKey(email, ip string) string {
	return fmt.Sprintf("login_attempts:%s:%s", strings.ToLower(strings.TrimSpace(email)), ip)
}

// Locked reports whether the pair is currently locked out. Store failures
// fail open: an unavailable counter must not take logins down with it.
func (l *Lockout) Locked(ctx context.Context, email, ip string) bool {
	if l == nil {
		return false
	}
	count, err := l.store.Count(ctx, lockoutKey(email, ip))
	if err != nil {
		return false
	}
	return count >= l.threshold
}

// RecordFailure counts one failed attempt.
func (l *Lockout) RecordFailure(ctx context.Context, email, ip string) {
	if l == nil {
		return
	}
	_, _ = l.store.Increment(ctx, lockoutKey(email, ip), l.window)
}

// Clear resets the counter after a successful login.
func (l *Lockout) Clear(ctx context.Context, email, ip string) {
	if l == nil {
		return
	}
	_ = l.store.Reset(ctx, lockoutKey(email, ip))
}

// RedisAttempts backs the lockout counters with Redis so they survive
// restarts and are shared across replicas.
type RedisAttempts struct {
	client *redis.Client
}

func NewRedisAttempts(client *redis.Client) *RedisAttempts {
	return &RedisAttempts{client: client}
}

func (r *RedisAttempts) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		// First failure in the window: arm the expiry.
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

func (r *RedisAttempts) Count(ctx context.Context, key string) (int64, error) {
	count, err := r.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}

func (r *RedisAttempts) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// MemoryAttempts is the single-process fallback when Redis is not configured.
type MemoryAttempts struct {
	mu      sync.Mutex
	buckets map[string]*attemptBucket
	now     func() time.Time
}

type attemptBucket struct {
	count     int64
	expiresAt time.Time
}

func NewMemoryAttempts() *MemoryAttempts {
	return &MemoryAttempts{buckets: make(map[string]*attemptBucket), now: time.Now}
}

func (m *MemoryAttempts) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	bucket, ok := m.buckets[key]
	if !ok || now.After(bucket.expiresAt) {
		bucket = &attemptBucket{expiresAt: now.Add(window)}
		m.buckets[key] = bucket
	}
	bucket.count++
	return bucket.count, nil
}

func (m *MemoryAttempts) Count(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.buckets[key]
	if !ok || m.now().After(bucket.expiresAt) {
		return 0, nil
	}
	return bucket.count, nil
}

func (m *MemoryAttempts) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buckets, key)
	return nil
}
