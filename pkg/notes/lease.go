package notes

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lease serializes note generation per resource so concurrent requests for
// the same video or document do not both call the model.
type Lease interface {
	// Acquire claims the resource for TTL. Returns false when another
	// generation already holds it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees the claim early.
	Release(ctx context.Context, key string) error
}

// RedisLease is a SetNX-based distributed lease.
type RedisLease struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisLease builds a Redis-backed lease.
func NewRedisLease(addr, password string) (*RedisLease, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("lease redis addr is required")
	}
	return &RedisLease{
		client:    redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		keyPrefix: "tubemind:notes:lease",
	}, nil
}

func (l *RedisLease) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.keyPrefix+":"+key, "1", ttl).Result()
}

func (l *RedisLease) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.keyPrefix+":"+key).Err()
}

// MemoryLease is an in-process lease for single-instance and test setups.
type MemoryLease struct {
	mu     sync.Mutex
	leases map[string]time.Time
}

// NewMemoryLease builds an in-memory lease.
func NewMemoryLease() *MemoryLease {
	return &MemoryLease{leases: make(map[string]time.Time)}
}

func (l *MemoryLease) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if expires, held := l.leases[key]; held && now.Before(expires) {
		return false, nil
	}
	l.leases[key] = now.Add(ttl)
	return true, nil
}

func (l *MemoryLease) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.leases, key)
	return nil
}
