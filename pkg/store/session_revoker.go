package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemorySessionRevoker keeps revocation cutoffs in memory (single instance
// deployments and tests).
type MemorySessionRevoker struct {
	mu      sync.Mutex
	cutoffs map[uint]time.Time
	expiry  map[uint]time.Time
}

// NewMemorySessionRevoker builds an in-memory revoker.
func NewMemorySessionRevoker() *MemorySessionRevoker {
	return &MemorySessionRevoker{
		cutoffs: make(map[uint]time.Time),
		expiry:  make(map[uint]time.Time),
	}
}

// RevokeUser records a revocation cutoff for the user.
func (r *MemorySessionRevoker) RevokeUser(userID uint, since time.Time, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.cutoffs[userID]; !ok || since.After(existing) {
		r.cutoffs[userID] = since
		r.expiry[userID] = time.Now().Add(ttl)
	}
	return nil
}

// RevokedSince returns the user's revocation cutoff, if one is active.
func (r *MemorySessionRevoker) RevokedSince(userID uint) (time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff, ok := r.cutoffs[userID]
	if !ok {
		return time.Time{}, false, nil
	}
	if time.Now().After(r.expiry[userID]) {
		delete(r.cutoffs, userID)
		delete(r.expiry, userID)
		return time.Time{}, false, nil
	}
	return cutoff, true, nil
}

// RedisSessionRevoker stores revocation cutoffs in Redis with TTL so every
// instance sees the same cutoffs.
type RedisSessionRevoker struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisSessionRevoker builds a Redis-backed revoker.
func NewRedisSessionRevoker(addr, password string) *RedisSessionRevoker {
	return &RedisSessionRevoker{
		client:    redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		keyPrefix: "tubemind:auth:revoked",
	}
}

func (r *RedisSessionRevoker) key(userID uint) string {
	return fmt.Sprintf("%s:%d", r.keyPrefix, userID)
}

// RevokeUser records a revocation cutoff for the user.
func (r *RedisSessionRevoker) RevokeUser(userID uint, since time.Time, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return r.client.Set(ctx, r.key(userID), strconv.FormatInt(since.UTC().UnixNano(), 10), ttl).Err()
}

// RevokedSince returns the user's revocation cutoff, if one is active.
func (r *RedisSessionRevoker) RevokedSince(userID uint) (time.Time, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	raw, err := r.client.Get(ctx, r.key(userID)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse revocation cutoff: %w", err)
	}
	return time.Unix(0, nanos).UTC(), true, nil
}
