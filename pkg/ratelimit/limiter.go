package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket implements the token bucket algorithm for rate limiting.
type TokenBucket struct {
	capacity   int
	tokens     float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket.
// capacity: maximum number of requests allowed in a burst
// refillRate: requests allowed per second
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow reports whether a request should be let through, consuming one
// token when it is.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(float64(tb.capacity), tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Tokens returns the current number of available tokens.
func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.tokens
}

// KeyedLimiter manages one token bucket per key (client IP). Inactive
// buckets are evicted after ttl so the map cannot grow without bound.
type KeyedLimiter struct {
	buckets    map[string]*TokenBucket
	lastAccess map[string]time.Time
	capacity   int
	refillRate float64
	ttl        time.Duration
	mu         sync.Mutex
}

// NewKeyedLimiter creates a per-key rate limiter. ttl = 0 keeps buckets
// forever.
func NewKeyedLimiter(capacity int, refillRate float64, ttl time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		buckets:    make(map[string]*TokenBucket),
		lastAccess: make(map[string]time.Time),
		capacity:   capacity,
		refillRate: refillRate,
		ttl:        ttl,
	}
}

// Allow reports whether a request for the key should be let through.
func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	bucket, exists := l.buckets[key]
	if !exists {
		bucket = NewTokenBucket(l.capacity, l.refillRate)
		l.buckets[key] = bucket
	}
	l.lastAccess[key] = time.Now()
	l.evictStale()
	l.mu.Unlock()

	return bucket.Allow()
}

// Len returns the number of tracked keys.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// evictStale drops buckets idle longer than ttl. Caller holds the lock.
func (l *KeyedLimiter) evictStale() {
	if l.ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-l.ttl)
	for key, last := range l.lastAccess {
		if last.Before(cutoff) {
			delete(l.buckets, key)
			delete(l.lastAccess, key)
		}
	}
}
