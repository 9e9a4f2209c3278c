// Package ratelimiter implements keyed token buckets for the previews API.
package ratelimiter

import (
	"math"
	"sync"
	"time"
)

// Config sizes a Limiter. Rate is tokens per second and Burst the bucket
// size, never below one. A key unseen for IdleTTL loses its bucket.
type Config struct {
	Rate    float64
	Burst   int
	IdleTTL time.Duration
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// Limiter hands out one bucket per key (client IP, or "global"). Idle buckets
// are pruned lazily from Allow, at most once per IdleTTL.
type Limiter struct {
	rate    float64
	burst   float64
	idleTTL time.Duration

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastPrune time.Time
	now       func() time.Time
}

func New(cfg Config) *Limiter {
	return &Limiter{
		rate:    cfg.Rate,
		burst:   math.Max(float64(cfg.Burst), 1),
		idleTTL: cfg.IdleTTL,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow takes one token from key's bucket. When the bucket is empty it
// reports how long until the next token is due.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastSeen: now}
		l.buckets[key] = b
	} else {
		b.tokens = math.Min(l.burst, b.tokens+now.Sub(b.lastSeen).Seconds()*l.rate)
		b.lastSeen = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if l.rate <= 0 {
		return false, l.idleTTL
	}
	return false, time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
}

// Len reports how many keys currently hold a bucket.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) pruneLocked(now time.Time) {
	if l.idleTTL <= 0 || now.Sub(l.lastPrune) < l.idleTTL {
		return
	}
	l.lastPrune = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.buckets, key)
		}
	}
}
