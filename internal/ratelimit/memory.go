package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count     int
	windowEnd time.Time
}

// MemoryLimiter keeps fixed windows in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	clients map[string]*bucket
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		now:     time.Now,
		clients: make(map[string]*bucket),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, rule Rule) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.clients[key]
	if !ok || !now.Before(b.windowEnd) {
		l.clients[key] = &bucket{count: 1, windowEnd: now.Add(rule.Window)}
		l.sweep(now)
		return Decision{Allowed: true}, nil
	}

	if b.count >= rule.Max {
		retryAfter := b.windowEnd.Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return Decision{Allowed: false, RetryAfter: retryAfter}, nil
	}

	b.count++
	return Decision{Allowed: true}, nil
}

// sweep drops expired windows once the map grows.
func (l *MemoryLimiter) sweep(now time.Time) {
	if len(l.clients) < 10000 {
		return
	}
	for k, b := range l.clients {
		if !now.Before(b.windowEnd) {
			delete(l.clients, k)
		}
	}
}
