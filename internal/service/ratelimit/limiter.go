package ratelimit

import (
    "sync"
    "time"

    "golang.org/x/time/rate"
)

type entry struct {
    lim  *rate.Limiter
    seen time.Time
}

// Limiter hands out one token bucket per key. Buckets idle for longer than
// ttl are dropped on the next sweep.
type Limiter struct {
    mu    sync.Mutex
    m     map[string]*entry
    rps   rate.Limit
    burst int
    ttl   time.Duration
    now   func() time.Time
    last  time.Time
}

func New(rps float64, burst int, ttl time.Duration) *Limiter {
    if burst <= 0 {
        burst = 1
    }
    if ttl <= 0 {
        ttl = 10 * time.Minute
    }
    return &Limiter{m: make(map[string]*entry), rps: rate.Limit(rps), burst: burst, ttl: ttl, now: time.Now}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
    now := l.now()
    l.mu.Lock()
    defer l.mu.Unlock()

    if now.Sub(l.last) > l.ttl {
        l.sweep(now)
        l.last = now
    }
    e, ok := l.m[key]
    if !ok {
        e = &entry{lim: rate.NewLimiter(l.rps, l.burst)}
        l.m[key] = e
    }
    e.seen = now
    return e.lim.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
    l.mu.Lock()
    defer l.mu.Unlock()
    return len(l.m)
}

func (l *Limiter) sweep(now time.Time) {
    for k, e := range l.m {
        if now.Sub(e.seen) > l.ttl {
            delete(l.m, k)
        }
    }
}
