// Package ratelimit counts requests per caller in fixed windows.
//
// Memory keeps counters in the process: limits hold per instance only and
// reset on restart. Redis shares counters between instances.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter admits or rejects one request for key
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type window struct {
	start time.Time
	count int
}

// Memory is a process-local fixed-window limiter
type Memory struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu        sync.Mutex
	windows   map[string]*window
	lastSweep time.Time
}

// NewMemory allows limit requests per key in each period
func NewMemory(limit int, period time.Duration) *Memory {
	return &Memory{
		limit:   limit,
		period:  period,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow counts one request for key
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	w, ok := m.windows[key]
	if !ok || now.Sub(w.start) >= m.period {
		w = &window{start: now}
		m.windows[key] = w
	}
	reset := w.start.Add(m.period)
	if w.count >= m.limit {
		return Decision{Allowed: false, Remaining: 0, ResetAt: reset}, nil
	}
	w.count++
	return Decision{Allowed: true, Remaining: m.limit - w.count, ResetAt: reset}, nil
}

// sweep drops expired windows at most once per period
func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.period {
		return
	}
	m.lastSweep = now
	for k, w := range m.windows {
		if now.Sub(w.start) >= m.period {
			delete(m.windows, k)
		}
	}
}

// Redis is a fixed-window limiter whose counters live in Redis.
// Windows are aligned to multiples of period since the Unix epoch.
type Redis struct {
	client *redis.Client
	limit  int
	period time.Duration
	prefix string
	now    func() time.Time
}

// NewRedis allows limit requests per key in each period
func NewRedis(client *redis.Client, limit int, period time.Duration) *Redis {
	return &Redis{
		client: client,
		limit:  limit,
		period: period,
		prefix: "chapterhub:ratelimit:",
		now:    time.Now,
	}
}

func slotOf(t time.Time, period time.Duration) string {
	return strconv.FormatInt(t.UnixNano()/int64(period), 10)
}

// Allow counts one request for key
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	now := r.now()
	slot := now.UnixNano() / int64(r.period)
	reset := time.Unix(0, (slot+1)*int64(r.period))
	redisKey := r.prefix + key + ":" + slotOf(now, r.period)

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.period).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	remaining := r.limit - int(count)
	if remaining < 0 {
		return Decision{Allowed: false, ResetAt: reset}, nil
	}
	return Decision{Allowed: true, Remaining: remaining, ResetAt: reset}, nil
}
