package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter bounds requests per minute and uploaded bytes per day for each
// client address. A zero limit disables that check.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	maxDataPerDay     int64

	clients map[string]*clientUsage
	now     func() time.Time
}

type clientUsage struct {
	windowStart time.Time
	requests    int
	day         time.Time // midnight of the day dataToday belongs to
	dataToday   int64
}

// NewRateLimiter creates a limiter with the given limits.
func NewRateLimiter(requestsPerMinute int, maxDataPerDay int64) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		maxDataPerDay:     maxDataPerDay,
		clients:           make(map[string]*clientUsage),
		now:               time.Now,
	}
}

// Allow records a request of dataSize bytes from client, or returns a
// *RateLimitError or *QuotaExceededError without recording it.
func (rl *RateLimiter) Allow(client string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	usage, ok := rl.clients[client]
	if !ok {
		usage = &clientUsage{windowStart: now, day: midnight(now)}
		rl.clients[client] = usage
	}
	if now.Sub(usage.windowStart) >= time.Minute {
		usage.windowStart, usage.requests = now, 0
	}
	if day := midnight(now); !day.Equal(usage.day) {
		usage.day, usage.dataToday = day, 0
	}

	if rl.requestsPerMinute > 0 && usage.requests >= rl.requestsPerMinute {
		return &RateLimitError{
			Limit:      rl.requestsPerMinute,
			RetryAfter: time.Minute - now.Sub(usage.windowStart),
		}
	}
	if rl.maxDataPerDay > 0 && usage.dataToday+dataSize > rl.maxDataPerDay {
		return &QuotaExceededError{
			Limit:  rl.maxDataPerDay,
			Used:   usage.dataToday,
			Resets: usage.day.AddDate(0, 0, 1),
		}
	}

	usage.requests++
	usage.dataToday += dataSize
	return nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Limit      int           // requests per minute
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %d/min, retry after: %v)", e.Limit, e.RetryAfter.Round(time.Second))
}

// QuotaExceededError represents a daily upload quota violation.
type QuotaExceededError struct {
	Limit  int64     // bytes per day
	Used   int64     // bytes used today
	Resets time.Time // when the quota resets
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("upload quota exceeded (used: %d, limit: %d, resets: %s)",
		e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
