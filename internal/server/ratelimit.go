package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitConfig holds per-client limits. Zero values disable a limit.
type RateLimitConfig struct {
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // bytes uploaded per day
}

// RateLimiter tracks per-client request rates and daily quotas.
type RateLimiter struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	clients map[string]*clientUsage
}

type clientUsage struct {
	requestsLastMinute int
	requestsLastHour   int
	requestsToday      int
	dataToday          int64
	lastRequestTime    time.Time
	dayStart           time.Time
}

// NewRateLimiter creates a rate limiter with the given limits.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		clients: make(map[string]*clientUsage),
	}
}

// Check reports whether a request from clientID carrying dataSize bytes is
// allowed, and records it if so.
func (rl *RateLimiter) Check(clientID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	usage, ok := rl.clients[clientID]
	if !ok {
		usage = &clientUsage{lastRequestTime: now, dayStart: now}
		rl.clients[clientID] = usage
	}
	rl.rollWindows(usage, now)

	if rl.cfg.RequestsPerMinute > 0 && usage.requestsLastMinute >= rl.cfg.RequestsPerMinute {
		return &RateLimitError{
			Type:       "minute",
			Limit:      rl.cfg.RequestsPerMinute,
			RetryAfter: time.Minute - now.Sub(usage.lastRequestTime),
		}
	}
	if rl.cfg.RequestsPerHour > 0 && usage.requestsLastHour >= rl.cfg.RequestsPerHour {
		return &RateLimitError{
			Type:       "hour",
			Limit:      rl.cfg.RequestsPerHour,
			RetryAfter: time.Hour - now.Sub(usage.lastRequestTime),
		}
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	if rl.cfg.MaxRequestsPerDay > 0 && usage.requestsToday >= rl.cfg.MaxRequestsPerDay {
		return &QuotaExceededError{
			Type:   "requests",
			Limit:  int64(rl.cfg.MaxRequestsPerDay),
			Used:   int64(usage.requestsToday),
			Resets: midnight,
		}
	}
	if rl.cfg.MaxDataPerDay > 0 && usage.dataToday+dataSize > rl.cfg.MaxDataPerDay {
		return &QuotaExceededError{
			Type:   "data",
			Limit:  rl.cfg.MaxDataPerDay,
			Used:   usage.dataToday,
			Resets: midnight,
		}
	}

	usage.requestsLastMinute++
	usage.requestsLastHour++
	usage.requestsToday++
	usage.dataToday += dataSize
	usage.lastRequestTime = now
	return nil
}

// rollWindows resets counters whose time window has passed.
func (rl *RateLimiter) rollWindows(usage *clientUsage, now time.Time) {
	if now.Day() != usage.dayStart.Day() || now.Month() != usage.dayStart.Month() {
		usage.requestsToday = 0
		usage.dataToday = 0
		usage.dayStart = now
	}
	if now.Sub(usage.lastRequestTime) >= time.Minute {
		usage.requestsLastMinute = 0
	}
	if now.Sub(usage.lastRequestTime) >= time.Hour {
		usage.requestsLastHour = 0
	}
}

// RateLimitError reports a minute or hour rate limit violation.
type RateLimitError struct {
	Type       string
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError reports a daily quota violation.
type QuotaExceededError struct {
	Type   string
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
