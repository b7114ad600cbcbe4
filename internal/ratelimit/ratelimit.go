package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deusflow/headwatch/internal/logger"
)

var ErrQuotaExceeded = errors.New("quota exceeded")

// QuotaLimiter counts calls per provider and resets all counters every window.
// A limit of zero or less means unlimited.
type QuotaLimiter struct {
	mu        sync.Mutex
	limits    map[string]int
	counts    map[string]int
	window    time.Duration
	resetTime time.Time
	now       func() time.Time
}

// NewQuotaLimiter creates a limiter with a daily window.
func NewQuotaLimiter(limits map[string]int) *QuotaLimiter {
	rl := &QuotaLimiter{
		limits: make(map[string]int, len(limits)),
		counts: make(map[string]int),
		window: 24 * time.Hour,
		now:    time.Now,
	}
	for k, v := range limits {
		rl.limits[k] = v
	}
	rl.resetTime = rl.now().Add(rl.window)
	return rl
}

// Allow reports whether provider has quota left without using it.
func (rl *QuotaLimiter) Allow(provider string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.checkReset()
	return !rl.exhausted(provider)
}

// Use records one call for provider.
func (rl *QuotaLimiter) Use(provider string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.checkReset()
	if rl.exhausted(provider) {
		logger.Warn("provider quota reached", "provider", provider, "used", rl.counts[provider], "limit", rl.limits[provider])
		return fmt.Errorf("%s: %w", provider, ErrQuotaExceeded)
	}
	rl.counts[provider]++
	return nil
}

func (rl *QuotaLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	stats := map[string]interface{}{
		"reset_time": rl.resetTime.Format(time.RFC3339),
	}
	for provider, limit := range rl.limits {
		stats[provider+"_used"] = rl.counts[provider]
		stats[provider+"_limit"] = limit
	}
	return stats
}

func (rl *QuotaLimiter) exhausted(provider string) bool {
	limit := rl.limits[provider]
	return limit > 0 && rl.counts[provider] >= limit
}

// checkReset resets counters if reset time has passed
func (rl *QuotaLimiter) checkReset() {
	now := rl.now()
	if now.After(rl.resetTime) {
		logger.Debug("resetting provider quotas")
		rl.counts = make(map[string]int)
		rl.resetTime = now.Add(rl.window)
	}
}
