package binance

import (
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// usageTracker follows the request-weight budget the exchange reports back
// in the X-MBX-USED-WEIGHT-1M response header (2400/min for USDT-M futures).
type usageTracker struct {
	usedWeight    int
	limit         int
	lastReset     time.Time
	resetInterval time.Duration
	log           *zap.Logger
	mu            sync.RWMutex
}

func newUsageTracker(limit int, resetInterval time.Duration, log *zap.Logger) *usageTracker {
	return &usageTracker{
		limit:         limit,
		resetInterval: resetInterval,
		lastReset:     time.Now(),
		log:           log,
	}
}

// updateFromHeader records the used weight reported by the exchange.
func (u *usageTracker) updateFromHeader(headerValue string) {
	if headerValue == "" {
		return
	}
	weight, err := strconv.Atoi(headerValue)
	if err != nil {
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if time.Since(u.lastReset) >= u.resetInterval {
		u.usedWeight = 0
		u.lastReset = time.Now()
	}
	u.usedWeight = weight

	pct := float64(u.usedWeight) / float64(u.limit) * 100
	if pct >= 95 {
		u.log.Warn("rate limit critical, approaching ban threshold",
			zap.Int("used", u.usedWeight), zap.Int("limit", u.limit))
	} else if pct >= 80 {
		u.log.Warn("rate limit high",
			zap.Int("used", u.usedWeight), zap.Int("limit", u.limit))
	}
}

// Usage returns the current used weight, the limit, and usage percentage.
func (u *usageTracker) Usage() (used, limit int, percentage float64) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if time.Since(u.lastReset) >= u.resetInterval {
		return 0, u.limit, 0
	}
	return u.usedWeight, u.limit, float64(u.usedWeight) / float64(u.limit) * 100
}
