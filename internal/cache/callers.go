package cache

import (
	"context"
	"log/slog"
	"time"

	"call-intake/internal/metrics"
	"call-intake/internal/repo"
)

const callerKeyPrefix = "caller:"

// Callers caches caller records by normalized phone number. A nil *Callers
// is valid and caches nothing.
type Callers struct {
	redis   *Redis
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewCallers builds a caller cache on top of r.
func NewCallers(r *Redis, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *Callers {
	return &Callers{
		redis:   r,
		ttl:     ttl,
		logger:  logger.With("component", "caller_cache"),
		metrics: m,
	}
}

// Get returns the cached record for phone. Redis failures count as misses.
func (c *Callers) Get(ctx context.Context, phone string) (*repo.Caller, bool) {
	if c == nil {
		return nil, false
	}
	var caller repo.Caller
	ok, err := c.redis.GetJSON(ctx, callerKey(phone), &caller)
	switch {
	case err != nil:
		c.logger.Warn("caller cache get failed", "phone", phone, "error", err)
		c.observe("error")
		return nil, false
	case !ok:
		c.observe("miss")
		return nil, false
	}
	c.observe("hit")
	return &caller, true
}

// Put stores caller under its phone number.
func (c *Callers) Put(ctx context.Context, caller *repo.Caller) {
	if c == nil || caller == nil {
		return
	}
	if err := c.redis.SetJSON(ctx, callerKey(caller.PhoneNumber), caller, c.ttl); err != nil {
		c.logger.Warn("caller cache set failed", "phone", caller.PhoneNumber, "error", err)
	}
}

// Invalidate drops the cached record for phone.
func (c *Callers) Invalidate(ctx context.Context, phone string) {
	if c == nil {
		return
	}
	if err := c.redis.Delete(ctx, callerKey(phone)); err != nil {
		c.logger.Warn("caller cache invalidate failed", "phone", phone, "error", err)
	}
}

func (c *Callers) observe(result string) {
	if c.metrics != nil {
		c.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

func callerKey(phone string) string {
	return callerKeyPrefix + phone
}
