package cache

import (
	"context"
	"time"
)

// Layered reads through a local L1 before a shared L2 and writes both.
// L2 errors are returned so callers can log them and treat the read as a miss.
type Layered struct {
	l1    BytesCache
	l2    BytesCache
	l1TTL time.Duration
}

// NewLayered keeps L1 copies for at most l1TTL (0 uses the caller's TTL).
func NewLayered(l1, l2 BytesCache, l1TTL time.Duration) *Layered {
	return &Layered{l1: l1, l2: l2, l1TTL: l1TTL}
}

// GetBytes promotes L2 hits into L1 for no longer than the L2 entry has left,
// so a promoted copy never outlives the original write.
func (c *Layered) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, err := c.l1.GetBytes(ctx, key); err == nil && ok {
		return b, true, nil
	}
	aging, canAge := c.l2.(AgingCache)
	if !canAge {
		b, ok, err := c.l2.GetBytes(ctx, key)
		if err != nil || !ok {
			return nil, false, err
		}
		return b, true, nil
	}

	b, remaining, ok, err := aging.GetBytesTTL(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if ttl := c.promoteTTL(remaining); ttl > 0 {
		_ = c.l1.SetBytes(ctx, key, b, ttl)
	}
	return b, true, nil
}

func (c *Layered) promoteTTL(remaining time.Duration) time.Duration {
	switch {
	case remaining <= 0:
		return c.l1TTL
	case c.l1TTL > 0 && c.l1TTL < remaining:
		return c.l1TTL
	default:
		return remaining
	}
}

func (c *Layered) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	l1TTL := ttl
	if c.l1TTL > 0 && (ttl <= 0 || c.l1TTL < ttl) {
		l1TTL = c.l1TTL
	}
	_ = c.l1.SetBytes(ctx, key, value, l1TTL)
	return c.l2.SetBytes(ctx, key, value, ttl)
}
