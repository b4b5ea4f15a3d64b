package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	v       []byte
	exp     time.Time
	written time.Time
}

// TTLCache is an in-process BytesCache. Entries age from their write; reads
// never extend them. When full, the oldest write is evicted.
type TTLCache struct {
	mu      sync.Mutex
	m       map[string]*entry
	maxSize int
	now     func() time.Time
}

type TTLOption func(*TTLCache)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) TTLOption {
	return func(c *TTLCache) { c.now = now }
}

// WithMaxEntries bounds the number of entries; 0 means unbounded.
func WithMaxEntries(n int) TTLOption {
	return func(c *TTLCache) { c.maxSize = n }
}

func NewTTLCache(opts ...TTLOption) *TTLCache {
	c := &TTLCache{m: make(map[string]*entry), maxSize: 10000, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TTLCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	b, _, ok, err := c.GetBytesTTL(ctx, key)
	return b, ok, err
}

func (c *TTLCache) GetBytesTTL(_ context.Context, key string) ([]byte, time.Duration, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[key]
	if !ok {
		return nil, 0, false, nil
	}
	if e.exp.IsZero() {
		return e.v, 0, true, nil
	}
	remaining := e.exp.Sub(c.now())
	if remaining <= 0 {
		delete(c.m, key)
		return nil, 0, false, nil
	}
	return e.v, remaining, true, nil
}

func (c *TTLCache) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	if _, exists := c.m[key]; !exists && c.maxSize > 0 && len(c.m) >= c.maxSize {
		c.evictLocked(now)
	}
	c.m[key] = &entry{v: value, exp: exp, written: now}
	return nil
}

// Len reports stored entries, expired ones included until they are touched.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// evictLocked drops expired entries, or the oldest write if none expired.
func (c *TTLCache) evictLocked(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.m {
		if !e.exp.IsZero() && !now.Before(e.exp) {
			delete(c.m, k)
			continue
		}
		if oldestKey == "" || e.written.Before(oldest) {
			oldestKey, oldest = k, e.written
		}
	}
	if len(c.m) >= c.maxSize && oldestKey != "" {
		delete(c.m, oldestKey)
	}
}
