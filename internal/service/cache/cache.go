package cache

import (
	"context"
	"time"
)

// BytesCache stores raw bytes with a TTL. A miss is (nil, false, nil).
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// AgingCache also reports how long a hit has left to live. A remaining TTL of
// 0 means the entry does not expire.
type AgingCache interface {
	BytesCache
	GetBytesTTL(ctx context.Context, key string) (b []byte, remaining time.Duration, ok bool, err error)
}
