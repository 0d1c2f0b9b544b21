package cache

import (
	"context"
	"time"
)

// PresenceCache keeps a short-lived online flag per user. The durable
// presence row only changes on explicit connect/disconnect; the cache
// TTL is what eventually turns an abruptly lost connection offline.
type PresenceCache interface {
	SetOnline(ctx context.Context, userID int64, ttl time.Duration) error
	SetOffline(ctx context.Context, userID int64) error
	// Refresh extends the online TTL; a no-op when the flag expired.
	Refresh(ctx context.Context, userID int64, ttl time.Duration) error
	IsOnline(ctx context.Context, userID int64) (bool, error)
	Close() error
}
