package adapter

import (
	"context"
	"time"
)

// Locker serializes lifecycle operations per job id. TryLock returns a token
// to be presented on Unlock; a held lock makes TryLock fail fast.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
