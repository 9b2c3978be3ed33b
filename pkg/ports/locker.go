package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes writers of the same session across hosts
// sharing one snapshot store.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx is done. The lock expires on its
	// own after ttl, so a crashed holder cannot wedge a session.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
