package ports

import (
	"context"
	"time"
)

// Cache is a best-effort key-value read model. Adapters may be backed by
// SQLite/Redis or other stores. Never consulted for correctness decisions.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
