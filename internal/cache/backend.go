package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is the sentinel for a clean lookup miss, as opposed to a backend
// failure, which triggers fallback to the next backend.
var ErrMiss = errors.New("cache: miss")

// Backend is one tier of the response cache. Implementations must be safe
// for concurrent use and must honor the context deadline on every call.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
