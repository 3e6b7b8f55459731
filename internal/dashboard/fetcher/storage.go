package fetcher

import (
	"context"
	"time"
)

type Storage interface {
	Get(ctx context.Context, key string, ttl time.Duration) ([]byte, bool, error)
	GetStale(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte) error
}
