package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/langowen/fxdash/internal/entities"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

const UpdatesChannel = "rates_updated"

// Storage keeps cache entries in Redis so several dashboard instances share them.
// Keys carry no expiry: freshness is decided from the stored timestamp, and stale
// entries stay readable for fallback.
type Storage struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

type Option func(*Storage)

func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

func NewStorage(client redis.UniversalClient, prefix string, opts ...Option) *Storage {
	s := &Storage{
		rdb:    client,
		prefix: prefix,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// InitStorage connects and pings Redis, retrying the ping with a constant backoff.
func InitStorage(ctx context.Context, options *redis.Options, prefix string, retries uint64, backoff time.Duration) (*Storage, error) {
	const op = "storage.redis.InitStorage"

	redisClient := redis.NewClient(options)

	b, err := retry.NewConstant(backoff)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	b = retry.WithMaxRetries(retries, b)

	if err := retry.Do(ctx, b, func(ctx context.Context) error {
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			slog.Warn("redis ping failed", "op", op, "addr", options.Addr, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		_ = redisClient.Close()
		return nil, errors.Wrap(err, op)
	}

	return NewStorage(redisClient, prefix), nil
}

func (s *Storage) Get(ctx context.Context, key string, ttl time.Duration) ([]byte, bool, error) {
	const op = "storage.redis.Get"

	entry, ok, err := s.load(ctx, key)
	if err != nil || !ok {
		return nil, false, errors.Wrap(err, op)
	}

	if s.now().Sub(entry.StoredAt) >= ttl {
		return nil, false, nil
	}

	return entry.Payload, true, nil
}

func (s *Storage) GetStale(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "storage.redis.GetStale"

	entry, ok, err := s.load(ctx, key)
	if err != nil || !ok {
		return nil, false, errors.Wrap(err, op)
	}

	return entry.Payload, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, payload []byte) error {
	const op = "storage.redis.Set"

	raw, err := json.Marshal(entities.CacheEntry{
		StoredAt: s.now().UTC(),
		Payload:  payload,
	})
	if err != nil {
		return errors.Wrap(err, op)
	}

	if err := s.rdb.Set(ctx, s.key(key), raw, 0).Err(); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

// PublishUpd announces that the entry under key was refreshed from upstream.
func (s *Storage) PublishUpd(ctx context.Context, key string) error {
	const op = "storage.redis.PublishUpd"

	if err := s.rdb.Publish(ctx, s.key(UpdatesChannel), key).Err(); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

func (s *Storage) Close() error {
	return s.rdb.Close()
}

func (s *Storage) load(ctx context.Context, key string) (entities.CacheEntry, bool, error) {
	var entry entities.CacheEntry

	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, err
	}

	if err := json.Unmarshal(raw, &entry); err != nil {
		slog.Warn("dropping undecodable cache entry", "key", key, "error", err)
		return entry, false, nil
	}

	return entry, true, nil
}

func (s *Storage) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}
