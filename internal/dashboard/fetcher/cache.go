package fetcher

import (
	"context"
	"encoding/json"
	"time"
)

// loadFresh decodes the entry under key into dst when it is younger than ttl.
// Storage failures are logged and treated as a miss.
func (f *Fetcher) loadFresh(ctx context.Context, key string, ttl time.Duration, dst interface{}) bool {
	raw, ok, err := f.storage.Get(ctx, key, ttl)
	if err != nil {
		f.log.Warn("cache read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		f.log.Warn("cache entry undecodable", "key", key, "error", err)
		return false
	}

	return true
}

func (f *Fetcher) loadStale(ctx context.Context, kind, key string, dst interface{}) bool {
	raw, ok, err := f.storage.GetStale(ctx, key)
	if err != nil {
		f.log.Warn("stale cache read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		f.log.Warn("stale cache entry undecodable", "key", key, "error", err)
		return false
	}

	f.metrics.CacheLookups.WithLabelValues(kind, "stale").Inc()
	f.metrics.Fallbacks.WithLabelValues(kind, sourceCacheFallback).Inc()

	return true
}

// store writes v through to the cache and announces the refresh.
func (f *Fetcher) store(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		f.log.Error("cache encode failed", "key", key, "error", err)
		return
	}

	if err := f.storage.Set(ctx, key, raw); err != nil {
		f.log.Error("cache write failed", "key", key, "error", err)
		return
	}

	if err := f.publisher.PublishUpd(ctx, key); err != nil {
		f.log.Warn("publish update failed", "key", key, "error", err)
	}
}
