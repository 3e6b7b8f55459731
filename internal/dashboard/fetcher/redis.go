package fetcher

import "context"

// Publisher is notified with the cache key of every payload refreshed from upstream.
type Publisher interface {
	PublishUpd(ctx context.Context, key string) error
}

type nopPublisher struct{}

func (nopPublisher) PublishUpd(context.Context, string) error { return nil }
