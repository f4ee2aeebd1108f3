package eventstream

import "context"

// Publisher publishes cache events to an event stream backend.
type Publisher interface {
	PublishCacheEvent(ctx context.Context, event *CacheEvent) error
	Close() error
}
