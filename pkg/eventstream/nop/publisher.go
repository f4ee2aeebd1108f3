package nop

import (
	"context"

	"github.com/papercomputeco/wikifetch/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

var _ eventstream.Publisher = (*Publisher)(nil)

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishCacheEvent validates input and otherwise does nothing.
func (p *Publisher) PublishCacheEvent(_ context.Context, event *eventstream.CacheEvent) error {
	if event == nil {
		return eventstream.ErrNilCacheEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
