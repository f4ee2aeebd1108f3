// Package storage
package storage

import (
	"context"
)

// Driver defines the interface for persisting and retrieving cached wiki
// topics and image records in a storage backend.
//
// Records are never deleted. Put operations are insert-if-absent so that
// concurrent resolutions racing on the same name never overwrite each other.
// The only update is ReplaceImage, which is guarded by the filename the
// caller last saw.
type Driver interface {
	// GetTopic retrieves a topic by its canonical full name.
	// Returns NotFoundError when the topic was never stored.
	GetTopic(ctx context.Context, name string) (*Topic, error)

	// PutTopic stores a topic. Returns true if the topic was newly inserted,
	// false if a topic with the same name already exists. If the topic already
	// exists this is a no-op: the first writer wins.
	PutTopic(ctx context.Context, topic *Topic) (bool, error)

	// GetImage retrieves an image record by its image name.
	// Returns NotFoundError when the image was never stored.
	GetImage(ctx context.Context, name string) (*Image, error)

	// PutImage stores an image record with the same first-writer-wins
	// semantics as PutTopic.
	PutImage(ctx context.Context, image *Image) (bool, error)

	// ReplaceImage overwrites the URL and Filename of the record named
	// image.Name, but only while its stored Filename still equals
	// staleFilename. Returns true if the record was replaced. Two callers
	// repairing the same stale record cannot both win.
	ReplaceImage(ctx context.Context, image *Image, staleFilename string) (bool, error)

	// Stats returns record counts for the store.
	Stats(ctx context.Context) (*Stats, error)

	// Close closes the store and releases any resources.
	Close() error
}
