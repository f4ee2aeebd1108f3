package inmemory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/papercomputeco/wikifetch/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu is a read write sync mutex for locking both record maps
	mu sync.RWMutex

	// topics is keyed by canonical full name
	topics map[string]*storage.Topic

	// images is keyed by image name
	images map[string]*storage.Image
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		topics: make(map[string]*storage.Topic),
		images: make(map[string]*storage.Image),
	}
}

// GetTopic retrieves a topic by name.
func (s *Driver) GetTopic(_ context.Context, name string) (*storage.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topic, ok := s.topics[name]
	if !ok {
		return nil, storage.NotFoundError{Kind: storage.KindTopic, Name: name}
	}

	cp := *topic
	return &cp, nil
}

// PutTopic stores a topic. Returns true if the topic was newly inserted,
// false if it already existed.
func (s *Driver) PutTopic(_ context.Context, topic *storage.Topic) (bool, error) {
	if topic == nil {
		return false, errors.New("cannot store nil topic")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.topics[topic.Name]; ok {
		return false, nil
	}

	cp := *topic
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.topics[topic.Name] = &cp
	return true, nil
}

// GetImage retrieves an image record by name.
func (s *Driver) GetImage(_ context.Context, name string) (*storage.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	image, ok := s.images[name]
	if !ok {
		return nil, storage.NotFoundError{Kind: storage.KindImage, Name: name}
	}

	cp := *image
	return &cp, nil
}

// PutImage stores an image record. Returns true if the record was newly
// inserted, false if it already existed.
func (s *Driver) PutImage(_ context.Context, image *storage.Image) (bool, error) {
	if image == nil {
		return false, errors.New("cannot store nil image")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.images[image.Name]; ok {
		return false, nil
	}

	cp := *image
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.images[image.Name] = &cp
	return true, nil
}

// ReplaceImage swaps in a new URL and Filename when the stored Filename is
// still staleFilename.
func (s *Driver) ReplaceImage(_ context.Context, image *storage.Image, staleFilename string) (bool, error) {
	if image == nil {
		return false, errors.New("cannot store nil image")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.images[image.Name]
	if !ok || existing.Filename != staleFilename {
		return false, nil
	}

	cp := *existing
	cp.URL = image.URL
	cp.Filename = image.Filename
	s.images[image.Name] = &cp
	return true, nil
}

// Stats returns record counts.
func (s *Driver) Stats(_ context.Context) (*storage.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &storage.Stats{
		Topics: len(s.topics),
		Images: len(s.images),
	}, nil
}

// Close is a no-op for the in-memory store.
func (s *Driver) Close() error {
	return nil
}
