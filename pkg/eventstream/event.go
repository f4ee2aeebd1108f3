package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTopicCached is emitted after a topic is first inserted into the cache.
	EventTypeTopicCached = "wikifetch.topic.cached"

	// EventTypeImageCached is emitted after an image record is first inserted into the cache.
	EventTypeImageCached = "wikifetch.image.cached"
)

// CacheEvent is a transport-neutral event payload for a new cache record.
type CacheEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`

	// RequestID correlates the event with the resolution that produced it.
	RequestID string `json:"request_id,omitempty"`

	Topic *TopicMeta `json:"topic,omitempty"`
	Image *ImageMeta `json:"image,omitempty"`
}

// EventSource identifies which wiki the record came from.
type EventSource struct {
	APIURL string `json:"api_url"`
}

// TopicMeta describes a cached topic.
type TopicMeta struct {
	Name          string `json:"name"`
	ContentLength int    `json:"content_length"`
}

// ImageMeta describes a cached image.
type ImageMeta struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// NewTopicCached builds a topic event.
func NewTopicCached(apiURL, name string, contentLength int) *CacheEvent {
	return &CacheEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTopicCached,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        EventSource{APIURL: apiURL},
		Topic:         &TopicMeta{Name: name, ContentLength: contentLength},
	}
}

// NewImageCached builds an image event.
func NewImageCached(apiURL, name, url, filename string) *CacheEvent {
	return &CacheEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeImageCached,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        EventSource{APIURL: apiURL},
		Image:         &ImageMeta{Name: name, URL: url, Filename: filename},
	}
}

// Key is the partitioning key for the event: the record name.
func (e *CacheEvent) Key() string {
	switch {
	case e.Topic != nil:
		return e.Topic.Name
	case e.Image != nil:
		return e.Image.Name
	}
	return e.EventID
}
