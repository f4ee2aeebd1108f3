package storage

import "errors"

const (
	KindTopic = "topic"
	KindImage = "image"
)

// NotFoundError is returned when a record doesn't exist in the store.
type NotFoundError struct {
	Kind string
	Name string
}

func (e NotFoundError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "record"
	}

	if e.Name == "" {
		return kind + " not found"
	}

	return kind + " not found: " + e.Name
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
