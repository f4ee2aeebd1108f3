package wikiapi

import "errors"

var (
	// ErrNotFound is returned when the wiki has no such page or image.
	ErrNotFound = errors.New("not found on wiki")

	// ErrTransport is returned when the wiki could not be reached.
	ErrTransport = errors.New("wiki transport error")

	// ErrResponse is returned when the wiki answered with an error status or
	// a malformed body.
	ErrResponse = errors.New("bad wiki response")

	// ErrLogin is returned when the wiki rejected the configured credentials.
	ErrLogin = errors.New("wiki login failed")
)
