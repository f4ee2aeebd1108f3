package eventstream

import "errors"

// ErrNilCacheEvent indicates a nil cache event payload was provided to a publisher.
var ErrNilCacheEvent = errors.New("nil cache event")
