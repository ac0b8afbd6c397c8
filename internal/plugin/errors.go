package plugin

import "errors"

// ErrLoadFailed reports that a plugin could not be instantiated or lacks
// the required capability surface.
var ErrLoadFailed = errors.New("plugin load failed")

// ErrIncompatibleVersion reports an API major-version mismatch with the host.
var ErrIncompatibleVersion = errors.New("plugin API version incompatible")

// ErrDuplicateID reports a second load of an already-loaded identifier.
var ErrDuplicateID = errors.New("plugin identifier already loaded")

// ErrNotFound reports an operation on an unknown or inactive identifier.
var ErrNotFound = errors.New("plugin not found")
