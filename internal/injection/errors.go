package injection

import "errors"

// ErrPermissionNotGranted reports that no input-simulation tool is usable
// at the moment of the keystroke attempt.
var ErrPermissionNotGranted = errors.New("input simulation not available")

// ErrEventConstruction reports a failure while dispatching synthesized key
// events.
var ErrEventConstruction = errors.New("key event dispatch failed")

// ErrClipboard reports a clipboard read or write failure.
var ErrClipboard = errors.New("clipboard operation failed")
