package core

import "errors"

// ErrHubStopped is returned when publishing to a hub whose Run loop has exited.
var ErrHubStopped = errors.New("hub stopped")
