// Package syncbus tells other running instances that bookmark state changed.
//
// Events carry no data. A receiver re-reads the store instead of trusting the
// signal, so delivery only has to be best-effort. An endpoint never receives
// its own events.
package syncbus

import (
	"context"
	"errors"
)

// Event is an opaque change signal.
type Event string

// BookmarksUpdated is published after any bookmark mutation.
const BookmarksUpdated Event = "BOOKMARKS_UPDATED"

// Handler reacts to one received event. Handlers of one subscription run
// sequentially in arrival order on their own goroutine.
type Handler func(ctx context.Context, ev Event)

// Bus is one endpoint of a broadcast channel shared by every instance of the
// application on this device.
type Bus interface {
	// Publish broadcasts ev to every other endpoint. Having no subscribers
	// is not an error.
	Publish(ctx context.Context, ev Event) error

	// Subscribe registers h and returns a function that removes it.
	Subscribe(h Handler) (unsubscribe func())

	// Close stops delivery and waits for running handlers to return.
	Close() error
}

// ErrClosed is returned when publishing on a closed endpoint.
var ErrClosed = errors.New("sync bus closed")
