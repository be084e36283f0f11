// Package media abstracts the capture-side plumbing: display streams handed
// out by the local capture gateway, and the process-wide redirect that feeds
// a stream into the vision collaborator's input.
package media

import "context"

// Stream is a live display-capture handle.
type Stream interface {
	ID() string
	// StopTracks releases the underlying capture tracks. Best effort and
	// safe to call more than once.
	StopTracks() error
}

// SourceRouter owns the redirect of the vision input source. The redirect is
// process-wide mutable state, so at most one may be installed at a time:
// installing over a live redirect is an error, restoring without one is a
// no-op.
type SourceRouter interface {
	AcquireDisplay(ctx context.Context) (Stream, error)
	InstallRedirect(stream Stream) error
	RestoreRedirect()
}
