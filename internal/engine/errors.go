package engine

import "errors"

var (
	// ErrUnknownSession is returned for session ids that were never created or are destroyed.
	ErrUnknownSession = errors.New("engine: unknown session")

	// ErrAlreadyStarted is returned by Start for a running session.
	ErrAlreadyStarted = errors.New("engine: session already started")

	// ErrNotStarted is returned when sending input to a session with no process.
	ErrNotStarted = errors.New("engine: session not started")

	// ErrExited is returned when the session's process has exited.
	ErrExited = errors.New("engine: session process exited")
)
